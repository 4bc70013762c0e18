package elasticx

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/gridsearch/x/errorx"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
)

const (
	resultCreated  = "created"
	resultDeleted  = "deleted"
	resultUpdated  = "updated"
	resultNotFound = "not_found"
)

func (c *client) Write(ctx context.Context, index, typ, id string, version *int64, fields *Fields) (bool, error) {
	if id == "" {
		return false, errorx.InvalidArgumentErrorf("document id is required")
	}
	if fields == nil {
		fields = NewFields()
	}

	doc := Document{ID: id, Type: typ, Version: version, Fields: fields}
	body, err := json.Marshal(doc.source())
	if err != nil {
		return false, errorx.InvalidArgumentErrorf("document %q cannot be encoded: %v", id, err).WithOriginalError(err)
	}

	start := c.now()
	res, err := withHandle(c, func(cl cluster) (*IndexResponse, error) {
		return cl.Index(ctx, index, id, body, version)
	})
	if err != nil {
		c.logger.WithError(err).Warn(ctx, "elastic document not written",
			attribute.String("index", index),
			attribute.String("id", id),
			attribute.String("version_mode", string(doc.VersionMode())),
			attribute.Int64("duration_ms", c.now().Sub(start).Milliseconds()),
		)
		return false, err
	}

	created := res.Result == resultCreated
	c.logger.Info(ctx, "elastic document written",
		attribute.String("index", index),
		attribute.String("id", id),
		attribute.String("result", lo.Ternary(created, resultCreated, resultUpdated)),
		attribute.String("version_mode", string(doc.VersionMode())),
		attribute.Int64("duration_ms", c.now().Sub(start).Milliseconds()),
	)

	return created, nil
}

func (c *client) WriteMap(ctx context.Context, index, typ, id string, fields map[string]interface{}) (bool, error) {
	f := FieldsFromMap(fields)

	var version *int64
	if raw, ok := f.Delete(VersionField); ok && raw != nil {
		v, err := cast.ToInt64E(raw)
		if err != nil {
			return false, errorx.InvalidArgumentErrorf("invalid %s %v for document %q", VersionField, raw, id).WithOriginalError(err)
		}
		version = &v
	}

	return c.Write(ctx, index, typ, id, version, f)
}

func (c *client) Create(ctx context.Context, index, typ string, fields *Fields) (string, error) {
	id := ksuid.New().String()
	if _, err := c.Write(ctx, index, typ, id, nil, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (c *client) get(ctx context.Context, index, id string) (*GetResponse, error) {
	return withHandle(c, func(cl cluster) (*GetResponse, error) {
		return cl.Get(ctx, index, id)
	})
}

func (c *client) Exists(ctx context.Context, index, id string) (bool, error) {
	res, err := c.get(ctx, index, id)
	if err != nil {
		return false, err
	}
	return res.Found, nil
}

func (c *client) ExistBulk(ctx context.Context, index string, ids []string) ([]string, error) {
	ids = lo.Uniq(lo.Compact(ids))
	if len(ids) == 0 {
		return []string{}, nil
	}

	res, err := withHandle(c, func(cl cluster) (*MultiGetResponse, error) {
		return cl.MultiGet(ctx, index, ids)
	})
	if err != nil {
		return nil, err
	}

	found := lo.FilterMap(res.Docs, func(d GetResponse, _ int) (string, bool) {
		return d.ID, d.Found
	})
	return found, nil
}

func (c *client) GetType(ctx context.Context, index, id string) (string, error) {
	res, err := c.get(ctx, index, id)
	if err != nil {
		return "", err
	}
	if !res.Found {
		return "", nil
	}
	return gjson.GetBytes(res.Source, TypeField).String(), nil
}

func (c *client) ReadSource(ctx context.Context, index, id string) (json.RawMessage, error) {
	res, err := c.get(ctx, index, id)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return nil, errorx.NotFoundErrorf("document %q not found in index %q", id, index)
	}
	return res.Source, nil
}

func (c *client) ReadMap(ctx context.Context, index, id string) (map[string]interface{}, error) {
	src, err := c.ReadSource(ctx, index, id)
	if err != nil {
		return nil, err
	}

	m, err := decodeSource(src)
	if err != nil {
		return nil, errorx.InternalErrorf("invalid source for document %q: %v", id, err).WithOriginalError(err)
	}
	return m, nil
}

func (c *client) Read(ctx context.Context, index, id string) (*Document, error) {
	res, err := c.get(ctx, index, id)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return nil, errorx.NotFoundErrorf("document %q not found in index %q", id, index)
	}

	fields := NewFields()
	if err := json.Unmarshal(res.Source, fields); err != nil {
		return nil, errorx.InternalErrorf("invalid source for document %q: %v", id, err).WithOriginalError(err)
	}

	doc := &Document{ID: res.ID, Fields: fields}
	if t, ok := fields.Delete(TypeField); ok {
		doc.Type = cast.ToString(t)
	}
	if res.Version > 0 {
		v := res.Version
		doc.Version = &v
	}
	return doc, nil
}

func (c *client) Delete(ctx context.Context, index, id string) (bool, error) {
	start := c.now()
	res, err := withHandle(c, func(cl cluster) (*DeleteResponse, error) {
		return cl.Delete(ctx, index, id)
	})
	if err != nil {
		c.logger.WithError(err).Warn(ctx, "elastic document not deleted",
			attribute.String("index", index),
			attribute.String("id", id),
			attribute.Int64("duration_ms", c.now().Sub(start).Milliseconds()),
		)
		return false, err
	}

	deleted := res.Result == resultDeleted
	c.logger.Info(ctx, "elastic document deleted",
		attribute.String("index", index),
		attribute.String("id", id),
		attribute.String("result", lo.Ternary(deleted, resultDeleted, resultNotFound)),
		attribute.Int64("duration_ms", c.now().Sub(start).Milliseconds()),
	)
	return deleted, nil
}

func (c *client) DeleteBulk(ctx context.Context, index string, ids map[string]string) (int, error) {
	keys := lo.Keys(ids)
	sort.Strings(keys)
	keys = lo.Compact(keys)
	if len(keys) == 0 {
		return 0, nil
	}

	body, err := encodeDeleteBulk(keys)
	if err != nil {
		return 0, err
	}

	start := c.now()
	res, err := withHandle(c, func(cl cluster) (*BulkResponse, error) {
		return cl.Bulk(ctx, index, body)
	})
	if err != nil {
		c.logger.WithError(err).Warn(ctx, "elastic documents not deleted",
			attribute.String("index", index),
			attribute.Int("submitted", len(keys)),
			attribute.Int64("duration_ms", durationMillis(c.now().Sub(start))),
		)
		return 0, err
	}

	failed := lo.CountBy(res.Items, func(item BulkItemResponse) bool {
		return item.Error != nil
	})
	missing := lo.CountBy(res.Items, func(item BulkItemResponse) bool {
		return item.Error == nil && item.Result == resultNotFound
	})

	l := c.logger
	if failed > 0 {
		l = l.WithError(errors.Errorf("%d bulk delete items failed", failed))
	}
	l.Info(ctx, "elastic documents deleted",
		attribute.String("index", index),
		attribute.Int("submitted", len(keys)),
		attribute.Int("not_found", missing),
		attribute.Int("errors", failed),
		attribute.Int64("duration_ms", durationMillis(c.now().Sub(start))),
	)

	return len(keys), nil
}

func durationMillis(d time.Duration) int64 {
	return Measure(d, 0).DurationMillis
}
