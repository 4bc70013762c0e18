package elasticx

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	"github.com/gridsearch/x/errorx"
	"github.com/gridsearch/x/retryx"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
)

func (c *client) CreateIndexIfNotExists(ctx context.Context, index string, shards, replicas int) error {
	if shards < 1 || replicas < 0 {
		return errorx.InvalidArgumentErrorf("invalid shard (%d) or replica (%d) count for index %q", shards, replicas, index)
	}

	body, err := json.Marshal(map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   shards,
			"number_of_replicas": replicas,
		},
	})
	if err != nil {
		return errorx.InternalErrorf("%v", err).WithOriginalError(err)
	}

	created, err := withHandle(c, func(cl cluster) (bool, error) {
		exists, err := cl.IndexExists(ctx, index)
		if err != nil || exists {
			return false, err
		}
		return true, cl.CreateIndex(ctx, index, body)
	})
	if errorx.IsAlreadyExistsError(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if created {
		c.logger.Info(ctx, "elastic index created",
			attribute.String("index", index),
			attribute.Int("shards", shards),
			attribute.Int("replicas", replicas),
		)
	}
	return nil
}

func (c *client) EnsureIndex(ctx context.Context, index string, shards, replicas int, mapping json.RawMessage) error {
	return retryx.ExponentialRetry(func() error {
		err := c.CreateIndexIfNotExists(ctx, index, shards, replicas)
		if err == nil && len(mapping) > 0 {
			err = c.PutMapping(ctx, index, mapping)
		}
		return err
	},
		retryx.WithContext(ctx),
		retryx.WithRetryCount(5),
		retryx.WithRetryIf(func(err error) bool {
			return IsConnectionError(err) && !IsClientClosedError(err)
		}),
		retryx.WithNotify(func(err error, attempt int, wait time.Duration) {
			c.logger.WithError(err).Warn(ctx, "cannot ensure elastic index, retrying",
				attribute.String("index", index),
				attribute.Int("attempt", attempt),
				attribute.String("wait", wait.String()),
			)
		}),
	)
}

func (c *client) PutMapping(ctx context.Context, index string, mapping json.RawMessage) error {
	if !gjson.ValidBytes(mapping) || !gjson.ParseBytes(mapping).IsObject() {
		return errorx.InvalidArgumentErrorf("mapping for index %q must be a json object", index)
	}

	_, err := withHandle(c, func(cl cluster) (struct{}, error) {
		return struct{}{}, cl.PutMapping(ctx, index, mapping)
	})
	return err
}

func (c *client) PutMappingFile(ctx context.Context, index, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errorx.InvalidArgumentErrorf("cannot read mapping file %q: %v", path, err).WithOriginalError(err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if raw, err = yaml.YAMLToJSON(raw); err != nil {
			return errorx.InvalidArgumentErrorf("invalid yaml in mapping file %q: %v", path, err).WithOriginalError(err)
		}
	}

	return c.PutMapping(ctx, index, raw)
}

func (c *client) Refresh(ctx context.Context, indices ...string) error {
	_, err := withHandle(c, func(cl cluster) (struct{}, error) {
		return struct{}{}, cl.Refresh(ctx, indices...)
	})
	return err
}
