package elasticx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/otel/attribute"
)

const (
	scanPageSize         = 100
	scanInitialKeepAlive = 60 * time.Second
	scanKeepAlive        = 600 * time.Second
)

// scanCursor accumulates the ids (to type) matched by one scroll.
type scanCursor struct {
	scrollID string
	ids      map[string]string
}

func (s *scanCursor) collect(res *SearchResponse) int {
	if res.ScrollID != "" {
		s.scrollID = res.ScrollID
	}
	for _, h := range res.Hits.Hits {
		s.ids[h.ID] = gjson.GetBytes(h.Source, TypeField).String()
	}
	return len(res.Hits.Hits)
}

func scanBody(query json.RawMessage) ([]byte, error) {
	body, err := sjson.SetRawBytes([]byte(`{"sort":["_doc"]}`), "query", query)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if body, err = sjson.SetBytes(body, "size", scanPageSize); err != nil {
		return nil, errors.WithStack(err)
	}
	if body, err = sjson.SetRawBytes(body, "_source", []byte(`["`+TypeField+`"]`)); err != nil {
		return nil, errors.WithStack(err)
	}
	return body, nil
}

// scan pages through every document matching query until a page comes back empty.
// The scroll is cleared on the way out, whatever the outcome.
func (c *client) scan(ctx context.Context, cl cluster, index string, query json.RawMessage) (map[string]string, error) {
	body, err := scanBody(query)
	if err != nil {
		return nil, err
	}

	cur := &scanCursor{ids: map[string]string{}}
	defer func() {
		if cur.scrollID == "" {
			return
		}
		if err := cl.ClearScroll(ctx, cur.scrollID); err != nil {
			c.logger.WithError(err).Warn(ctx, "failed to clear elastic scroll", attribute.String("index", index))
		}
	}()

	res, err := cl.Search(ctx, index, body, scanInitialKeepAlive)
	if err != nil {
		return nil, err
	}

	for cur.collect(res) > 0 {
		res, err = cl.Scroll(ctx, cur.scrollID, scanKeepAlive)
		if err != nil {
			return nil, err
		}
	}

	return cur.ids, nil
}

func (c *client) DeleteByQuery(ctx context.Context, index string, predicate json.RawMessage) (int, error) {
	query, err := queryOrMatchAll(predicate)
	if err != nil {
		return 0, err
	}

	ids, err := withHandle(c, func(cl cluster) (map[string]string, error) {
		return c.scan(ctx, cl, index, query)
	})
	if err != nil {
		c.logger.WithError(err).Warn(ctx, "elastic delete by query aborted while scanning", attribute.String("index", index))
		return 0, err
	}

	c.metrics.recordScan(ctx, index, len(ids))

	return c.DeleteBulk(ctx, index, ids)
}
