package elasticx

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/gridsearch/x/errorx"
	"github.com/inhies/go-bytesize"
	"github.com/pkg/errors"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/otel/attribute"
)

// encodeIndexBulk renders entries as bulk NDJSON. Entries without an id are skipped.
// A missing timestamp field is filled with now on a copy of the entry fields.
func encodeIndexBulk(entries []*BulkEntry, now string) ([]byte, int, error) {
	var buf bytes.Buffer
	n := 0
	for _, e := range entries {
		if e == nil || e.ID == "" {
			continue
		}

		action, err := sjson.SetBytes([]byte(`{"index":{}}`), "index._id", e.ID)
		if err != nil {
			return nil, 0, errors.WithStack(err)
		}
		if e.Version != nil {
			if action, err = sjson.SetBytes(action, "index.version", *e.Version); err != nil {
				return nil, 0, errors.WithStack(err)
			}
			if action, err = sjson.SetBytes(action, "index.version_type", string(VersionModeExternal)); err != nil {
				return nil, 0, errors.WithStack(err)
			}
		}

		src := e.source()
		if e.TimestampField != "" && !src.Has(e.TimestampField) {
			src.Set(e.TimestampField, now)
		}
		doc, err := json.Marshal(src)
		if err != nil {
			return nil, 0, errorx.InvalidArgumentErrorf("bulk entry %q cannot be encoded: %v", e.ID, err).WithOriginalError(err)
		}

		buf.Write(action)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
		n++
	}

	return buf.Bytes(), n, nil
}

func encodeDeleteBulk(ids []string) ([]byte, error) {
	var buf bytes.Buffer
	for _, id := range ids {
		action, err := sjson.SetBytes([]byte(`{"delete":{}}`), "delete._id", id)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		buf.Write(action)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func (c *client) WriteBulk(ctx context.Context, index string, entries []*BulkEntry) (*BulkWriteResult, error) {
	result := newBulkWriteResult()

	start := c.now()
	body, n, err := encodeIndexBulk(entries, start.UTC().Format(TimestampLayout))
	if err != nil {
		return nil, err
	}
	if n == 0 {
		c.logger.Info(ctx, "elastic bulk write skipped",
			attribute.String("index", index),
			attribute.Int("entries", len(entries)),
		)
		return result, nil
	}

	res, err := withHandle(c, func(cl cluster) (*BulkResponse, error) {
		return cl.Bulk(ctx, index, body)
	})
	if err != nil {
		c.logger.WithError(err).Warn(ctx, "elastic bulk write failed",
			attribute.String("index", index),
			attribute.Int("batch_size", n),
			attribute.String("payload", bytesize.New(float64(len(body))).String()),
			attribute.Int64("duration_ms", durationMillis(c.now().Sub(start))),
		)
		return nil, err
	}

	other := 0
	for _, item := range res.Items {
		switch {
		case item.Error != nil:
			result.addError(item.ID, classify(item.Status, item.Error.Type, item.Error.Reason))
		case item.Result == resultCreated:
			result.addCreated(item.ID)
		default:
			other++
		}
	}

	stats := Measure(c.now().Sub(start), len(result.created))
	delay := c.throttle.Delay(stats)
	c.metrics.recordBulk(ctx, index, len(result.created), len(result.errors), other, stats.DurationMillis, delay > 0)

	c.logger.Info(ctx, "elastic bulk write",
		attribute.String("index", index),
		attribute.Int("batch_size", n),
		attribute.String("payload", bytesize.New(float64(len(body))).String()),
		attribute.Int("created", len(result.created)),
		attribute.Int("errors", len(result.errors)),
		attribute.Int64("duration_ms", stats.DurationMillis),
		attribute.Int64("throttle_ms", delay.Milliseconds()),
		attribute.Int64("throughput", stats.Throughput),
	)

	if delay > 0 {
		c.sleep(ctx, delay)
	}

	return result, nil
}
