package elasticx

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/gridsearch/x/elasticx"

const (
	outcomeCreated = "created"
	outcomeError   = "error"
	outcomeOther   = "other"
)

type metrics struct {
	bulkItems    metric.Int64Counter
	bulkDuration metric.Int64Histogram
	bulkThrottle metric.Int64Counter
	scanIDs      metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	meter := mp.Meter(meterName)

	bulkItems, err := meter.Int64Counter("elasticx.bulk.items",
		metric.WithDescription("Bulk items processed, by outcome."),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	bulkDuration, err := meter.Int64Histogram("elasticx.bulk.duration",
		metric.WithDescription("Duration of bulk requests."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	bulkThrottle, err := meter.Int64Counter("elasticx.bulk.throttle",
		metric.WithDescription("Bulk batches that were followed by a throttle delay."),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	scanIDs, err := meter.Int64Counter("elasticx.scan.ids",
		metric.WithDescription("Ids collected by delete-by-query scans."),
		metric.WithUnit("{id}"),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &metrics{
		bulkItems:    bulkItems,
		bulkDuration: bulkDuration,
		bulkThrottle: bulkThrottle,
		scanIDs:      scanIDs,
	}, nil
}

func (m *metrics) recordBulk(ctx context.Context, index string, created, failed, other int, durationMillis int64, throttled bool) {
	idx := attribute.String("index", index)
	m.bulkItems.Add(ctx, int64(created), metric.WithAttributes(idx, attribute.String("outcome", outcomeCreated)))
	m.bulkItems.Add(ctx, int64(failed), metric.WithAttributes(idx, attribute.String("outcome", outcomeError)))
	m.bulkItems.Add(ctx, int64(other), metric.WithAttributes(idx, attribute.String("outcome", outcomeOther)))
	m.bulkDuration.Record(ctx, durationMillis, metric.WithAttributes(idx))
	if throttled {
		m.bulkThrottle.Add(ctx, 1, metric.WithAttributes(idx))
	}
}

func (m *metrics) recordScan(ctx context.Context, index string, ids int) {
	m.scanIDs.Add(ctx, int64(ids), metric.WithAttributes(attribute.String("index", index)))
}
