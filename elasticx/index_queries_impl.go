package elasticx

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/gridsearch/x/errorx"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/otel/attribute"
)

const matchAllQuery = `{"match_all":{}}`

// queryOrMatchAll validates a predicate, an empty one matching every document.
func queryOrMatchAll(predicate json.RawMessage) (json.RawMessage, error) {
	if len(bytes.TrimSpace(predicate)) == 0 {
		return json.RawMessage(matchAllQuery), nil
	}
	if !gjson.ValidBytes(predicate) || !gjson.ParseBytes(predicate).IsObject() {
		return nil, errorx.InvalidArgumentErrorf("query predicate must be a json object, got %q", string(predicate))
	}
	return predicate, nil
}

func termQuery(field string, value interface{}) map[string]interface{} {
	return map[string]interface{}{
		"term": map[string]interface{}{field: value},
	}
}

func filterQuery(filters ...map[string]interface{}) (json.RawMessage, error) {
	q, err := json.Marshal(map[string]interface{}{
		"bool": map[string]interface{}{"filter": filters},
	})
	return q, errors.WithStack(err)
}

type searchBody struct {
	query      json.RawMessage
	from       int
	size       *int
	orderField string
	aggFields  []string
	aggLimit   int
	terminate  int
}

func (b searchBody) encode() ([]byte, error) {
	body, err := sjson.SetRawBytes([]byte(`{}`), "query", b.query)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if body, err = sjson.SetBytes(body, "from", b.from); err != nil {
		return nil, errors.WithStack(err)
	}
	if b.size != nil {
		if body, err = sjson.SetBytes(body, "size", *b.size); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	if body, err = sjson.SetBytes(body, "track_total_hits", true); err != nil {
		return nil, errors.WithStack(err)
	}
	if b.terminate > 0 {
		if body, err = sjson.SetBytes(body, "terminate_after", b.terminate); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	// Field names may contain dots, which sjson paths would split on.
	if b.orderField != "" && b.size != nil && *b.size > 0 {
		sortClause, err := json.Marshal([]map[string]interface{}{{
			b.orderField: map[string]string{"order": "desc", "unmapped_type": "keyword"},
		}})
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if body, err = sjson.SetRawBytes(body, "sort", sortClause); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	if len(b.aggFields) > 0 {
		aggs := make(map[string]interface{}, len(b.aggFields))
		for _, f := range b.aggFields {
			aggs[f] = map[string]interface{}{
				"terms": map[string]interface{}{
					"field":         f,
					"size":          b.aggLimit,
					"min_doc_count": 1,
				},
			}
		}
		raw, err := json.Marshal(aggs)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if body, err = sjson.SetRawBytes(body, "aggs", raw); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return body, nil
}

func (c *client) search(ctx context.Context, index string, b searchBody) (*SearchResponse, error) {
	body, err := b.encode()
	if err != nil {
		return nil, err
	}
	return withHandle(c, func(cl cluster) (*SearchResponse, error) {
		return cl.Search(ctx, index, body, 0)
	})
}

func hitSources(res *SearchResponse) ([]map[string]interface{}, error) {
	hits := make([]map[string]interface{}, 0, len(res.Hits.Hits))
	for _, h := range res.Hits.Hits {
		m, err := decodeSource(h.Source)
		if err != nil {
			return nil, errorx.InternalErrorf("invalid source for document %q: %v", h.ID, err).WithOriginalError(err)
		}
		delete(m, TypeField)
		hits = append(hits, m)
	}
	return hits, nil
}

func (c *client) Execute(ctx context.Context, spec QuerySpec) (*QueryResult, error) {
	if spec.IndexName == "" {
		return nil, errorx.InvalidArgumentErrorf("index name is required")
	}
	if spec.ResultCount < 0 {
		return nil, errorx.InvalidArgumentErrorf("result count must not be negative, got %d", spec.ResultCount)
	}
	aggFields := lo.Uniq(lo.Compact(spec.AggregationFields))
	if len(aggFields) > 0 && spec.AggregationLimit <= 0 {
		return nil, errorx.InvalidArgumentErrorf("aggregation limit must be positive, got %d", spec.AggregationLimit)
	}

	query, err := queryOrMatchAll(spec.Predicate)
	if err != nil {
		return nil, err
	}

	start := c.now()
	res, err := c.search(ctx, spec.IndexName, searchBody{
		query:      query,
		size:       lo.ToPtr(spec.ResultCount),
		orderField: spec.OrderField,
		aggFields:  aggFields,
		aggLimit:   spec.AggregationLimit,
	})
	if err != nil {
		return nil, err
	}

	hits, err := hitSources(res)
	if err != nil {
		return nil, err
	}

	result := &QueryResult{
		Hits:         hits,
		HitCount:     res.Hits.Total.Value,
		Aggregations: make(map[string][]Bucket, len(aggFields)),
	}
	for _, f := range aggFields {
		result.Aggregations[f] = MergeBuckets(parseTermsBuckets(res.Aggregations[f]))
	}

	c.logger.Debug(ctx, "elastic query executed",
		attribute.String("index", spec.IndexName),
		attribute.Int64("hit_count", result.HitCount),
		attribute.Int("hits", len(hits)),
		attribute.StringSlice("aggregations", aggFields),
		attribute.Int64("duration_ms", durationMillis(c.now().Sub(start))),
	)

	return result, nil
}

func (c *client) Count(ctx context.Context, index string, predicate json.RawMessage) (int64, error) {
	query, err := queryOrMatchAll(predicate)
	if err != nil {
		return 0, err
	}

	body, err := sjson.SetRawBytes([]byte(`{}`), "query", query)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return withHandle(c, func(cl cluster) (int64, error) {
		return cl.Count(ctx, index, body)
	})
}

func (c *client) CountAll(ctx context.Context, index string) (int64, error) {
	return c.Count(ctx, index, nil)
}

func (c *client) CountSince(ctx context.Context, index, timeField string, window time.Duration) (int64, error) {
	if window <= 0 {
		return c.CountAll(ctx, index)
	}

	since := c.now().Add(-window).UTC().Format(TimestampLayout)
	query, err := json.Marshal(map[string]interface{}{
		"range": map[string]interface{}{
			timeField: map[string]interface{}{"gte": since},
		},
	})
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return c.Count(ctx, index, query)
}

func (c *client) QueryString(ctx context.Context, index, q string, op Operator, offset, count int) ([]map[string]interface{}, error) {
	if offset < 0 || count < 0 {
		return nil, errorx.InvalidArgumentErrorf("offset and count must not be negative, got %d and %d", offset, count)
	}
	if op == "" {
		op = OperatorOr
	}

	query, err := json.Marshal(map[string]interface{}{
		"multi_match": map[string]interface{}{
			"query":            q,
			"operator":         op,
			"zero_terms_query": "all",
		},
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	res, err := c.search(ctx, index, searchBody{
		query: query,
		from:  offset,
		size:  lo.ToPtr(count),
	})
	if err != nil {
		return nil, err
	}

	return hitSources(res)
}

func (c *client) QueryField(ctx context.Context, index, field, value string) (map[string]interface{}, error) {
	if value == "" {
		return nil, nil
	}

	query, err := filterQuery(termQuery(field, value))
	if err != nil {
		return nil, err
	}

	res, err := c.search(ctx, index, searchBody{
		query:     query,
		size:      lo.ToPtr(1),
		terminate: 1,
	})
	if err != nil {
		return nil, err
	}

	hits, err := hitSources(res)
	if err != nil || len(hits) == 0 {
		return nil, err
	}
	return hits[0], nil
}

func (c *client) QueryWithConstraints(ctx context.Context, index, field, value string, constraints map[string]string) ([]map[string]interface{}, error) {
	keys := lo.Keys(constraints)
	sort.Strings(keys)

	filters := make([]map[string]interface{}, 0, len(keys)+1)
	filters = append(filters, termQuery(field, value))
	for _, k := range keys {
		filters = append(filters, termQuery(k, strings.ToLower(constraints[k])))
	}

	query, err := filterQuery(filters...)
	if err != nil {
		return nil, err
	}

	res, err := c.search(ctx, index, searchBody{query: query})
	if err != nil {
		return nil, err
	}

	return hitSources(res)
}
