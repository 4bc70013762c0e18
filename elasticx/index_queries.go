package elasticx

import (
	"context"
	"encoding/json"
	"time"
)

type Operator string

const (
	OperatorAnd Operator = "and"
	OperatorOr  Operator = "or"
)

// QuerySpec describes a search with optional terms aggregations.
type QuerySpec struct {
	IndexName string
	// Predicate is an Elastic query object, e.g. {"term":{"host":"a"}}. Empty matches all documents.
	Predicate json.RawMessage
	// OrderField sorts hits descending. Ignored when ResultCount is zero.
	OrderField string
	// ResultCount is the number of hits returned; zero computes aggregations only.
	ResultCount int
	// AggregationFields each get a terms aggregation of at most AggregationLimit buckets.
	AggregationFields []string
	AggregationLimit  int
}

type QueryResult struct {
	// Hits are the stored fields of each match, without the internal type field.
	Hits     []map[string]interface{}
	HitCount int64
	// Aggregations holds the merged buckets of every requested field, even when empty.
	Aggregations map[string][]Bucket
}

type IndexQueries interface {
	// Execute runs a search described by spec.
	// A malformed predicate or aggregation is reported as a query error.
	Execute(ctx context.Context, spec QuerySpec) (*QueryResult, error)

	// DeleteByQuery collects the ids of every document matching predicate, then removes them
	// with a single bulk request. It returns the number of ids submitted for deletion.
	// Nothing is deleted when the collection fails.
	DeleteByQuery(ctx context.Context, index string, predicate json.RawMessage) (int, error)

	// Count returns the number of documents matching predicate.
	Count(ctx context.Context, index string, predicate json.RawMessage) (int64, error)

	// CountAll returns the number of documents in the index.
	CountAll(ctx context.Context, index string) (int64, error)

	// CountSince returns the number of documents whose timeField is within window of now.
	// A non-positive window counts every document.
	CountSince(ctx context.Context, index, timeField string, window time.Duration) (int64, error)

	// QueryString runs a full-text query over all fields. An empty query matches all documents.
	QueryString(ctx context.Context, index, q string, op Operator, offset, count int) ([]map[string]interface{}, error)

	// QueryField returns the first document whose field equals value, or nil.
	QueryField(ctx context.Context, index, field, value string) (map[string]interface{}, error)

	// QueryWithConstraints returns the documents whose field equals value and that match every
	// constraint. Constraint values are compared lowercased.
	QueryWithConstraints(ctx context.Context, index, field, value string, constraints map[string]string) ([]map[string]interface{}, error)
}
