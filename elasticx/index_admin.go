package elasticx

import (
	"context"
	"encoding/json"
)

type IndexAdmin interface {
	// CreateIndexIfNotExists creates the index with the given shard and replica counts,
	// unless it already exists.
	CreateIndexIfNotExists(ctx context.Context, index string, shards, replicas int) error

	// EnsureIndex creates the index if needed and applies mapping, retrying transient failures.
	// A nil mapping leaves the mapping untouched.
	EnsureIndex(ctx context.Context, index string, shards, replicas int, mapping json.RawMessage) error

	// PutMapping updates the mapping of an existing index.
	PutMapping(ctx context.Context, index string, mapping json.RawMessage) error

	// PutMappingFile reads a JSON or YAML mapping file and applies it to the index.
	PutMappingFile(ctx context.Context, index, path string) error

	// Refresh makes every operation performed so far on the indices visible to search.
	// Without indices, all indices are refreshed.
	Refresh(ctx context.Context, indices ...string) error
}
