package elasticx

import (
	"context"
	"encoding/json"
	"time"
)

// cluster is the set of primitives this package consumes from the remote search cluster.
// Request bodies are already encoded JSON (NDJSON for Bulk); responses are decoded.
// Implementations return errors classified with the errorx types (see error.go).
type cluster interface {
	Health(ctx context.Context, waitFor HealthStatus, timeout time.Duration) (*HealthResponse, error)

	Index(ctx context.Context, index, id string, body []byte, version *int64) (*IndexResponse, error)
	Get(ctx context.Context, index, id string) (*GetResponse, error)
	MultiGet(ctx context.Context, index string, ids []string) (*MultiGetResponse, error)
	Delete(ctx context.Context, index, id string) (*DeleteResponse, error)
	Bulk(ctx context.Context, index string, body []byte) (*BulkResponse, error)

	Search(ctx context.Context, index string, body []byte, scroll time.Duration) (*SearchResponse, error)
	Scroll(ctx context.Context, scrollID string, keepAlive time.Duration) (*SearchResponse, error)
	ClearScroll(ctx context.Context, scrollID string) error
	Count(ctx context.Context, index string, body []byte) (int64, error)

	IndexExists(ctx context.Context, index string) (bool, error)
	CreateIndex(ctx context.Context, index string, body []byte) error
	PutMapping(ctx context.Context, index string, body []byte) error
	Refresh(ctx context.Context, indices ...string) error

	ClusterStats(ctx context.Context) (json.RawMessage, error)
	PendingTasks(ctx context.Context) (json.RawMessage, error)

	// Close releases the underlying connections.
	Close() error
}
