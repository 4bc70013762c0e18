package elasticx

import (
	"context"
	"encoding/json"
	"time"
)

// Client provides access to a single Elastic server, or an entire cluster of Elastic servers.
// A Client is safe for concurrent use. Once closed, every call fails with an error
// matching IsClientClosedError.
type Client interface {
	// Ready reports whether the cluster has been reachable and not red.
	// The first positive answer is kept for the lifetime of the client and the cluster
	// is never probed again afterwards.
	Ready(ctx context.Context) bool

	// WaitReady polls the cluster health until it reports at least the given status,
	// or maxWait elapsed, or ctx is done.
	WaitReady(ctx context.Context, maxWait time.Duration, status HealthStatus) bool

	// ClusterStats returns the raw cluster statistics.
	ClusterStats(ctx context.Context) (json.RawMessage, error)

	// PendingTasks returns the raw list of cluster-level changes not yet executed.
	PendingTasks(ctx context.Context) (json.RawMessage, error)

	// Close releases the connections held by the client. Calling it more than once is a no-op.
	Close() error

	IndexDocuments
	IndexQueries
	IndexAdmin
}
