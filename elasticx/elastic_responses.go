package elasticx

import "encoding/json"

type HealthStatus string

const (
	HealthGreen  HealthStatus = "green"
	HealthYellow HealthStatus = "yellow"
	HealthRed    HealthStatus = "red"
)

func (s HealthStatus) rank() int {
	switch s {
	case HealthGreen:
		return 2
	case HealthYellow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is as healthy as target.
func (s HealthStatus) AtLeast(target HealthStatus) bool {
	return s.rank() >= target.rank()
}

type HealthResponse struct {
	ClusterName string       `json:"cluster_name"`
	Status      HealthStatus `json:"status"`
	TimedOut    bool         `json:"timed_out"`
}

type IndexResponse struct {
	Index   string `json:"_index"`
	ID      string `json:"_id"`
	Version int64  `json:"_version"`
	Result  string `json:"result"`
}

type DeleteResponse struct {
	Index  string `json:"_index"`
	ID     string `json:"_id"`
	Result string `json:"result"`
}

type GetResponse struct {
	Index   string          `json:"_index"`
	ID      string          `json:"_id"`
	Version int64           `json:"_version"`
	Found   bool            `json:"found"`
	Source  json.RawMessage `json:"_source"`
}

type MultiGetResponse struct {
	Docs []GetResponse `json:"docs"`
}

type SearchHit struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
}

type SearchTotal struct {
	Value    int64  `json:"value"`
	Relation string `json:"relation,omitempty"`
}

type SearchHits struct {
	Total SearchTotal `json:"total"`
	Hits  []SearchHit `json:"hits"`
}

type SearchResponse struct {
	Took         int                        `json:"took"`
	ScrollID     string                     `json:"_scroll_id,omitempty"`
	Hits         SearchHits                 `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations,omitempty"`
}

// BulkItemResponse is the per-item outcome of a bulk request, flattened from the
// `{"<action>": {...}}` envelope returned by the cluster.
type BulkItemResponse struct {
	Action  string
	ID      string
	Status  int
	Result  string
	Version int64
	Error   *BulkItemError
}

type BulkItemError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type BulkResponse struct {
	Took   int
	Errors bool
	Items  []BulkItemResponse
}

type CountResponse struct {
	Count int64 `json:"count"`
}
