package elasticx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/elastic/go-elasticsearch/v9/esutil"
	"github.com/gridsearch/x/errorx"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"
)

// esCluster implements cluster on top of the official client's esapi requests.
type esCluster struct {
	es        *elasticsearch.Client
	transport http.RoundTripper
}

var _ cluster = (*esCluster)(nil)

func newESCluster(addresses []string, cfg Config, transport http.RoundTripper, tp trace.TracerProvider) (*esCluster, error) {
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}

	esCfg := elasticsearch.Config{
		Addresses: addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	}
	if tp != nil {
		esCfg.Instrumentation = elasticsearch.NewOpenTelemetryInstrumentation(tp, false)
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, errorx.InvalidArgumentErrorf("invalid elastic configuration: %v", err).WithOriginalError(err)
	}

	return &esCluster{
		es:        es,
		transport: transport,
	}, nil
}

// perform runs the request and decodes a successful body into out.
// Statuses listed in allowed are decoded as well instead of being turned into errors.
func (c *esCluster) perform(ctx context.Context, req esapi.Request, out interface{}, allowed ...int) (int, error) {
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return 0, withTransportError(err)
	}

	defer res.Body.Close()

	if res.IsError() && !lo.Contains(allowed, res.StatusCode) {
		return res.StatusCode, withElasticError(res)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return res.StatusCode, nil
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil && err != io.EOF {
		return res.StatusCode, errorx.InternalErrorf("failed to decode elastic response: %v", err).WithOriginalError(err)
	}

	return res.StatusCode, nil
}

func (c *esCluster) Health(ctx context.Context, waitFor HealthStatus, timeout time.Duration) (*HealthResponse, error) {
	var health HealthResponse
	_, err := c.perform(ctx, esapi.ClusterHealthRequest{
		WaitForStatus: string(waitFor),
		Timeout:       timeout,
	}, &health, http.StatusRequestTimeout)
	if err != nil {
		return nil, err
	}

	return &health, nil
}

func (c *esCluster) Index(ctx context.Context, index, id string, body []byte, version *int64) (*IndexResponse, error) {
	req := esapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
	}
	if version != nil {
		v := int(*version)
		req.Version = &v
		req.VersionType = "external"
	}

	var res IndexResponse
	if _, err := c.perform(ctx, req, &res); err != nil {
		return nil, err
	}

	return &res, nil
}

func (c *esCluster) Get(ctx context.Context, index, id string) (*GetResponse, error) {
	var res GetResponse
	_, err := c.perform(ctx, esapi.GetRequest{
		Index:      index,
		DocumentID: id,
	}, &res, http.StatusNotFound)
	if err != nil {
		return nil, err
	}

	return &res, nil
}

func (c *esCluster) MultiGet(ctx context.Context, index string, ids []string) (*MultiGetResponse, error) {
	var res MultiGetResponse
	_, err := c.perform(ctx, esapi.MgetRequest{
		Index: index,
		Body: esutil.NewJSONReader(map[string]interface{}{
			"ids": ids,
		}),
	}, &res)
	if err != nil {
		return nil, err
	}

	return &res, nil
}

func (c *esCluster) Delete(ctx context.Context, index, id string) (*DeleteResponse, error) {
	var res DeleteResponse
	_, err := c.perform(ctx, esapi.DeleteRequest{
		Index:      index,
		DocumentID: id,
	}, &res, http.StatusNotFound)
	if err != nil {
		return nil, err
	}

	return &res, nil
}

func (c *esCluster) Bulk(ctx context.Context, index string, body []byte) (*BulkResponse, error) {
	var raw json.RawMessage
	_, err := c.perform(ctx, esapi.BulkRequest{
		Index: index,
		Body:  bytes.NewReader(body),
	}, &raw)
	if err != nil {
		return nil, err
	}

	return parseBulkResponse(raw)
}

func parseBulkResponse(body []byte) (*BulkResponse, error) {
	if !gjson.ValidBytes(body) {
		return nil, errorx.InternalErrorf("invalid bulk response from elastic")
	}

	r := gjson.ParseBytes(body)
	res := &BulkResponse{
		Took:   int(r.Get("took").Int()),
		Errors: r.Get("errors").Bool(),
	}

	r.Get("items").ForEach(func(_, item gjson.Result) bool {
		// Each item is a single-key object: {"<action>": {...}}
		item.ForEach(func(action, v gjson.Result) bool {
			bi := BulkItemResponse{
				Action:  action.String(),
				ID:      v.Get("_id").String(),
				Status:  int(v.Get("status").Int()),
				Result:  v.Get("result").String(),
				Version: v.Get("_version").Int(),
			}
			if e := v.Get("error"); e.Exists() {
				bi.Error = &BulkItemError{
					Type:   e.Get("type").String(),
					Reason: e.Get("reason").String(),
				}
			}
			res.Items = append(res.Items, bi)
			return false
		})
		return true
	})

	return res, nil
}

func (c *esCluster) Search(ctx context.Context, index string, body []byte, scroll time.Duration) (*SearchResponse, error) {
	var res SearchResponse
	_, err := c.perform(ctx, esapi.SearchRequest{
		Index:  []string{index},
		Body:   bytes.NewReader(body),
		Scroll: scroll,
	}, &res)
	if err != nil {
		return nil, err
	}

	return &res, nil
}

func (c *esCluster) Scroll(ctx context.Context, scrollID string, keepAlive time.Duration) (*SearchResponse, error) {
	var res SearchResponse
	_, err := c.perform(ctx, esapi.ScrollRequest{
		Body: esutil.NewJSONReader(map[string]interface{}{
			"scroll":    formatKeepAlive(keepAlive),
			"scroll_id": scrollID,
		}),
	}, &res)
	if err != nil {
		return nil, err
	}

	return &res, nil
}

func (c *esCluster) ClearScroll(ctx context.Context, scrollID string) error {
	_, err := c.perform(ctx, esapi.ClearScrollRequest{
		Body: esutil.NewJSONReader(map[string]interface{}{
			"scroll_id": []string{scrollID},
		}),
	}, nil, http.StatusNotFound)
	return err
}

func (c *esCluster) Count(ctx context.Context, index string, body []byte) (int64, error) {
	var res CountResponse
	_, err := c.perform(ctx, esapi.CountRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
	}, &res)
	if err != nil {
		return 0, err
	}

	return res.Count, nil
}

func (c *esCluster) IndexExists(ctx context.Context, index string) (bool, error) {
	status, err := c.perform(ctx, esapi.IndicesExistsRequest{
		Index: []string{index},
	}, nil, http.StatusNotFound)
	if err != nil {
		return false, err
	}

	return status == http.StatusOK, nil
}

func (c *esCluster) CreateIndex(ctx context.Context, index string, body []byte) error {
	_, err := c.perform(ctx, esapi.IndicesCreateRequest{
		Index: index,
		Body:  bytes.NewReader(body),
	}, nil)
	return err
}

func (c *esCluster) PutMapping(ctx context.Context, index string, body []byte) error {
	_, err := c.perform(ctx, esapi.IndicesPutMappingRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
	}, nil)
	return err
}

func (c *esCluster) Refresh(ctx context.Context, indices ...string) error {
	_, err := c.perform(ctx, esapi.IndicesRefreshRequest{
		Index: indices,
	}, nil)
	return err
}

func (c *esCluster) ClusterStats(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if _, err := c.perform(ctx, esapi.ClusterStatsRequest{}, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *esCluster) PendingTasks(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if _, err := c.perform(ctx, esapi.ClusterPendingTasksRequest{}, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *esCluster) Close() error {
	if t, ok := c.transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
	return nil
}

func formatKeepAlive(d time.Duration) string {
	return fmt.Sprintf("%ds", int64(d/time.Second))
}
