package elasticx

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gridsearch/x/loggerx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	// maxHealthTimeout bounds a single health request issued by WaitReady.
	maxHealthTimeout = 5 * time.Second

	waitReadyInitialInterval = 100 * time.Millisecond
	waitReadyMaxInterval     = 2 * time.Second
)

type client struct {
	// mu guards cluster, which is nil once the client is closed.
	mu      sync.RWMutex
	cluster cluster

	ready atomic.Bool
	probe singleflight.Group

	cfg      Config
	throttle ThrottleConfig
	logger   *loggerx.Logger
	metrics  *metrics
	now      func() time.Time
	sleep    sleepFunc
}

var _ Client = (*client)(nil)

type clientOptions struct {
	logger         *loggerx.Logger
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	transport      http.RoundTripper
	resolver       Resolver
	now            func() time.Time
	sleep          sleepFunc
	cluster        cluster
}

type ClientOption func(*clientOptions)

func WithLogger(l *loggerx.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = l
	}
}

// WithMeterProvider enables the bulk and scan metrics. Metrics are disabled by default.
func WithMeterProvider(mp metric.MeterProvider) ClientOption {
	return func(o *clientOptions) {
		o.meterProvider = mp
	}
}

// WithTracerProvider records a span for every request sent to the cluster.
func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(o *clientOptions) {
		o.tracerProvider = tp
	}
}

// WithTransport sets the HTTP transport used to reach the cluster.
func WithTransport(t http.RoundTripper) ClientOption {
	return func(o *clientOptions) {
		o.transport = t
	}
}

// WithResolver replaces net.DefaultResolver for address validation.
func WithResolver(r Resolver) ClientOption {
	return func(o *clientOptions) {
		o.resolver = r
	}
}

// WithClock replaces time.Now for throttling, timestamps and WaitReady deadlines.
func WithClock(now func() time.Time) ClientOption {
	return func(o *clientOptions) {
		o.now = now
	}
}

// WithSleep replaces the context-aware sleep used by throttling and WaitReady.
func WithSleep(sleep func(ctx context.Context, d time.Duration)) ClientOption {
	return func(o *clientOptions) {
		o.sleep = sleep
	}
}

func withCluster(c cluster) ClientOption {
	return func(o *clientOptions) {
		o.cluster = c
	}
}

// NewClient creates a new Client based on the given config.
// Addresses that are malformed or whose host does not resolve are logged and skipped.
func NewClient(cfg Config, opts ...ClientOption) (Client, error) {
	o := &clientOptions{
		resolver: net.DefaultResolver,
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = loggerx.New()
	}
	if o.meterProvider == nil {
		o.meterProvider = noop.NewMeterProvider()
	}

	m, err := newMetrics(o.meterProvider)
	if err != nil {
		return nil, err
	}

	cl := o.cluster
	if cl == nil {
		ctx := context.Background()
		urls, err := resolveAddresses(ctx, o.logger, o.resolver, cfg.Addresses)
		if err != nil {
			return nil, err
		}

		cl, err = newESCluster(urls, cfg, o.transport, o.tracerProvider)
		if err != nil {
			return nil, err
		}
	}

	return &client{
		cluster:  cl,
		cfg:      cfg,
		throttle: cfg.throttle(),
		logger:   o.logger,
		metrics:  m,
		now:      o.now,
		sleep:    o.sleep,
	}, nil
}

// withHandle runs fn with the cluster handle. A concurrent Close waits for fn to return.
func withHandle[T any](c *client, fn func(cl cluster) (T, error)) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cluster == nil {
		var zero T
		return zero, clientClosedError()
	}

	return fn(c.cluster)
}

func (c *client) closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cluster == nil
}

func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cluster == nil {
		return nil
	}

	err := c.cluster.Close()
	c.cluster = nil
	return err
}

func (c *client) Ready(ctx context.Context) bool {
	if c.closed() {
		return false
	}
	if c.ready.Load() {
		return true
	}

	v, _, _ := c.probe.Do("health", func() (interface{}, error) {
		return c.probeHealth(ctx), nil
	})

	return v.(bool)
}

func (c *client) probeHealth(ctx context.Context) bool {
	h, err := withHandle(c, func(cl cluster) (*HealthResponse, error) {
		return cl.Health(ctx, "", 0)
	})
	if err != nil {
		c.logger.WithError(err).Warn(ctx, "elastic cluster health probe failed")
		return false
	}

	if !c.expectedCluster(ctx, h) {
		return false
	}
	if h.Status == HealthRed {
		c.logger.Warn(ctx, "elastic cluster is red", attribute.String("cluster", h.ClusterName))
		return false
	}

	c.ready.Store(true)
	return true
}

func (c *client) expectedCluster(ctx context.Context, h *HealthResponse) bool {
	if c.cfg.ClusterName != "" && h.ClusterName != c.cfg.ClusterName {
		c.logger.Warn(ctx, "connected to an unexpected elastic cluster",
			attribute.String("expected", c.cfg.ClusterName),
			attribute.String("actual", h.ClusterName),
		)
		return false
	}
	return true
}

func (c *client) WaitReady(ctx context.Context, maxWait time.Duration, status HealthStatus) bool {
	deadline := c.now().Add(maxWait)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = waitReadyInitialInterval
	bo.MaxInterval = waitReadyMaxInterval
	bo.MaxElapsedTime = 0
	bo.Reset()

	for attempt := 1; ; attempt++ {
		remaining := deadline.Sub(c.now())
		if remaining <= 0 {
			break
		}

		h, err := withHandle(c, func(cl cluster) (*HealthResponse, error) {
			return cl.Health(ctx, status, min(remaining, maxHealthTimeout))
		})
		switch {
		case IsClientClosedError(err):
			return false
		case err != nil:
			c.logger.WithError(err).Debug(ctx, "elastic cluster not reachable yet", attribute.Int("attempt", attempt))
		case !h.TimedOut && h.Status.AtLeast(status) && c.expectedCluster(ctx, h):
			if h.Status != HealthRed {
				c.ready.Store(true)
			}
			return true
		}

		if ctx.Err() != nil {
			return false
		}

		remaining = deadline.Sub(c.now())
		if remaining <= 0 {
			break
		}
		c.sleep(ctx, min(bo.NextBackOff(), remaining))
	}

	c.logger.Warn(ctx, "elastic cluster did not become ready in time",
		attribute.String("status", string(status)),
		attribute.String("max_wait", maxWait.String()),
	)
	return false
}

func (c *client) ClusterStats(ctx context.Context) (json.RawMessage, error) {
	return withHandle(c, func(cl cluster) (json.RawMessage, error) {
		return cl.ClusterStats(ctx)
	})
}

func (c *client) PendingTasks(ctx context.Context) (json.RawMessage, error) {
	return withHandle(c, func(cl cluster) (json.RawMessage, error) {
		return cl.PendingTasks(ctx)
	})
}
