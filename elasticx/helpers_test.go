package elasticx

import (
	"context"
	"sync"
	"testing"
	"time"

	loggerxtest "github.com/gridsearch/x/loggerx/test"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu     sync.Mutex
	t      time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Sleep records d and moves the clock forward instead of blocking.
func (c *fakeClock) Sleep(_ context.Context, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func newTestClient(t *testing.T, cfg Config, opts ...ClientOption) (*client, *fakeCluster, *fakeClock) {
	t.Helper()

	fc := newFakeCluster()
	clock := newFakeClock()

	opts = append([]ClientOption{
		WithLogger(loggerxtest.NewTestLogger(t)),
		WithClock(clock.Now),
		WithSleep(clock.Sleep),
		withCluster(fc),
	}, opts...)

	c, err := NewClient(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c.(*client), fc, clock
}
