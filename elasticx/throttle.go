package elasticx

import (
	"context"
	"time"

	"github.com/gridsearch/x/timerx"
)

const (
	DefaultThrottleTimeThreshold = 2 * time.Second
	DefaultThrottleOpsThreshold  = int64(1000)
	DefaultThrottleFactor        = 1.0
)

// ThrottleConfig tunes the backpressure applied after slow bulk writes.
// A batch is throttled only when it took longer than TimeThreshold and created
// fewer than OpsThreshold documents per second; the caller is then held for
// Factor times the batch duration.
type ThrottleConfig struct {
	TimeThreshold time.Duration
	OpsThreshold  int64
	Factor        float64
}

func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		TimeThreshold: DefaultThrottleTimeThreshold,
		OpsThreshold:  DefaultThrottleOpsThreshold,
		Factor:        DefaultThrottleFactor,
	}
}

func (c ThrottleConfig) isZero() bool {
	return c == ThrottleConfig{}
}

// BatchStats is the measurement the throttle decision is taken on.
type BatchStats struct {
	DurationMillis int64
	Throughput     int64
}

// Measure computes the batch duration (at least one millisecond) and the number of
// created documents per second.
func Measure(elapsed time.Duration, created int) BatchStats {
	d := elapsed.Milliseconds()
	if d < 1 {
		d = 1
	}
	return BatchStats{
		DurationMillis: d,
		Throughput:     int64(created) * 1000 / d,
	}
}

// Delay returns how long the caller must be held after a batch, zero when the batch
// was fast or productive enough.
func (c ThrottleConfig) Delay(s BatchStats) time.Duration {
	if s.DurationMillis <= c.TimeThreshold.Milliseconds() || s.Throughput >= c.OpsThreshold {
		return 0
	}
	return time.Duration(c.Factor*float64(s.DurationMillis)) * time.Millisecond
}

type sleepFunc func(ctx context.Context, d time.Duration)

// sleepContext blocks for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) {
	timerx.Sleep(ctx, d)
}
