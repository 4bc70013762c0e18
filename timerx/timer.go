package timerx

import (
	"context"
	"time"
)

// StopTimer stops timer and drains its channel, so the timer can be reset safely.
func StopTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}

// Sleep blocks for d or until ctx is done, and reports whether the full duration elapsed.
// A non-positive d returns immediately.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	t := time.NewTimer(d)
	defer StopTimer(t)

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
