package probe

import (
	"context"
	"time"
)

// RetryChecker wraps another Checker with a bounded retry loop. When every
// attempt fails it reports the down-latency sentinel so the sample still
// lands in latency history.
type RetryChecker struct {
	Inner    Checker
	Attempts int
	Backoff  time.Duration
}

func (r *RetryChecker) Check(ctx context.Context, target string) CheckResult {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var last CheckResult
	for i := 0; i < attempts; i++ {
		last = r.Inner.Check(ctx, target)
		if last.Success {
			return last
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				last.Message = ctx.Err().Error()
				last.LatencyMS = DownLatencyMS
				return last
			case <-time.After(r.Backoff):
			}
		}
	}
	last.LatencyMS = DownLatencyMS
	return last
}
