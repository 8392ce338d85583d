package probe

import (
	"context"
	"testing"
	"time"
)

type scriptedChecker struct {
	results []CheckResult
	calls   int
}

func (s *scriptedChecker) Check(ctx context.Context, target string) CheckResult {
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	return s.results[i]
}

func TestRetryChecker_SucceedsAfterRetry(t *testing.T) {
	inner := &scriptedChecker{results: []CheckResult{
		{Success: false, Message: "refused"},
		{Success: true, StatusCode: 200, LatencyMS: 12},
	}}
	r := &RetryChecker{Inner: inner, Attempts: 3, Backoff: time.Millisecond}

	out := r.Check(context.Background(), "http://example.test")
	if !out.Success {
		t.Fatalf("want success on second attempt, got %+v", out)
	}
	if inner.calls != 2 {
		t.Fatalf("want 2 attempts, got %d", inner.calls)
	}
	if out.LatencyMS != 12 {
		t.Fatalf("successful result should keep its own latency, got %f", out.LatencyMS)
	}
}

func TestRetryChecker_AllFailuresReportSentinel(t *testing.T) {
	inner := &scriptedChecker{results: []CheckResult{
		{Success: false, Message: "refused", LatencyMS: 3},
	}}
	r := &RetryChecker{Inner: inner, Attempts: 3, Backoff: time.Millisecond}

	out := r.Check(context.Background(), "http://example.test")
	if out.Success {
		t.Fatalf("want failure, got %+v", out)
	}
	if inner.calls != 3 {
		t.Fatalf("want 3 attempts, got %d", inner.calls)
	}
	if out.LatencyMS != DownLatencyMS {
		t.Fatalf("want down sentinel %v, got %f", DownLatencyMS, out.LatencyMS)
	}
	if out.Message != "refused" {
		t.Fatalf("want last failure message, got %q", out.Message)
	}
}

func TestRetryChecker_ContextCancelStopsRetrying(t *testing.T) {
	inner := &scriptedChecker{results: []CheckResult{
		{Success: false, Message: "refused"},
	}}
	r := &RetryChecker{Inner: inner, Attempts: 5, Backoff: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := r.Check(ctx, "http://example.test")
	if out.Success {
		t.Fatalf("want failure, got %+v", out)
	}
	if inner.calls != 1 {
		t.Fatalf("want 1 attempt before cancellation, got %d", inner.calls)
	}
	if out.LatencyMS != DownLatencyMS {
		t.Fatalf("want down sentinel, got %f", out.LatencyMS)
	}
}

func TestRetryChecker_ZeroAttemptsMeansOne(t *testing.T) {
	inner := &scriptedChecker{results: []CheckResult{
		{Success: true, StatusCode: 200},
	}}
	r := &RetryChecker{Inner: inner}

	out := r.Check(context.Background(), "http://example.test")
	if !out.Success || inner.calls != 1 {
		t.Fatalf("want single attempt success, got calls=%d result=%+v", inner.calls, out)
	}
}
