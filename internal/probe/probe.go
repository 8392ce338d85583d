package probe

import "context"

// DownLatencyMS is the sentinel latency recorded when a liveness check
// fails outright. It lets a down period still participate in latency
// statistics and graphs; consumers can tell it apart from a measurement
// because the accompanying status is down.
const DownLatencyMS = 5000

// CheckResult is the unified outcome of a single liveness check.
//
// StatusCode is the HTTP status when available, 0 for transport errors and
// non-HTTP checks. PacketLoss is only meaningful for ICMP checks (nil
// otherwise).
type CheckResult struct {
	Success    bool
	LatencyMS  float64
	StatusCode int
	PacketLoss *float64
	Message    string
}

// Checker performs a single liveness check against a target address.
// Implementations never return an error; failure is a CheckResult with
// Success=false and a populated Message.
type Checker interface {
	Check(ctx context.Context, target string) CheckResult
}
