package probe

import (
	"context"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"time"
)

// PingChecker checks an ip target with a single ICMP echo by shelling out
// to the OS ping binary and parsing its human-readable output. No retry
// loop: one lost echo already tells the story.
type PingChecker struct {
	Timeout time.Duration
}

func NewPingChecker(timeout time.Duration) *PingChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PingChecker{Timeout: timeout}
}

func (p *PingChecker) Check(ctx context.Context, target string) CheckResult {
	cctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(cctx, "ping", "-n", "1", "-w", strconv.Itoa(int(p.Timeout.Milliseconds())), target)
	} else {
		cmd = exec.CommandContext(cctx, "ping", "-c", "1", "-W", strconv.Itoa(int(p.Timeout.Seconds())), target)
	}

	start := time.Now()
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start).Seconds() * 1000
	if err != nil {
		full := 100.0
		return CheckResult{
			Success:    false,
			LatencyMS:  DownLatencyMS,
			PacketLoss: &full,
			Message:    err.Error(),
		}
	}

	rtt, loss := parsePingOutput(string(out))
	if rtt == 0 {
		rtt = elapsed
	}
	return CheckResult{Success: true, LatencyMS: rtt, PacketLoss: &loss}
}

var (
	// Linux/macOS "time=42.1 ms", Windows "time=42ms" / "time<1ms", plus
	// the BSD summary line as a last resort.
	rttPatterns = []*regexp.Regexp{
		regexp.MustCompile(`time[=<]([0-9.]+)\s*ms`),
		regexp.MustCompile(`round-trip min/avg/max[^=]*= [0-9.]+/([0-9.]+)/`),
	}
	lossPattern = regexp.MustCompile(`([0-9.]+)%\s*(?:packet\s*)?loss`)
)

func parsePingOutput(output string) (rttMS, packetLoss float64) {
	for _, re := range rttPatterns {
		if m := re.FindStringSubmatch(output); len(m) > 1 {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				rttMS = v
				break
			}
		}
	}
	if m := lossPattern.FindStringSubmatch(output); len(m) > 1 {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			packetLoss = v
		}
	}
	return rttMS, packetLoss
}
