package probe

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"sitewatch/internal/domain"
)

// DefaultPorts are scanned when the caller supplies no list.
var DefaultPorts = []int{80, 443, 22, 21, 25, 3306, 5432}

var portDialTimeout = 3 * time.Second

// ScanPorts attempts a TCP connect against each port and classifies the
// outcome. On-demand only; a full scan of a dead host takes
// len(ports) * 3s, far too slow for the periodic sweep.
func ScanPorts(ctx context.Context, ip string, ports []int) *domain.PortScan {
	if len(ports) == 0 {
		ports = DefaultPorts
	}
	scan := &domain.PortScan{
		IP:    ip,
		Ports: make(map[int]domain.PortResult, len(ports)),
	}
	for _, port := range ports {
		scan.Ports[port] = probePort(ctx, ip, port)
	}
	scan.LastCheck = time.Now().UTC()
	return scan
}

func probePort(ctx context.Context, ip string, port int) domain.PortResult {
	d := net.Dialer{Timeout: portDialTimeout}
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
	latency := time.Since(start).Seconds() * 1000
	if err == nil {
		_ = conn.Close()
		return domain.PortResult{Status: "open", LatencyMS: &latency}
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		if nerr.Timeout() {
			return domain.PortResult{Status: "timeout", Error: err.Error()}
		}
		return domain.PortResult{Status: "closed", LatencyMS: &latency, Error: err.Error()}
	}
	return domain.PortResult{Status: "error", Error: err.Error()}
}
