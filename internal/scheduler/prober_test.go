package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"sitewatch/internal/domain"
	"sitewatch/internal/probe"
	"sitewatch/internal/repo/memory"
)

type fixedChecker struct {
	result probe.CheckResult
	calls  int
}

func (f *fixedChecker) Check(ctx context.Context, target string) probe.CheckResult {
	f.calls++
	return f.result
}

type panicChecker struct{}

func (panicChecker) Check(ctx context.Context, target string) probe.CheckResult {
	panic("checker exploded")
}

type recordingNotifier struct {
	subjects []string
}

func (r *recordingNotifier) Send(ctx context.Context, to, subject, body string) error {
	r.subjects = append(r.subjects, subject)
	return nil
}

func newTestProber(store *memory.Store, urlChecker, ipChecker probe.Checker, n *recordingNotifier) *Prober {
	p := NewProber(zap.NewNop(), store, store, urlChecker, ipChecker, NewDowntimeTracker(), n)
	// Stub the network-touching enrichment lookups.
	p.checkTLS = func(ctx context.Context, host string) *domain.TLSInfo {
		return &domain.TLSInfo{Issuer: "Test CA", DaysRemaining: 90}
	}
	p.checkDomain = func(ctx context.Context, host string) *domain.DomainInfo { return nil }
	p.checkDNS = func(ctx context.Context, host string) *domain.DNSInfo { return nil }
	p.checkIPInfo = func(ctx context.Context, ip string) *domain.IPInfo {
		return &domain.IPInfo{IP: ip, Country: "Testland"}
	}
	return p
}

func addTarget(t *testing.T, store *memory.Store, kind domain.Kind, addr string) *domain.Target {
	t.Helper()
	tgt := &domain.Target{
		Kind:    kind,
		Address: addr,
		Name:    "test target",
		Notifications: domain.NotificationPrefs{
			Email:    "ops@example.test",
			Downtime: true,
		},
	}
	if err := store.Add(context.Background(), tgt); err != nil {
		t.Fatal(err)
	}
	return tgt
}

func TestProbe_SuccessWritesHistoryAndUpdates(t *testing.T) {
	store := memory.New()
	checker := &fixedChecker{result: probe.CheckResult{Success: true, StatusCode: 200, LatencyMS: 42}}
	p := newTestProber(store, checker, nil, &recordingNotifier{})
	tgt := addTarget(t, store, domain.KindURL, "https://example.test")

	rep := p.Probe(context.Background(), tgt)
	if rep.Status != domain.StatusUp {
		t.Fatalf("status: got %v", rep.Status)
	}
	if rep.LatencyMS == nil || *rep.LatencyMS != 42 {
		t.Fatalf("latency: got %v", rep.LatencyMS)
	}
	if rep.StatusCode == nil || *rep.StatusCode != 200 {
		t.Fatalf("status code: got %v", rep.StatusCode)
	}
	if rep.TLS == nil || rep.TLS.Issuer != "Test CA" {
		t.Fatalf("tls enrichment: got %+v", rep.TLS)
	}

	rows, err := store.Since(context.Background(), tgt.ID, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("want 1 history row, got %d", len(rows))
	}
	if rows[0].Status != domain.StatusUp || rows[0].Error != "" {
		t.Fatalf("history row: got %+v", rows[0])
	}

	stored, err := store.Get(context.Background(), tgt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.StatusUp || stored.LatencyMS == nil || *stored.LatencyMS != 42 {
		t.Fatalf("stored target not updated: %+v", stored)
	}
	if stored.TLS == nil {
		t.Fatalf("tls blob not persisted")
	}
	if stored.LastCheck.IsZero() {
		t.Fatalf("last check not stamped")
	}
}

func TestProbe_FailureStillWritesHistory(t *testing.T) {
	store := memory.New()
	checker := &fixedChecker{result: probe.CheckResult{
		Success: false, LatencyMS: probe.DownLatencyMS, Message: "connection refused",
	}}
	p := newTestProber(store, checker, nil, &recordingNotifier{})
	tgt := addTarget(t, store, domain.KindURL, "https://down.test")

	rep := p.Probe(context.Background(), tgt)
	if rep.Status != domain.StatusDown {
		t.Fatalf("status: got %v", rep.Status)
	}
	if rep.Error != "connection refused" {
		t.Fatalf("error: got %q", rep.Error)
	}

	rows, _ := store.Since(context.Background(), tgt.ID, time.Time{})
	if len(rows) != 1 {
		t.Fatalf("failed checks must still land in history, got %d rows", len(rows))
	}
	if rows[0].Status != domain.StatusDown || rows[0].Error != "connection refused" {
		t.Fatalf("history row: got %+v", rows[0])
	}
	if rows[0].LatencyMS == nil || *rows[0].LatencyMS != probe.DownLatencyMS {
		t.Fatalf("want down sentinel latency, got %v", rows[0].LatencyMS)
	}
}

func TestProbe_DowntimeNotificationFiresOnce(t *testing.T) {
	store := memory.New()
	checker := &fixedChecker{result: probe.CheckResult{Success: false, LatencyMS: probe.DownLatencyMS, Message: "timeout"}}
	n := &recordingNotifier{}
	p := newTestProber(store, checker, nil, n)
	tgt := addTarget(t, store, domain.KindURL, "https://down.test")

	p.Probe(context.Background(), tgt)
	tgt, _ = store.Get(context.Background(), tgt.ID)
	p.Probe(context.Background(), tgt)

	if len(n.subjects) != 1 {
		t.Fatalf("want exactly one alert for a continuing outage, got %v", n.subjects)
	}
	if !strings.HasPrefix(n.subjects[0], "[ALERT]") {
		t.Fatalf("subject: got %q", n.subjects[0])
	}

	// Recovery fires the second (and last) notification.
	checker.result = probe.CheckResult{Success: true, StatusCode: 200, LatencyMS: 30}
	tgt, _ = store.Get(context.Background(), tgt.ID)
	p.Probe(context.Background(), tgt)

	if len(n.subjects) != 2 || !strings.HasPrefix(n.subjects[1], "[RECOVERED]") {
		t.Fatalf("want a recovery notice, got %v", n.subjects)
	}
}

func TestProbe_NoNotificationWhenOptedOut(t *testing.T) {
	store := memory.New()
	checker := &fixedChecker{result: probe.CheckResult{Success: false, LatencyMS: probe.DownLatencyMS}}
	n := &recordingNotifier{}
	p := newTestProber(store, checker, nil, n)

	tgt := &domain.Target{Kind: domain.KindURL, Address: "https://quiet.test", Name: "quiet"}
	if err := store.Add(context.Background(), tgt); err != nil {
		t.Fatal(err)
	}
	p.Probe(context.Background(), tgt)

	if len(n.subjects) != 0 {
		t.Fatalf("target without prefs must not alert, got %v", n.subjects)
	}
}

func TestProbe_IPTargetUsesPingAndIPInfo(t *testing.T) {
	store := memory.New()
	loss := 0.0
	ping := &fixedChecker{result: probe.CheckResult{Success: true, LatencyMS: 11, PacketLoss: &loss}}
	httpC := &fixedChecker{}
	p := newTestProber(store, httpC, ping, &recordingNotifier{})
	tgt := addTarget(t, store, domain.KindIP, "192.0.2.1")

	rep := p.Probe(context.Background(), tgt)
	if ping.calls != 1 || httpC.calls != 0 {
		t.Fatalf("want the icmp checker used for ip targets, got ping=%d http=%d", ping.calls, httpC.calls)
	}
	if rep.PacketLoss == nil || *rep.PacketLoss != 0 {
		t.Fatalf("packet loss: got %v", rep.PacketLoss)
	}
	if rep.IP == nil || rep.IP.Country != "Testland" {
		t.Fatalf("ip enrichment: got %+v", rep.IP)
	}
	if rep.TLS != nil || rep.Domain != nil || rep.DNS != nil {
		t.Fatalf("url-only blobs must stay nil for ip targets")
	}
}

func TestProbe_AnomalyFlag(t *testing.T) {
	store := memory.New()
	checker := &fixedChecker{result: probe.CheckResult{Success: true, StatusCode: 200, LatencyMS: 500}}
	p := newTestProber(store, checker, nil, &recordingNotifier{})
	tgt := addTarget(t, store, domain.KindURL, "https://example.test")

	// Seed a stable baseline in the trailing window.
	now := time.Now().UTC()
	for i, v := range []float64{100, 102, 98, 101, 99} {
		lat := v
		_ = store.Append(context.Background(), &domain.HistoryRecord{
			TargetID:  tgt.ID,
			Status:    domain.StatusUp,
			LatencyMS: &lat,
			Timestamp: now.Add(-time.Duration(i+1) * time.Minute),
		})
	}

	rep := p.Probe(context.Background(), tgt)
	if !rep.IsAnomalous {
		t.Fatalf("500ms against a ~100ms baseline should be anomalous")
	}
	if rep.AvgLatencyMS == nil || *rep.AvgLatencyMS != 100 {
		t.Fatalf("avg: got %v", rep.AvgLatencyMS)
	}
}

func TestProbe_UnknownKindDegrades(t *testing.T) {
	store := memory.New()
	p := newTestProber(store, &fixedChecker{}, &fixedChecker{}, &recordingNotifier{})
	tgt := &domain.Target{ID: "x", Kind: "carrier-pigeon", Address: "coop"}

	rep := p.Probe(context.Background(), tgt)
	if rep.Status != domain.StatusError {
		t.Fatalf("want degraded report, got %+v", rep)
	}
	rows, _ := store.Since(context.Background(), "x", time.Time{})
	if len(rows) != 0 {
		t.Fatalf("degraded probes must not write history, got %d rows", len(rows))
	}
}

func TestProbe_RecoversFromPanic(t *testing.T) {
	store := memory.New()
	p := newTestProber(store, panicChecker{}, nil, &recordingNotifier{})
	tgt := addTarget(t, store, domain.KindURL, "https://example.test")

	rep := p.Probe(context.Background(), tgt)
	if rep == nil || rep.Status != domain.StatusError {
		t.Fatalf("panic should degrade to an error report, got %+v", rep)
	}
	if !strings.Contains(rep.Error, "checker exploded") {
		t.Fatalf("error should carry the panic value, got %q", rep.Error)
	}
}

func TestExtractHost(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://example.com/path", "example.com"},
		{"http://example.com:8080", "example.com"},
		{"example.com", "example.com"},
	}
	for _, c := range cases {
		if got := extractHost(c.in); got != c.want {
			t.Fatalf("extractHost(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
