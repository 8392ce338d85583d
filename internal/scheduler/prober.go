package scheduler

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"sitewatch/internal/domain"
	"sitewatch/internal/notify"
	"sitewatch/internal/probe"
	"sitewatch/internal/repo"
	"sitewatch/internal/stats"
)

// statsWindow is the trailing history span the statistics engine reads.
const statsWindow = 24 * time.Hour

// Prober runs one full check of one target: liveness, downtime
// transitions, anomaly classification, history append, kind-specific
// enrichment, persistence.
type Prober struct {
	Logger   *zap.Logger
	Targets  repo.TargetStore
	History  repo.HistoryStore
	URL      probe.Checker // retry-wrapped HTTP liveness
	IP       probe.Checker // single-shot ICMP liveness
	Downtime *DowntimeTracker
	Notifier notify.Notifier

	// Enrichment hooks; package defaults hit the network, tests stub them.
	checkTLS    func(ctx context.Context, host string) *domain.TLSInfo
	checkDomain func(ctx context.Context, host string) *domain.DomainInfo
	checkDNS    func(ctx context.Context, host string) *domain.DNSInfo
	checkIPInfo func(ctx context.Context, ip string) *domain.IPInfo
}

func NewProber(
	logger *zap.Logger,
	targets repo.TargetStore,
	history repo.HistoryStore,
	urlChecker probe.Checker,
	ipChecker probe.Checker,
	downtime *DowntimeTracker,
	notifier notify.Notifier,
) *Prober {
	return &Prober{
		Logger:      logger,
		Targets:     targets,
		History:     history,
		URL:         urlChecker,
		IP:          ipChecker,
		Downtime:    downtime,
		Notifier:    notifier,
		checkTLS:    probe.CheckTLS,
		checkDomain: probe.CheckDomain,
		checkDNS:    probe.CheckDNSRecords,
		checkIPInfo: probe.CheckIP,
	}
}

// Probe checks one target and returns its enriched report. It never
// panics out: an unexpected failure at any stage degrades to a report
// with status "error" so a sweep is never aborted by one target.
func (p *Prober) Probe(ctx context.Context, t *domain.Target) (report *domain.ProbeReport) {
	defer func() {
		if r := recover(); r != nil {
			p.Logger.Error("probe_panic",
				zap.String("target_id", string(t.ID)),
				zap.Any("panic", r),
			)
			report = degradedReport(t, fmt.Sprintf("probe panic: %v", r))
		}
	}()

	now := time.Now().UTC()

	var out probe.CheckResult
	switch t.Kind {
	case domain.KindURL:
		out = p.URL.Check(ctx, t.Address)
	case domain.KindIP:
		out = p.IP.Check(ctx, t.Address)
	default:
		return degradedReport(t, fmt.Sprintf("unknown target kind %q", t.Kind))
	}

	status := domain.StatusDown
	if out.Success {
		status = domain.StatusUp
	}
	latency := out.LatencyMS

	p.handleTransition(ctx, t, status, now)

	// Statistics over the trailing window, before this sample joins it.
	var summary stats.Summary
	window, err := p.History.Since(ctx, t.ID, now.Add(-statsWindow))
	if err != nil {
		p.Logger.Warn("probe_history_query_error",
			zap.String("target_id", string(t.ID)), zap.Error(err))
	} else {
		summary = stats.FromHistory(window)
	}
	anomalous := summary.Anomalous(latency, t.AnomalyThreshold)

	var code *int
	if t.Kind == domain.KindURL && out.StatusCode != 0 {
		c := out.StatusCode
		code = &c
	}
	errText := ""
	if !out.Success {
		errText = out.Message
	}

	// History is appended unconditionally, failed checks included, and
	// before the target update so a store hiccup on the second write can
	// never lose the row.
	rec := &domain.HistoryRecord{
		TargetID:   t.ID,
		Status:     status,
		LatencyMS:  &latency,
		StatusCode: code,
		Error:      errText,
		Timestamp:  now,
	}
	if err := p.History.Append(ctx, rec); err != nil {
		p.Logger.Warn("probe_history_append_error",
			zap.String("target_id", string(t.ID)), zap.Error(err))
	}

	upd := domain.TargetUpdate{
		Status:          &status,
		LatencyMS:       &latency,
		LastCheck:       &now,
		AvgLatencyMS:    summary.Mean,
		StddevLatencyMS: summary.Stddev,
		LastError:       &errText,
		LastStatusCode:  code,
	}
	p.enrich(ctx, t, &upd)

	if err := p.Targets.Update(ctx, t.ID, upd); err != nil {
		p.Logger.Warn("probe_target_update_error",
			zap.String("target_id", string(t.ID)), zap.Error(err))
	}

	return &domain.ProbeReport{
		TargetID:        t.ID,
		Name:            t.Name,
		Address:         t.Address,
		Category:        t.Category,
		Kind:            t.Kind,
		Status:          status,
		LatencyMS:       &latency,
		StatusCode:      code,
		Error:           errText,
		IsAnomalous:     anomalous,
		AvgLatencyMS:    summary.Mean,
		StddevLatencyMS: summary.Stddev,
		PacketLoss:      out.PacketLoss,
		TLS:             upd.TLS,
		Domain:          upd.Domain,
		DNS:             upd.DNS,
		IP:              upd.IP,
		LastCheck:       now,
	}
}

// enrich fills the kind-specific blobs. For url targets the TLS, WHOIS and
// DNS lookups run concurrently; a failure in any one nils only its own
// blob.
func (p *Prober) enrich(ctx context.Context, t *domain.Target, upd *domain.TargetUpdate) {
	if t.Kind == domain.KindIP {
		upd.IP = p.checkIPInfo(ctx, t.Address)
		upd.IPSet = true
		return
	}

	host := extractHost(t.Address)
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		upd.TLS = p.checkTLS(ctx, host)
	}()
	go func() {
		defer wg.Done()
		upd.Domain = p.checkDomain(ctx, host)
	}()
	go func() {
		defer wg.Done()
		upd.DNS = p.checkDNS(ctx, host)
	}()
	wg.Wait()
	upd.TLSSet, upd.DomainSet, upd.DNSSet = true, true, true
}

// handleTransition feeds the downtime tracker and fires the down/recovered
// notifications the target opted into. Sends are best-effort.
func (p *Prober) handleTransition(ctx context.Context, t *domain.Target, next domain.Status, now time.Time) {
	tr, minutes := p.Downtime.Observe(t.ID, t.Status, next, now)
	if tr == TransitionNone {
		return
	}
	if p.Notifier == nil || !t.Notifications.Downtime || t.Notifications.Email == "" {
		return
	}

	var subject, body string
	switch tr {
	case TransitionWentDown:
		subject = fmt.Sprintf("[ALERT] %s is down", t.Name)
		body = fmt.Sprintf("%s (%s) is unreachable.\nLast check: %s",
			t.Name, t.Address, now.Format(time.RFC1123))
	case TransitionRecovered:
		subject = fmt.Sprintf("[RECOVERED] %s is back up", t.Name)
		body = fmt.Sprintf("%s (%s) is reachable again.\nTotal downtime: %d minutes\nRecovered at: %s",
			t.Name, t.Address, minutes, now.Format(time.RFC1123))
	}
	if err := p.Notifier.Send(ctx, t.Notifications.Email, subject, body); err != nil {
		p.Logger.Warn("notification_send_error",
			zap.String("target_id", string(t.ID)), zap.Error(err))
	}
}

func degradedReport(t *domain.Target, msg string) *domain.ProbeReport {
	return &domain.ProbeReport{
		TargetID:  t.ID,
		Name:      t.Name,
		Address:   t.Address,
		Category:  t.Category,
		Kind:      t.Kind,
		Status:    domain.StatusError,
		Error:     msg,
		LastCheck: time.Now().UTC(),
	}
}

// extractHost pulls the hostname from a URL string.
func extractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
