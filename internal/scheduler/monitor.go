package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"sitewatch/internal/domain"
	"sitewatch/internal/probe"
	"sitewatch/internal/repo"
)

// ErrWrongKind is returned when an ip-only operation is requested for a
// url target.
var ErrWrongKind = errors.New("operation only valid for ip targets")

// ErrBadPorts is returned for an out-of-range port list.
var ErrBadPorts = errors.New("invalid port list")

// Broadcaster pushes one target's fresh report to live observers.
type Broadcaster interface {
	Broadcast(id domain.TargetID, data any)
}

// Monitor drives periodic sweeps over all targets and exposes the
// on-demand single-target operations.
type Monitor struct {
	Logger      *zap.Logger
	Targets     repo.TargetStore
	Prober      *Prober
	Updates     Broadcaster
	Interval    time.Duration
	Timeout     time.Duration // per-target probe budget
	Concurrency int

	sweeping atomic.Bool
}

func NewMonitor(
	logger *zap.Logger,
	targets repo.TargetStore,
	prober *Prober,
	updates Broadcaster,
	interval, timeout time.Duration,
	concurrency int,
) *Monitor {
	if concurrency < 1 {
		concurrency = 1
	}
	if interval < 0 {
		interval = 0
	}
	if timeout <= 0 {
		// Must fit the worst url probe: three 5s liveness attempts with
		// pauses plus WHOIS and DNS enrichment.
		timeout = 60 * time.Second
	}
	return &Monitor{
		Logger:      logger,
		Targets:     targets,
		Prober:      prober,
		Updates:     updates,
		Interval:    interval,
		Timeout:     timeout,
		Concurrency: concurrency,
	}
}

// Run does an immediate sweep, then one per tick until ctx is cancelled.
// A tick that fires while the previous sweep is still going is skipped;
// sweeps never overlap.
func (m *Monitor) Run(ctx context.Context) {
	if m.Interval == 0 {
		m.Logger.Info("monitor_disabled")
		return
	}
	t := time.NewTicker(m.Interval)
	defer t.Stop()

	m.trySweep(ctx)

	for {
		select {
		case <-ctx.Done():
			m.Logger.Info("monitor_stopped")
			return
		case <-t.C:
			m.trySweep(ctx)
		}
	}
}

func (m *Monitor) trySweep(ctx context.Context) {
	if !m.sweeping.CompareAndSwap(false, true) {
		m.Logger.Warn("sweep_still_running_skipping_tick")
		return
	}
	defer m.sweeping.Store(false)
	m.Sweep(ctx)
}

// Sweep probes every target with bounded concurrency and pushes each
// completed report to the live update channel. A store failure aborts
// only this sweep; the next tick retries.
func (m *Monitor) Sweep(ctx context.Context) {
	targets, err := m.Targets.List(ctx)
	if err != nil {
		m.Logger.Warn("sweep_list_error", zap.Error(err))
		return
	}
	if len(targets) == 0 {
		return
	}

	sem := make(chan struct{}, m.Concurrency)
	var wg sync.WaitGroup

	for _, tgt := range targets {
		t := tgt
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() { <-sem }()
			defer wg.Done()

			cctx, cancel := context.WithTimeout(ctx, m.Timeout)
			defer cancel()

			rep := m.Prober.Probe(cctx, t)
			if m.Updates != nil {
				m.Updates.Broadcast(t.ID, rep)
			}
			m.Logger.Debug("sweep_checked",
				zap.String("target_id", string(t.ID)),
				zap.String("address", t.Address),
				zap.String("status", string(rep.Status)),
				zap.Bool("anomalous", rep.IsAnomalous),
			)
		}()
	}
	wg.Wait()
	m.Logger.Info("sweep_complete", zap.Int("targets", len(targets)))
}

// CheckNow probes exactly one target and returns its fresh report,
// independent of the sweep cycle. repo.ErrNotFound passes through for the
// caller to map.
func (m *Monitor) CheckNow(ctx context.Context, id domain.TargetID) (*domain.ProbeReport, error) {
	t, err := m.Targets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()

	rep := m.Prober.Probe(cctx, t)
	if m.Updates != nil {
		m.Updates.Broadcast(t.ID, rep)
	}
	return rep, nil
}

// Forget drops any open downtime session for a deleted target.
func (m *Monitor) Forget(id domain.TargetID) {
	if m.Prober != nil && m.Prober.Downtime != nil {
		m.Prober.Downtime.Forget(id)
	}
}

// ScanPorts runs the on-demand TCP port scan of an ip target. A nil or
// empty port list means the default set.
func (m *Monitor) ScanPorts(ctx context.Context, id domain.TargetID, ports []int) (*domain.PortScan, error) {
	t, err := m.Targets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Kind != domain.KindIP {
		return nil, ErrWrongKind
	}
	for _, p := range ports {
		if p < 1 || p > 65535 {
			return nil, fmt.Errorf("%w: %d", ErrBadPorts, p)
		}
	}
	return probe.ScanPorts(ctx, t.Address, ports), nil
}
