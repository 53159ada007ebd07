// Package connectivity turns catalog reachability into online/offline signals for the
// provider and retries synchronization after the catalog comes back.
package connectivity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sethvargo/go-retry"

	"github.com/Clark-Hu/cinemaddict/internal/catalog"
	"github.com/Clark-Hu/cinemaddict/internal/provider"
)

// Prober checks whether the catalog answers.
type Prober interface {
	Ping(ctx context.Context) error
}

// Syncer receives connectivity signals and replays queued work.
type Syncer interface {
	SetOnline(ctx context.Context, online bool) (provider.SyncReport, error)
	Synchronize(ctx context.Context) (provider.SyncReport, error)
	IsSynchronized(ctx context.Context) bool
}

// Config controls probing and retry.
type Config struct {
	ProbeInterval   time.Duration
	ProbeTimeout    time.Duration
	SyncMaxAttempts int
	// RetryBase is the first backoff delay; it doubles per attempt.
	RetryBase time.Duration
}

// Monitor probes the catalog on a schedule and forwards the result to the Syncer.
type Monitor struct {
	prober Prober
	syncer Syncer
	cfg    Config
	logger *slog.Logger

	cron *cron.Cron
	// probeMu keeps scheduled and manual probes from overlapping.
	probeMu   sync.Mutex
	isRunning bool
}

// NewMonitor creates a monitor. Start begins scheduled probing.
func NewMonitor(prober Prober, syncer Syncer, cfg Config, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 30 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.SyncMaxAttempts <= 0 {
		cfg.SyncMaxAttempts = 1
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	logger = logger.With("component", "connectivity")
	return &Monitor{
		prober: prober,
		syncer: syncer,
		cfg:    cfg,
		logger: logger,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger), cron.Recover(cron.DiscardLogger)),
		),
	}
}

// Start probes once immediately, then on every ProbeInterval until Stop.
func (m *Monitor) Start(ctx context.Context) error {
	if m.isRunning {
		return nil
	}
	spec := fmt.Sprintf("@every %s", m.cfg.ProbeInterval)
	if _, err := m.cron.AddFunc(spec, func() {
		if err := m.Probe(ctx); err != nil && ctx.Err() == nil {
			m.logger.Warn("probe cycle failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule probe %q: %w", spec, err)
	}

	if err := m.Probe(ctx); err != nil {
		m.logger.Warn("initial probe cycle failed", "error", err)
	}
	m.cron.Start()
	m.isRunning = true
	m.logger.Info("monitor started", "interval", m.cfg.ProbeInterval)
	return nil
}

// Stop halts scheduling and waits for a running probe to finish.
func (m *Monitor) Stop() {
	if !m.isRunning {
		return
	}
	<-m.cron.Stop().Done()
	m.isRunning = false
	m.logger.Info("monitor stopped")
}

// Probe pings the catalog once and signals the result. When the catalog is reachable and
// work is still queued, synchronization is retried with exponential backoff.
func (m *Monitor) Probe(ctx context.Context) error {
	m.probeMu.Lock()
	defer m.probeMu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	err := m.prober.Ping(probeCtx)
	cancel()

	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrNetwork), errors.Is(err, catalog.ErrServer), errors.Is(err, context.DeadlineExceeded):
		m.logger.Debug("catalog unreachable", "error", err)
		_, _ = m.syncer.SetOnline(ctx, false)
		return nil
	default:
		// The catalog answered, just not with success (credentials, routing). Treat it
		// as reachable so the failure surfaces through normal calls.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.logger.Warn("catalog probe rejected", "error", err)
	}

	report, err := m.syncer.SetOnline(ctx, true)
	if err == nil && m.syncer.IsSynchronized(ctx) {
		if report.Replayed > 0 || len(report.Dropped) > 0 {
			m.logger.Info("queued work synchronized", "replayed", report.Replayed, "dropped", len(report.Dropped))
		}
		return nil
	}
	if err != nil && !catalog.IsTransient(err) {
		return err
	}
	_, err = m.SyncWithRetry(ctx)
	return err
}

// SyncWithRetry runs Synchronize until the queue drains, a non-transient error occurs or
// SyncMaxAttempts is exhausted.
func (m *Monitor) SyncWithRetry(ctx context.Context) (provider.SyncReport, error) {
	var last provider.SyncReport
	backoff := retry.WithMaxRetries(uint64(m.cfg.SyncMaxAttempts-1), retry.NewExponential(m.cfg.RetryBase))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		report, err := m.syncer.Synchronize(ctx)
		last = report
		switch {
		case err == nil:
			return nil
		case catalog.IsTransient(err):
			m.logger.Warn("synchronize attempt failed", "attempt", attempt, "remaining", report.Remaining, "error", err)
			return retry.RetryableError(err)
		default:
			return err
		}
	})
	if err != nil {
		return last, fmt.Errorf("synchronize after %d attempt(s): %w", attempt, err)
	}
	return last, nil
}
