// Package poller runs the periodic match polling loop: collect new matches,
// generate commentary, assemble and deliver reports, and persist seen ids.
//
// The loop observes shutdown at pass boundaries and between discrete units of
// work; an in-flight match is always processed to completion before the
// poller stops. A panic inside one pass is recovered at the pass boundary so
// a single poisoned match cannot kill the service.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"matchherald/internal/collect"
	"matchherald/internal/commentary"
	"matchherald/internal/ledger"
	"matchherald/internal/notify"
	"matchherald/internal/observe"
	"matchherald/internal/report"
	"matchherald/internal/stats"
)

const (
	// defaultDeliveryPause is the pause between multiple report deliveries in
	// the same pass, to avoid bursting the sink.
	defaultDeliveryPause = 2 * time.Second

	// sleepGranularity bounds how long a shutdown signal can go unnoticed
	// while the poller waits between passes.
	sleepGranularity = time.Second
)

// Config carries the poller's collaborators and tuning knobs.
type Config struct {
	// Source fetches recent matches per tracked identity.
	Source stats.Source

	// Ledger is the seen-match store. The poller calls Load once at startup
	// and MarkSeenAndSave after each processed match.
	Ledger ledger.Ledger

	// Engine generates per-participant commentary.
	Engine *commentary.Engine

	// Sink delivers reports and announcements.
	Sink notify.Sink

	// TrackedIDs is the list of Steam64 ids to follow. Must be non-empty.
	TrackedIDs []string

	// Interval is the pause between polling passes. Must be positive.
	Interval time.Duration

	// DeliveryPause overrides the pause between deliveries in one pass.
	// Zero means the default of 2s.
	DeliveryPause time.Duration

	// Metrics receives poller instrumentation. Nil means the package default.
	Metrics *observe.Metrics
}

// Poller owns the polling loop. Create one with New and drive it with Run.
type Poller struct {
	source        stats.Source
	seen          ledger.Ledger
	engine        *commentary.Engine
	sink          notify.Sink
	trackedIDs    []string
	interval      time.Duration
	deliveryPause time.Duration
	metrics       *observe.Metrics
}

// New creates a Poller from cfg.
func New(cfg Config) (*Poller, error) {
	if cfg.Source == nil || cfg.Ledger == nil || cfg.Engine == nil || cfg.Sink == nil {
		return nil, fmt.Errorf("poller: source, ledger, engine, and sink are all required")
	}
	if len(cfg.TrackedIDs) == 0 {
		return nil, fmt.Errorf("poller: at least one tracked id is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("poller: interval must be positive, got %v", cfg.Interval)
	}
	if cfg.DeliveryPause == 0 {
		cfg.DeliveryPause = defaultDeliveryPause
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &Poller{
		source:        cfg.Source,
		seen:          cfg.Ledger,
		engine:        cfg.Engine,
		sink:          cfg.Sink,
		trackedIDs:    cfg.TrackedIDs,
		interval:      cfg.Interval,
		deliveryPause: cfg.DeliveryPause,
		metrics:       cfg.Metrics,
	}, nil
}

// Run executes the polling loop until ctx is cancelled. It returns ctx.Err()
// on graceful shutdown and a non-nil error on unrecoverable ledger I/O
// failures.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.seen.Load(ctx); err != nil {
		return fmt.Errorf("poller: load ledger: %w", err)
	}

	if p.seen.IsEmpty() {
		if err := p.initializeLedger(ctx); err != nil {
			return err
		}
	}

	p.announce(ctx, fmt.Sprintf("📡 matchherald online, tracking %d players", len(p.trackedIDs)))

	for {
		if err := p.runPass(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}
		if err := p.sleep(ctx, p.interval); err != nil {
			break
		}
	}

	// Shutdown path: ctx is cancelled, so announcements get a fresh deadline.
	offCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	p.announce(offCtx, "📴 matchherald signing off")
	if err := p.seen.Save(offCtx); err != nil {
		slog.Warn("final ledger save failed", "error", err)
	}
	return ctx.Err()
}

// initializeLedger performs first-run silent initialization: the current
// most-recent match of every tracked identity is marked seen without a
// report, so deploying against identities with existing history does not spam
// the channel.
func (p *Poller) initializeLedger(ctx context.Context) error {
	slog.Info("empty ledger, marking current matches as seen without reporting")

	marked := 0
	for _, id := range p.trackedIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m, err := p.source.FetchRecentMatch(ctx, id)
		if err != nil {
			slog.Warn("initialization fetch failed", "steam_id", id, "error", err)
			continue
		}
		if !m.IsUsable() || p.seen.HasSeen(m.ID) {
			continue
		}
		p.seen.MarkSeen(m.ID)
		marked++
	}
	if err := p.seen.Save(ctx); err != nil {
		return fmt.Errorf("poller: save initialized ledger: %w", err)
	}
	slog.Info("ledger initialized", "matches_marked", marked)
	return nil
}

// runPass executes one collection and processing pass. A panic inside the
// pass is recovered here so the loop survives a poisoned match; the panic is
// reported best-effort through the sink.
func (p *Poller) runPass(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("polling pass panicked", "panic", r)
			p.metrics.RecordPass(ctx, "panic")
			p.announce(ctx, fmt.Sprintf("⚠️ matchherald: polling pass failed (%v), continuing", r))
			err = nil
		}
	}()

	matches := collect.Collect(ctx, p.source, p.seen, p.trackedIDs)
	if len(matches) > 0 {
		p.metrics.MatchesDiscovered.Add(ctx, int64(len(matches)))
	}

	for i, m := range matches {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i > 0 {
			if err := p.sleep(ctx, p.deliveryPause); err != nil {
				return err
			}
		}
		if err := p.processMatch(ctx, m); err != nil {
			return err
		}
	}

	p.metrics.RecordPass(ctx, "ok")
	return nil
}

// processMatch runs commentary, assembly, delivery, and persistence for one
// match. Only ledger persistence failures are returned; generation and
// delivery failures are logged and the match is still marked seen so it is
// never reported twice.
func (p *Poller) processMatch(ctx context.Context, m *stats.Match) error {
	tracked := m.TrackedPlayers(p.trackedIDs)
	if len(tracked) == 0 {
		slog.Debug("match has no tracked participants, marking seen without report", "match_id", m.ID)
		return p.markSeen(ctx, m.ID)
	}

	genStart := time.Now()
	comments := p.engine.Generate(ctx, m, p.trackedIDs)
	p.metrics.GenerationDuration.Record(ctx, time.Since(genStart).Seconds())

	rep := report.Build(m, comments, p.trackedIDs)

	deliverStart := time.Now()
	if err := p.sink.DeliverReport(ctx, rep); err != nil {
		slog.Warn("report delivery failed", "match_id", m.ID, "error", err)
		p.metrics.RecordDeliveryFailure(ctx)
	} else {
		p.metrics.MatchesReported.Add(ctx, 1)
		slog.Info("match report delivered",
			"match_id", m.ID,
			"map", m.MapName,
			"participants", len(tracked))
	}
	p.metrics.DeliveryDuration.Record(ctx, time.Since(deliverStart).Seconds())

	return p.markSeen(ctx, m.ID)
}

// markSeen records the match id and persists the ledger. Failure here is
// unrecoverable: continuing with an unsaveable ledger would re-report every
// match after a restart.
func (p *Poller) markSeen(ctx context.Context, id string) error {
	if err := p.seen.MarkSeenAndSave(ctx, id); err != nil {
		return fmt.Errorf("poller: persist seen match %s: %w", id, err)
	}
	return nil
}

// sleep waits for d, polling ctx at sleepGranularity so shutdown is observed
// within a second.
func (p *Poller) sleep(ctx context.Context, d time.Duration) error {
	remaining := d
	for remaining > 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		step := sleepGranularity
		if remaining < step {
			step = remaining
		}
		timer := time.NewTimer(step)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		remaining -= step
	}
	return nil
}

// announce sends a plain status message through the sink. Failures are logged
// and otherwise ignored.
func (p *Poller) announce(ctx context.Context, message string) {
	if err := p.sink.Announce(ctx, message); err != nil {
		slog.Warn("announcement failed", "error", err)
	}
}
