// Package app wires all matchherald subsystems into a running service.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the polling loop and the HTTP server, and
// Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithSource, WithLedger, etc.). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"matchherald/internal/commentary"
	"matchherald/internal/config"
	"matchherald/internal/health"
	"matchherald/internal/ledger"
	"matchherald/internal/notify"
	"matchherald/internal/notify/webhook"
	"matchherald/internal/observe"
	"matchherald/internal/poller"
	"matchherald/internal/resilience"
	"matchherald/internal/stats"
	"matchherald/internal/stats/leetify"
	"matchherald/pkg/provider/llm"
)

// App owns all subsystem lifetimes.
type App struct {
	cfg *config.Config

	// Subsystems, initialised in New, torn down in Shutdown.
	source   stats.Source
	seen     ledger.Ledger
	provider llm.Provider
	engine   *commentary.Engine
	sink     notify.Sink
	poll     *poller.Poller
	httpSrv  *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSource injects a stats source instead of creating the Leetify client.
func WithSource(s stats.Source) Option {
	return func(a *App) { a.source = s }
}

// WithLedger injects a ledger instead of creating one from config.
func WithLedger(l ledger.Ledger) Option {
	return func(a *App) { a.seen = l }
}

// WithSink injects a notification sink instead of creating the webhook sink.
func WithSink(s notify.Sink) Option {
	return func(a *App) { a.sink = s }
}

// WithProvider injects a generation provider instead of building one through
// the registry.
func WithProvider(p llm.Provider) Option {
	return func(a *App) { a.provider = p }
}

// New creates an App by wiring all subsystems together. Provider factories
// come from reg (populated by main). Use Option functions to inject test
// doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, reg *config.Registry, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	a.initSource()

	if err := a.initLedger(ctx); err != nil {
		return nil, fmt.Errorf("app: init ledger: %w", err)
	}

	if err := a.initProvider(reg); err != nil {
		return nil, fmt.Errorf("app: init provider: %w", err)
	}
	a.engine = commentary.NewEngine(a.provider,
		commentary.WithTone(cfg.Commentary.Tone),
		commentary.WithProviderName(cfg.Commentary.Provider.Name))

	if err := a.initSink(); err != nil {
		return nil, fmt.Errorf("app: init sink: %w", err)
	}

	p, err := poller.New(poller.Config{
		Source:     a.source,
		Ledger:     a.seen,
		Engine:     a.engine,
		Sink:       a.sink,
		TrackedIDs: cfg.Tracking.SteamIDs,
		Interval:   cfg.Tracking.PollInterval(),
	})
	if err != nil {
		return nil, fmt.Errorf("app: init poller: %w", err)
	}
	a.poll = p

	a.initHTTPServer()

	return a, nil
}

// initSource creates the Leetify client unless one was injected. The source
// is wrapped with fetch instrumentation either way.
func (a *App) initSource() {
	if a.source == nil {
		var opts []leetify.Option
		if a.cfg.Leetify.BaseURL != "" {
			opts = append(opts, leetify.WithBaseURL(a.cfg.Leetify.BaseURL))
		}
		a.source = leetify.New(a.cfg.Leetify.APIKey, opts...)
	}
	a.source = stats.Instrument(a.source, observe.DefaultMetrics())
}

// initLedger selects the Postgres backend when a DSN is configured and the
// local file otherwise.
func (a *App) initLedger(ctx context.Context) error {
	if a.seen != nil {
		return nil
	}

	if dsn := a.cfg.Ledger.PostgresDSN; dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		pg := ledger.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("migrate ledger schema: %w", err)
		}
		a.seen = pg
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
		slog.Info("using postgres ledger")
		return nil
	}

	a.seen = ledger.NewFile(a.cfg.Ledger.Path)
	slog.Info("using file ledger", "path", a.cfg.Ledger.Path)
	return nil
}

// initProvider builds the primary generation backend and, when fallbacks are
// configured, wraps everything in a circuit-breaking fallback group.
func (a *App) initProvider(reg *config.Registry) error {
	if a.provider != nil {
		return nil
	}

	primary, err := reg.CreateLLM(a.cfg.Commentary.Provider)
	if err != nil {
		return fmt.Errorf("create provider %q: %w", a.cfg.Commentary.Provider.Name, err)
	}
	slog.Info("generation provider created",
		"name", a.cfg.Commentary.Provider.Name,
		"model", a.cfg.Commentary.Provider.Model)

	if len(a.cfg.Commentary.Fallbacks) == 0 {
		a.provider = primary
		return nil
	}

	group := resilience.NewLLMFallback(primary, a.cfg.Commentary.Provider.Name, resilience.FallbackConfig{})
	for _, entry := range a.cfg.Commentary.Fallbacks {
		fb, err := reg.CreateLLM(entry)
		if err != nil {
			return fmt.Errorf("create fallback provider %q: %w", entry.Name, err)
		}
		group.AddFallback(entry.Name, fb)
		slog.Info("fallback provider created", "name", entry.Name, "model", entry.Model)
	}
	a.provider = group
	return nil
}

// initSink creates the Discord webhook sink unless one was injected.
func (a *App) initSink() error {
	if a.sink != nil {
		return nil
	}
	sink, err := webhook.New(a.cfg.Discord.WebhookURL)
	if err != nil {
		return err
	}
	a.sink = sink
	return nil
}

// initHTTPServer builds the metrics and health server. An empty listen
// address disables it.
func (a *App) initHTTPServer() {
	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	health.New(a.healthCheckers()...).Register(mux)

	a.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(observe.DefaultMetrics())(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// healthCheckers returns the readiness checks for /readyz.
func (a *App) healthCheckers() []health.Checker {
	return []health.Checker{
		{
			Name: "ledger",
			Check: func(ctx context.Context) error {
				if a.seen == nil {
					return errors.New("no ledger configured")
				}
				return nil
			},
		},
		{
			Name: "generation",
			Check: func(ctx context.Context) error {
				if a.provider == nil {
					return errors.New("no generation provider configured")
				}
				return nil
			},
		},
	}
}

// Run starts the polling loop and the HTTP server and blocks until ctx is
// cancelled or either subsystem fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.poll.Run(ctx)
	})

	if a.httpSrv != nil {
		g.Go(func() error {
			slog.Info("http server listening", "addr", a.httpSrv.Addr)
			if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.httpSrv.Shutdown(shutCtx)
		})
	}

	return g.Wait()
}

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}
