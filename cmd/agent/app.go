package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/pushfailover/internal/config"
	"github.com/hamed0406/pushfailover/internal/domain"
	"github.com/hamed0406/pushfailover/internal/failover"
	"github.com/hamed0406/pushfailover/internal/httpapi"
	apimw "github.com/hamed0406/pushfailover/internal/httpapi/middleware"
	"github.com/hamed0406/pushfailover/internal/logging"
	"github.com/hamed0406/pushfailover/internal/metrics"
	"github.com/hamed0406/pushfailover/internal/notify"
	"github.com/hamed0406/pushfailover/internal/probe"
	"github.com/hamed0406/pushfailover/internal/provider/cloudflare"
	"github.com/hamed0406/pushfailover/internal/repo"
	"github.com/hamed0406/pushfailover/internal/repo/memory"
	pg "github.com/hamed0406/pushfailover/internal/repo/postgres"
	"github.com/hamed0406/pushfailover/internal/resilience"
	"github.com/hamed0406/pushfailover/internal/scheduler"
)

type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Collector
	results repo.ResultStore
	runtime *scheduler.Runtime
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logDir != "" {
		cfg.LogDir = logDir
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	// Choose store: Postgres if DATABASE_URL set, else memory
	if cfg.DatabaseURL != "" {
		store, err := pg.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			_ = logger.Sync()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			_ = logger.Sync()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.results = store
		a.closers = append(a.closers, store.Close)
		logger.Info("store_selected", zap.String("kind", "postgres"))
	} else {
		a.results = memory.New(0)
		logger.Info("store_selected", zap.String("kind", "memory"))
	}

	for _, name := range cfg.PartialFailover() {
		logger.Warn("failover_disabled_partial_config", zap.String("target", name))
	}

	breaker := func(name string) resilience.BreakerConfig {
		return resilience.BreakerConfig{
			Name:             name,
			FailureThreshold: cfg.Breaker.FailureThreshold,
			Delay:            cfg.Breaker.Delay,
		}
	}

	prober := probe.NewTCPProber(logger)
	push := notify.NewPush(cfg.API.Timeout, logging.Audit(logger)).WithBreaker(breaker("push"), logger)

	a.runtime = scheduler.NewRuntime(logger)
	for _, t := range cfg.BuildTargets() {
		c := &scheduler.Cycle{
			Target:   t,
			Prober:   prober,
			Reporter: push,
			Results:  a.results,
			Metrics:  a.metrics,
			Logger:   logger,
			Timeout:  cfg.API.CycleTimeout,
		}
		if t.Failover != nil {
			cf := cloudflare.NewClient(t.Failover.Token, t.Failover.ZoneID,
				cloudflare.WithTimeout(cfg.API.Timeout),
				cloudflare.WithBreaker(breaker("cloudflare:"+t.Name), logger),
			)
			c.Failover = failover.NewController(t.Name, t.Failover, cf, logger, failover.Options{
				TTL:                   cfg.Failover.TTL,
				RevertOnUpdateFailure: cfg.Failover.RevertOnUpdateFailure,
				Recorder:              a.metrics,
			})
		}
		if err := a.runtime.Add(c); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

func runAgent(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	api := httpapi.NewServer(a.logger, a.results, a.runtime, a.metrics.Handler())
	keys := apimw.Keys{Public: a.cfg.Auth.PublicKeys, Admin: a.cfg.Auth.AdminKeys}
	srv := &http.Server{
		Addr: a.cfg.Addr,
		Handler: api.Router(keys, a.cfg.Auth.AllowedOrigins, httpapi.Limits{
			PublicRPM:   a.cfg.Auth.PublicRPM,
			PublicBurst: a.cfg.Auth.PublicBurst,
			AdminRPM:    a.cfg.Auth.AdminRPM,
			AdminBurst:  a.cfg.Auth.AdminBurst,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("api_listen", zap.String("addr", a.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("api_listen_error", zap.Error(err))
		}
	}()

	runErr := a.runtime.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("api_shutdown_error", zap.Error(err))
	}
	a.logger.Info("agent_stopped")
	return runErr
}

func runCheck(ctx context.Context, w io.Writer, names []string) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if len(names) == 0 {
		for _, c := range a.runtime.Cycles() {
			names = append(names, c.Target.Name)
		}
	}

	enc := json.NewEncoder(w)
	down := 0
	for _, name := range names {
		res, err := a.runtime.RunOnce(ctx, name)
		if err != nil {
			return err
		}
		if !res.Up {
			down++
		}
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	if down > 0 {
		return fmt.Errorf("%d of %d targets down: %w", down, len(names), domain.ErrProbeFailure)
	}
	return nil
}
