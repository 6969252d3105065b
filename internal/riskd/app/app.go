package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/neurobridge-risk/internal/cache"
	httpserver "github.com/yungbote/neurobridge-risk/internal/http"
	httpH "github.com/yungbote/neurobridge-risk/internal/http/handlers"
	"github.com/yungbote/neurobridge-risk/internal/observability"
	"github.com/yungbote/neurobridge-risk/internal/platform/logger"
	"github.com/yungbote/neurobridge-risk/internal/riskd/config"
	"github.com/yungbote/neurobridge-risk/internal/scoring"
	"github.com/yungbote/neurobridge-risk/internal/snapshot"
)

// Version is stamped at build time with -ldflags "-X .../app.Version=...".
var Version = "dev"

type App struct {
	Log     *logger.Logger
	Config  *config.Config
	Metrics *observability.Metrics
	Loader  *snapshot.Loader
	Engine  *scoring.Engine

	cache        cache.Cache
	server       *httpserver.Server
	shutdownOTel func(context.Context) error
}

// New wires every component and publishes the first snapshot. A first load that
// fails is returned as an error; the service never serves without data.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log = log.With("service", "riskd", "version", Version)

	tracing := observability.TracingFromEnv()
	tracing.ServiceName = cfg.ServiceName
	tracing.Environment = cfg.Env
	tracing.Version = Version
	shutdownOTel := observability.InitOTel(ctx, log, tracing)

	metrics := observability.NewMetrics()

	c, err := cache.New(ctx, log, cfg.CacheConfig())
	if err != nil {
		_ = shutdownOTel(ctx)
		return nil, fmt.Errorf("init cache: %w", err)
	}

	store := snapshot.NewStore()
	loader := snapshot.NewLoader(log, cfg.SnapshotConfig(), store, metrics)
	loader.OnPublish(func(s *snapshot.Snapshot) {
		// Entries are keyed by snapshot id; clearing only reclaims space.
		clearCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.Clear(clearCtx); err != nil {
			log.Warn("cache clear after publish failed", "snapshot_id", s.ID, "error", err)
		}
	})

	if _, err := loader.Reload(ctx); err != nil {
		_ = c.Close()
		_ = shutdownOTel(ctx)
		return nil, fmt.Errorf("initial load: %w", err)
	}

	engine := scoring.New(log, store, cfg.ScoringOptions(),
		scoring.WithCache(c),
		scoring.WithMetrics(metrics),
	)

	srv := httpserver.NewServer(httpserver.ServerConfig{
		Addr:              cfg.HTTP.Addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Duration,
		IdleTimeout:       cfg.HTTP.IdleTimeout.Duration,
		ShutdownTimeout:   cfg.HTTP.ShutdownTimeout.Duration,
	}, httpserver.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		ServiceName:    cfg.ServiceName,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout.Duration,
		HealthHandler:  httpH.NewHealthHandler(store),
		RiskHandler:    httpH.NewRiskHandler(engine),
		CatalogHandler: httpH.NewCatalogHandler(engine),
		AdminHandler:   httpH.NewAdminHandler(loader),
	})

	return &App{
		Log:          log,
		Config:       cfg,
		Metrics:      metrics,
		Loader:       loader,
		Engine:       engine,
		cache:        c,
		server:       srv,
		shutdownOTel: shutdownOTel,
	}, nil
}

// Run serves HTTP and, when enabled, watches the sources until ctx is done.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)

	if r, ok := a.cache.(*cache.Redis); ok {
		a.Metrics.StartRedisCollector(gctx, a.Log, r.Client(), 0)
	}

	if a.Config.Data.Watch || a.Config.Data.RefreshInterval.Duration > 0 {
		var paths []string
		if a.Config.Data.Watch {
			paths = a.Loader.WatchPaths()
		}
		w, err := snapshot.NewWatcher(a.Log, a.Loader, paths, a.Config.Data.Debounce.Duration, a.Config.Data.RefreshInterval.Duration)
		if err != nil {
			return fmt.Errorf("init watcher: %w", err)
		}
		g.Go(func() error { return w.Run(gctx) })
	}

	g.Go(func() error {
		a.Log.Info("http server listening", "addr", a.Config.HTTP.Addr)
		return a.server.Run(gctx)
	})

	return g.Wait()
}

func (a *App) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.cache.Close(); err != nil {
		a.Log.Warn("cache close failed", "error", err)
	}
	if err := a.shutdownOTel(ctx); err != nil {
		a.Log.Warn("otel shutdown failed", "error", err)
	}
	a.Log.Sync()
}
