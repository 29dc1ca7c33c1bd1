package daemon

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matheus3301/tele/internal/api"
	"github.com/matheus3301/tele/internal/auth"
	"github.com/matheus3301/tele/internal/bus"
	"github.com/matheus3301/tele/internal/collections"
	"github.com/matheus3301/tele/internal/config"
	"github.com/matheus3301/tele/internal/lock"
	"github.com/matheus3301/tele/internal/logging"
	"github.com/matheus3301/tele/internal/media"
	"github.com/matheus3301/tele/internal/metrics"
	"github.com/matheus3301/tele/internal/remote"
	"github.com/matheus3301/tele/internal/search"
	"github.com/matheus3301/tele/internal/session"
	"github.com/matheus3301/tele/internal/status"
	"github.com/matheus3301/tele/internal/store"
	"github.com/matheus3301/tele/internal/telegram"
)

// thumbnailMaxAge bounds how long downloaded thumbnails are kept.
const thumbnailMaxAge = 30 * 24 * time.Hour

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string // optional override for testing; empty = use default
	Config      *config.Config
	// Console tees log output to stderr.
	Console bool
	// Backend replaces the Telegram backend in tests.
	Backend remote.Backend
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideRegistry,
			provideMetrics,
			provideLock,
			provideStore,
			provideBackend,
			provideAdapter,
			provideAuth,
			provideEngine,
			provideSearch,
			provideIndexer,
			provideAPI,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	cfg := p.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.ApplyEnv(session.EnvPath(p.SessionName)); err != nil {
		return nil, err
	}
	return cfg, nil
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Path:    session.LogPath(p.SessionName),
		Session: p.SessionName,
		Level:   cfg.LogLevel,
		Console: p.Console,
	})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func provideMetrics(reg *prometheus.Registry) (*metrics.Metrics, error) {
	return metrics.New(reg)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.LockPath(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore depends on the lock so the database is never opened by two
// daemons at once.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.DBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideBackend(p Params, cfg *config.Config, db *store.DB, logger *zap.Logger) remote.Backend {
	if p.Backend != nil {
		return p.Backend
	}
	return telegram.New(db, telegram.Options{
		ThumbnailDir:  session.ThumbnailDir(p.SessionName),
		SearchBot:     cfg.SearchBot,
		LinkBot:       cfg.LinkBot,
		SearchTimeout: cfg.SearchTimeout.Duration,
		LinkTimeout:   cfg.LinkTimeout.Duration,
	}, logger)
}

func provideAdapter(backend remote.Backend, m *metrics.Metrics, logger *zap.Logger) *remote.Adapter {
	return remote.New(backend, logger, m)
}

func provideAuth(adapter *remote.Adapter, db *store.DB, cfg *config.Config, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *auth.Machine {
	fallback := auth.Credentials{APIID: cfg.APIID, APIHash: cfg.APIHash}
	return auth.NewMachine(adapter, db, fallback, b, m, logger)
}

func provideEngine(adapter *remote.Adapter, machine *auth.Machine, cfg *config.Config, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *media.Engine {
	return media.NewEngine(adapter, machine, b, m, logger, media.Options{
		PageSize:   cfg.PageSize,
		RetryDelay: cfg.ThumbnailRetryDelay.Duration,
	})
}

func provideSearch(adapter *remote.Adapter, machine *auth.Machine, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *search.Adapter {
	return search.NewAdapter(adapter, machine, b, m, logger)
}

func provideIndexer(adapter *remote.Adapter, machine *auth.Machine, cfg *config.Config, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *collections.Indexer {
	return collections.NewIndexer(adapter, machine, cfg.CandidateLimit, b, m, logger)
}

func provideAPI(p Params, machine *auth.Machine, engine *media.Engine, searcher *search.Adapter, indexer *collections.Indexer, sm *status.Machine, b *bus.Bus, logger *zap.Logger) api.TeleServer {
	return api.NewServer(api.Deps{
		Session:     p.SessionName,
		Auth:        machine,
		Media:       engine,
		Search:      searcher,
		Collections: indexer,
		Status:      sm,
		Bus:         b,
		Logger:      logger,
	})
}

type lifecycleParams struct {
	fx.In

	Config   *config.Config
	Server   *Server
	Lock     *lock.Lock
	Store    *store.DB
	Adapter  *remote.Adapter
	Auth     *auth.Machine
	Engine   *media.Engine
	Status   *status.Machine
	Registry *prometheus.Registry
	Logger   *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, in lifecycleParams) {
	logger := in.Logger
	var (
		metricsSrv *metrics.Server
		unsub      func()
		served     = make(chan struct{})
	)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pruneThumbnails(ctx, in.Store, logger)

			handler := NewConnectionHandler(in.Status, logger)
			unsub = in.Adapter.Subscribe(handler.HandleNotification, handler.HandleTransportError)
			if err := in.Adapter.Start(ctx); err != nil {
				_ = in.Status.TransitionWithReason(status.Error, err.Error())
				return err
			}
			in.Auth.Start()

			if addr := in.Config.MetricsAddr; addr != "" {
				srv, err := metrics.Listen(addr, in.Registry)
				if err != nil {
					return err
				}
				metricsSrv = srv
				logger.Info("metrics server listening", zap.String("addr", srv.Addr()))
			}

			var g errgroup.Group
			g.Go(in.Server.Start)
			if metricsSrv != nil {
				g.Go(metricsSrv.Serve)
			}
			go func() {
				defer close(served)
				if err := g.Wait(); err != nil {
					logger.Error("server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			in.Engine.Stop()
			in.Auth.Stop()
			if unsub != nil {
				unsub()
			}
			if err := in.Adapter.Close(); err != nil {
				logger.Warn("error closing remote adapter", zap.Error(err))
			}
			in.Server.Stop(ctx)
			if metricsSrv != nil {
				if err := metricsSrv.Shutdown(ctx); err != nil {
					logger.Warn("error stopping metrics server", zap.Error(err))
				}
			}
			select {
			case <-served:
			case <-ctx.Done():
			}
			_ = in.Status.Transition(status.Closed)
			if err := in.Store.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := in.Lock.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}

// pruneThumbnails drops index entries and files older than thumbnailMaxAge.
func pruneThumbnails(ctx context.Context, db *store.DB, logger *zap.Logger) {
	paths, err := db.PruneThumbnails(ctx, time.Now().Add(-thumbnailMaxAge))
	if err != nil {
		logger.Warn("thumbnail prune failed", zap.Error(err))
		return
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Debug("remove thumbnail", zap.String("path", p), zap.Error(err))
		}
	}
	if len(paths) > 0 {
		logger.Info("thumbnails pruned", zap.Int("count", len(paths)))
	}
}
