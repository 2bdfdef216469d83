package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wudi/pagecount/internal/app"
	"github.com/wudi/pagecount/internal/config"
	"github.com/wudi/pagecount/internal/logging"
	"github.com/wudi/pagecount/internal/metrics"
	"github.com/wudi/pagecount/internal/middleware"
	"github.com/wudi/pagecount/internal/router"
	"github.com/wudi/pagecount/internal/session"
	"github.com/wudi/pagecount/internal/tracking"
)

// Server runs the public site and the admin listener.
type Server struct {
	mu            sync.Mutex
	config        *config.Config
	configPath    string
	metrics       *metrics.Collector
	tracker       *tracking.Tracker
	router        *router.Router
	sessions      *session.Manager
	redisClient   *redis.Client
	handler       http.Handler
	httpServer    *http.Server
	adminServer   *http.Server
	watcher       *config.Watcher
	startTime     time.Time
	reloadHistory []ReloadResult
}

// New wires the site from cfg. configPath is used for reloads and may be
// empty.
func New(cfg *config.Config, configPath string) (*Server, error) {
	views, err := app.NewViews()
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}

	s := &Server{
		config:     cfg,
		configPath: configPath,
		metrics:    metrics.NewCollector(),
		router:     router.New(app.Controllers(views)...),
		startTime:  time.Now(),
	}
	if err := s.router.Load(cfg.Routes, cfg.Static); err != nil {
		return nil, err
	}

	store, err := s.newSessionStore(cfg)
	if err != nil {
		return nil, err
	}
	s.sessions = session.NewManager(store, session.Config{
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.Secure,
	})
	s.tracker = tracking.New(cfg.Tracking, s.metrics)

	s.handler = middleware.NewBuilder().
		Use(middleware.Recovery()).
		Use(middleware.RequestID()).
		Use(middleware.LoggingWithConfig(middleware.LoggingConfig{
			Format:    cfg.Logging.Format,
			JSON:      cfg.Logging.JSON,
			SkipPaths: cfg.Logging.SkipPaths,
			Metrics:   s.metrics,
			Quiet:     !cfg.Logging.AccessLog,
		})).
		Use(s.sessions.Middleware).
		Use(s.tracker.Middleware).
		Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      s.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	if cfg.Admin.Enabled {
		s.adminServer = &http.Server{
			Addr:         cfg.Admin.Address,
			Handler:      s.AdminHandler(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
	}

	if cfg.Server.WatchConfig && configPath != "" {
		w, err := config.NewWatcher(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to watch config: %w", err)
		}
		w.OnChange(func(newCfg *config.Config) {
			logReload(s.Reload(newCfg))
		})
		s.watcher = w
	}

	return s, nil
}

func (s *Server) newSessionStore(cfg *config.Config) (session.Store, error) {
	switch cfg.Session.Store {
	case "redis":
		opts := &redis.Options{
			Addr:        cfg.Redis.Address,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout,
		}
		if cfg.Redis.TLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		s.redisClient = redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.redisClient.Ping(ctx).Err(); err != nil {
			logging.Warn("Redis unreachable at startup, session counting paused until it recovers",
				zap.String("address", cfg.Redis.Address),
				zap.Error(err),
			)
		}
		logging.Info("Using redis session store", zap.String("address", cfg.Redis.Address))
		return session.NewRedisStore(s.redisClient, cfg.Session.RedisPrefix, cfg.Session.IdleTimeout), nil
	case "", "memory":
		logging.Info("Using memory session store", zap.Int("max_sessions", cfg.Session.MaxSessions))
		return session.NewMemoryStore(cfg.Session.MaxSessions, cfg.Session.IdleTimeout), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}

// Handler returns the public site handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured addresses and serves until ctx is done or
// a listener fails. SIGHUP reloads the config file.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	var adminLn net.Listener
	if s.adminServer != nil {
		adminLn, err = net.Listen("tcp", s.adminServer.Addr)
		if err != nil {
			ln.Close()
			return fmt.Errorf("failed to listen on %s: %w", s.adminServer.Addr, err)
		}
	}
	return s.Serve(ctx, ln, adminLn)
}

// Serve serves on the given listeners. adminLn may be nil.
func (s *Server) Serve(ctx context.Context, ln, adminLn net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logging.Info("Starting HTTP server", zap.String("address", ln.Addr().String()))
		return serve(s.httpServer, ln)
	})
	if s.adminServer != nil && adminLn != nil {
		g.Go(func() error {
			logging.Info("Starting admin server", zap.String("address", adminLn.Addr().String()))
			return serve(s.adminServer, adminLn)
		})
	}

	if s.watcher != nil {
		if err := s.watcher.Start(); err != nil {
			logging.Error("Config watcher failed to start", zap.Error(err))
		} else {
			defer s.watcher.Stop()
		}
	}

	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				logReload(s.ReloadConfig())
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logging.Info("Shutting down gracefully...")
		return s.Shutdown(s.config.Server.ShutdownTimeout)
	})

	return g.Wait()
}

func serve(srv *http.Server, ln net.Listener) error {
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the servers
func (s *Server) Shutdown(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if s.adminServer != nil {
		if err := s.adminServer.Shutdown(ctx); err != nil {
			logging.Error("Admin server shutdown error", zap.Error(err))
		}
	}

	var err error
	if err = s.httpServer.Shutdown(ctx); err != nil {
		logging.Error("HTTP server shutdown error", zap.Error(err))
	}

	if s.redisClient != nil {
		if cerr := s.redisClient.Close(); cerr != nil {
			logging.Error("Redis close error", zap.Error(cerr))
		}
	}

	logging.Info("Server shutdown complete")
	return err
}

func logReload(result ReloadResult) {
	if result.Success {
		logging.Info("Config reloaded successfully",
			zap.Strings("changes", result.Changes),
		)
		return
	}
	logging.Error("Config reload failed", zap.String("error", result.Error))
}
