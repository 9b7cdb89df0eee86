package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/notifyhub/chatbridge/internal/api"
	"github.com/notifyhub/chatbridge/internal/chat"
	"github.com/notifyhub/chatbridge/internal/chat/telegram"
	"github.com/notifyhub/chatbridge/internal/config"
	"github.com/notifyhub/chatbridge/internal/db"
	"github.com/notifyhub/chatbridge/internal/dispatch"
	"github.com/notifyhub/chatbridge/internal/domain"
	"github.com/notifyhub/chatbridge/internal/metrics"
	"github.com/notifyhub/chatbridge/internal/queue"
	"github.com/notifyhub/chatbridge/internal/ratelimiter"
	"github.com/notifyhub/chatbridge/internal/render"
	"github.com/notifyhub/chatbridge/internal/reply"
	"github.com/notifyhub/chatbridge/internal/resolver"
	"github.com/notifyhub/chatbridge/internal/service"
	"github.com/notifyhub/chatbridge/internal/upstream"
	"github.com/notifyhub/chatbridge/internal/worker"
)

func main() {
	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		// logger is not built yet; fall back to a default production logger
		l, _ := zap.NewProduction()
		l.Fatal("failed to load config", zap.Error(err))
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- read model ----
	res, closeRes, err := openResolver(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open read model", zap.Error(err))
	}
	defer closeRes()

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	engine, err := render.New(cfg.TemplateDir, logger)
	if err != nil {
		logger.Fatal("failed to load templates", zap.Error(err))
	}

	platform, err := telegram.New(telegram.Config{
		Token:  cfg.ChatToken,
		APIURL: cfg.ChatAPIURL,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create chat platform", zap.Error(err))
	}
	channel := chat.New(platform, reply.NewLoggingProcessor(logger), ratelimiter.New(cfg.ChatRateLimit), chat.Options{
		BroadcastChannel: cfg.ChatBroadcastChannel,
		ConnectTimeout:   cfg.ChatConnectTimeout,
		SendTimeout:      cfg.ChatSendTimeout,
		MaxReplyLength:   cfg.MaxReplyLength,
	}, logger)
	channel.SetHooks(m.ChannelHooks())

	dispatcher := dispatch.New(res, engine, channel, dispatch.Options{
		Enabled:            cfg.Enabled,
		SupportedEventType: domain.EventType(cfg.SupportedEventType),
		Organization:       cfg.Organization,
		SiteURL:            cfg.SiteURL,
	}, logger)
	dispatcher.SetOutcomeHook(m.DispatchHook())

	q := queue.New(cfg.QueueCapacity)
	metrics.RegisterQueueDepth(reg, q.Depths)
	intake := service.NewIntakeService(q, logger)

	fetcher := upstream.NewClient(upstream.Options{
		BaseURL:          cfg.MessagesBaseURL,
		NotificationType: cfg.NotificationType,
		Organization:     cfg.Organization,
		ClientID:         cfg.ClientID,
		Timeout:          cfg.FetchTimeout,
	})
	poller := worker.NewPoller(fetcher, q, dispatcher, cfg.PollInterval, cfg.FetchTimeout, logger)
	poller.SetHooks(m.PollerHooks())

	// ---- HTTP server ----
	router := api.NewRouter(api.Deps{
		Intake:    intake,
		Queue:     q,
		Session:   channel,
		Enabled:   cfg.Enabled,
		Templates: engine.IDs,
		Gatherer:  reg,
		APIToken:  cfg.APIToken,
	}, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if cfg.APIToken == "" {
		logger.Warn("API_TOKEN not set, intake API is unauthenticated")
	}
	if !cfg.Enabled {
		logger.Warn("delivery disabled, notifications will be consumed and dropped")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return poller.Run(gctx) })

	if cfg.TemplateWatch {
		g.Go(func() error { return engine.Watch(gctx) })
	}

	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// ---- graceful shutdown ----
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

		// 1. Stop accepting new HTTP requests.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", zap.Error(err))
		}

		// 2. The poller drains its in-flight tick on its own; then the chat
		// session can go.
		return nil
	})

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Warn("sd_notify failed", zap.Error(err))
	} else if ok {
		logger.Debug("notified systemd")
	}

	if err := g.Wait(); err != nil {
		logger.Error("bridge stopped with error", zap.Error(err))
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	channel.Close(closeCtx)

	logger.Info("server stopped cleanly")
}

func newLogger(level string) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zcfg.Build()
	if err != nil {
		l, _ := zap.NewProduction()
		l.Warn("invalid logger config, using defaults", zap.Error(err))
		return l
	}
	return logger
}

// openResolver picks the read model from DATABASE_URL: PostgreSQL, a SQLite
// file, or (when unset) an empty in-memory store.
func openResolver(ctx context.Context, cfg *config.Config, logger *zap.Logger) (resolver.Resolver, func(), error) {
	switch {
	case db.IsPostgres(cfg.DatabaseURL):
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if cfg.DBMigrate {
			if err := db.Migrate(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
				pool.Close()
				return nil, nil, err
			}
			logger.Info("database migrations applied")
		}
		logger.Info("read model: postgres")
		return resolver.NewPgResolver(pool), pool.Close, nil

	default:
		if path, ok := resolver.SQLitePath(cfg.DatabaseURL); ok {
			r, err := resolver.OpenSQLite(ctx, path)
			if err != nil {
				return nil, nil, err
			}
			logger.Info("read model: sqlite", zap.String("path", path))
			return r, func() { _ = r.Close() }, nil
		}
	}

	if cfg.DatabaseURL != "" {
		logger.Warn("unrecognised DATABASE_URL scheme, using empty read model")
	} else {
		logger.Warn("no DATABASE_URL, every lookup will miss")
	}
	return resolver.NewMemoryResolver(), func() {}, nil
}
