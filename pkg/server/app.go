package server

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	domsvc "opinionpointer/internal/domain/service"
	"opinionpointer/internal/usecase"
	pkgcache "opinionpointer/pkg/cache"
	pkgch "opinionpointer/pkg/clickhouse"
	"opinionpointer/pkg/config"
	xhttp "opinionpointer/pkg/http"
	pkgkafka "opinionpointer/pkg/kafka"
	applogger "opinionpointer/pkg/logger"
	pkgpg "opinionpointer/pkg/postgres"
	"opinionpointer/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	logger    *applogger.Logger
	handler   xhttp.Handler
	sentiment *usecase.SentimentService
	stream    domsvc.SentimentStream
	collector *usecase.Collector
	queue     *queue.RedisQueue
	registry  *usecase.Registry

	pg       *pkgpg.Client
	ch       *pkgch.Client
	producer *pkgkafka.Producer
	redis    *pkgcache.RedisCache

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	handler xhttp.Handler,
	sentiment *usecase.SentimentService,
	stream domsvc.SentimentStream,
	collector *usecase.Collector,
	q *queue.RedisQueue,
	registry *usecase.Registry,
	pg *pkgpg.Client,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	redis *pkgcache.RedisCache,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		handler:   handler,
		sentiment: sentiment,
		stream:    stream,
		collector: collector,
		queue:     q,
		registry:  registry,
		pg:        pg,
		ch:        ch,
		producer:  producer,
		redis:     redis,
	}
}

// Run starts the application and blocks until interrupted or until the
// memory watchdog trips.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	if err := a.registry.Initialize(ctx); err != nil {
		// the admin bootstrap endpoint can re-run initialization
		l.Warn("service initialization incomplete", applogger.Error(err))
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(a.cfg.Metrics.Enabled),
	)

	a.sentiment.StartPollers(ctx)
	if a.stream != nil {
		go a.sentiment.RunStream(ctx, a.stream, a.cfg.Deploy.MaxRestarts)
	}

	if a.cfg.Collector.Enabled {
		if err := a.queue.Start(); err != nil {
			l.Error("queue start error", applogger.Error(err))
			return err
		}
		a.collector.Start(ctx)

		// aggregate error logs onto the queue for offline inspection
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "app_logs",
			Publisher:      a.queue,
		})
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("application started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("env", a.cfg.Environment))

	memTrip := make(chan struct{}, 1)
	if a.cfg.Deploy.MaxMemoryMB > 0 {
		go a.watchMemory(ctx, memTrip)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		l.Info("shutdown signal received", applogger.String("signal", sig.String()))
	case <-memTrip:
		l.Warn("memory limit exceeded, shutting down for supervisor restart",
			applogger.Int("limit_mb", a.cfg.Deploy.MaxMemoryMB))
	}

	cancel()
	return a.shutdown()
}

// watchMemory trips the channel once heap usage crosses the deploy limit.
func (a *App) watchMemory(ctx context.Context, trip chan<- struct{}) {
	ticker := time.NewTicker(a.cfg.Deploy.MemCheckInterval)
	defer ticker.Stop()

	limit := uint64(a.cfg.Deploy.MaxMemoryMB) * 1024 * 1024
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			if ms.Alloc > limit {
				select {
				case trip <- struct{}{}:
				default:
				}
				return
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	l := a.logger
	l.Info("shutting down...")
	l.RemoveCollector()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.cfg.Collector.Enabled {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			l.Warn("queue stop error", applogger.Error(err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			l.Warn("postgres close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
