package di

import (
	"context"
	"fmt"
	"time"

	domrepo "opinionpointer/internal/domain/repository"
	domsvc "opinionpointer/internal/domain/service"
	"opinionpointer/internal/handler/api"
	appmw "opinionpointer/internal/middleware"
	internalrepo "opinionpointer/internal/repository"
	"opinionpointer/internal/service/channels"
	"opinionpointer/internal/service/sentiment"
	"opinionpointer/internal/usecase"
	pkgcache "opinionpointer/pkg/cache"
	pkgch "opinionpointer/pkg/clickhouse"
	"opinionpointer/pkg/config"
	xhttp "opinionpointer/pkg/http"
	pkgkafka "opinionpointer/pkg/kafka"
	applogger "opinionpointer/pkg/logger"
	"opinionpointer/pkg/metrics"
	pkgpg "opinionpointer/pkg/postgres"
	"opinionpointer/pkg/queue"
	"opinionpointer/pkg/server"

	"github.com/labstack/echo/v4"
)

const snapshotTable = "sentiment_snapshots"

// ProvideLogger builds the application logger. The deploy log file, when
// set, takes precedence over the logging output.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	output := cfg.Logging.Output
	if cfg.Deploy.LogFile != "" {
		output = cfg.Deploy.LogFile
	}
	if output == "" {
		output = "stdout"
	}
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvidePostgres creates the Postgres client and ensures the schema.
func ProvidePostgres(cfg *config.Config) (*pkgpg.Client, error) {
	client, err := pkgpg.NewClient(
		pkgpg.WithHost(cfg.Postgres.Host),
		pkgpg.WithPort(cfg.Postgres.Port),
		pkgpg.WithDatabase(cfg.Postgres.Database),
		pkgpg.WithCredentials(cfg.Postgres.User, cfg.Postgres.Password),
		pkgpg.WithSSLMode(cfg.Postgres.SSLMode),
		pkgpg.WithMaxConnections(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns),
		pkgpg.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.Schema()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return client, nil
}

// ProvideStore creates the relational application store.
func ProvideStore(pg *pkgpg.Client, l *applogger.Logger) domrepo.Store {
	store := internalrepo.NewPostgresStore(pg)
	store.SetLogger(l)
	return store
}

// ProvideClickHouse creates the ClickHouse client when enabled, nil
// otherwise.
func ProvideClickHouse(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SnapshotSchema(cfg.ClickHouse.Database, snapshotTable)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideSnapshotStore creates the sentiment snapshot store. Nil when
// ClickHouse is disabled; history is then unavailable.
func ProvideSnapshotStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) domrepo.SnapshotStore {
	if ch == nil {
		return nil
	}
	store := internalrepo.NewCHSnapshotStore(ch, cfg.ClickHouse.Database+"."+snapshotTable)
	store.SetLogger(l)
	return store
}

// ProvideKafkaProducer creates the Kafka producer when enabled, nil
// otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher creates the collection event publisher.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.EventPublisher {
	if producer == nil {
		return internalrepo.NopEventPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
}

// ProvideRedisCache creates the Redis cache client.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache layers an in-process cache over Redis.
func ProvideCache(rc *pkgcache.RedisCache) pkgcache.Service {
	return pkgcache.NewLayeredCache(rc)
}

// ProvideQueue creates the Redis-backed work queue. Jobs are registered by
// the app before Start.
func ProvideQueue(l *applogger.Logger, cfg *config.Config, rc *pkgcache.RedisCache) *queue.RedisQueue {
	qc := &queue.QueueConfig{
		Workers:    cfg.Collector.Workers,
		RetryLimit: cfg.Collector.RetryLimit,
		RetryDelay: cfg.Collector.RetryDelay,
	}
	return queue.NewRedisQueue(l, qc, rc.Client(),
		queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
}

// ProvideSentimentProvider creates the upstream sentiment API client.
func ProvideSentimentProvider(cfg *config.Config) domsvc.SentimentProvider {
	return sentiment.NewClient(cfg)
}

// ProvideSentimentStream creates the provider WebSocket stream, nil when no
// stream URL is configured.
func ProvideSentimentStream(cfg *config.Config) domsvc.SentimentStream {
	if cfg.Sentiment.WebSocketURL == "" {
		return nil
	}
	return sentiment.NewStream(cfg.Sentiment.APIKey, cfg.Sentiment.WebSocketURL, cfg.Sentiment.ReconnectDelay)
}

// ProvideSentimentService creates the sentiment use case.
func ProvideSentimentService(
	provider domsvc.SentimentProvider,
	cache pkgcache.Service,
	snapshots domrepo.SnapshotStore,
	m domrepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.SentimentService {
	return usecase.NewSentimentService(provider, cache, snapshots, m, l,
		cfg.Sentiment.StaleAfter, cfg.Sentiment.RefetchEvery, cfg.Sentiment.HealthEvery)
}

// ProvideChannelFetcher creates the channel HTTP fetcher.
func ProvideChannelFetcher(cfg *config.Config) domsvc.ChannelFetcher {
	return channels.NewFetcher(cfg.Sentiment.Timeout)
}

// ProvideCollector creates the channel collection use case.
func ProvideCollector(
	store domrepo.Store,
	fetcher domsvc.ChannelFetcher,
	events domrepo.EventPublisher,
	q *queue.RedisQueue,
	m domrepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.Collector {
	return usecase.NewCollector(store, fetcher, events, q, m, l,
		cfg.Collector.Interval, cfg.Collector.MaxRPS)
}

// ProvideRegistry declares all managed services with their initializers.
func ProvideRegistry(
	pg *pkgpg.Client,
	rc *pkgcache.RedisCache,
	ch *pkgch.Client,
	provider domsvc.SentimentProvider,
	cfg *config.Config,
) *usecase.Registry {
	r := usecase.NewRegistry()
	r.Declare("postgres", func(ctx context.Context) error {
		return pg.Health(ctx)
	})
	r.Declare("redis", func(ctx context.Context) error {
		return rc.Client().Ping(ctx).Err()
	})
	if ch != nil {
		r.Declare("clickhouse", func(ctx context.Context) error {
			return ch.Health(ctx)
		})
	}
	r.Declare("sentiment-provider", func(ctx context.Context) error {
		h, err := provider.Health(ctx)
		if err != nil {
			return err
		}
		if !h.Healthy {
			return fmt.Errorf("provider unhealthy: %s", h.Message)
		}
		return nil
	})
	return r
}

// ProvideHealthAggregator creates the admin health aggregator.
func ProvideHealthAggregator(store domrepo.Store, registry *usecase.Registry, m domrepo.Metrics) *usecase.HealthAggregator {
	return usecase.NewHealthAggregator(store, registry, m)
}

// ProvideSessionAuth creates the session middleware.
func ProvideSessionAuth(store domrepo.Store, l *applogger.Logger) *appmw.SessionAuth {
	return appmw.NewSessionAuth(store, l)
}

// ProvideHandler bundles all route handlers behind one registration point.
func ProvideHandler(
	l *applogger.Logger,
	health *usecase.HealthAggregator,
	registry *usecase.Registry,
	store domrepo.Store,
	auth *appmw.SessionAuth,
	sentimentSvc *usecase.SentimentService,
) xhttp.Handler {
	admin := api.NewAdminHandler(l, health, registry, store, auth)
	market := api.NewMarketHandler(l, sentimentSvc)
	return routes{admin: admin, market: market}
}

type routes struct {
	admin  *api.AdminHandler
	market *api.MarketHandler
}

func (r routes) RegisterRoutes(e *echo.Echo) {
	r.admin.RegisterRoutes(e)
	r.market.RegisterRoutes(e)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	sentimentSvc *usecase.SentimentService,
	stream domsvc.SentimentStream,
	collector *usecase.Collector,
	q *queue.RedisQueue,
	registry *usecase.Registry,
	pg *pkgpg.Client,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	rc *pkgcache.RedisCache,
) *server.App {
	q.RegisterJob(collector.Job())
	return server.New(cfg, l, handler, sentimentSvc, stream, collector, q, registry, pg, ch, producer, rc)
}
