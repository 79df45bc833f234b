package di

import (
	"context"
	"fmt"
	"time"

	"TrendTracker/internal/domain/models"
	drepo "TrendTracker/internal/domain/repository"
	"TrendTracker/internal/handler/api"
	internalrepo "TrendTracker/internal/repository"
	"TrendTracker/internal/service/cache"
	"TrendTracker/internal/service/finnhub"
	"TrendTracker/internal/service/notify"
	"TrendTracker/internal/service/ratelimit"
	"TrendTracker/internal/usecase"
	pkgch "TrendTracker/pkg/clickhouse"
	"TrendTracker/pkg/config"
	xhttp "TrendTracker/pkg/http"
	pkgkafka "TrendTracker/pkg/kafka"
	"TrendTracker/pkg/logger"
	"TrendTracker/pkg/metrics"
	"TrendTracker/pkg/server"

	"github.com/jmoiron/sqlx"
)

const serviceName = "trendtracker"

// ProvideKafkaProducer creates the shared producer, or nil when no component
// publishes to Kafka.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.KafkaEnabled() {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.MaxAttempts),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithBatching(pkgkafka.BatchConfig{
			Size:   cfg.Kafka.BatchSize,
			Bytes:  cfg.Kafka.BatchBytes,
			Linger: cfg.Kafka.Linger,
		}),
		pkgkafka.WithTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithKeyedPartitioning(true),
		pkgkafka.WithAutoCreateTopics(cfg.Kafka.AutoCreateTopics),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the root logger and attaches the error collector when
// it is enabled. Children created afterwards share the collector.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Logging.Collector.Enabled && producer != nil {
		l.AddCollector(&logger.CollectionConfig{
			TimeInterval:   cfg.Logging.Collector.Interval,
			CountThreshold: cfg.Logging.Collector.CountThreshold,
			Topic:          cfg.Logging.Collector.Topic,
			Source:         serviceName,
			Publisher:      producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideDB opens the relational store. sqlite3 databases get the schema
// created on first use.
func ProvideDB(cfg *config.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := internalrepo.OpenDB(ctx, internalrepo.DBConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == "sqlite3" {
		if err := internalrepo.InitSQLiteSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func ProvideSQLStore(db *sqlx.DB) *internalrepo.SQLStore {
	return internalrepo.NewSQLStore(db)
}

// ProvideClickHouseClient connects only when ClickHouse is the history backend.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.History.Backend != usecase.HistoryClickHouse {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithServer(cfg.ClickHouse.Host, cfg.ClickHouse.Port, cfg.ClickHouse.UseHTTP),
		pkgch.WithDatabase(cfg.ClickHouse.Database, cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(pkgch.PoolConfig{
			MaxOpen:     cfg.ClickHouse.MaxOpenConns,
			MaxIdle:     cfg.ClickHouse.MaxIdleConns,
			MaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
		}),
		pkgch.WithTimeouts(pkgch.Timeouts{
			Dial:         cfg.ClickHouse.DialTimeout,
			Read:         cfg.ClickHouse.ReadTimeout,
			MaxExecution: cfg.ClickHouse.MaxExecutionTime,
		}),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if err := client.InitSchema(ctx, pkgch.QuoteHistorySchema(historyTable(cfg))); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func historyTable(cfg *config.Config) string {
	return cfg.ClickHouse.Database + "." + cfg.History.Table
}

// ProvideQuoteHistory picks the history sink for history.backend.
func ProvideQuoteHistory(cfg *config.Config, producer *pkgkafka.Producer, ch *pkgch.Client) drepo.QuoteHistory {
	switch cfg.History.Backend {
	case usecase.HistoryKafka:
		if producer != nil {
			return internalrepo.NewKafkaQuoteHistory(producer, cfg.History.Topic)
		}
	case usecase.HistoryClickHouse:
		if ch != nil {
			return internalrepo.NewClickHouseQuoteHistory(ch.DB(), historyTable(cfg))
		}
	}
	return nil
}

func ProvideQuoteRecorder(cfg *config.Config, history drepo.QuoteHistory, m drepo.Metrics, l *logger.Logger) *usecase.QuoteRecorder {
	return usecase.NewQuoteRecorder(history, m, cfg.History.Backend, l)
}

// ProvideEventPublisher returns nil unless alerts.events_topic is set.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) drepo.EventPublisher {
	if cfg.Alerts.EventsTopic == "" || producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Alerts.EventsTopic)
}

func ProvideFinnhubClient(cfg *config.Config) *finnhub.Client {
	return finnhub.New(cfg.Finnhub.APIKey, cfg.Finnhub.Timeout, finnhub.WithBaseURL(cfg.Finnhub.BaseURL))
}

// ProvideRedisCache returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) *cache.RedisCache {
	if !cfg.Cache.Redis.Enabled {
		return nil
	}
	return cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
}

// ProvideBytesCache prefers Redis and falls back to an in-process cache.
func ProvideBytesCache(rc *cache.RedisCache) cache.BytesCache {
	if rc != nil {
		return rc
	}
	return cache.NewTTLCache()
}

func ProvideMarketGate(cfg *config.Config, client *finnhub.Client, c cache.BytesCache, m drepo.Metrics, l *logger.Logger) *usecase.MarketGate {
	return usecase.NewMarketGate(client, cfg.Finnhub.Exchange, c, cfg.Market.StatusCacheTTL, m, l)
}

// ProvideEmailSender returns nil when SMTP is not configured; the
// dispatcher then reports email as disabled.
func ProvideEmailSender(cfg *config.Config, l *logger.Logger) (drepo.EmailSender, error) {
	if !cfg.EmailConfigured() {
		l.Warn("email channel disabled", logger.Error(models.ErrChannelNotConfigured))
		return nil, nil
	}
	s, err := notify.NewEmailSender(notify.EmailConfig{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		User:     cfg.Email.User,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	})
	if err != nil {
		return nil, fmt.Errorf("email sender: %w", err)
	}
	return s, nil
}

// ProvideSMSSender returns nil when Twilio is not configured.
func ProvideSMSSender(cfg *config.Config, l *logger.Logger) (drepo.SMSSender, error) {
	if !cfg.SMSConfigured() {
		l.Warn("sms channel disabled", logger.Error(models.ErrChannelNotConfigured))
		return nil, nil
	}
	s, err := notify.NewSMSSender(notify.SMSConfig{
		AccountSID: cfg.SMS.AccountSID,
		AuthToken:  cfg.SMS.AuthToken,
		From:       cfg.SMS.From,
		BaseURL:    cfg.SMS.BaseURL,
		Timeout:    cfg.SMS.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("sms sender: %w", err)
	}
	return s, nil
}

func ProvideDispatcher(email drepo.EmailSender, sms drepo.SMSSender, m drepo.Metrics, l *logger.Logger) *usecase.Dispatcher {
	return usecase.NewDispatcher(email, sms, m, l)
}

// ProvideAlertEvaluator wires the evaluator. With alerts.quote_cache_ttl set,
// quotes are served through the byte cache.
func ProvideAlertEvaluator(
	cfg *config.Config,
	store *internalrepo.SQLStore,
	client *finnhub.Client,
	c cache.BytesCache,
	dispatcher *usecase.Dispatcher,
	events drepo.EventPublisher,
	m drepo.Metrics,
	l *logger.Logger,
) *usecase.AlertEvaluator {
	var quotes drepo.QuoteSource = client
	if cfg.Alerts.QuoteCacheTTL > 0 {
		quotes = cache.NewQuoteSource(client, c, cfg.Alerts.QuoteCacheTTL, l.Named("quote_cache"))
	}
	return usecase.NewAlertEvaluator(store, quotes, dispatcher, events, m, l)
}

func ProvidePriceRefresher(
	cfg *config.Config,
	client *finnhub.Client,
	store *internalrepo.SQLStore,
	recorder *usecase.QuoteRecorder,
	m drepo.Metrics,
	l *logger.Logger,
) *usecase.PriceRefresher {
	return usecase.NewPriceRefresher(client, store, recorder, m, l, usecase.RefreshConfig{
		BatchSize:           cfg.Refresh.BatchSize,
		CallDelay:           cfg.Refresh.CallDelay,
		BatchDelay:          cfg.Refresh.BatchDelay,
		RateLimitCooldown:   cfg.Refresh.RateLimitCooldown,
		MaxRateLimitRetries: cfg.Refresh.MaxRateLimitRetries,
	})
}

func ProvideScheduler(
	cfg *config.Config,
	gate *usecase.MarketGate,
	store *internalrepo.SQLStore,
	refresher *usecase.PriceRefresher,
	evaluator *usecase.AlertEvaluator,
	m drepo.Metrics,
	l *logger.Logger,
) *usecase.RefreshScheduler {
	return usecase.NewRefreshScheduler(usecase.SchedulerConfig{
		RefreshEnabled:  cfg.Refresh.Enabled,
		RefreshInterval: cfg.Refresh.Interval,
		RefreshCron:     cfg.Refresh.Cron,
		AlertsEnabled:   cfg.Alerts.Enabled,
		AlertInterval:   cfg.Alerts.Interval,
	}, gate, store, refresher, evaluator, m, l)
}

func ProvideCheckLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.CheckRateCapacity, cfg.Server.CheckRateRefill)
}

// ProvideAlertsHandler registers a health check for every live dependency.
func ProvideAlertsHandler(
	sched *usecase.RefreshScheduler,
	limiter *ratelimit.Limiter,
	db *sqlx.DB,
	rc *cache.RedisCache,
	ch *pkgch.Client,
	l *logger.Logger,
) *api.AlertsHandler {
	checks := map[string]api.HealthCheck{"database": db.PingContext}
	if rc != nil {
		checks["redis"] = rc.Ping
	}
	if ch != nil {
		checks["clickhouse"] = ch.Health
	}
	return api.NewAlertsHandler(sched, limiter, checks, l)
}

func ProvideHTTPServer(cfg *config.Config, h *api.AlertsHandler, l *logger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(l, []xhttp.Handler{h},
		xhttp.WithAddress(cfg.Server.Host, cfg.Server.Port),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp assembles the application and the shutdown order: the log
// collector flushes before the producer it publishes through is closed.
func ProvideApp(
	l *logger.Logger,
	sched *usecase.RefreshScheduler,
	srv *xhttp.Server,
	limiter *ratelimit.Limiter,
	db *sqlx.DB,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	rc *cache.RedisCache,
	recorder *usecase.QuoteRecorder,
) *server.App {
	closers := []server.Closer{{Name: "database", Close: db.Close}}
	if producer != nil {
		closers = append(closers, server.Closer{Name: "kafka", Close: producer.Close})
	}
	if ch != nil {
		closers = append(closers, server.Closer{Name: "clickhouse", Close: ch.Close})
	}
	if rc != nil {
		closers = append(closers, server.Closer{Name: "redis", Close: rc.Close})
	}
	closers = append(closers,
		server.Closer{Name: "history", Close: func() error { recorder.Close(); return nil }},
		server.Closer{Name: "log_collector", Close: func() error { l.RemoveCollector(); return nil }},
	)
	return server.New(l, sched, srv, limiter, closers...)
}
