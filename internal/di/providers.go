package di

import (
	"context"
	"fmt"
	"time"

	"Aegis/internal/domain/repository"
	"Aegis/internal/handler/api"
	"Aegis/internal/handler/ws"
	internalrepo "Aegis/internal/repository"
	"Aegis/internal/service/binance"
	"Aegis/internal/service/cache"
	"Aegis/internal/service/ratelimit"
	"Aegis/internal/services/judge"
	"Aegis/internal/services/montecarlo"
	"Aegis/internal/usecase"
	pkgch "Aegis/pkg/clickhouse"
	"Aegis/pkg/config"
	xhttp "Aegis/pkg/http"
	pkgkafka "Aegis/pkg/kafka"
	applogger "Aegis/pkg/logger"
	"Aegis/pkg/metrics"
	"Aegis/pkg/server"
)

// Optional infrastructure is represented by nil interfaces when disabled.

// ProvideLogger builds the root logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(nil)
}

// ProvideRemoteCache connects the shared Redis tier when enabled.
func ProvideRemoteCache(cfg *config.Config, l *applogger.Logger) (cache.BytesCache, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis cache connected", applogger.String("addr", cfg.Cache.Redis.Addr))
	return rc, func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}, nil
}

// ProvideTTLCache creates the snapshot cache and reports lookups to metrics.
func ProvideTTLCache(remote cache.BytesCache, m repository.Metrics, l *applogger.Logger) *cache.TTLCache {
	opts := []cache.Option{
		cache.WithLogger(l.Component("cache")),
		cache.WithObserver(func(kind cache.Kind, hit bool) {
			m.RecordCacheLookup(string(kind), hit)
		}),
	}
	if remote != nil {
		opts = append(opts, cache.WithRemote(remote))
	}
	return cache.NewTTLCache(opts...)
}

// ProvideCandleSource creates the Binance REST provider.
func ProvideCandleSource(cfg *config.Config, l *applogger.Logger) repository.CandleSource {
	return binance.New(
		binance.WithBaseURL(cfg.Market.BaseURL),
		binance.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Market.Timeout))),
		binance.WithRateLimit(ratelimit.New(), cfg.Market.RateBurst, cfg.Market.RatePerSec),
		binance.WithLogger(l),
	)
}

// ProvideSnapshotService wires the cache namespaces for the configured instrument.
func ProvideSnapshotService(cfg *config.Config, src repository.CandleSource, c *cache.TTLCache, l *applogger.Logger) *usecase.SnapshotService {
	return usecase.NewSnapshotService(src, c, cfg.Market.Symbol, repository.NormalizeTimeframe(cfg.Market.Timeframe),
		usecase.WithCandleLimit(cfg.Market.CandleLimit),
		usecase.WithTTLs(usecase.TTLs{
			Snapshot:   cfg.Cache.SnapshotTTL,
			Indicators: cfg.Cache.IndicatorTTL,
			Volatility: cfg.Cache.VolatilityTTL,
		}),
		usecase.WithLocation(time.FixedZone(fmt.Sprintf("UTC%+d", cfg.Market.LocalUTCOffset), cfg.Market.LocalUTCOffset*3600)),
		usecase.WithSnapshotLogger(l.Component("snapshot")),
	)
}

// ProvideEngine creates the Monte Carlo engine.
func ProvideEngine(cfg *config.Config) *montecarlo.Engine {
	opts := []montecarlo.Option{
		montecarlo.WithPaths(cfg.Engine.Paths),
		montecarlo.WithSteps(cfg.Engine.Steps),
	}
	if cfg.Engine.Seed != 0 {
		opts = append(opts, montecarlo.WithSeed(cfg.Engine.Seed))
	}
	return montecarlo.New(opts...)
}

// ProvideCompleter selects the judgment transport.
func ProvideCompleter(cfg *config.Config) (judge.Completer, error) {
	switch cfg.Judge.Provider {
	case "http":
		client := xhttp.NewClient(xhttp.WithTimeout(cfg.Judge.Timeout))
		return judge.NewHTTPCompleter(cfg.Judge.BaseURL, cfg.Judge.APIKey, cfg.Judge.Model, client), nil
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c, err := judge.NewChatCompleter(ctx, judge.ChatConfig{
			BaseURL:   cfg.Judge.BaseURL,
			APIKey:    cfg.Judge.APIKey,
			Model:     cfg.Judge.Model,
			MaxTokens: cfg.Judge.MaxTokens,
			Timeout:   cfg.Judge.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("judge completer: %w", err)
		}
		return c, nil
	}
}

// ProvideJudge creates the judgment client with its retry budget.
func ProvideJudge(cfg *config.Config, c judge.Completer, m repository.Metrics, l *applogger.Logger) *judge.Client {
	return judge.NewClient(c,
		judge.WithAttempts(cfg.Judge.Attempts),
		judge.WithBaseDelay(cfg.Judge.BaseDelay),
		judge.WithTimeout(cfg.Judge.Timeout),
		judge.WithMetrics(m),
		judge.WithLogger(l),
	)
}

// ProvideLedger creates the CSV paper trade ledger.
func ProvideLedger(cfg *config.Config, l *applogger.Logger) *internalrepo.CSVLedger {
	return internalrepo.NewCSVLedger(cfg.Ledger.Path, cfg.Ledger.Balance, cfg.Ledger.Fraction,
		internalrepo.WithLedgerLogger(l))
}

// ProvideTradeStore connects the ClickHouse mirror when enabled.
func ProvideTradeStore(cfg *config.Config, l *applogger.Logger) (repository.TradeStore, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.MigrateTrades(ctx, cfg.ClickHouse.Table); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse mirror ready", applogger.String("database", client.Database()))

	store := internalrepo.NewClickHouseTradeStore(client.DB(), client.Database()+"."+cfg.ClickHouse.Table)
	return store, func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}, nil
}

// ProvideDecisionPublisher creates the Kafka decision publisher when enabled.
func ProvideDecisionPublisher(cfg *config.Config, m repository.Metrics, l *applogger.Logger) (repository.DecisionPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchTimeout(10*time.Millisecond),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithObserver(func(topic string, ok bool, bytes int, elapsed time.Duration) {
			m.RecordPublish(topic, ok, bytes, elapsed.Seconds())
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	l.Info("kafka publisher ready",
		applogger.Strings("brokers", cfg.Kafka.Brokers),
		applogger.String("topic", cfg.Kafka.Topic))

	pub := internalrepo.NewKafkaDecisionPublisher(producer, cfg.Kafka.Topic)
	return pub, func() {
		if err := pub.Close(); err != nil {
			l.Warn("kafka close error", applogger.Error(err))
		}
	}, nil
}

// ProvideHub creates the websocket decision stream.
func ProvideHub(l *applogger.Logger) (*ws.Hub, func()) {
	hub := ws.NewHub(ws.WithLogger(l.Component("ws")))
	return hub, func() { _ = hub.Close() }
}

// ProvidePipelineConfig maps the YAML pipeline section onto the orchestrator.
func ProvidePipelineConfig(cfg *config.Config) usecase.PipelineConfig {
	return usecase.PipelineConfig{
		Symbol:        cfg.Market.Symbol,
		CycleDelay:    cfg.Pipeline.CycleDelay,
		RecoveryDelay: cfg.Pipeline.RecoveryDelay,
		MinWinRate:    cfg.Pipeline.MinWinRate,
		MinScore:      cfg.Pipeline.MinScore,
		TPMultiple:    cfg.Pipeline.TPMultiple,
		SLMultiple:    cfg.Pipeline.SLMultiple,
		Paths:         cfg.Engine.Paths,
		Steps:         cfg.Engine.Steps,
	}
}

// ProvideOrchestrator assembles the decision loop.
func ProvideOrchestrator(
	pc usecase.PipelineConfig,
	snaps *usecase.SnapshotService,
	eng *montecarlo.Engine,
	j *judge.Client,
	ledger *internalrepo.CSVLedger,
	store repository.TradeStore,
	pub repository.DecisionPublisher,
	hub *ws.Hub,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Orchestrator {
	opts := []usecase.OrchestratorOption{
		usecase.WithDecisionSink(hub),
		usecase.WithOrchestratorMetrics(m),
		usecase.WithOrchestratorLogger(l.Component("orchestrator")),
	}
	if store != nil {
		opts = append(opts, usecase.WithTradeStore(store))
	}
	if pub != nil {
		opts = append(opts, usecase.WithPublisher(pub))
	}
	return usecase.NewOrchestrator(pc, snaps, eng, j, ledger, opts...)
}

// ProvideDashboard creates the read-only views for the API.
func ProvideDashboard(pc usecase.PipelineConfig, snaps *usecase.SnapshotService, eng *montecarlo.Engine, ledger *internalrepo.CSVLedger) *usecase.Dashboard {
	return usecase.NewDashboard(snaps, eng, ledger, pc)
}

// ProvideHTTPServer builds the Echo server, or nil when the API is disabled.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, dash *usecase.Dashboard, hub *ws.Hub, store repository.TradeStore) *xhttp.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	checks := map[string]api.HealthCheck{}
	if store != nil {
		checks["clickhouse"] = store.Health
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	handlers := []xhttp.Handler{
		api.NewHealthHandler(checks),
		api.NewMarketEchoHandler(l.Component("api"), dash, ratelimit.New()),
		hub,
	}
	return xhttp.NewServer(l, handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, l *applogger.Logger, orch *usecase.Orchestrator, srv *xhttp.Server) *server.App {
	return server.New(l, orch, srv, cfg.Server.ShutdownTimeout)
}
