package di

import (
	"context"
	"fmt"
	"time"

	"AleoRisk/internal/domain/repository"
	domsvc "AleoRisk/internal/domain/service"
	"AleoRisk/internal/handler/api"
	internalrepo "AleoRisk/internal/repository"
	"AleoRisk/internal/service/progress"
	"AleoRisk/internal/service/ratelimit"
	"AleoRisk/internal/services/analyzer"
	"AleoRisk/internal/services/submitter"
	"AleoRisk/internal/usecase"
	"AleoRisk/pkg/cache"
	pkgch "AleoRisk/pkg/clickhouse"
	"AleoRisk/pkg/config"
	xhttp "AleoRisk/pkg/http"
	pkgkafka "AleoRisk/pkg/kafka"
	applogger "AleoRisk/pkg/logger"
	"AleoRisk/pkg/metrics"
	"AleoRisk/pkg/queue"
	"AleoRisk/pkg/server"
)

const reportsTable = "risk_reports"

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideRedisCache connects to Redis.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	rc, err := cache.NewRedisCache(cache.WithRedisConfig(cfg.Redis.RedisConfig))
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideResultStore keeps results in Redis behind a small in-process layer.
func ProvideResultStore(rc *cache.RedisCache, cfg *config.Config) repository.ResultStore {
	layered := cache.NewLayeredCache(rc, cache.WithLayeredMemory(cfg.Redis.LocalCacheSize, time.Minute))
	return internalrepo.NewCacheResultStore(layered, cfg.Redis.ResultTTL)
}

// ProvideTransactionLog creates the per-owner transaction history.
func ProvideTransactionLog(rc *cache.RedisCache, cfg *config.Config) repository.TransactionLog {
	return internalrepo.NewRedisTransactionLog(rc.Client(), cfg.Redis.Prefix, cfg.Redis.HistoryLimit)
}

// ProvideQueue creates the Redis job queue that runs proving.
func ProvideQueue(l *applogger.Logger, rc *cache.RedisCache, cfg *config.Config) *queue.RedisQueue {
	return queue.NewRedisQueue(l, cfg.Queue, rc.Client())
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithProducerConfig(cfg.Kafka.Producer),
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the database exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(pkgch.WithConfig(cfg.ClickHouse))
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideReportStorage creates the ClickHouse report store and its table.
func ProvideReportStorage(client *pkgch.Client, l *applogger.Logger, cfg *config.Config) (repository.Storage, error) {
	store := internalrepo.NewClickHouseReportStore(client, cfg.ClickHouse.Database+"."+reportsTable)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("report storage: %w", err)
	}
	return store, nil
}

// ProvideReportPublisher publishes finished reports to Kafka.
func ProvideReportPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.ReportsTopic)
}

// ProvideSubmitter picks where built transactions are handed off.
func ProvideSubmitter(producer *pkgkafka.Producer, cfg *config.Config) (domsvc.Submitter, error) {
	switch cfg.Submitter.Type {
	case "http":
		bridge := submitter.NewBridgeClient(cfg.Submitter.BridgeURL, cfg.Submitter.Timeout, cfg.Submitter.Retries)
		return submitter.NewHTTPSubmitter(bridge), nil
	case "kafka":
		return submitter.NewKafkaSubmitter(producer, cfg.Kafka.TransactionsTopic), nil
	default:
		return nil, fmt.Errorf("unknown submitter type %q", cfg.Submitter.Type)
	}
}

// ProvideReportProcessor routes finished reports to the configured backend.
func ProvideReportProcessor(
	pub repository.Publisher,
	store repository.Storage,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.ReportProcessor {
	return usecase.NewReportProcessor(pub, store, metrics, cfg.Backend.Type)
}

// ProvideHub creates the websocket progress hub.
func ProvideHub(l *applogger.Logger) *progress.Hub {
	return progress.NewHub(l)
}

// ProvideAnalyzer configures thresholds and bucketing.
func ProvideAnalyzer(cfg *config.Config) *analyzer.Analyzer {
	return analyzer.New(
		analyzer.WithThresholds(cfg.Analysis.LowThreshold, cfg.Analysis.HighThreshold),
		analyzer.WithWindowing(cfg.Analysis.MaxWindow, cfg.Analysis.Periods),
	)
}

// ProvideRiskAnalysisUseCase creates the upload and proving entry point.
func ProvideRiskAnalysisUseCase(
	a *analyzer.Analyzer,
	results repository.ResultStore,
	q *queue.RedisQueue,
	metrics repository.Metrics,
	l *applogger.Logger,
) *usecase.RiskAnalysisUseCase {
	uc := usecase.NewRiskAnalysisUseCase(a, results, q, metrics)
	uc.SetLogger(l)
	return uc
}

// ProvideProveJob creates the queue job and registers it.
func ProvideProveJob(
	q *queue.RedisQueue,
	results repository.ResultStore,
	txlog repository.TransactionLog,
	sub domsvc.Submitter,
	processor *usecase.ReportProcessor,
	hub *progress.Hub,
	metrics repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.ProveJob {
	job := usecase.NewProveJob(results, txlog, sub, processor, hub, metrics, analyzer.Thresholds{
		Low:  cfg.Analysis.LowThreshold,
		High: cfg.Analysis.HighThreshold,
	})
	job.SetLogger(l)
	q.RegisterJob(job)
	return job
}

// ProvideReportsUseCase creates the history use case.
func ProvideReportsUseCase(store repository.Storage, txlog repository.TransactionLog) *usecase.ReportsUseCase {
	return usecase.NewReportsUseCase(store, txlog)
}

// ProvideVerifyUseCase creates the proof verifier.
func ProvideVerifyUseCase(
	results repository.ResultStore,
	txlog repository.TransactionLog,
	sub domsvc.Submitter,
	metrics repository.Metrics,
	l *applogger.Logger,
) *usecase.VerifyUseCase {
	uc := usecase.NewVerifyUseCase(results, txlog, sub, metrics)
	uc.SetLogger(l)
	return uc
}

// ProvideKafkaConsumer creates the reports consumer. It returns nil when
// reports go straight to ClickHouse or consuming is disabled.
func ProvideKafkaConsumer(
	store repository.Storage,
	metrics repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.ConsumeReports || cfg.Backend.Type != usecase.BackendKafka {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerConfig(cfg.Kafka.Consumer),
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetHook(pkgkafka.LoggingHook(l, time.Second))
	consumer.RegisterHandler(usecase.NewKafkaReportsHandler(cfg.Kafka.ReportsTopic, store, metrics))
	return consumer, nil
}

// ProvideRateLimiter limits analysis submissions per remote address.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.Burst, cfg.Server.RateLimit.PerSecond)
}

// ProvideAnalysisHandler creates the HTTP handler.
func ProvideAnalysisHandler(
	analyses *usecase.RiskAnalysisUseCase,
	reports *usecase.ReportsUseCase,
	verifier *usecase.VerifyUseCase,
	hub *progress.Hub,
	rl *ratelimit.Limiter,
	l *applogger.Logger,
	cfg *config.Config,
) *api.AnalysisEchoHandler {
	h := api.NewAnalysisEchoHandler(analyses, reports, verifier, hub,
		api.WithRateLimit(rl),
		api.WithMaxUpload(cfg.Server.MaxUploadBytes),
		api.WithNetwork(cfg.Aleo.Network),
	)
	h.SetLogger(l)
	return h
}

// ProvideHTTPServer creates the Echo server with every handler registered.
func ProvideHTTPServer(h *api.AnalysisEchoHandler, l *applogger.Logger, cfg *config.Config) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer([]xhttp.Handler{h},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideApp assembles the lifecycle. Resources are closed in reverse order
// of registration, so the hub goes first and Redis last.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	q *queue.RedisQueue,
	_ *usecase.ProveJob,
	consumer *pkgkafka.Consumer,
	processor *usecase.ReportProcessor,
	hub *progress.Hub,
	rl *ratelimit.Limiter,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	rc *cache.RedisCache,
) *server.App {
	app := server.New(cfg, l, srv)
	app.AddWorker("redis_queue", q)
	if consumer != nil {
		app.AddWorker("kafka_consumer", consumer)
	}
	app.AddWorker("ratelimit_sweeper", ratelimit.NewSweeper(rl, time.Minute, 10*time.Minute))

	app.AddCloser("redis", rc)
	app.AddCloser("clickhouse", chClient)
	app.AddCloser("kafka_producer", producer)
	app.AddCloser("report_processor", server.CloserFunc(func() error {
		processor.Close()
		return nil
	}))
	app.AddCloser("progress_hub", server.CloserFunc(func() error {
		hub.Close()
		return nil
	}))
	return app
}
