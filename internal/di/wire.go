//go:build wireinject
// +build wireinject

package di

import (
	"AleoRisk/pkg/config"
	"AleoRisk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideQueue,

		// Repositories
		ProvideResultStore,
		ProvideTransactionLog,
		ProvideReportStorage,
		ProvideReportPublisher,
		ProvideSubmitter,

		// Use cases
		ProvideAnalyzer,
		ProvideReportProcessor,
		ProvideHub,
		ProvideRiskAnalysisUseCase,
		ProvideProveJob,
		ProvideReportsUseCase,
		ProvideVerifyUseCase,
		ProvideKafkaConsumer,

		// Transport
		ProvideRateLimiter,
		ProvideAnalysisHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
