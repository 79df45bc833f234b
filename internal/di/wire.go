//go:build wireinject
// +build wireinject

package di

import (
	"TrendTracker/pkg/config"
	"TrendTracker/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideDB,
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideBytesCache,

		// Repositories
		ProvideSQLStore,
		ProvideQuoteHistory,
		ProvideEventPublisher,
		ProvideFinnhubClient,

		// Notification channels
		ProvideEmailSender,
		ProvideSMSSender,

		// Use cases
		ProvideQuoteRecorder,
		ProvideMarketGate,
		ProvideDispatcher,
		ProvideAlertEvaluator,
		ProvidePriceRefresher,
		ProvideScheduler,

		// HTTP
		ProvideCheckLimiter,
		ProvideAlertsHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
