//go:build wireinject
// +build wireinject

package di

import (
	"Aegis/pkg/config"
	"Aegis/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRemoteCache,
		ProvideTradeStore,
		ProvideDecisionPublisher,
		ProvideHub,

		// Market data and cache
		ProvideTTLCache,
		ProvideCandleSource,
		ProvideSnapshotService,

		// Risk services
		ProvideEngine,
		ProvideCompleter,
		ProvideJudge,
		ProvideLedger,

		// Use cases
		ProvidePipelineConfig,
		ProvideOrchestrator,
		ProvideDashboard,

		// Application server
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
