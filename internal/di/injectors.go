//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"sparkd/internal"
	"sparkd/internal/controllers"
	"sparkd/internal/funnel"
	"sparkd/internal/providers"
	"sparkd/internal/store"
	"sparkd/internal/structures"
	"sparkd/internal/tracker"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewCacheProvider,
		providers.NewMetricsProvider,

		store.NewZstdCompressor,
		store.NewStore,
		store.NewScheduler,

		funnel.NewDeviceLock,
		funnel.NewLedger,
		funnel.NewLikesLimiter,
		funnel.NewMatchLimiter,
		funnel.NewChatEngine,
		funnel.NewCheckout,
		funnel.NewNavigation,

		tracker.NewTracker,
		wire.Bind(new(funnel.EventSink), new(*tracker.Tracker)),

		controllers.NewFunnelController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
