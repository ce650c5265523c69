//go:build wireinject
// +build wireinject

package di

import (
	"archivist/internal"
	"archivist/internal/controllers"
	"archivist/internal/persistence"
	"archivist/internal/providers"
	"archivist/internal/services"
	"archivist/internal/structures"

	wire "github.com/google/wire"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		services.NewArchiveService,
		archiveState,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		persistence.NewCompressor,
		persistence.NewFileManager,
		persistence.NewScheduler,
		controllers.NewArchiveController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
