//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"tosctl/internal/cli"
	"tosctl/internal/providers"
	"tosctl/internal/services"
	"tosctl/internal/structures"
	"tosctl/internal/tos"
)

func InitApp(flags *structures.CliFlags) (*cli.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,
		providers.NewEnvProvider,

		tos.NewPathResolver,
		tos.NewTokenSetting,
		tos.NewRemoteFetcher,
		tos.NewLocalStore,
		wire.Bind(new(tos.RemoteFetcherInterface), new(*tos.RemoteFetcher)),
		wire.Bind(new(tos.LocalStoreInterface), new(*tos.LocalStore)),

		services.NewToSService,
		services.NewWorkflow,
		cli.NewApp,
	)

	return nil, nil
}
