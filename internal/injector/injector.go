//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/telemetry/internal/config"
	"github.com/zeusync/telemetry/internal/core/datasource"
)

func InitializeApp(cfg config.Config) (*App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideStorage,
		ProvideRegistry,
		ProvideRecorder,
		ProvideEngine,
		ProvideFeed,
		datasource.NewScripted,
		wire.Bind(new(datasource.Source), new(*datasource.Scripted)),
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
