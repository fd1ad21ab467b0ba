//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"positionsizer/internal/config"

	"github.com/google/wire"
)

var appSet = wire.NewSet(
	provideAppBuilder,
	wire.Bind(new(appBuilderDeps), new(*AppBuilder)),
	provideAppFromBuilder,
)

func buildAppWithWire(ctx context.Context, cfg *config.Config) (*App, error) {
	wire.Build(appSet)
	return nil, nil
}
