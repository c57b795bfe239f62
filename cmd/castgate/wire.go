//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"castgate/internal/biz"
	"castgate/internal/conf"
	"castgate/internal/data"
	"castgate/internal/server"
	"castgate/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Data, *conf.Upstream, *conf.Cache, *conf.Breaker, *conf.Warmer, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(
		data.ProviderSet,
		biz.ProviderSet,
		service.ProviderSet,
		server.ProviderSet,
		newTaskRunner,
		newWarmerCron,
		newApp,
	))
}
