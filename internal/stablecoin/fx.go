package stablecoin

import (
	"github.com/stableview/stableview/internal/stablecoin/repository"
	"github.com/stableview/stableview/internal/stablecoin/service"
	"go.uber.org/fx"
)

var Module = fx.Module("stablecoin.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
