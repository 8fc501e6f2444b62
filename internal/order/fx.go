package order

import (
	"github.com/realtyleadsai/leadflow/internal/order/repository"
	"github.com/realtyleadsai/leadflow/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
