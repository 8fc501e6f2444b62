package fulfillment

import (
	"go.uber.org/fx"

	"github.com/realtyleadsai/leadflow/internal/config"
	"github.com/realtyleadsai/leadflow/internal/fulfillment/artifact"
	"github.com/realtyleadsai/leadflow/internal/notify"
)

var Module = fx.Module("fulfillment",
	fx.Provide(
		func(cfg config.Config) *artifact.SheetsClient {
			return artifact.NewSheetsClient(cfg.Sheets)
		},
		func(d *notify.Dispatcher) DeliveryNotifier { return d },
		New,
	),
)
