package payment

import (
	"github.com/realtyleadsai/leadflow/internal/leadqueue"
	"github.com/realtyleadsai/leadflow/internal/notify"
	"github.com/realtyleadsai/leadflow/internal/payment/adapters"
	"github.com/realtyleadsai/leadflow/internal/payment/adapters/stripe"
	"github.com/realtyleadsai/leadflow/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(provideRegistry),
	fx.Provide(func(d *notify.Dispatcher) webhook.ConfirmationNotifier { return d }),
	fx.Provide(func(q *leadqueue.Queue) webhook.AcquisitionTrigger { return q }),
	fx.Provide(webhook.NewService),
)

func provideRegistry() *adapters.Registry {
	return adapters.NewRegistry(stripe.NewFactory())
}
