package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/realtyleadsai/leadflow/internal/config"
	"github.com/realtyleadsai/leadflow/internal/observability/metrics"
	orderdomain "github.com/realtyleadsai/leadflow/internal/order/domain"
	"github.com/realtyleadsai/leadflow/internal/payment/adapters"
	paymentdomain "github.com/realtyleadsai/leadflow/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ConfirmationNotifier sends the order-confirmation email. Failures are
// logged only; confirmation delivery never fails the webhook.
type ConfirmationNotifier interface {
	SendOrderConfirmation(ctx context.Context, order *orderdomain.Order, returningAccount bool) error
}

// AcquisitionTrigger hands an order to the lead-acquisition pipeline.
type AcquisitionTrigger interface {
	EnqueueLeadAcquisition(ctx context.Context, orderID snowflake.ID) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Cfg      config.Config
	OrderSvc orderdomain.Service
	Adapters *adapters.Registry
	Notifier ConfirmationNotifier
	Trigger  AcquisitionTrigger
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	cfg      config.Config
	orderSvc orderdomain.Service
	adapters *adapters.Registry
	notifier ConfirmationNotifier
	trigger  AcquisitionTrigger
	metrics  *metrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		log:      p.Log.Named("payment.webhook"),
		cfg:      p.Cfg,
		orderSvc: p.OrderSvc,
		adapters: p.Adapters,
		notifier: p.Notifier,
		trigger:  p.Trigger,
		metrics:  p.Metrics,
	}
}

// IngestWebhook verifies, parses and applies one provider event. Signature
// failures reject the request before any state is touched; order-store
// failures propagate so the provider redelivers.
func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.ErrInvalidProvider
	}
	if s.adapters == nil || !s.adapters.ProviderExists(provider) {
		return paymentdomain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}

	adapter, err := s.adapters.NewAdapter(provider, paymentdomain.AdapterConfig{
		Provider:      provider,
		WebhookSecret: s.webhookSecret(provider),
	})
	if err != nil {
		return err
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.record(provider, "unknown", "invalid_signature")
		return err
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			s.record(provider, "unknown", "ignored")
			return nil
		}
		s.record(provider, "unknown", "invalid_payload")
		return err
	}

	switch event.Type {
	case paymentdomain.EventTypeCheckout:
		return s.handleCheckout(ctx, event)
	case paymentdomain.EventTypeRenewal:
		return s.handleRenewal(ctx, event)
	default:
		s.record(event.Provider, event.Type, "ignored")
		return nil
	}
}

func (s *Service) handleCheckout(ctx context.Context, event *paymentdomain.CheckoutEvent) error {
	result, err := s.orderSvc.CreateFromCheckout(ctx, commandFromEvent(event))
	if err != nil {
		s.record(event.Provider, event.Type, "error")
		return err
	}
	if !result.Created {
		// Another event type already reported this payment.
		s.record(event.Provider, event.Type, "duplicate")
		return nil
	}

	s.record(event.Provider, event.Type, "created")
	if s.metrics != nil {
		s.metrics.RecordOrderCreated(string(result.Order.Tier), string(result.Order.BillingMode))
	}
	s.afterCreate(ctx, result)
	return nil
}

func (s *Service) handleRenewal(ctx context.Context, event *paymentdomain.CheckoutEvent) error {
	result, err := s.orderSvc.RenewFromSubscription(ctx, event.SubscriptionRef, event.PaymentRef)
	if err != nil {
		if errors.Is(err, orderdomain.ErrNoPriorOrder) {
			s.log.Warn("renewal for unknown subscription",
				zap.String("subscription_ref", event.SubscriptionRef),
			)
			s.record(event.Provider, event.Type, "ignored")
			return nil
		}
		s.record(event.Provider, event.Type, "error")
		return err
	}
	if !result.Created {
		s.record(event.Provider, event.Type, "duplicate")
		return nil
	}

	s.record(event.Provider, event.Type, "created")
	s.afterCreate(ctx, result)
	return nil
}

// afterCreate runs the non-fatal side effects of a freshly created order:
// one confirmation email and one lead-acquisition enqueue. The Created
// guard upstream is what keeps the confirmation from being sent once per
// overlapping event type.
func (s *Service) afterCreate(ctx context.Context, result orderdomain.CreateResult) {
	if err := s.notifier.SendOrderConfirmation(ctx, result.Order, result.ReturningAccount); err != nil {
		s.log.Error("confirmation email failed",
			zap.Int64("order_id", int64(result.Order.ID)),
			zap.Error(err),
		)
	}

	if err := s.trigger.EnqueueLeadAcquisition(ctx, result.Order.ID); err != nil {
		// The order stays in processing; the stuck-order sweep will
		// eventually flag it if acquisition never starts.
		s.log.Error("lead acquisition enqueue failed",
			zap.Int64("order_id", int64(result.Order.ID)),
			zap.Error(err),
		)
	}
}

func (s *Service) webhookSecret(provider string) string {
	switch provider {
	case "stripe":
		return s.cfg.Stripe.WebhookSecret
	default:
		return ""
	}
}

func (s *Service) record(provider, eventType, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordWebhookEvent(provider, eventType, outcome)
	}
}

func commandFromEvent(event *paymentdomain.CheckoutEvent) orderdomain.CreateOrderCommand {
	return orderdomain.CreateOrderCommand{
		PaymentRef:      event.PaymentRef,
		SubscriptionRef: event.SubscriptionRef,
		Paid:            event.Paid,
		Tier:            orderdomain.Tier(event.Order.Tier),
		BillingMode:     orderdomain.BillingMode(event.Order.BillingMode),
		City:            event.Order.City,
		RadiusMiles:     event.Order.RadiusMiles,
		ExtraCities:     event.Order.ExtraCities,
		AmountCents:     event.AmountCents,
		Currency:        event.Currency,
		ContactName:     event.Order.ContactName,
		ContactEmail:    event.Order.ContactEmail,
	}
}
