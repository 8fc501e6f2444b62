package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/realtyleadsai/leadflow/internal/config"
	orderdomain "github.com/realtyleadsai/leadflow/internal/order/domain"
	"github.com/realtyleadsai/leadflow/internal/payment/adapters"
	"github.com/realtyleadsai/leadflow/internal/payment/adapters/stripe"
	paymentdomain "github.com/realtyleadsai/leadflow/internal/payment/domain"
)

const testWebhookSecret = "whsec_unit_test"

type mockOrderService struct {
	mock.Mock
}

func (m *mockOrderService) CreateFromCheckout(ctx context.Context, cmd orderdomain.CreateOrderCommand) (orderdomain.CreateResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(orderdomain.CreateResult), args.Error(1)
}

func (m *mockOrderService) RenewFromSubscription(ctx context.Context, subscriptionRef, paymentRef string) (orderdomain.CreateResult, error) {
	args := m.Called(ctx, subscriptionRef, paymentRef)
	return args.Get(0).(orderdomain.CreateResult), args.Error(1)
}

func (m *mockOrderService) GetByID(ctx context.Context, id snowflake.ID) (*orderdomain.Order, error) {
	return nil, nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendOrderConfirmation(ctx context.Context, order *orderdomain.Order, returningAccount bool) error {
	args := m.Called(ctx, order, returningAccount)
	return args.Error(0)
}

type mockTrigger struct {
	mock.Mock
}

func (m *mockTrigger) EnqueueLeadAcquisition(ctx context.Context, orderID snowflake.ID) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func newTestWebhookService(orderSvc *mockOrderService, notifier *mockNotifier, trigger *mockTrigger) paymentdomain.Service {
	cfg := config.Config{}
	cfg.Stripe.WebhookSecret = testWebhookSecret

	return NewService(Params{
		Log:      zap.NewNop(),
		Cfg:      cfg,
		OrderSvc: orderSvc,
		Adapters: adapters.NewRegistry(stripe.NewFactory()),
		Notifier: notifier,
		Trigger:  trigger,
	})
}

func signStripe(payload []byte) http.Header {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte("1735689600." + string(payload)))

	headers := http.Header{}
	headers.Set("Stripe-Signature", fmt.Sprintf("t=1735689600,v1=%s", hex.EncodeToString(mac.Sum(nil))))
	return headers
}

func checkoutPayload(paymentIntent string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"payment_intent": %q,
			"payment_status": "paid",
			"amount_total": 19900,
			"currency": "usd",
			"metadata": {"tier": "growth", "billing_mode": "one_time", "city": "Austin"},
			"customer_details": {"name": "Jordan Reyes", "email": "jordan@example.com"}
		}}
	}`, paymentIntent))
}

func TestIngestWebhook_CreatedOrderTriggersSideEffects(t *testing.T) {
	orderSvc := &mockOrderService{}
	notifier := &mockNotifier{}
	trigger := &mockTrigger{}
	svc := newTestWebhookService(orderSvc, notifier, trigger)

	order := &orderdomain.Order{ID: snowflake.ID(101), PaymentRef: "pi_1"}
	orderSvc.On("CreateFromCheckout", mock.Anything, mock.MatchedBy(func(cmd orderdomain.CreateOrderCommand) bool {
		return cmd.PaymentRef == "pi_1" && cmd.Paid && cmd.City == "Austin"
	})).Return(orderdomain.CreateResult{Order: order, Created: true}, nil)
	notifier.On("SendOrderConfirmation", mock.Anything, order, false).Return(nil)
	trigger.On("EnqueueLeadAcquisition", mock.Anything, order.ID).Return(nil)

	payload := checkoutPayload("pi_1")
	err := svc.IngestWebhook(context.Background(), "stripe", payload, signStripe(payload))
	require.NoError(t, err)

	orderSvc.AssertExpectations(t)
	notifier.AssertExpectations(t)
	trigger.AssertExpectations(t)
}

func TestIngestWebhook_DuplicateOrderSkipsSideEffects(t *testing.T) {
	orderSvc := &mockOrderService{}
	notifier := &mockNotifier{}
	trigger := &mockTrigger{}
	svc := newTestWebhookService(orderSvc, notifier, trigger)

	order := &orderdomain.Order{ID: snowflake.ID(101), PaymentRef: "pi_1"}
	orderSvc.On("CreateFromCheckout", mock.Anything, mock.Anything).
		Return(orderdomain.CreateResult{Order: order, Created: false}, nil)

	payload := checkoutPayload("pi_1")
	err := svc.IngestWebhook(context.Background(), "stripe", payload, signStripe(payload))
	require.NoError(t, err)

	notifier.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything, mock.Anything, mock.Anything)
	trigger.AssertNotCalled(t, "EnqueueLeadAcquisition", mock.Anything, mock.Anything)
}

func TestIngestWebhook_InvalidSignatureTouchesNothing(t *testing.T) {
	orderSvc := &mockOrderService{}
	notifier := &mockNotifier{}
	trigger := &mockTrigger{}
	svc := newTestWebhookService(orderSvc, notifier, trigger)

	payload := checkoutPayload("pi_1")
	headers := http.Header{}
	headers.Set("Stripe-Signature", "t=1735689600,v1=deadbeef")

	err := svc.IngestWebhook(context.Background(), "stripe", payload, headers)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	orderSvc.AssertNotCalled(t, "CreateFromCheckout", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything, mock.Anything, mock.Anything)
	trigger.AssertNotCalled(t, "EnqueueLeadAcquisition", mock.Anything, mock.Anything)
}

func TestIngestWebhook_ProviderValidation(t *testing.T) {
	svc := newTestWebhookService(&mockOrderService{}, &mockNotifier{}, &mockTrigger{})

	err := svc.IngestWebhook(context.Background(), "  ", []byte("{}"), http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidProvider)

	err = svc.IngestWebhook(context.Background(), "paypal", []byte("{}"), http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrProviderNotFound)

	err = svc.IngestWebhook(context.Background(), "stripe", []byte("not json"), http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)
}

func TestIngestWebhook_IgnoredEventIsAccepted(t *testing.T) {
	orderSvc := &mockOrderService{}
	svc := newTestWebhookService(orderSvc, &mockNotifier{}, &mockTrigger{})

	payload := []byte(`{"id":"evt_x","type":"customer.created","data":{"object":{}}}`)
	err := svc.IngestWebhook(context.Background(), "stripe", payload, signStripe(payload))
	require.NoError(t, err)

	orderSvc.AssertNotCalled(t, "CreateFromCheckout", mock.Anything, mock.Anything)
}

func TestIngestWebhook_RenewalCreatesClone(t *testing.T) {
	orderSvc := &mockOrderService{}
	notifier := &mockNotifier{}
	trigger := &mockTrigger{}
	svc := newTestWebhookService(orderSvc, notifier, trigger)

	order := &orderdomain.Order{ID: snowflake.ID(202), PaymentRef: "pi_renew"}
	orderSvc.On("RenewFromSubscription", mock.Anything, "sub_42", "pi_renew").
		Return(orderdomain.CreateResult{Order: order, Created: true}, nil)
	notifier.On("SendOrderConfirmation", mock.Anything, order, false).Return(nil)
	trigger.On("EnqueueLeadAcquisition", mock.Anything, order.ID).Return(nil)

	payload := []byte(`{
		"id": "evt_r",
		"type": "invoice.paid",
		"data": {"object": {
			"id": "in_1",
			"payment_intent": "pi_renew",
			"subscription": "sub_42",
			"amount_paid": 19900,
			"currency": "usd",
			"billing_reason": "subscription_cycle"
		}}
	}`)

	err := svc.IngestWebhook(context.Background(), "stripe", payload, signStripe(payload))
	require.NoError(t, err)
	orderSvc.AssertExpectations(t)
	trigger.AssertExpectations(t)
}

func TestIngestWebhook_RenewalForUnknownSubscriptionIsAccepted(t *testing.T) {
	orderSvc := &mockOrderService{}
	svc := newTestWebhookService(orderSvc, &mockNotifier{}, &mockTrigger{})

	orderSvc.On("RenewFromSubscription", mock.Anything, "sub_missing", mock.Anything).
		Return(orderdomain.CreateResult{}, orderdomain.ErrNoPriorOrder)

	payload := []byte(`{
		"id": "evt_r2",
		"type": "invoice.paid",
		"data": {"object": {
			"id": "in_2",
			"subscription": "sub_missing",
			"billing_reason": "subscription_cycle"
		}}
	}`)

	// Stale renewal events must not bounce forever in the provider's retry
	// queue, so the unknown subscription is acknowledged.
	err := svc.IngestWebhook(context.Background(), "stripe", payload, signStripe(payload))
	assert.NoError(t, err)
}

func TestIngestWebhook_SideEffectFailuresDoNotFailWebhook(t *testing.T) {
	orderSvc := &mockOrderService{}
	notifier := &mockNotifier{}
	trigger := &mockTrigger{}
	svc := newTestWebhookService(orderSvc, notifier, trigger)

	order := &orderdomain.Order{ID: snowflake.ID(303), PaymentRef: "pi_3"}
	orderSvc.On("CreateFromCheckout", mock.Anything, mock.Anything).
		Return(orderdomain.CreateResult{Order: order, Created: true}, nil)
	notifier.On("SendOrderConfirmation", mock.Anything, order, false).Return(assert.AnError)
	trigger.On("EnqueueLeadAcquisition", mock.Anything, order.ID).Return(assert.AnError)

	payload := checkoutPayload("pi_3")
	err := svc.IngestWebhook(context.Background(), "stripe", payload, signStripe(payload))
	assert.NoError(t, err)
	notifier.AssertExpectations(t)
	trigger.AssertExpectations(t)
}
