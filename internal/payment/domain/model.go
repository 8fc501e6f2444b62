package domain

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var (
	ErrInvalidProvider  = errors.New("invalid_provider")
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrEventIgnored     = errors.New("event_ignored")
	ErrInvalidConfig    = errors.New("invalid_adapter_config")
)

const (
	EventTypeCheckout = "checkout"
	EventTypeRenewal  = "renewal"
)

// CheckoutEvent is the canonical purchase event parsed by adapters. All
// provider event shapes that can report the same underlying payment collapse
// into one PaymentRef, which is the idempotency key for order creation.
type CheckoutEvent struct {
	Provider        string
	ProviderEventID string
	Type            string
	PaymentRef      string
	SubscriptionRef string
	Paid            bool
	AmountCents     int64
	Currency        string
	OccurredAt      time.Time
	RawPayload      []byte

	Order OrderParams
}

// OrderParams carries the purchase metadata attached by the checkout flow.
// The contact email is used to resolve the owning account server-side; any
// user identity claimed in metadata is never trusted.
type OrderParams struct {
	Tier         string
	BillingMode  string
	City         string
	RadiusMiles  int
	ExtraCities  []string
	ContactName  string
	ContactEmail string
}

type AdapterConfig struct {
	Provider      string
	WebhookSecret string
}

// PaymentAdapter translates one provider's webhook wire format into
// CheckoutEvents.
type PaymentAdapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*CheckoutEvent, error)
}

// AdapterFactory builds a configured adapter for its provider.
type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (PaymentAdapter, error)
}

type Service interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}
