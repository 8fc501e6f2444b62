package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	paymentdomain "github.com/realtyleadsai/leadflow/internal/payment/domain"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "stripe"
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	return &Adapter{webhookSecret: secret}, nil
}

type Adapter struct {
	webhookSecret string
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return paymentdomain.ErrInvalidSignature
}

// Parse normalizes the three event shapes that can report one purchase
// (checkout session, payment intent, charge) plus the renewal billing event
// into CheckoutEvents sharing a single payment reference, so duplicate
// deliveries across event types collapse downstream.
func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.CheckoutEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "checkout.session.completed":
		return a.parseCheckoutSession(event, payload)
	case "payment_intent.succeeded":
		return a.parsePaymentIntent(event, payload)
	case "charge.succeeded":
		return a.parseCharge(event, payload)
	case "invoice.paid":
		return a.parseInvoice(event, payload)
	default:
		return nil, paymentdomain.ErrEventIgnored
	}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID              string            `json:"id"`
	PaymentIntent   string            `json:"payment_intent"`
	Subscription    string            `json:"subscription"`
	PaymentStatus   string            `json:"payment_status"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	Created         int64             `json:"created"`
	Metadata        map[string]string `json:"metadata"`
	CustomerDetails struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"customer_details"`
}

type stripePaymentIntent struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"`
	Currency       string            `json:"currency"`
	Created        int64             `json:"created"`
	ReceiptEmail   string            `json:"receipt_email"`
	Metadata       map[string]string `json:"metadata"`
}

type stripeCharge struct {
	ID             string            `json:"id"`
	PaymentIntent  string            `json:"payment_intent"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Created        int64             `json:"created"`
	Metadata       map[string]string `json:"metadata"`
	BillingDetails struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"billing_details"`
}

type stripeInvoice struct {
	ID            string `json:"id"`
	PaymentIntent string `json:"payment_intent"`
	Subscription  string `json:"subscription"`
	AmountPaid    int64  `json:"amount_paid"`
	Currency      string `json:"currency"`
	Created       int64  `json:"created"`
	BillingReason string `json:"billing_reason"`
}

func (a *Adapter) parseCheckoutSession(event stripeEvent, payload []byte) (*paymentdomain.CheckoutEvent, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	paymentRef := strings.TrimSpace(session.PaymentIntent)
	if paymentRef == "" {
		paymentRef = strings.TrimSpace(session.ID)
	}
	if paymentRef == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	params := orderParamsFromMetadata(session.Metadata)
	if params.ContactEmail == "" {
		params.ContactEmail = strings.TrimSpace(session.CustomerDetails.Email)
	}
	if params.ContactName == "" {
		params.ContactName = strings.TrimSpace(session.CustomerDetails.Name)
	}

	return &paymentdomain.CheckoutEvent{
		Provider:        "stripe",
		ProviderEventID: event.ID,
		Type:            paymentdomain.EventTypeCheckout,
		PaymentRef:      paymentRef,
		SubscriptionRef: strings.TrimSpace(session.Subscription),
		Paid:            strings.EqualFold(session.PaymentStatus, "paid"),
		AmountCents:     session.AmountTotal,
		Currency:        strings.ToUpper(strings.TrimSpace(session.Currency)),
		OccurredAt:      timestamp(session.Created, event.Created),
		RawPayload:      payload,
		Order:           params,
	}, nil
}

func (a *Adapter) parsePaymentIntent(event stripeEvent, payload []byte) (*paymentdomain.CheckoutEvent, error) {
	var intent stripePaymentIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(intent.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	amount := intent.AmountReceived
	if amount <= 0 {
		amount = intent.Amount
	}

	params := orderParamsFromMetadata(intent.Metadata)
	if params.ContactEmail == "" {
		params.ContactEmail = strings.TrimSpace(intent.ReceiptEmail)
	}

	return &paymentdomain.CheckoutEvent{
		Provider:        "stripe",
		ProviderEventID: event.ID,
		Type:            paymentdomain.EventTypeCheckout,
		PaymentRef:      intent.ID,
		Paid:            true,
		AmountCents:     amount,
		Currency:        strings.ToUpper(strings.TrimSpace(intent.Currency)),
		OccurredAt:      timestamp(intent.Created, event.Created),
		RawPayload:      payload,
		Order:           params,
	}, nil
}

func (a *Adapter) parseCharge(event stripeEvent, payload []byte) (*paymentdomain.CheckoutEvent, error) {
	var charge stripeCharge
	if err := json.Unmarshal(event.Data.Object, &charge); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	// Charges carry the payment intent they settle; using it keeps the
	// idempotency key identical across all three purchase event types.
	paymentRef := strings.TrimSpace(charge.PaymentIntent)
	if paymentRef == "" {
		paymentRef = strings.TrimSpace(charge.ID)
	}
	if paymentRef == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	params := orderParamsFromMetadata(charge.Metadata)
	if params.ContactEmail == "" {
		params.ContactEmail = strings.TrimSpace(charge.BillingDetails.Email)
	}
	if params.ContactName == "" {
		params.ContactName = strings.TrimSpace(charge.BillingDetails.Name)
	}

	return &paymentdomain.CheckoutEvent{
		Provider:        "stripe",
		ProviderEventID: event.ID,
		Type:            paymentdomain.EventTypeCheckout,
		PaymentRef:      paymentRef,
		Paid:            true,
		AmountCents:     charge.Amount,
		Currency:        strings.ToUpper(strings.TrimSpace(charge.Currency)),
		OccurredAt:      timestamp(charge.Created, event.Created),
		RawPayload:      payload,
		Order:           params,
	}, nil
}

func (a *Adapter) parseInvoice(event stripeEvent, payload []byte) (*paymentdomain.CheckoutEvent, error) {
	var invoice stripeInvoice
	if err := json.Unmarshal(event.Data.Object, &invoice); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	subscription := strings.TrimSpace(invoice.Subscription)
	if subscription == "" {
		return nil, paymentdomain.ErrEventIgnored
	}
	// The first invoice of a subscription is already covered by the
	// checkout session event.
	if strings.EqualFold(invoice.BillingReason, "subscription_create") {
		return nil, paymentdomain.ErrEventIgnored
	}

	paymentRef := strings.TrimSpace(invoice.PaymentIntent)
	if paymentRef == "" {
		paymentRef = strings.TrimSpace(invoice.ID)
	}

	return &paymentdomain.CheckoutEvent{
		Provider:        "stripe",
		ProviderEventID: event.ID,
		Type:            paymentdomain.EventTypeRenewal,
		PaymentRef:      paymentRef,
		SubscriptionRef: subscription,
		Paid:            true,
		AmountCents:     invoice.AmountPaid,
		Currency:        strings.ToUpper(strings.TrimSpace(invoice.Currency)),
		OccurredAt:      timestamp(invoice.Created, event.Created),
		RawPayload:      payload,
	}, nil
}

func orderParamsFromMetadata(metadata map[string]string) paymentdomain.OrderParams {
	params := paymentdomain.OrderParams{
		Tier:         strings.ToLower(strings.TrimSpace(metadata["tier"])),
		BillingMode:  strings.ToLower(strings.TrimSpace(metadata["billing_mode"])),
		City:         strings.TrimSpace(metadata["city"]),
		ContactName:  strings.TrimSpace(metadata["contact_name"]),
		ContactEmail: strings.TrimSpace(metadata["contact_email"]),
	}
	if radius, err := strconv.Atoi(strings.TrimSpace(metadata["radius_miles"])); err == nil {
		params.RadiusMiles = radius
	}
	if raw := strings.TrimSpace(metadata["extra_cities"]); raw != "" {
		for _, city := range strings.Split(raw, ",") {
			city = strings.TrimSpace(city)
			if city != "" {
				params.ExtraCities = append(params.ExtraCities, city)
			}
		}
	}
	return params
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}
