package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/realtyleadsai/leadflow/internal/config"
	orderdomain "github.com/realtyleadsai/leadflow/internal/order/domain"
)

type capturingProvider struct {
	to      []string
	subject string
	body    string
	err     error
	sends   int
}

func (p *capturingProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	p.sends++
	p.to = to
	p.subject = subject
	p.body = htmlBody
	return p.err
}

func newTestDispatcher(t *testing.T, provider Provider) *Dispatcher {
	t.Helper()

	cfg := config.Config{DashboardBaseURL: "https://app.example.com"}
	dispatcher, err := NewDispatcher(Params{
		Log:      zap.NewNop(),
		Cfg:      cfg,
		Delivery: &config.DeliveryConfigHolder{},
		Provider: provider,
	})
	require.NoError(t, err)
	return dispatcher
}

func confirmationOrder() *orderdomain.Order {
	return &orderdomain.Order{
		ID:           snowflake.ID(8801),
		Tier:         orderdomain.TierGrowth,
		City:         "Austin",
		RadiusMiles:  25,
		LeadMin:      40,
		LeadMax:      60,
		ContactName:  "Jordan Reyes",
		ContactEmail: "jordan@example.com",
	}
}

func TestSendOrderConfirmation(t *testing.T) {
	provider := &capturingProvider{}
	dispatcher := newTestDispatcher(t, provider)

	err := dispatcher.SendOrderConfirmation(context.Background(), confirmationOrder(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"jordan@example.com"}, provider.to)
	assert.Equal(t, "Order confirmed: seller leads for Austin", provider.subject)
	assert.Contains(t, provider.body, "Jordan Reyes")
	assert.Contains(t, provider.body, "Austin")
}

func TestSendDeliveryReady_PreviewIsCapped(t *testing.T) {
	provider := &capturingProvider{}
	dispatcher := newTestDispatcher(t, provider)

	price := "$450,000"
	leads := []orderdomain.Lead{
		{Address: "100 Main St", City: "Austin", PriceText: &price},
		{Address: "200 Oak Ave", City: "Austin"},
		{Address: "300 Elm St", City: "Austin"},
		{Address: "400 Pine Rd", City: "Austin"},
		{Address: "500 Birch Ln", City: "Austin"},
	}

	err := dispatcher.SendDeliveryReady(context.Background(), confirmationOrder(), leads, DeliveryArtifacts{
		ReportURL: "https://cdn.example.com/leads.pdf",
		ExportURL: "https://cdn.example.com/leads.csv",
	})
	require.NoError(t, err)

	assert.Equal(t, "Your 5 seller leads for Austin are ready", provider.subject)
	assert.Contains(t, provider.body, "100 Main St")
	assert.Contains(t, provider.body, "300 Elm St")
	// The default preview shows three leads; the rest wait in the artifacts.
	assert.NotContains(t, provider.body, "400 Pine Rd")
	assert.Contains(t, provider.body, "https://cdn.example.com/leads.pdf")
}

func TestSendDeliveryReady_FewerLeadsThanPreview(t *testing.T) {
	provider := &capturingProvider{}
	dispatcher := newTestDispatcher(t, provider)

	leads := []orderdomain.Lead{{Address: "100 Main St", City: "Austin"}}

	err := dispatcher.SendDeliveryReady(context.Background(), confirmationOrder(), leads, DeliveryArtifacts{})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.sends)
}

func TestSend_ProviderErrorPropagates(t *testing.T) {
	provider := &capturingProvider{err: errors.New("connection refused")}
	dispatcher := newTestDispatcher(t, provider)

	err := dispatcher.SendOrderConfirmation(context.Background(), confirmationOrder(), true)
	assert.Error(t, err)
}

func TestSendOrderConfirmation_NilOrder(t *testing.T) {
	dispatcher := newTestDispatcher(t, &NoOpProvider{})

	assert.Error(t, dispatcher.SendOrderConfirmation(context.Background(), nil, false))
	assert.Error(t, dispatcher.SendDeliveryReady(context.Background(), nil, nil, DeliveryArtifacts{}))
}
