package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/realtyleadsai/leadflow/internal/config"
	"github.com/realtyleadsai/leadflow/internal/observability/metrics"
	orderdomain "github.com/realtyleadsai/leadflow/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	templateConfirmation  = "order_confirmation"
	templateDeliveryReady = "delivery_ready"
)

// DeliveryArtifacts carries whichever artifact references the finalizer
// managed to produce; empty fields are simply omitted from the email.
type DeliveryArtifacts struct {
	ReportURL string
	ExportURL string
	SheetURL  string
}

type LeadPreview struct {
	Address string
	City    string
	Price   string
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Cfg      config.Config
	Delivery *config.DeliveryConfigHolder
	Provider Provider
	Metrics  *metrics.Metrics `optional:"true"`
}

// Dispatcher sends the two lifecycle emails. It has no retry logic; send
// failures are the caller's to log and never roll back order state.
type Dispatcher struct {
	log       *zap.Logger
	cfg       config.Config
	delivery  *config.DeliveryConfigHolder
	provider  Provider
	metrics   *metrics.Metrics
	templates *template.Template
}

func NewDispatcher(p Params) (*Dispatcher, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Dispatcher{
		log:       p.Log.Named("notify"),
		cfg:       p.Cfg,
		delivery:  p.Delivery,
		provider:  p.Provider,
		metrics:   p.Metrics,
		templates: templates,
	}, nil
}

func (d *Dispatcher) SendOrderConfirmation(ctx context.Context, order *orderdomain.Order, returningAccount bool) error {
	if order == nil {
		return fmt.Errorf("nil order")
	}
	data := map[string]any{
		"ContactName":      order.ContactName,
		"City":             order.City,
		"RadiusMiles":      order.RadiusMiles,
		"ExtraCities":      []string(order.ExtraCities),
		"Tier":             string(order.Tier),
		"LeadMin":          order.LeadMin,
		"LeadMax":          order.LeadMax,
		"OrderID":          order.ID.String(),
		"ReturningAccount": returningAccount,
		"DashboardURL":     d.cfg.DashboardBaseURL,
	}
	subject := fmt.Sprintf("Order confirmed: seller leads for %s", order.City)
	return d.send(ctx, templateConfirmation, order.ContactEmail, subject, data)
}

func (d *Dispatcher) SendDeliveryReady(ctx context.Context, order *orderdomain.Order, leads []orderdomain.Lead, artifacts DeliveryArtifacts) error {
	if order == nil {
		return fmt.Errorf("nil order")
	}

	previewCount := d.delivery.Current().PreviewLeadCount
	if previewCount > len(leads) {
		previewCount = len(leads)
	}
	preview := make([]LeadPreview, 0, previewCount)
	for _, lead := range leads[:previewCount] {
		price := ""
		if lead.PriceText != nil {
			price = *lead.PriceText
		}
		preview = append(preview, LeadPreview{
			Address: lead.Address,
			City:    lead.City,
			Price:   price,
		})
	}

	data := map[string]any{
		"ContactName":  order.ContactName,
		"City":         order.City,
		"LeadCount":    len(leads),
		"Preview":      preview,
		"ReportURL":    artifacts.ReportURL,
		"ExportURL":    artifacts.ExportURL,
		"SheetURL":     artifacts.SheetURL,
		"DashboardURL": d.cfg.DashboardBaseURL,
	}
	subject := fmt.Sprintf("Your %d seller leads for %s are ready", len(leads), order.City)
	return d.send(ctx, templateDeliveryReady, order.ContactEmail, subject, data)
}

func (d *Dispatcher) send(ctx context.Context, name, to, subject string, data map[string]any) error {
	var body bytes.Buffer
	if err := d.templates.ExecuteTemplate(&body, name+".html", data); err != nil {
		d.record(name, "template_error")
		return fmt.Errorf("execute template %s: %w", name, err)
	}

	if err := d.provider.Send(ctx, []string{to}, subject, body.String()); err != nil {
		d.record(name, "error")
		return err
	}
	d.record(name, "sent")
	return nil
}

func (d *Dispatcher) record(template, outcome string) {
	if d.metrics != nil {
		d.metrics.RecordEmail(template, outcome)
	}
}
