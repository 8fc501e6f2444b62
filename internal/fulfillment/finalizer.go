package fulfillment

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/realtyleadsai/leadflow/internal/clock"
	"github.com/realtyleadsai/leadflow/internal/config"
	"github.com/realtyleadsai/leadflow/internal/fulfillment/artifact"
	"github.com/realtyleadsai/leadflow/internal/notify"
	"github.com/realtyleadsai/leadflow/internal/observability/metrics"
	"github.com/realtyleadsai/leadflow/internal/order/domain"
	"github.com/realtyleadsai/leadflow/internal/storage"
)

// Outcome describes what a finalization attempt did.
type Outcome string

const (
	// OutcomeAwaitingLeads means no leads exist yet; nothing was generated
	// and delivered_at stays null.
	OutcomeAwaitingLeads Outcome = "awaiting_leads"
	// OutcomeDelivered means this invocation generated artifacts and
	// claimed the delivery.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeAlreadyDelivered means the order was delivered before this
	// invocation; the stored artifact reference is returned untouched.
	OutcomeAlreadyDelivered Outcome = "already_delivered"
)

// Result is what a Finalize call produced.
type Result struct {
	Outcome     Outcome
	ArtifactURL string
	Artifacts   notify.DeliveryArtifacts
	LeadCount   int
}

// DeliveryNotifier sends the delivery-ready email. Failures never roll back
// the order update.
type DeliveryNotifier interface {
	SendDeliveryReady(ctx context.Context, order *domain.Order, leads []domain.Lead, artifacts notify.DeliveryArtifacts) error
}

type Service interface {
	// Finalize runs the delivery state machine for one order. Safe to call
	// any number of times; only the first call with leads present delivers.
	Finalize(ctx context.Context, orderID snowflake.ID) (Result, error)
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Delivery *config.DeliveryConfigHolder
	Repo     domain.Repository
	Store    storage.ObjectStore
	Sheets   *artifact.SheetsClient
	Notifier DeliveryNotifier
	Metrics  *metrics.Metrics `optional:"true"`
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	delivery *config.DeliveryConfigHolder
	repo     domain.Repository
	store    storage.ObjectStore
	sheets   *artifact.SheetsClient
	notifier DeliveryNotifier
	metrics  *metrics.Metrics
}

func New(p Params) Service {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("fulfillment"),
		clock:    p.Clock,
		delivery: p.Delivery,
		repo:     p.Repo,
		store:    p.Store,
		sheets:   p.Sheets,
		notifier: p.Notifier,
		metrics:  p.Metrics,
	}
}

func (s *service) Finalize(ctx context.Context, orderID snowflake.ID) (Result, error) {
	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return Result{}, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order == nil {
		return Result{}, domain.ErrOrderNotFound
	}

	if order.DeliveredAt != nil {
		s.metrics.RecordFinalization(string(OutcomeAlreadyDelivered))
		return Result{
			Outcome:     OutcomeAlreadyDelivered,
			ArtifactURL: order.ArtifactURL,
			LeadCount:   order.LeadsCount,
		}, nil
	}

	leads, err := s.repo.ListLeads(ctx, s.db, orderID)
	if err != nil {
		return Result{}, fmt.Errorf("load leads for order %s: %w", orderID, err)
	}
	if len(leads) == 0 {
		s.metrics.RecordFinalization(string(OutcomeAwaitingLeads))
		return Result{Outcome: OutcomeAwaitingLeads}, nil
	}

	now := s.clock.Now()
	token := newArtifactToken(now)
	artifacts := s.generateArtifacts(ctx, order, leads, token, now)

	primary := firstNonEmpty(
		artifacts.ReportURL,
		artifacts.ExportURL,
		artifacts.SheetURL,
		order.ArtifactURL,
	)

	claimed, err := s.repo.MarkDelivered(ctx, s.db, order.ID, now, primary, token, len(leads))
	if err != nil {
		// A delivery with no recorded artifact reference is a correctness
		// violation, so this is the one fatal step.
		s.metrics.RecordFinalization("error")
		return Result{}, fmt.Errorf("mark order %s delivered: %w", order.ID, err)
	}
	if !claimed {
		// A concurrent invocation won the delivered_at transition.
		current, err := s.repo.FindByID(ctx, s.db, order.ID)
		if err != nil || current == nil {
			return Result{Outcome: OutcomeAlreadyDelivered}, nil
		}
		s.metrics.RecordFinalization(string(OutcomeAlreadyDelivered))
		return Result{
			Outcome:     OutcomeAlreadyDelivered,
			ArtifactURL: current.ArtifactURL,
			LeadCount:   current.LeadsCount,
		}, nil
	}

	order.DeliveredAt = &now
	order.ArtifactURL = primary
	order.ArtifactToken = token
	order.LeadsCount = len(leads)

	if err := s.notifier.SendDeliveryReady(ctx, order, leads, artifacts); err != nil {
		s.log.Warn("delivery-ready email failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}

	s.metrics.RecordFinalization(string(OutcomeDelivered))
	s.log.Info("order delivered",
		zap.String("order_id", order.ID.String()),
		zap.Int("lead_count", len(leads)),
		zap.String("artifact_url", primary),
	)

	return Result{
		Outcome:     OutcomeDelivered,
		ArtifactURL: primary,
		Artifacts:   artifacts,
		LeadCount:   len(leads),
	}, nil
}

// generateArtifacts runs the three generators independently. Each failure is
// logged and the pipeline degrades to whichever artifacts succeeded.
func (s *service) generateArtifacts(ctx context.Context, order *domain.Order, leads []domain.Lead, token string, now time.Time) notify.DeliveryArtifacts {
	var out notify.DeliveryArtifacts
	cfg := s.delivery.Current()
	keyPrefix := fmt.Sprintf("deliveries/%s/%s", slug.Make(order.City), token)

	start := s.clock.Now()
	pdfBytes, err := artifact.BuildPDFReport(cfg, order, leads, now)
	s.metrics.ObserveArtifactGeneration("pdf", s.clock.Now().Sub(start))
	if err != nil {
		s.log.Warn("pdf report generation failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	} else {
		url, err := s.store.Upload(ctx, keyPrefix+"/leads.pdf", bytes.NewReader(pdfBytes), "application/pdf")
		if err != nil {
			s.log.Warn("pdf report upload failed",
				zap.String("order_id", order.ID.String()),
				zap.Error(err),
			)
		} else {
			out.ReportURL = url
		}
	}

	start = s.clock.Now()
	csvBytes := artifact.BuildCSVExport(cfg, order, leads, now)
	s.metrics.ObserveArtifactGeneration("csv", s.clock.Now().Sub(start))
	url, err := s.store.Upload(ctx, keyPrefix+"/leads.csv", bytes.NewReader(csvBytes), "text/csv")
	if err != nil {
		s.log.Warn("csv export upload failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	} else {
		out.ExportURL = url
	}

	if s.sheets.Enabled() {
		start = s.clock.Now()
		sheetURL, err := s.sheets.CreateLeadSheet(ctx, order, leads)
		s.metrics.ObserveArtifactGeneration("sheet", s.clock.Now().Sub(start))
		if err != nil {
			s.log.Warn("spreadsheet creation failed",
				zap.String("order_id", order.ID.String()),
				zap.Error(err),
			)
		} else {
			out.SheetURL = sheetURL
		}
	}

	return out
}

func newArtifactToken(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
