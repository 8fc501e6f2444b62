package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/realtyleadsai/leadflow/internal/clock"
	"github.com/realtyleadsai/leadflow/internal/order/domain"
	"github.com/realtyleadsai/leadflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// renewalPeriod is the recurring delivery cadence.
const renewalPeriod = 30 * 24 * time.Hour

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("order.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// CreateFromCheckout creates at most one order per payment reference. The
// lookup is an optimization; the unique constraint on payment_ref is the
// authoritative duplicate-detection signal, so a lost race surfaces as a
// duplicate-key error and resolves to the winning row.
func (s *Service) CreateFromCheckout(ctx context.Context, cmd domain.CreateOrderCommand) (domain.CreateResult, error) {
	cmd, err := normalize(cmd)
	if err != nil {
		return domain.CreateResult{}, err
	}

	existing, err := s.repo.FindByPaymentRef(ctx, s.db, cmd.PaymentRef)
	if err != nil {
		return domain.CreateResult{}, err
	}
	if existing != nil {
		return domain.CreateResult{Order: existing, Created: false}, nil
	}

	profile, err := s.repo.FindProfileByEmail(ctx, s.db, cmd.ContactEmail)
	if err != nil {
		return domain.CreateResult{}, err
	}

	now := s.clock.Now()
	order := &domain.Order{
		ID:           s.genID.Generate(),
		Tier:         cmd.Tier,
		BillingMode:  cmd.BillingMode,
		City:         cmd.City,
		RadiusMiles:  cmd.RadiusMiles,
		ExtraCities:  cmd.ExtraCities,
		AmountCents:  cmd.AmountCents,
		Currency:     cmd.Currency,
		LeadMin:      leadRangeFor(cmd.Tier).min,
		LeadMax:      leadRangeFor(cmd.Tier).max,
		PaymentRef:   cmd.PaymentRef,
		Status:       domain.OrderStatusPending,
		ContactName:  cmd.ContactName,
		ContactEmail: cmd.ContactEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if cmd.Paid {
		order.Status = domain.OrderStatusProcessing
	}
	if cmd.SubscriptionRef != "" {
		ref := cmd.SubscriptionRef
		order.SubscriptionRef = &ref
	}
	if cmd.BillingMode == domain.BillingModeRecurring {
		next := now.Add(renewalPeriod)
		order.NextDeliveryAt = &next
	}
	if profile != nil {
		userID := profile.UserID
		order.UserID = &userID
	}

	if err := s.repo.Insert(ctx, s.db, order); err != nil {
		if db.IsDuplicateKeyErr(err) {
			winner, findErr := s.repo.FindByPaymentRef(ctx, s.db, cmd.PaymentRef)
			if findErr != nil {
				return domain.CreateResult{}, findErr
			}
			if winner == nil {
				return domain.CreateResult{}, domain.ErrDuplicateOrder
			}
			s.log.Info("duplicate payment reference, keeping winning order",
				zap.String("payment_ref", cmd.PaymentRef),
				zap.Int64("order_id", int64(winner.ID)),
			)
			return domain.CreateResult{Order: winner, Created: false}, nil
		}
		return domain.CreateResult{}, err
	}

	return domain.CreateResult{
		Order:            order,
		Created:          true,
		ReturningAccount: profile != nil,
	}, nil
}

// RenewFromSubscription clones the most recent order for subscriptionRef
// into a fresh fulfillment unit with a new delivery window.
func (s *Service) RenewFromSubscription(ctx context.Context, subscriptionRef, paymentRef string) (domain.CreateResult, error) {
	subscriptionRef = strings.TrimSpace(subscriptionRef)
	paymentRef = strings.TrimSpace(paymentRef)
	if subscriptionRef == "" || paymentRef == "" {
		return domain.CreateResult{}, domain.ErrInvalidOrder
	}

	prior, err := s.repo.LatestBySubscriptionRef(ctx, s.db, subscriptionRef)
	if err != nil {
		return domain.CreateResult{}, err
	}
	if prior == nil {
		return domain.CreateResult{}, domain.ErrNoPriorOrder
	}

	return s.CreateFromCheckout(ctx, domain.CreateOrderCommand{
		PaymentRef:      paymentRef,
		SubscriptionRef: subscriptionRef,
		Paid:            true,
		Tier:            prior.Tier,
		BillingMode:     domain.BillingModeRecurring,
		City:            prior.City,
		RadiusMiles:     prior.RadiusMiles,
		ExtraCities:     prior.ExtraCities,
		AmountCents:     prior.AmountCents,
		Currency:        prior.Currency,
		ContactName:     prior.ContactName,
		ContactEmail:    prior.ContactEmail,
	})
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func normalize(cmd domain.CreateOrderCommand) (domain.CreateOrderCommand, error) {
	cmd.PaymentRef = strings.TrimSpace(cmd.PaymentRef)
	cmd.City = strings.TrimSpace(cmd.City)
	cmd.ContactEmail = strings.ToLower(strings.TrimSpace(cmd.ContactEmail))
	cmd.ContactName = strings.TrimSpace(cmd.ContactName)
	if cmd.PaymentRef == "" || cmd.City == "" || cmd.ContactEmail == "" {
		return cmd, domain.ErrInvalidOrder
	}

	switch cmd.Tier {
	case domain.TierStarter, domain.TierGrowth, domain.TierScale:
	default:
		return cmd, domain.ErrInvalidOrder
	}
	switch cmd.BillingMode {
	case domain.BillingModeOneTime, domain.BillingModeRecurring:
	default:
		return cmd, domain.ErrInvalidOrder
	}

	if cmd.RadiusMiles <= 0 {
		cmd.RadiusMiles = 25
	}
	if cmd.Currency == "" {
		cmd.Currency = "USD"
	}
	cmd.Currency = strings.ToUpper(cmd.Currency)

	cities := make([]string, 0, len(cmd.ExtraCities))
	for _, c := range cmd.ExtraCities {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		cities = append(cities, c)
		if len(cities) == domain.MaxExtraCities {
			break
		}
	}
	cmd.ExtraCities = cities

	return cmd, nil
}

type leadRange struct {
	min int
	max int
}

func leadRangeFor(tier domain.Tier) leadRange {
	switch tier {
	case domain.TierGrowth:
		return leadRange{min: 40, max: 60}
	case domain.TierScale:
		return leadRange{min: 80, max: 120}
	default:
		return leadRange{min: 15, max: 25}
	}
}
