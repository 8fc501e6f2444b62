package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/realtyleadsai/leadflow/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Create(order).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repo) FindByPaymentRef(ctx context.Context, db *gorm.DB, ref string) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).
		Where("payment_ref = ?", ref).
		Take(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repo) LatestBySubscriptionRef(ctx context.Context, db *gorm.DB, ref string) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).
		Where("subscription_ref = ?", ref).
		Order("created_at desc, id desc").
		Take(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repo) MarkDelivered(ctx context.Context, db *gorm.DB, id snowflake.ID, deliveredAt time.Time, artifactURL, artifactToken string, leadCount int) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND delivered_at IS NULL", id).
		Updates(map[string]any{
			"status":                domain.OrderStatusCompleted,
			"delivered_at":          deliveredAt,
			"artifact_url":          artifactURL,
			"artifact_token":        artifactToken,
			"leads_count":           leadCount,
			"total_leads_delivered": gorm.Expr("total_leads_delivered + ?", leadCount),
			"updated_at":            deliveredAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListLeads(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.Lead, error) {
	var leads []domain.Lead
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc, id asc").
		Find(&leads).Error
	if err != nil {
		return nil, err
	}
	return leads, nil
}

func (r *repo) FindProfileByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Profile, error) {
	var profile domain.Profile
	err := db.WithContext(ctx).
		Where("email = ?", email).
		Take(&profile).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}
