package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/realtyleadsai/leadflow/internal/order/domain"
)

type repoFixture struct {
	db   *gorm.DB
	repo domain.Repository
	node *snowflake.Node
}

func newRepoFixture(t *testing.T) *repoFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Order{}, &domain.Lead{}, &domain.Profile{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return &repoFixture{db: db, repo: Provide(), node: node}
}

func (f *repoFixture) newOrder(paymentRef string) *domain.Order {
	now := time.Now().UTC()
	return &domain.Order{
		ID:           f.node.Generate(),
		Tier:         domain.TierStarter,
		BillingMode:  domain.BillingModeOneTime,
		City:         "Austin",
		RadiusMiles:  25,
		Currency:     "USD",
		PaymentRef:   paymentRef,
		Status:       domain.OrderStatusProcessing,
		ContactEmail: "owner@example.com",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestInsert_EnforcesUniquePaymentRef(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	require.NoError(t, f.repo.Insert(ctx, f.db, f.newOrder("pi_1")))

	err := f.repo.Insert(ctx, f.db, f.newOrder("pi_1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE constraint")
}

func TestMarkDelivered_ClaimsOnlyOnce(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	order := f.newOrder("pi_2")
	require.NoError(t, f.repo.Insert(ctx, f.db, order))

	deliveredAt := time.Now().UTC()
	claimed, err := f.repo.MarkDelivered(ctx, f.db, order.ID, deliveredAt, "https://cdn/x.pdf", "token-1", 12)
	require.NoError(t, err)
	assert.True(t, claimed)

	// A second claim must lose: delivered_at is no longer null.
	claimed, err = f.repo.MarkDelivered(ctx, f.db, order.ID, deliveredAt.Add(time.Minute), "https://cdn/y.pdf", "token-2", 99)
	require.NoError(t, err)
	assert.False(t, claimed)

	stored, err := f.repo.FindByID(ctx, f.db, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.OrderStatusCompleted, stored.Status)
	assert.Equal(t, "https://cdn/x.pdf", stored.ArtifactURL)
	assert.Equal(t, "token-1", stored.ArtifactToken)
	assert.Equal(t, 12, stored.LeadsCount)
	assert.Equal(t, 12, stored.TotalLeadsDelivered)
}

func TestLatestBySubscriptionRef_PicksNewest(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	ref := "sub_1"
	older := f.newOrder("pi_3")
	older.SubscriptionRef = &ref
	older.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, f.repo.Insert(ctx, f.db, older))

	newer := f.newOrder("pi_4")
	newer.SubscriptionRef = &ref
	require.NoError(t, f.repo.Insert(ctx, f.db, newer))

	found, err := f.repo.LatestBySubscriptionRef(ctx, f.db, ref)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, newer.ID, found.ID)

	missing, err := f.repo.LatestBySubscriptionRef(ctx, f.db, "sub_none")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListLeads_OrderedOldestFirst(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	order := f.newOrder("pi_5")
	require.NoError(t, f.repo.Insert(ctx, f.db, order))

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, f.db.Create(&domain.Lead{
			ID:        f.node.Generate(),
			OrderID:   order.ID,
			Address:   "100 Main St",
			City:      "Austin",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	leads, err := f.repo.ListLeads(ctx, f.db, order.ID)
	require.NoError(t, err)
	require.Len(t, leads, 3)
	assert.True(t, leads[0].CreatedAt.Before(leads[2].CreatedAt))
}

func TestFindProfileByEmail(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Create(&domain.Profile{
		UserID: f.node.Generate(),
		Email:  "known@example.com",
	}).Error)

	profile, err := f.repo.FindProfileByEmail(ctx, f.db, "known@example.com")
	require.NoError(t, err)
	assert.NotNil(t, profile)

	missing, err := f.repo.FindProfileByEmail(ctx, f.db, "unknown@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
