package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusFailed          OrderStatus = "failed"
	OrderStatusPartialDelivery OrderStatus = "partial_delivery"
)

type BillingMode string

const (
	BillingModeOneTime   BillingMode = "one_time"
	BillingModeRecurring BillingMode = "recurring"
)

type Tier string

const (
	TierStarter Tier = "starter"
	TierGrowth  Tier = "growth"
	TierScale   Tier = "scale"
)

// MaxExtraCities bounds the additional target cities on an order.
const MaxExtraCities = 5

var (
	ErrOrderNotFound  = errors.New("order_not_found")
	ErrDuplicateOrder = errors.New("duplicate_order")
	ErrInvalidOrder   = errors.New("invalid_order")
	ErrNoPriorOrder   = errors.New("no_prior_order_for_subscription")
)

// Order is one fulfillment unit: a purchase or a subscription renewal.
type Order struct {
	ID     snowflake.ID  `gorm:"primaryKey" json:"id"`
	UserID *snowflake.ID `gorm:"index" json:"user_id,omitempty"`

	Tier        Tier        `gorm:"type:text;not null" json:"tier"`
	BillingMode BillingMode `gorm:"type:text;not null" json:"billing_mode"`
	City        string      `gorm:"not null" json:"city"`
	RadiusMiles int         `gorm:"not null" json:"radius_miles"`
	ExtraCities datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"extra_cities,omitempty"`

	AmountCents int64  `gorm:"not null" json:"amount_cents"`
	Currency    string `gorm:"type:text;not null;default:'USD'" json:"currency"`
	LeadMin     int    `gorm:"not null" json:"lead_min"`
	LeadMax     int    `gorm:"not null" json:"lead_max"`

	PaymentRef      string  `gorm:"uniqueIndex;not null" json:"payment_ref"`
	SubscriptionRef *string `gorm:"index" json:"subscription_ref,omitempty"`

	Status              OrderStatus `gorm:"type:text;not null;index" json:"status"`
	DeliveredAt         *time.Time  `json:"delivered_at,omitempty"`
	NextDeliveryAt      *time.Time  `json:"next_delivery_at,omitempty"`
	LeadsCount          int         `gorm:"not null;default:0" json:"leads_count"`
	TotalLeadsDelivered int         `gorm:"not null;default:0" json:"total_leads_delivered"`

	ArtifactURL   string `gorm:"type:text" json:"artifact_url,omitempty"`
	ArtifactToken string `gorm:"type:text" json:"artifact_token,omitempty"`

	ContactName  string `gorm:"type:text" json:"contact_name,omitempty"`
	ContactEmail string `gorm:"type:text;not null" json:"contact_email"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// Lead is one scraped seller/property record attached to an order. Leads are
// immutable in this pipeline; the finalizer only reads them.
type Lead struct {
	ID      snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID snowflake.ID `gorm:"not null;index" json:"order_id"`

	Address    string  `gorm:"not null" json:"address"`
	City       string  `gorm:"not null" json:"city"`
	State      string  `gorm:"type:text" json:"state,omitempty"`
	Zip        string  `gorm:"type:text" json:"zip,omitempty"`
	SellerName *string `json:"seller_name,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Email      *string `json:"email,omitempty"`
	PriceText  *string `json:"price_text,omitempty"`
	Source     string  `gorm:"type:text" json:"source,omitempty"`
	SourceType string  `gorm:"type:text" json:"source_type,omitempty"`
	ListingURL string  `gorm:"type:text" json:"listing_url,omitempty"`
	ListedAt   *time.Time `json:"listed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Lead) TableName() string { return "leads" }

// Profile is minimal account metadata keyed to the auth identity. The order
// pipeline only reads it, to resolve ownership and pick the confirmation
// email variant.
type Profile struct {
	UserID      snowflake.ID `gorm:"primaryKey" json:"user_id"`
	FullName    string       `gorm:"type:text" json:"full_name"`
	Email       string       `gorm:"uniqueIndex;not null" json:"email"`
	CreditCents int64        `gorm:"not null;default:0" json:"credit_cents"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Profile) TableName() string { return "profiles" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	FindByPaymentRef(ctx context.Context, db *gorm.DB, ref string) (*Order, error)
	LatestBySubscriptionRef(ctx context.Context, db *gorm.DB, ref string) (*Order, error)
	// MarkDelivered sets the delivery fields iff delivered_at is still null.
	// The WHERE guard is the idempotency mechanism; it reports whether this
	// call claimed the transition.
	MarkDelivered(ctx context.Context, db *gorm.DB, id snowflake.ID, deliveredAt time.Time, artifactURL, artifactToken string, leadCount int) (bool, error)
	ListLeads(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]Lead, error)
	FindProfileByEmail(ctx context.Context, db *gorm.DB, email string) (*Profile, error)
}

// CreateOrderCommand is the normalized order-creation input produced by the
// payment gateway adapter. Identity is resolved server-side from
// ContactEmail; any identity claimed in provider metadata is ignored.
type CreateOrderCommand struct {
	PaymentRef      string
	SubscriptionRef string
	Paid            bool

	Tier        Tier
	BillingMode BillingMode
	City        string
	RadiusMiles int
	ExtraCities []string
	AmountCents int64
	Currency    string

	ContactName  string
	ContactEmail string
}

// CreateResult reports whether the command created a new order or resolved
// to one previously recorded for the same payment reference.
type CreateResult struct {
	Order   *Order
	Created bool
	// ReturningAccount is true when a profile already existed for the
	// contact email before this order.
	ReturningAccount bool
}

type Service interface {
	CreateFromCheckout(ctx context.Context, cmd CreateOrderCommand) (CreateResult, error)
	RenewFromSubscription(ctx context.Context, subscriptionRef, paymentRef string) (CreateResult, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Order, error)
}
