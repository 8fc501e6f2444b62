package artifact

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realtyleadsai/leadflow/internal/config"
	"github.com/realtyleadsai/leadflow/internal/order/domain"
)

func testOrder() *domain.Order {
	return &domain.Order{
		ID:   snowflake.ID(7331),
		City: "Austin",
	}
}

func TestBuildCSVExport_Structure(t *testing.T) {
	cfg := config.DefaultDeliveryConfig()
	listed := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	seller := "Dana Brooks"
	phone := "512-555-0101"
	price := "$450,000"

	leads := []domain.Lead{
		{
			Address:    "100 Main St",
			City:       "Austin",
			State:      "TX",
			Zip:        "78701",
			SellerName: &seller,
			Phone:      &phone,
			PriceText:  &price,
			Source:     "fsbo",
			ListingURL: "https://example.com/listing/1",
			ListedAt:   &listed,
		},
		{
			Address: "200 Oak Ave",
			City:    "Austin",
		},
	}

	out := string(BuildCSVExport(cfg, testOrder(), leads, time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)

	assert.Equal(t, "RealtyLeadsAI - Motivated Seller Leads", lines[0])
	assert.Equal(t, "Order 7331,Austin,2 leads,Generated 2025-06-15", lines[1])
	assert.Equal(t, "Address,City,State,Zip,Seller Name,Phone,Email,Price,Source,Listing URL,Date Listed", lines[2])
	assert.Equal(t, `100 Main St,Austin,TX,78701,Dana Brooks,512-555-0101,,"$450,000",fsbo,https://example.com/listing/1,2025-06-10`, lines[3])

	// Missing optional fields render as empty cells, keeping the column
	// count stable.
	assert.Equal(t, "200 Oak Ave,Austin,,,,,,,,,", lines[4])
}

func TestEscapeField(t *testing.T) {
	tests := []struct {
		name  string
		field string
		want  string
	}{
		{"plain value stays bare", "100 Main St", "100 Main St"},
		{"comma forces quoting", "Apt 4, Building B", `"Apt 4, Building B"`},
		{"newline forces quoting", "line1\nline2", "\"line1\nline2\""},
		{"inner quotes doubled when quoting", `The "Blue" House, TX`, `"The ""Blue"" House, TX"`},
		{"quotes alone stay bare", `The "Blue" House`, `The "Blue" House`},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeField(tt.field))
		})
	}
}

func TestBuildCSVExport_AddressWithComma(t *testing.T) {
	cfg := config.DefaultDeliveryConfig()
	leads := []domain.Lead{
		{Address: "Apt 4, 300 Elm St", City: "Round Rock"},
	}

	out := string(BuildCSVExport(cfg, testOrder(), leads, time.Now()))
	assert.Contains(t, out, `"Apt 4, 300 Elm St",Round Rock`)
}
