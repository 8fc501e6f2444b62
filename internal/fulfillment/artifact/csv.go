package artifact

import (
	"fmt"
	"strings"
	"time"

	"github.com/realtyleadsai/leadflow/internal/config"
	"github.com/realtyleadsai/leadflow/internal/order/domain"
)

var exportColumns = []string{
	"Address", "City", "State", "Zip",
	"Seller Name", "Phone", "Email", "Price",
	"Source", "Listing URL", "Date Listed",
}

// BuildCSVExport renders the machine-readable deliverable: a branding line,
// a metadata row, a column header row, then one row per lead. Fields are
// minimally escaped: only values containing the delimiter get quoted, so
// spreadsheet imports stay diff-friendly. Missing optional fields render as
// empty cells.
func BuildCSVExport(cfg config.DeliveryConfig, order *domain.Order, leads []domain.Lead, generatedAt time.Time) []byte {
	var b strings.Builder

	writeRow(&b, []string{cfg.BrandingLine + " - " + cfg.ReportTitle})
	writeRow(&b, []string{
		fmt.Sprintf("Order %s", order.ID),
		order.City,
		fmt.Sprintf("%d leads", len(leads)),
		"Generated " + generatedAt.Format("2006-01-02"),
	})
	writeRow(&b, exportColumns)

	for _, lead := range leads {
		writeRow(&b, []string{
			lead.Address,
			lead.City,
			lead.State,
			lead.Zip,
			deref(lead.SellerName),
			deref(lead.Phone),
			deref(lead.Email),
			deref(lead.PriceText),
			lead.Source,
			lead.ListingURL,
			listedAt(lead),
		})
	}

	return []byte(b.String())
}

func writeRow(b *strings.Builder, fields []string) {
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeField(field))
	}
	b.WriteByte('\n')
}

// escapeField quotes a value only when it would otherwise break the row:
// it contains the delimiter or a line break. Quotes inside a quoted value
// are doubled.
func escapeField(field string) string {
	if !strings.ContainsAny(field, ",\n\r") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

func listedAt(lead domain.Lead) string {
	if lead.ListedAt == nil {
		return ""
	}
	return lead.ListedAt.Format("2006-01-02")
}
