package artifact

import (
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/page"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	mcfg "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/realtyleadsai/leadflow/internal/config"
	"github.com/realtyleadsai/leadflow/internal/order/domain"
)

// BuildPDFReport renders the primary deliverable: a cover page followed by
// tabular pages of lead data, capped at cfg.PDFRowsPerPage rows per page.
func BuildPDFReport(cfg config.DeliveryConfig, order *domain.Order, leads []domain.Lead, generatedAt time.Time) ([]byte, error) {
	builder := mcfg.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(builder)

	m.AddPages(coverPage(cfg, order, len(leads), generatedAt))
	for _, chunk := range chunkLeads(leads, cfg.PDFRowsPerPage) {
		m.AddPages(leadPage(chunk))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

func coverPage(cfg config.DeliveryConfig, order *domain.Order, leadCount int, generatedAt time.Time) core.Page {
	p := page.New()

	p.Add(
		row.New(20).Add(
			text.NewCol(12, cfg.BrandingLine, props.Text{
				Size:  24,
				Style: fontstyle.Bold,
				Align: align.Center,
				Top:   6,
			}),
		),
		row.New(14).Add(
			text.NewCol(12, cfg.ReportTitle, props.Text{
				Size:  16,
				Align: align.Center,
			}),
		),
		row.New(40).Add(
			col.New(3),
			col.New(6).Add(
				text.New("Market: "+marketLine(order), props.Text{Top: 0, Size: 11}),
				text.New(fmt.Sprintf("Search radius: %d miles", order.RadiusMiles), props.Text{Top: 7, Size: 11}),
				text.New(fmt.Sprintf("Plan: %s", order.Tier), props.Text{Top: 14, Size: 11}),
				text.New(fmt.Sprintf("Leads in this report: %d", leadCount), props.Text{Top: 21, Size: 11}),
				text.New("Generated: "+generatedAt.Format("January 2, 2006"), props.Text{Top: 28, Size: 11}),
			),
			col.New(3),
		),
		row.New(12).Add(
			text.NewCol(12, "Prepared for "+order.ContactName, props.Text{
				Size:  10,
				Align: align.Center,
				Top:   4,
			}),
		),
	)

	return p
}

func leadPage(leads []domain.Lead) core.Page {
	p := page.New()

	rows := make([]core.Row, 0, len(leads)+1)
	rows = append(rows, row.New(8).Add(
		text.NewCol(4, "Address", props.Text{Style: fontstyle.Bold, Size: 8}),
		text.NewCol(2, "City", props.Text{Style: fontstyle.Bold, Size: 8}),
		text.NewCol(2, "Seller", props.Text{Style: fontstyle.Bold, Size: 8}),
		text.NewCol(2, "Contact", props.Text{Style: fontstyle.Bold, Size: 8}),
		text.NewCol(2, "Price", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
	))

	for _, lead := range leads {
		rows = append(rows, row.New(9).Add(
			text.NewCol(4, lead.Address, props.Text{Size: 8}),
			text.NewCol(2, lead.City, props.Text{Size: 8}),
			text.NewCol(2, deref(lead.SellerName), props.Text{Size: 8}),
			text.NewCol(2, contactLine(lead), props.Text{Size: 8}),
			text.NewCol(2, deref(lead.PriceText), props.Text{Size: 8, Align: align.Right}),
		))
	}

	p.Add(rows...)
	return p
}

func chunkLeads(leads []domain.Lead, perPage int) [][]domain.Lead {
	if perPage <= 0 {
		perPage = len(leads)
	}
	var chunks [][]domain.Lead
	for start := 0; start < len(leads); start += perPage {
		end := start + perPage
		if end > len(leads) {
			end = len(leads)
		}
		chunks = append(chunks, leads[start:end])
	}
	return chunks
}

func marketLine(order *domain.Order) string {
	line := order.City
	for _, extra := range order.ExtraCities {
		line += ", " + extra
	}
	return line
}

func contactLine(lead domain.Lead) string {
	if lead.Phone != nil && *lead.Phone != "" {
		return *lead.Phone
	}
	return deref(lead.Email)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
