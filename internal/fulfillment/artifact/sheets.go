package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/realtyleadsai/leadflow/internal/config"
	"github.com/realtyleadsai/leadflow/internal/order/domain"
)

// SheetsClient pushes the lead table into a collaborative spreadsheet
// service. It is the optional third artifact: the finalizer treats every
// failure here as non-fatal.
type SheetsClient struct {
	endpoint   string
	authToken  string
	folderID   string
	httpClient *http.Client
}

func NewSheetsClient(cfg config.SheetsConfig) *SheetsClient {
	return &SheetsClient{
		endpoint:  cfg.Endpoint,
		authToken: cfg.AuthToken,
		folderID:  cfg.FolderID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Enabled reports whether the service account configuration is present.
func (c *SheetsClient) Enabled() bool {
	return c != nil && c.endpoint != ""
}

type createSheetRequest struct {
	Title    string     `json:"title"`
	FolderID string     `json:"folderId,omitempty"`
	Header   []string   `json:"header"`
	Rows     [][]string `json:"rows"`
}

type createSheetResponse struct {
	URL string `json:"url"`
}

// CreateLeadSheet uploads the lead table and returns the shareable URL.
func (c *SheetsClient) CreateLeadSheet(ctx context.Context, order *domain.Order, leads []domain.Lead) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("sheets: not configured")
	}

	req := createSheetRequest{
		Title:    fmt.Sprintf("Seller Leads - %s - Order %s", order.City, order.ID),
		FolderID: c.folderID,
		Header:   exportColumns,
		Rows:     make([][]string, 0, len(leads)),
	}
	for _, lead := range leads {
		req.Rows = append(req.Rows, []string{
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

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("sheets: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("sheets: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sheets: create sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("sheets: create sheet returned %d: %s", resp.StatusCode, payload)
	}

	var out createSheetResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("sheets: decode response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("sheets: response missing url")
	}
	return out.URL, nil
}
