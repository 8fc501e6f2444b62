package leadqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/realtyleadsai/leadflow/internal/config"
)

// ScrapeDispatcher starts lead acquisition for one order on the external
// scraping pipeline. The response body is ignored; the scraper reports back
// by inserting lead rows against the order.
type ScrapeDispatcher interface {
	Dispatch(ctx context.Context, orderID int64) error
}

type httpDispatcher struct {
	endpoint  string
	authToken string
	client    *http.Client
}

func NewHTTPDispatcher(cfg config.ScraperConfig) ScrapeDispatcher {
	return &httpDispatcher{
		endpoint:  cfg.Endpoint,
		authToken: cfg.AuthToken,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *httpDispatcher) Dispatch(ctx context.Context, orderID int64) error {
	if d.endpoint == "" {
		return fmt.Errorf("scraper endpoint not configured")
	}

	body, err := json.Marshal(map[string]string{
		"orderId": fmt.Sprintf("%d", orderID),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+d.authToken)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("scraper returned status %d", resp.StatusCode)
	}
	return nil
}
