package artifact

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realtyleadsai/leadflow/internal/config"
	"github.com/realtyleadsai/leadflow/internal/order/domain"
)

func TestSheetsClient_Enabled(t *testing.T) {
	assert.False(t, (*SheetsClient)(nil).Enabled())
	assert.False(t, NewSheetsClient(config.SheetsConfig{}).Enabled())
	assert.True(t, NewSheetsClient(config.SheetsConfig{Endpoint: "https://sheets.internal/create"}).Enabled())
}

func TestCreateLeadSheet(t *testing.T) {
	var gotAuth string
	var gotReq createSheetRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(createSheetResponse{URL: "https://docs.example.com/sheet/1"})
	}))
	defer server.Close()

	client := NewSheetsClient(config.SheetsConfig{
		Endpoint:  server.URL,
		AuthToken: "svc-token",
		FolderID:  "folder-9",
	})

	seller := "Dana Brooks"
	leads := []domain.Lead{
		{Address: "100 Main St", City: "Austin", State: "TX", SellerName: &seller},
	}

	url, err := client.CreateLeadSheet(context.Background(), &domain.Order{ID: snowflake.ID(55), City: "Austin"}, leads)
	require.NoError(t, err)
	assert.Equal(t, "https://docs.example.com/sheet/1", url)

	assert.Equal(t, "Bearer svc-token", gotAuth)
	assert.Equal(t, "Seller Leads - Austin - Order 55", gotReq.Title)
	assert.Equal(t, "folder-9", gotReq.FolderID)
	assert.Equal(t, exportColumns, gotReq.Header)
	require.Len(t, gotReq.Rows, 1)
	assert.Equal(t, "100 Main St", gotReq.Rows[0][0])
	assert.Equal(t, "Dana Brooks", gotReq.Rows[0][4])
}

func TestCreateLeadSheet_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewSheetsClient(config.SheetsConfig{Endpoint: server.URL})
	_, err := client.CreateLeadSheet(context.Background(), &domain.Order{City: "Austin"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestCreateLeadSheet_MissingURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewSheetsClient(config.SheetsConfig{Endpoint: server.URL})
	_, err := client.CreateLeadSheet(context.Background(), &domain.Order{City: "Austin"}, nil)
	assert.Error(t, err)
}
