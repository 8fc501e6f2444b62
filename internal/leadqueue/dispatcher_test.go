package leadqueue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realtyleadsai/leadflow/internal/config"
)

func TestHTTPDispatcher_Dispatch(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	dispatcher := NewHTTPDispatcher(config.ScraperConfig{
		Endpoint:  server.URL,
		AuthToken: "token-123",
	})

	err := dispatcher.Dispatch(context.Background(), 987654)
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-123", gotAuth)
	assert.Equal(t, "987654", gotBody["orderId"])
}

func TestHTTPDispatcher_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	dispatcher := NewHTTPDispatcher(config.ScraperConfig{Endpoint: server.URL})
	assert.Error(t, dispatcher.Dispatch(context.Background(), 1))
}

func TestHTTPDispatcher_MissingEndpoint(t *testing.T) {
	dispatcher := NewHTTPDispatcher(config.ScraperConfig{})
	assert.Error(t, dispatcher.Dispatch(context.Background(), 1))
}
