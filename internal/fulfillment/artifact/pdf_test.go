package artifact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realtyleadsai/leadflow/internal/config"
	"github.com/realtyleadsai/leadflow/internal/order/domain"
)

func TestBuildPDFReport(t *testing.T) {
	cfg := config.DefaultDeliveryConfig()
	generatedAt := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	leads := make([]domain.Lead, 60)
	for i := range leads {
		leads[i] = domain.Lead{Address: "100 Main St", City: "Austin", State: "TX"}
	}

	data, err := BuildPDFReport(cfg, testOrder(), leads, generatedAt)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestChunkLeads(t *testing.T) {
	leads := make([]domain.Lead, 7)

	chunks := chunkLeads(leads, 3)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 3)
	assert.Len(t, chunks[1], 3)
	assert.Len(t, chunks[2], 1)

	assert.Empty(t, chunkLeads(nil, 3))
}
