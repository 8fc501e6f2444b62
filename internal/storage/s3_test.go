package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/realtyleadsai/leadflow/internal/config"
)

// The store must resolve against the value-typed Config the config module
// provides, like every other constructor in the graph.
func TestModuleResolvesInGraph(t *testing.T) {
	err := fx.ValidateApp(
		fx.Provide(func() config.Config {
			var cfg config.Config
			cfg.Storage.Bucket = "leads"
			return cfg
		}),
		fx.Provide(zap.NewNop),
		Module,
		fx.Invoke(func(ObjectStore) {}),
	)
	require.NoError(t, err)
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name  string
		store S3Store
		key   string
		want  string
	}{
		{
			name:  "public base url wins",
			store: S3Store{bucket: "leads", publicBaseURL: "https://cdn.example.com", endpointURL: "https://minio.internal:9000"},
			key:   "deliveries/austin/x/leads.pdf",
			want:  "https://cdn.example.com/deliveries/austin/x/leads.pdf",
		},
		{
			name:  "custom endpoint uses path style",
			store: S3Store{bucket: "leads", endpointURL: "https://minio.internal:9000"},
			key:   "deliveries/austin/x/leads.csv",
			want:  "https://minio.internal:9000/leads/deliveries/austin/x/leads.csv",
		},
		{
			name:  "plain aws falls back to virtual host",
			store: S3Store{bucket: "leads"},
			key:   "deliveries/austin/x/leads.pdf",
			want:  "https://leads.s3.amazonaws.com/deliveries/austin/x/leads.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.store.publicURL(tt.key); got != tt.want {
				t.Fatalf("publicURL(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
