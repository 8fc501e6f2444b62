package storage

import (
	"context"
	"io"
)

// ObjectStore persists generated artifacts and returns a reference a
// customer can download from.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}
