package domain

import (
	"context"
	"io"
)

type StoredObject struct {
	Key  string
	URL  string
	Size int64
}

// ObjectStore holds document binaries and signature images.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (StoredObject, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}
