package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docsign/internal/config"
	"docsign/internal/domain"
)

const (
	BackendLocal  = "local"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

func NewFromConfig(ctx context.Context, cfg config.Config) (domain.ObjectStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StorageBackend)) {
	case "", BackendLocal:
		return NewLocalStore(cfg.StorageLocalDir, cfg.StoragePublicBaseURL)
	case BackendMemory:
		return NewMemoryStore(cfg.StoragePublicBaseURL), nil
	case BackendS3:
		return NewS3StoreFromConfig(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

var errEmptyKey = errors.New("object key is required")

func validKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errEmptyKey
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("invalid object key %q", key)
	}
	return nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
