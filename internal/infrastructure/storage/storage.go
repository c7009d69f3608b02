// Package storage persists generated documents on local disk or in an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/partpulse/partpulse/internal/core/ports"
)

const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("storage: object not found")

// ErrInvalidKey is returned for empty keys and keys escaping the base path.
var ErrInvalidKey = errors.New("storage: invalid key")

type Config struct {
	Provider  string
	LocalPath string
	PublicURL string

	S3 S3Config
}

// New builds the provider named by cfg.Provider.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (ports.FileStorage, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderLocal:
		return NewLocal(cfg.LocalPath, cfg.PublicURL)
	case ProviderS3:
		return NewS3(ctx, cfg.S3, log)
	default:
		return nil, fmt.Errorf("storage: unknown provider %q", cfg.Provider)
	}
}

// cleanKey normalises a storage key to a relative slash path.
func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.ReplaceAll(key, "\\", "/"), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
