package ports

import "context"

// FileStorage stores generated documents.
type FileStorage interface {
	// Save writes data under key and returns the public URL.
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	URL(key string) string
}
