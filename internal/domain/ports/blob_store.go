package ports

import "context"

// BlobStore is the key-value store holding saved state, backups and custom templates
type BlobStore interface {
	// Get returns (nil, nil) when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// List returns the keys starting with prefix, sorted ascending.
	List(ctx context.Context, prefix string) ([]string, error)
}
