package storage

import (
	"context"
	"io"
	"time"
)

// UploadInput describes one object write.
type UploadInput struct {
	Key         string
	Body        io.Reader
	ContentType string
	SizeBytes   int64
}

// ObjectStore is the durable-storage port: append-only writes to new keys,
// indefinite stable reads. Implementations must tolerate concurrent writes
// to distinct keys.
type ObjectStore interface {
	// Upload writes a new object and returns its stable access URL.
	Upload(ctx context.Context, in UploadInput) (string, error)
	// Download reads an object back by key.
	Download(ctx context.Context, key string) ([]byte, error)
	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// SignedURL returns a time-limited access URL for private buckets.
	SignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
	// Health verifies the backend is reachable.
	Health(ctx context.Context) error
}
