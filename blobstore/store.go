package blobstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the requested key does not exist.
	ErrNotFound = errors.New("blob not found")

	// ErrUnavailable indicates the backing store could not serve the
	// request. Unavailability is retryable; the retry policy belongs to
	// the caller.
	ErrUnavailable = errors.New("blob storage unavailable")
)

// Store is a content-addressed blob store.
// Implementations must be thread-safe.
type Store interface {
	// Put writes data under key. Writing an existing key is a no-op
	// success: content-addressed keys guarantee the stored bytes already
	// match. A key never becomes visible partially written.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the bytes stored under key.
	// Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Has reports whether key exists without fetching its bytes.
	Has(ctx context.Context, key string) (bool, error)
}
