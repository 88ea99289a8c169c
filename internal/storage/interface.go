package storage

import (
	"context"
	"io"
)

// Storage is the file boundary. The core never inspects file bytes; it
// stores them at upload time and hands the processor a fetchable URL.
type Storage interface {
	Put(ctx context.Context, key string, data io.Reader) error
	// URL returns a time-limited, externally fetchable URL for key.
	URL(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}
