package repo

import (
	"context"
	"errors"
)

// Fixed cache keys.
const (
	KeyGlobalConfig  = "key-global-config"
	KeyServiceConfig = "key-tested-server-config"
)

var ErrNotFound = errors.New("repo: key not found")

// Store is a durable key/value port. Values are opaque JSON bytes.
type Store interface {
	// Get returns ErrNotFound when the key has never been written.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
