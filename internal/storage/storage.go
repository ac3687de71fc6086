package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage: key not found")

// Store is the persistent key-value facility the cart is mirrored into.
// Values are opaque bytes; Set overwrites wholesale.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
