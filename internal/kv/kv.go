// Package kv provides the key-value persistence boundary under the local
// idea store: a value per fixed key, read and written whole.
package kv

import (
	"context"
	"errors"
	"regexp"
)

// Errors returned by every Store implementation.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrInvalidKey  = errors.New("invalid key")
	ErrClosed      = errors.New("kv store is closed")
)

// Store holds byte values addressed by string keys. Set replaces the whole
// value atomically: a concurrent Get sees either the old or the new value.
type Store interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing an absent key succeeds.
	Remove(ctx context.Context, key string) error

	// Close releases resources. Idempotent.
	Close() error
}

// validKey limits keys to names that are safe as file names.
var validKey = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// CheckKey returns ErrInvalidKey if key cannot be stored by every backend.
func CheckKey(key string) error {
	if !validKey.MatchString(key) {
		return ErrInvalidKey
	}
	return nil
}
