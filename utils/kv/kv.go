// Package kv defines an interface for key-value store.
package kv

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by buckets when a key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// Bucket defines basic CRUD operations for key-value pairs in a single "namespace."
type Bucket interface {
	// Get returns the value for k.
	// An error wrapping ErrKeyNotFound is returned if k does not exist.
	Get(ctx context.Context, k string) (v []byte, err error)
	Set(ctx context.Context, k string, v []byte) error
	Has(ctx context.Context, k string) (found bool, err error)
	Delete(ctx context.Context, k string) error
}
