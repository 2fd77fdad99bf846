// Package kv is the service's view of its key-value store: an opaque
// async map with atomic single-key operations. Nothing in the service
// assumes transactions or read-after-write consistency beyond a single
// key.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("kv: key not found")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error

	// PutIfAbsent writes the value only when the key does not exist yet
	// and reports whether this call won. It is the only coordination
	// primitive concurrent writers get.
	PutIfAbsent(ctx context.Context, key, value string) (bool, error)
}
