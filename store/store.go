// Package store defines the backing document store interface and implementations.
package store

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a store that has been closed.
var ErrClosed = errors.New("store: closed")

// Store is the interface that all backing stores must implement.
// A Store holds a single document: a mapping from top-level key to a
// JSON-compatible value. Values are copied on the way in and out, so
// callers never share memory with the store.
type Store interface {
	// Get returns the requested keys that exist. With no keys it returns
	// the entire document.
	Get(ctx context.Context, keys ...string) (map[string]any, error)

	// Set writes every entry of items, replacing existing values.
	Set(ctx context.Context, items map[string]any) error

	// Remove deletes keys. Missing keys are ignored.
	Remove(ctx context.Context, keys ...string) error

	// Clear erases the whole document.
	Clear(ctx context.Context) error

	// Subscribe registers l for change batches. Batches arrive in the
	// order their writes landed, one at a time, though possibly on another
	// writer's goroutine. The returned func cancels the subscription.
	Subscribe(l Listener) (cancel func())

	// Close releases any resources held by the store.
	Close() error
}

// Change describes one key's transition inside a ChangeSet. OldValue is
// nil when the key was created and NewValue is nil when it was removed.
type Change struct {
	OldValue any `json:"oldValue"`
	NewValue any `json:"newValue"`
}

// ChangeSet is one batch of changes keyed by top-level key.
type ChangeSet map[string]Change

// Listener receives change batches after they have been written.
type Listener func(ChangeSet)
