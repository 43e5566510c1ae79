// Package kvstore provides the durable key-value store backing the offline
// action queue. Values must survive a process restart; callers serialize all
// mutations, so no locking beyond what the implementations need internally.
package kvstore

import (
	"context"
	"encoding/json"

	pkgerrors "github.com/fieldsafe/fieldsync/pkg/errors"
)

// Store persists opaque byte values under string keys.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set writes the value, replacing any previous one.
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes the key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Keys lists every stored key.
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// GetJSON reads and decodes a stored JSON value into out. A missing key
// returns (false, nil) without touching out.
func GetJSON(ctx context.Context, store Store, key string, out any) (bool, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "decoding stored value")
	}
	return true, nil
}

// SetJSON encodes the value as JSON and writes it under the key.
func SetJSON(ctx context.Context, store Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "encoding value")
	}
	return store.Set(ctx, key, raw)
}
