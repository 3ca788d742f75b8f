// Package inline holds fallback data URLs produced when a photo cannot be
// written to the object store.
package inline

import (
	"context"
	"errors"
	"strings"
)

// ErrQuotaExceeded is returned when a value does not fit the cache budget.
var ErrQuotaExceeded = errors.New("inline cache quota exceeded")

// Cache stores inline data URLs keyed by name.
type Cache interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}

// Key returns the slot used for an owner's fallback image of a generation.
// Slots are namespaced by owner so users never overwrite each other.
func Key(ownerID, generation string) string {
	return ownerID + "/ancestor-" + generation + "-image"
}

// namespace returns the owner part of a key, or "" for unscoped keys.
func namespace(key string) string {
	if i := strings.IndexByte(key, '/'); i >= 0 {
		return key[:i]
	}
	return ""
}
