package cache

import (
	"context"
	"errors"
)

// ErrAccess marks a failure to read or write a cache tier. Callers treat it
// as transient and retry.
var ErrAccess = errors.New("cache access failed")

// EntryBytes is the estimated footprint of one pending entry, used to turn
// tier sizes in megabytes into entry counts.
const EntryBytes = 128

// Store maps a correlation id to the timestamp of its first occurrence.
// Remove reports whether the id was held.
type Store interface {
	Get(ctx context.Context, id string) (int64, bool, error)
	Put(ctx context.Context, id string, timestamp int64) error
	Remove(ctx context.Context, id string) (bool, error)
	Len(ctx context.Context) (int64, error)
}

// Tier is one storage level of a Tiered store. Remove reports whether the
// id was held by this tier.
type Tier interface {
	Name() string
	Get(ctx context.Context, id string) (int64, bool, error)
	Put(ctx context.Context, id string, timestamp int64) error
	Remove(ctx context.Context, id string) (bool, error)
	Len(ctx context.Context) (int64, error)
	Reset(ctx context.Context) error
}

// EntriesForMB converts a tier size in megabytes to a capacity in entries.
func EntriesForMB(mb int) int64 {
	return int64(mb) * 1024 * 1024 / EntryBytes
}
