// Package kv is the persistence boundary of alive: a small set of named slots,
// each holding one serialized document plus a revision counter.
//
// Writers use Put with the revision they read. A write whose revision no longer
// matches is rejected with ErrConflict, which turns every read-modify-write
// cycle into a compare-and-swap that is safe across processes.
package kv

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("slot not found")
	ErrConflict = errors.New("slot revision conflict")
)

// Item is the content of one slot. Revision is 0 for an absent slot. Every
// Put and every Delete raises a slot's revision, and a deleted slot keeps its
// last revision, so a revision read before a delete never matches again.
type Item struct {
	Value    []byte
	Revision int64
}

// Store is implemented by SQLiteStore (production) and MemStore (tests).
type Store interface {
	// Get returns ErrNotFound when the slot is absent.
	Get(ctx context.Context, key string) (Item, error)
	// Put writes value when the slot's current revision equals revision
	// (0 meaning "must not exist yet", which a deleted slot satisfies) and
	// returns the new revision.
	Put(ctx context.Context, key string, value []byte, revision int64) (int64, error)
	// Delete removes the given slots. Missing slots are ignored.
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
