package storage

import (
	"context"
	"errors"
)

var (
	// ErrDuplicateKey is returned by Insert when the id is already taken.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrUnavailable wraps any failure to reach the backing store.
	ErrUnavailable = errors.New("store unavailable")
)

// LinkStore is the persistence contract the service layer consumes.
// Implementations must give read-your-writes for a single id: a Lookup
// after a successful Insert of the same id observes it.
type LinkStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	Insert(ctx context.Context, link *Link) error
	// Lookup returns (nil, nil) when no link has the id.
	Lookup(ctx context.Context, id string) (*Link, error)
	// IncrementClicks sets clicks to expectedClicks+1 only if the stored
	// value still equals expectedClicks. Losing that race is not an error.
	IncrementClicks(ctx context.Context, id string, expectedClicks int64) error
}

// Backend is a LinkStore that owns a connection and must be closed.
type Backend interface {
	LinkStore
	Close() error
}
