package service

import (
	"context"
	"errors"
	"sync"

	"shortlink/pkg/storage"
)

var errBoom = errors.New("connection refused")

// fakeStore wraps a MemoryStore and lets tests force collisions and
// failures on individual operations.
type fakeStore struct {
	*storage.MemoryStore

	mu             sync.Mutex
	existsCalls    int
	checked        []string
	collideFirst   int
	existsErr      error
	insertErrs     []error
	inserted       []string
	lookupErr      error
	incrementErr   error
	incrementPanic bool
	incrementCalls int
	incrementGate  chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{MemoryStore: storage.NewMemoryStore()}
}

func (f *fakeStore) Exists(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	f.existsCalls++
	f.checked = append(f.checked, id)
	calls, err := f.existsCalls, f.existsErr
	f.mu.Unlock()

	if err != nil {
		return false, err
	}
	if calls <= f.collideFirst {
		return true, nil
	}
	return f.MemoryStore.Exists(ctx, id)
}

func (f *fakeStore) Insert(ctx context.Context, link *storage.Link) error {
	f.mu.Lock()
	f.inserted = append(f.inserted, link.ID)
	var err error
	if len(f.insertErrs) > 0 {
		err, f.insertErrs = f.insertErrs[0], f.insertErrs[1:]
	}
	f.mu.Unlock()

	if err != nil {
		return err
	}
	return f.MemoryStore.Insert(ctx, link)
}

func (f *fakeStore) Lookup(ctx context.Context, id string) (*storage.Link, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.MemoryStore.Lookup(ctx, id)
}

func (f *fakeStore) IncrementClicks(ctx context.Context, id string, expected int64) error {
	f.mu.Lock()
	f.incrementCalls++
	gate := f.incrementGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.incrementPanic {
		panic("store exploded")
	}
	if f.incrementErr != nil {
		return f.incrementErr
	}
	return f.MemoryStore.IncrementClicks(ctx, id, expected)
}
