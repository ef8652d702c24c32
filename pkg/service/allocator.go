package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"shortlink/pkg/logging"
	"shortlink/pkg/storage"
)

const (
	DefaultCodeLength     = 6
	DefaultMaxAttempts    = 10
	DefaultFallbackLength = 8
)

// ExistenceChecker is the slice of storage.LinkStore the allocator needs.
type ExistenceChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Allocator hands out identifiers that were free at the time of the check.
//
// Nothing is locked between the Exists call here and the caller's Insert,
// so two requests can both be handed the same id. The store's unique key
// rejects the second insert with storage.ErrDuplicateKey and the caller
// reallocates. The fallback id is returned without any check at all.
type Allocator struct {
	store          ExistenceChecker
	logger         *logging.Logger
	random         io.Reader
	Length         int
	MaxAttempts    int
	FallbackLength int
}

func NewAllocator(store ExistenceChecker, logger *logging.Logger) *Allocator {
	return &Allocator{
		store:          store,
		logger:         logger,
		random:         rand.Reader,
		Length:         DefaultCodeLength,
		MaxAttempts:    DefaultMaxAttempts,
		FallbackLength: DefaultFallbackLength,
	}
}

// Allocate returns an id not present in the store when checked. After
// MaxAttempts collisions it returns an unchecked FallbackLength id. A
// store error ends allocation immediately and wraps storage.ErrUnavailable.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= a.MaxAttempts; attempt++ {
		id, err := generateCode(a.random, a.Length)
		if err != nil {
			return "", fmt.Errorf("generate id: %w", err)
		}

		taken, err := a.store.Exists(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrUnavailable) {
				return "", fmt.Errorf("check id: %w", err)
			}
			return "", fmt.Errorf("check id: %w: %w", storage.ErrUnavailable, err)
		}
		if !taken {
			return id, nil
		}
		a.logger.Debug(ctx, "id collision", "id", id, "attempt", attempt)
	}

	// TODO: decide whether the fallback id should get one existence check
	// too; today a collision here only surfaces as a duplicate insert.
	id, err := generateCode(a.random, a.FallbackLength)
	if err != nil {
		return "", fmt.Errorf("generate fallback id: %w", err)
	}
	a.logger.Warn(ctx, "id space crowded, using unchecked fallback id",
		"attempts", a.MaxAttempts,
		"length", a.FallbackLength,
	)
	return id, nil
}
