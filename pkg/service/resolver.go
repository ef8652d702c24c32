package service

import (
	"context"
	"fmt"
	"time"

	"shortlink/pkg/logging"
	"shortlink/pkg/storage"

	"github.com/sourcegraph/conc"
)

const DefaultClickTimeout = 5 * time.Second

// Resolver turns an id into its target URL and counts the click on the
// side. Counting is best effort: it runs detached from the request, its
// failures are only logged, and concurrent clicks on one id may be lost.
type Resolver struct {
	store        storage.LinkStore
	logger       *logging.Logger
	clickTimeout time.Duration
	clicks       conc.WaitGroup
}

func NewResolver(store storage.LinkStore, logger *logging.Logger, clickTimeout time.Duration) *Resolver {
	if clickTimeout <= 0 {
		clickTimeout = DefaultClickTimeout
	}
	return &Resolver{store: store, logger: logger, clickTimeout: clickTimeout}
}

func (r *Resolver) Resolve(ctx context.Context, id string) (string, error) {
	link, err := r.store.Lookup(ctx, id)
	if err != nil {
		return "", fmt.Errorf("lookup %q: %w", id, err)
	}
	if link == nil {
		return "", ErrNotFound
	}

	r.countClick(ctx, id, link.Clicks)
	return link.URL, nil
}

// countClick must not block the caller and must survive the request
// context being canceled once the redirect is written.
func (r *Resolver) countClick(ctx context.Context, id string, seen int64) {
	detached := context.WithoutCancel(ctx)
	r.clicks.Go(func() {
		ctx, cancel := context.WithTimeout(detached, r.clickTimeout)
		defer cancel()
		if err := r.store.IncrementClicks(ctx, id, seen); err != nil {
			r.logger.Warn(ctx, "click increment failed", "id", id, "error", err)
		}
	})
}

// Wait blocks until every pending click increment has finished. It is
// meant for shutdown and tests; request handling never calls it.
func (r *Resolver) Wait() {
	if recovered := r.clicks.WaitAndRecover(); recovered != nil {
		r.logger.Error(context.Background(), "click increment panicked", "panic", recovered.String())
	}
}
