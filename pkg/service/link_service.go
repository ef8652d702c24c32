package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"shortlink/pkg/logging"
	"shortlink/pkg/storage"
)

const DefaultInsertAttempts = 3

type Options struct {
	// ClickTimeout bounds each detached click increment.
	ClickTimeout time.Duration
	// InsertAttempts is how many allocate+insert rounds Create runs when
	// the store reports a duplicate id.
	InsertAttempts int
}

type LinkService struct {
	store          storage.LinkStore
	allocator      *Allocator
	resolver       *Resolver
	logger         *logging.Logger
	insertAttempts int
	now            func() time.Time
}

func NewLinkService(store storage.LinkStore, logger *logging.Logger, opts Options) *LinkService {
	if opts.InsertAttempts < 1 {
		opts.InsertAttempts = DefaultInsertAttempts
	}
	return &LinkService{
		store:          store,
		allocator:      NewAllocator(store, logger),
		resolver:       NewResolver(store, logger, opts.ClickTimeout),
		logger:         logger,
		insertAttempts: opts.InsertAttempts,
		now:            time.Now,
	}
}

// CreateLinkRequest is the body of POST /. URL is left untyped so a
// non-string value reads as an invalid URL rather than malformed JSON.
type CreateLinkRequest struct {
	URL any `json:"url"`
}

type CreateLinkResponse struct {
	ShortURL string `json:"shortUrl"`
	ID       string `json:"id"`
}

// CreateLink validates the URL, allocates an id and persists the link.
// A duplicate id on insert means another request won the check-then-insert
// race; the link is reallocated up to insertAttempts times.
func (s *LinkService) CreateLink(ctx context.Context, req *CreateLinkRequest) (*storage.Link, error) {
	longURL, err := s.validate(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		id, err := s.allocator.Allocate(ctx)
		if err != nil {
			return nil, fmt.Errorf("allocate id: %w", err)
		}

		link := &storage.Link{
			ID:        id,
			URL:       longURL,
			Clicks:    0,
			CreatedAt: s.now().UTC().Truncate(time.Millisecond),
		}
		err = s.store.Insert(ctx, link)
		if err == nil {
			s.logger.LogLinkOperation(ctx, "create", id, true)
			return link, nil
		}

		if !errors.Is(err, storage.ErrDuplicateKey) || attempt >= s.insertAttempts {
			s.logger.LogLinkOperation(ctx, "create", id, false)
			return nil, fmt.Errorf("insert link: %w", err)
		}
		s.logger.Warn(ctx, "id taken between check and insert, reallocating", "id", id, "attempt", attempt)
	}
}

func (s *LinkService) validate(ctx context.Context, raw any) (string, error) {
	if raw == nil {
		return "", ErrMissingURL
	}
	longURL, ok := raw.(string)
	if !ok {
		return "", ErrInvalidURL
	}
	if longURL == "" {
		return "", ErrMissingURL
	}

	valid := ValidateURL(longURL)
	scheme := ""
	if parsed, err := url.Parse(longURL); err == nil {
		scheme = parsed.Scheme
	}
	s.logger.LogURLValidation(ctx, valid, scheme)
	if !valid {
		return "", ErrInvalidURL
	}
	return longURL, nil
}

// Resolve returns the target for id and counts the click in the background.
func (s *LinkService) Resolve(ctx context.Context, id string) (string, error) {
	return s.resolver.Resolve(ctx, id)
}

// GetLink reads a link straight from the store without counting a click.
func (s *LinkService) GetLink(ctx context.Context, id string) (*storage.Link, error) {
	link, err := s.store.Lookup(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", id, err)
	}
	if link == nil {
		return nil, ErrNotFound
	}
	return link, nil
}

// Drain waits for in-flight click increments.
func (s *LinkService) Drain() {
	s.resolver.Wait()
}
