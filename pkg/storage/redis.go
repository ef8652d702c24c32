package storage

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed scripts/insert_link.lua
var insertLinkScript string

//go:embed scripts/increment_clicks.lua
var incrementClicksScript string

var (
	insertLink      = redis.NewScript(insertLinkScript)
	incrementClicks = redis.NewScript(incrementClicksScript)
)

// RedisStore keeps each link in a hash at link:{id}. Insert and the
// click compare-and-set run as Lua scripts so each is atomic on the server.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func OpenRedis(ctx context.Context, redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w: %w", ErrUnavailable, err)
	}
	return NewRedisStore(client), nil
}

func linkKey(id string) string {
	return "link:" + id
}

func (s *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, linkKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("exists %q: %w: %w", id, ErrUnavailable, err)
	}
	return n == 1, nil
}

func (s *RedisStore) Insert(ctx context.Context, link *Link) error {
	createdAt := link.CreatedAt.UTC().Format(createdAtLayout)
	created, err := insertLink.Run(ctx, s.client, []string{linkKey(link.ID)}, link.URL, link.Clicks, createdAt).Int()
	if err != nil {
		return fmt.Errorf("insert %q: %w: %w", link.ID, ErrUnavailable, err)
	}
	if created == 0 {
		return fmt.Errorf("insert %q: %w", link.ID, ErrDuplicateKey)
	}
	return nil
}

func (s *RedisStore) Lookup(ctx context.Context, id string) (*Link, error) {
	fields, err := s.client.HGetAll(ctx, linkKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w: %w", id, ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	clicks, err := strconv.ParseInt(fields["clicks"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: bad clicks %q: %w", id, fields["clicks"], err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("lookup %q: bad created_at %q: %w", id, fields["created_at"], err)
	}
	return &Link{ID: id, URL: fields["url"], Clicks: clicks, CreatedAt: createdAt}, nil
}

func (s *RedisStore) IncrementClicks(ctx context.Context, id string, expectedClicks int64) error {
	err := incrementClicks.Run(ctx, s.client, []string{linkKey(id)}, strconv.FormatInt(expectedClicks, 10)).Err()
	if err != nil {
		return fmt.Errorf("increment %q: %w: %w", id, ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
