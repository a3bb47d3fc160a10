package scraper

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisVisited keeps a crawl's visited set in a Redis set so that several
// workers can share one crawl. SADD is atomic on the server, which gives
// Claim its test-and-set semantics.
type RedisVisited struct {
	client redis.UniversalClient
	key    string
}

var _ VisitedSet = (*RedisVisited)(nil)

// NewRedisVisited binds a visited set to the given crawl ID.
func NewRedisVisited(client redis.UniversalClient, crawlID string) *RedisVisited {
	return &RedisVisited{
		client: client,
		key:    "gleaner:visited:" + crawlID,
	}
}

// Key returns the Redis key holding the set.
func (r *RedisVisited) Key() string {
	return r.key
}

func (r *RedisVisited) Claim(ctx context.Context, url string) (bool, error) {
	added, err := r.client.SAdd(ctx, r.key, url).Result()
	if err != nil {
		return false, fmt.Errorf("redis sadd failure: %w", err)
	}
	return added == 1, nil
}

func (r *RedisVisited) Seen(ctx context.Context, url string) (bool, error) {
	ok, err := r.client.SIsMember(ctx, r.key, url).Result()
	if err != nil {
		return false, fmt.Errorf("redis sismember failure: %w", err)
	}
	return ok, nil
}

func (r *RedisVisited) Len(ctx context.Context) (int, error) {
	n, err := r.client.SCard(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis scard failure: %w", err)
	}
	return int(n), nil
}

// Close discards the set. Crawl state never outlives its crawl.
func (r *RedisVisited) Close(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis del failure: %w", err)
	}
	return nil
}
