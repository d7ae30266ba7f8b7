package sigstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKey = "solmirror:processed-signatures"

// Redis is the durable Store. Signatures live in one sorted set scored by
// observation time, so pruning is a range delete and restarts do not replay
// already-copied trades.
type Redis struct {
	client *redis.Client
}

func NewRedis(redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

// NewRedisWithClient wraps an existing client (used by tests).
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Seen(ctx context.Context, signature string) (bool, error) {
	err := r.client.ZScore(ctx, redisKey, signature).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sigstore seen: %w", err)
	}
	return true, nil
}

func (r *Redis) Record(ctx context.Context, signature string, observedAt time.Time) error {
	// ZAddNX keeps the original observation time on duplicate records
	err := r.client.ZAddNX(ctx, redisKey, redis.Z{
		Score:  float64(observedAt.Unix()),
		Member: signature,
	}).Err()
	if err != nil {
		return fmt.Errorf("sigstore record: %w", err)
	}
	return nil
}

func (r *Redis) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	max := fmt.Sprintf("(%d", cutoff.Unix())
	removed, err := r.client.ZRemRangeByScore(ctx, redisKey, "-inf", max).Result()
	if err != nil {
		return 0, fmt.Errorf("sigstore prune: %w", err)
	}
	return int(removed), nil
}

func (r *Redis) Len(ctx context.Context) (int, error) {
	n, err := r.client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("sigstore len: %w", err)
	}
	return int(n), nil
}
