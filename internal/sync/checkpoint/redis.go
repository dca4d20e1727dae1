package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"roster/pkg/platform/sentinel"
)

const checkpointKeyPrefix = "roster:sync:checkpoint:"

// Redis shares checkpoints across instances. Keys expire after ttl so an
// abandoned run does not pin future resumes forever.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Load(ctx context.Context, sourceID string) (int, error) {
	raw, err := r.client.Get(ctx, checkpointKeyPrefix+sourceID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load checkpoint %s: %w: %w", sourceID, sentinel.ErrUnavailable, err)
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse checkpoint %s: %w", sourceID, err)
	}
	return page, nil
}

// Save uses SET with expiry so the write and TTL refresh are atomic.
func (r *Redis) Save(ctx context.Context, sourceID string, page int) error {
	if err := r.client.Set(ctx, checkpointKeyPrefix+sourceID, page, r.ttl).Err(); err != nil {
		return fmt.Errorf("save checkpoint %s: %w: %w", sourceID, sentinel.ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context, sourceID string) error {
	if err := r.client.Del(ctx, checkpointKeyPrefix+sourceID).Err(); err != nil {
		return fmt.Errorf("clear checkpoint %s: %w: %w", sourceID, sentinel.ErrUnavailable, err)
	}
	return nil
}
