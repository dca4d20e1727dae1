package checkpoint_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"roster/internal/sync/checkpoint"
	"roster/pkg/platform/sentinel"
)

func TestRedisUnreachableIsUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	store := checkpoint.NewRedis(client, time.Minute)
	ctx := context.Background()

	_, err := store.Load(ctx, "evt-1")
	assert.True(t, errors.Is(err, sentinel.ErrUnavailable), "load: %v", err)
	assert.True(t, errors.Is(store.Save(ctx, "evt-1", 2), sentinel.ErrUnavailable))
	assert.True(t, errors.Is(store.Clear(ctx, "evt-1"), sentinel.ErrUnavailable))
}
