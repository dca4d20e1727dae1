package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "roster/pkg/domain"
)

func TestZeroValues(t *testing.T) {
	ctx := context.Background()
	assert.True(t, OperatorID(ctx).IsNil())
	assert.Empty(t, Role(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, RunID(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestRoundTrip(t *testing.T) {
	operator := id.OperatorID(uuid.New())
	run := id.RunID(uuid.New())
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	ctx := WithOperator(context.Background(), operator, "admin")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithRunID(ctx, run)
	ctx = WithTime(ctx, at)

	assert.Equal(t, operator, OperatorID(ctx))
	assert.Equal(t, "admin", Role(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, run.String(), RunID(ctx))
	assert.Equal(t, at, Now(ctx))
}
