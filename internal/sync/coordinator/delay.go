package coordinator

import (
	"context"
	"time"
)

// DelayPolicy paces consecutive page fetches for one source. Wait returns
// ctx.Err() if the run is cancelled while waiting.
type DelayPolicy interface {
	Wait(ctx context.Context) error
}

// FixedDelay sleeps a constant duration between pages.
type FixedDelay time.Duration

func (d FixedDelay) Wait(ctx context.Context) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(d))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NoDelay never waits. Tests use it to keep runs instant.
type NoDelay struct{}

func (NoDelay) Wait(ctx context.Context) error {
	return ctx.Err()
}
