// Package checkpoint remembers the last page dispatched per source so an
// interrupted run can resume where it stopped.
package checkpoint

import (
	"context"
	"time"
)

// DefaultTTL bounds how long a stale checkpoint can steer a resumed run.
const DefaultTTL = 24 * time.Hour

// Store persists the last dispatched page per source. Load returns 0 when
// nothing is recorded.
type Store interface {
	Load(ctx context.Context, sourceID string) (int, error)
	Save(ctx context.Context, sourceID string, page int) error
	Clear(ctx context.Context, sourceID string) error
}
