package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "roster/pkg/domain"
	audit "roster/pkg/platform/audit"
	"roster/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	accountID := id.NewAccountID()
	err := pub.Emit(context.Background(), audit.Event{
		AccountID: accountID,
		Action:    string(audit.EventAccountCreated),
	})
	require.NoError(t, err)

	events, err := store.ListByAccount(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	accountID := id.NewAccountID()
	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{
			AccountID: accountID,
			Action:    string(audit.EventAccountUpdated),
		}))
	}

	pub.Close()

	events, err := store.ListByAccount(context.Background(), accountID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

type blockingStore struct {
	release chan struct{}
}

func (b *blockingStore) Append(context.Context, audit.Event) error {
	<-b.release
	return nil
}

func TestPublisher_BufferFull(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	pub := NewPublisher(store, WithAsyncBuffer(1))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var full int
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventAccountUpdated)})
			if errors.Is(err, ErrBufferFull) {
				mu.Lock()
				full++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Positive(t, full, "a one-slot buffer behind a stuck store must reject some events")
	close(store.release)
	pub.Close()
}

func TestPublisher_Timestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	before := time.Now()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventSyncRunCompleted)}))
	custom := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventSyncRunCompleted), Timestamp: custom}))

	events, err := store.ListByAction(context.Background(), audit.EventSyncRunCompleted)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.False(t, events[0].Timestamp.Before(before))
	assert.Equal(t, custom, events[1].Timestamp)
	assert.Equal(t, audit.CategoryOperations, events[1].Category)
}
