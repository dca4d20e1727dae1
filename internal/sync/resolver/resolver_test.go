package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/account/models"
	"roster/internal/account/store"
	id "roster/pkg/domain"
	"roster/pkg/platform/sentinel"
)

func seed(t *testing.T, s *store.InMemory, email, doc, externalID string) *models.Account {
	t.Helper()
	a, err := models.NewAccount(id.NewAccountID(), email, doc, "hash", models.Profile{ExternalID: externalID}, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Create(context.Background(), a))
	return a
}

func TestResolvePrecedence(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()
	byEmail := seed(t, s, "ana@example.com", "111", "att-1")
	byExternal := seed(t, s, "bea@example.com", "222", "att-2")
	byDocument := seed(t, s, "cid@example.com", "333", "")
	r := New(s)

	t.Run("email wins over every other key", func(t *testing.T) {
		got, err := r.Resolve(ctx, " ANA@example.com", "att-2", "333")
		require.NoError(t, err)
		assert.Equal(t, byEmail.ID, got.ID)
	})

	t.Run("external id is used when email is unknown", func(t *testing.T) {
		got, err := r.Resolve(ctx, "changed@example.com", "att-2", "333")
		require.NoError(t, err)
		assert.Equal(t, byExternal.ID, got.ID)
	})

	t.Run("document id is the last resort", func(t *testing.T) {
		got, err := r.Resolve(ctx, "new@example.com", "att-99", " 333 ")
		require.NoError(t, err)
		assert.Equal(t, byDocument.ID, got.ID)
	})

	t.Run("no match", func(t *testing.T) {
		got, err := r.Resolve(ctx, "new@example.com", "att-99", "999")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("all keys empty", func(t *testing.T) {
		got, err := r.Resolve(ctx, "", "", "")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

type failingFinder struct {
	*store.InMemory
	err error
}

func (f failingFinder) FindByExternalID(context.Context, string) (*models.Account, error) {
	return nil, f.err
}

func TestResolveStoreFailure(t *testing.T) {
	boom := errors.New("connection reset")
	r := New(failingFinder{InMemory: store.NewInMemory(), err: boom})

	_, err := r.Resolve(context.Background(), "new@example.com", "att-1", "111")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "external_id")

	r = New(failingFinder{InMemory: store.NewInMemory(), err: sentinel.ErrNotFound})
	got, err := r.Resolve(context.Background(), "new@example.com", "att-1", "111")
	require.NoError(t, err)
	assert.Nil(t, got)
}
