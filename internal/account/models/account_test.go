package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

func TestNewAccount(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	profile := Profile{DisplayName: "Ana Diaz", ExternalID: "att-1", SourceID: "evt-1", GroupLabel: "C2"}

	t.Run("builds student account", func(t *testing.T) {
		acct, err := NewAccount(id.NewAccountID(), "ana@example.com", "30111222", "hash", profile, now)
		require.NoError(t, err)
		assert.Equal(t, RoleStudent, acct.Role)
		assert.Equal(t, "C2", acct.GroupLabel)
		assert.Equal(t, now, acct.CreatedAt)
		assert.Equal(t, now, acct.UpdatedAt)
	})

	cases := map[string]struct {
		email, doc, hash string
	}{
		"missing email":    {"", "30111222", "hash"},
		"missing document": {"ana@example.com", "", "hash"},
		"missing hash":     {"ana@example.com", "30111222", ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewAccount(id.NewAccountID(), tc.email, tc.doc, tc.hash, profile, now)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		})
	}
}

func TestApplyProfile(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	acct, err := NewAccount(id.NewAccountID(), "ana@example.com", "30111222", "hash",
		Profile{DisplayName: "Ana", SourceID: "evt-1", GroupLabel: "C2"}, created)
	require.NoError(t, err)

	later := created.Add(time.Hour)
	acct.ApplyProfile(Profile{DisplayName: "Ana Diaz", ExternalID: "att-9", SourceID: "evt-2"}, later)

	assert.Equal(t, "Ana Diaz", acct.DisplayName)
	assert.Equal(t, "att-9", acct.ExternalID)
	assert.Equal(t, "evt-2", acct.SourceID)
	assert.Equal(t, "C2", acct.GroupLabel, "empty label keeps previous assignment")
	assert.Equal(t, "hash", acct.CredentialHash)
	assert.Equal(t, created, acct.CreatedAt)
	assert.Equal(t, later, acct.UpdatedAt)
}

func TestApplyProfileKeepsExternalID(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	acct, err := NewAccount(id.NewAccountID(), "ana@example.com", "30111222", "hash",
		Profile{DisplayName: "Ana", ExternalID: "att-1", SourceID: "evt-1"}, created)
	require.NoError(t, err)

	acct.ApplyProfile(Profile{DisplayName: "Ana Diaz", SourceID: "evt-1"}, created.Add(time.Minute))

	assert.Equal(t, "att-1", acct.ExternalID, "empty external id keeps the stored key")
	assert.Equal(t, "Ana Diaz", acct.DisplayName)
}
