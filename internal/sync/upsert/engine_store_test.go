package upsert

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"roster/internal/account/store"
	"roster/internal/sync/extract"
	"roster/internal/sync/models"
	"roster/internal/sync/resolver"
	"roster/pkg/platform/secrets"
)

// syncOne runs the extract, resolve, upsert chain the coordinator uses.
func syncOne(t *testing.T, e *Engine, r *resolver.Resolver, reg models.Registrant) models.Outcome {
	t.Helper()
	ctx := context.Background()
	extracted := extract.Extract(reg, "q-doc", "q-group")
	existing, err := r.Resolve(ctx, reg.Email, reg.ExternalID, extracted.DocumentID)
	require.NoError(t, err)
	return e.Upsert(ctx, reg, extracted, existing)
}

func newStack(t *testing.T) (*Engine, *resolver.Resolver, *store.InMemory) {
	t.Helper()
	accounts := store.NewInMemory()
	e, err := New(accounts, secrets.NewHasher(bcrypt.MinCost),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return e, resolver.New(accounts), accounts
}

func docRegistrant(email, externalID, doc string) models.Registrant {
	return models.Registrant{
		ExternalID: externalID,
		SourceID:   "evt-1",
		FirstName:  "Ana",
		LastName:   "Diaz",
		Email:      email,
		Answers:    []models.Answer{{QuestionID: "q-doc", Answer: doc}},
	}
}

func TestIdempotence(t *testing.T) {
	e, r, accounts := newStack(t)
	reg := docRegistrant("ana@example.com", "att-1", "30111222")

	assert.Equal(t, models.StatusCreated, syncOne(t, e, r, reg).Status)
	assert.Equal(t, models.StatusUpdated, syncOne(t, e, r, reg).Status)
	assert.Equal(t, models.StatusUpdated, syncOne(t, e, r, reg).Status)

	n, err := accounts.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNoDuplicateIdentityForSharedEmail(t *testing.T) {
	e, r, accounts := newStack(t)

	first := syncOne(t, e, r, docRegistrant("ana@example.com", "att-1", "111"))
	second := syncOne(t, e, r, docRegistrant("ANA@example.com", "att-2", "222"))

	assert.Equal(t, models.StatusCreated, first.Status)
	assert.Equal(t, models.StatusUpdated, second.Status)
	assert.Equal(t, first.AccountID, second.AccountID)

	n, err := accounts.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPrecedenceFallsBackToExternalID(t *testing.T) {
	e, r, accounts := newStack(t)
	created := syncOne(t, e, r, docRegistrant("old@example.com", "att-1", "111"))

	moved := syncOne(t, e, r, docRegistrant("new@example.com", "att-1", "111"))

	assert.Equal(t, models.StatusUpdated, moved.Status)
	assert.Equal(t, created.AccountID, moved.AccountID)
	n, err := accounts.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCredentialStability(t *testing.T) {
	e, r, accounts := newStack(t)
	ctx := context.Background()

	syncOne(t, e, r, docRegistrant("ana@example.com", "att-1", "30111222"))
	before, err := accounts.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.NoError(t, secrets.Verify("30111222", before.CredentialHash))

	changed := docRegistrant("ana@example.com", "att-1", "30111222")
	changed.FirstName = "Ana María"
	out := syncOne(t, e, r, changed)
	require.Equal(t, models.StatusUpdated, out.Status)

	after, err := accounts.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana María Diaz", after.DisplayName)
	assert.Equal(t, before.CredentialHash, after.CredentialHash)
}

func TestUpdateKeepsExternalID(t *testing.T) {
	e, r, accounts := newStack(t)
	ctx := context.Background()

	syncOne(t, e, r, docRegistrant("ana@example.com", "att-1", "30111222"))
	out := syncOne(t, e, r, docRegistrant("ana@example.com", "", "30111222"))
	require.Equal(t, models.StatusUpdated, out.Status)

	stored, err := accounts.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "att-1", stored.ExternalID)

	byExternal, err := accounts.FindByExternalID(ctx, "att-1")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, byExternal.ID)
}

func TestSkipCorrectness(t *testing.T) {
	e, r, accounts := newStack(t)

	noDoc := docRegistrant("ana@example.com", "att-1", "")
	noDoc.Answers = []models.Answer{{QuestionID: "q-other", Answer: "301"}}
	out := syncOne(t, e, r, noDoc)
	assert.Equal(t, models.StatusSkipped, out.Status)
	assert.Equal(t, string(models.ReasonNoDocumentID), out.Reason)

	withheld := docRegistrant("bea@example.com", "att-2", "302")
	withheld.FirstName, withheld.LastName = "Info Requested", "Info Requested"
	out = syncOne(t, e, r, withheld)
	assert.Equal(t, models.StatusSkipped, out.Status)
	assert.Equal(t, string(models.ReasonInfoRequested), out.Reason)

	n, err := accounts.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
