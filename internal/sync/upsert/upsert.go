// Package upsert turns one extracted registrant into a created, updated,
// skipped or error outcome.
package upsert

//go:generate mockgen -source=upsert.go -destination=mocks/mocks.go -package=mocks AccountStore,CredentialHasher,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	account "roster/internal/account/models"
	"roster/internal/sync/metrics"
	"roster/internal/sync/models"
	id "roster/pkg/domain"
	"roster/pkg/email"
	audit "roster/pkg/platform/audit"
	"roster/pkg/platform/sentinel"
	pstrings "roster/pkg/platform/strings"
	"roster/pkg/requestcontext"
)

// AccountStore is the write side of the account store.
type AccountStore interface {
	Create(ctx context.Context, a *account.Account) error
	Update(ctx context.Context, a *account.Account) error
}

type CredentialHasher interface {
	Hash(secret string) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Engine applies the upsert rules. Safe for concurrent use.
type Engine struct {
	accounts       AccountStore
	hasher         CredentialHasher
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(e *Engine) {
		e.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func New(accounts AccountStore, hasher CredentialHasher, opts ...Option) (*Engine, error) {
	if accounts == nil {
		return nil, errors.New("account store is required")
	}
	if hasher == nil {
		return nil, errors.New("credential hasher is required")
	}
	e := &Engine{accounts: accounts, hasher: hasher, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Upsert never returns an error: every failure becomes an error outcome for
// this registrant alone.
//
// Rules, first match wins:
//  1. extracted carries a skip reason -> skipped with that reason
//  2. no document id -> skipped, no_document_id
//  3. existing account -> profile fields updated, credential untouched
//  4. otherwise -> new student account, credential = hash(document id)
func (e *Engine) Upsert(ctx context.Context, reg models.Registrant, extracted models.ExtractedIdentity, existing *account.Account) models.Outcome {
	if e.metrics != nil {
		defer e.metrics.ObserveUpsert(time.Now())
	}
	identifier := reg.Identifier()

	if extracted.SkipReason != "" {
		return models.Skipped(identifier, reg.SourceID, extracted.SkipReason)
	}
	if extracted.DocumentID == "" {
		return models.Skipped(identifier, reg.SourceID, models.ReasonNoDocumentID)
	}

	profile := account.Profile{
		DisplayName: DisplayName(reg),
		ExternalID:  strings.TrimSpace(reg.ExternalID),
		SourceID:    reg.SourceID,
		GroupLabel:  extracted.GroupLabel,
	}

	if existing != nil {
		return e.update(ctx, identifier, existing, profile)
	}
	return e.create(ctx, identifier, reg, extracted.DocumentID, profile)
}

func (e *Engine) update(ctx context.Context, identifier string, existing *account.Account, profile account.Profile) models.Outcome {
	next := *existing
	next.ApplyProfile(profile, requestcontext.Now(ctx))

	if err := e.accounts.Update(ctx, &next); err != nil {
		return e.persistFailure(ctx, identifier, profile.SourceID, "update", err)
	}

	e.emit(ctx, audit.EventAccountUpdated, next.ID, identifier, profile.SourceID)
	return models.Updated(identifier, profile.SourceID, next.ID)
}

func (e *Engine) create(ctx context.Context, identifier string, reg models.Registrant, documentID string, profile account.Profile) models.Outcome {
	addr := pstrings.NormalizeEmail(reg.Email)
	if addr == "" {
		return models.Failed(identifier, profile.SourceID, models.ReasonMissingEmail)
	}

	hash, err := e.hasher.Hash(documentID)
	if err != nil {
		e.logger.ErrorContext(ctx, "credential hash failed",
			"source_id", profile.SourceID,
			"identifier", identifier,
			"error", err,
		)
		return models.Failed(identifier, profile.SourceID, models.ReasonCredentialFailed)
	}

	acct, err := account.NewAccount(id.NewAccountID(), addr, documentID, hash, profile, requestcontext.Now(ctx))
	if err != nil {
		return e.persistFailure(ctx, identifier, profile.SourceID, "build", err)
	}
	if err := e.accounts.Create(ctx, acct); err != nil {
		return e.persistFailure(ctx, identifier, profile.SourceID, "create", err)
	}

	if e.metrics != nil {
		e.metrics.IncrementAccountsCreated()
	}
	e.emit(ctx, audit.EventAccountCreated, acct.ID, identifier, profile.SourceID)
	return models.Created(identifier, profile.SourceID, acct.ID)
}

func (e *Engine) persistFailure(ctx context.Context, identifier, sourceID, op string, err error) models.Outcome {
	reason := models.ReasonPersistenceFailed
	if errors.Is(err, sentinel.ErrConflict) {
		reason = models.ReasonIdentityConflict
	}
	e.logger.WarnContext(ctx, "account "+op+" failed",
		"source_id", sourceID,
		"identifier", identifier,
		"reason", reason,
		"error", err,
	)
	return models.Failed(identifier, sourceID, reason)
}

// emit logs the audit line and publishes it. Failures never change the outcome.
func (e *Engine) emit(ctx context.Context, event audit.AuditEvent, accountID id.AccountID, identifier, sourceID string) {
	requestID := requestcontext.RequestID(ctx)
	e.logger.InfoContext(ctx, string(event),
		"account_id", accountID.String(),
		"source_id", sourceID,
		"request_id", requestID,
		"event", string(event),
		"log_type", "audit",
	)
	if e.auditPublisher == nil {
		return
	}
	err := e.auditPublisher.Emit(ctx, audit.Event{
		AccountID: accountID,
		Subject:   identifier,
		Action:    string(event),
		SourceID:  sourceID,
		RunID:     requestcontext.RunID(ctx),
		RequestID: requestID,
		ActorID:   operatorString(ctx),
	})
	if err != nil {
		e.logger.WarnContext(ctx, "audit emit failed", "event", string(event), "error", err)
	}
}

// DisplayName prefers the feed's full name, then first and last, then a
// name derived from the email.
func DisplayName(reg models.Registrant) string {
	if n := strings.TrimSpace(reg.Name); n != "" {
		return n
	}
	if n := strings.TrimSpace(strings.TrimSpace(reg.FirstName) + " " + strings.TrimSpace(reg.LastName)); n != "" {
		return n
	}
	return email.DisplayNameFromEmail(pstrings.NormalizeEmail(reg.Email))
}

func operatorString(ctx context.Context) string {
	if op := requestcontext.OperatorID(ctx); !op.IsNil() {
		return op.String()
	}
	return ""
}
