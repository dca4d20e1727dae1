// Package resolver finds the local account a registrant already maps to.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"roster/internal/account/models"
	"roster/pkg/platform/sentinel"
	pstrings "roster/pkg/platform/strings"
)

// AccountFinder is the read side of the account store.
type AccountFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Account, error)
	FindByDocumentID(ctx context.Context, documentID string) (*models.Account, error)
}

type strategy struct {
	key    string
	lookup func(ctx context.Context, value string) (*models.Account, error)
}

// Resolver tries identity keys in precedence order: email, external id,
// document id. The first hit wins.
type Resolver struct {
	strategies []strategy
}

func New(finder AccountFinder) *Resolver {
	return &Resolver{strategies: []strategy{
		{key: "email", lookup: finder.FindByEmail},
		{key: "external_id", lookup: finder.FindByExternalID},
		{key: "document_id", lookup: finder.FindByDocumentID},
	}}
}

// Resolve returns (nil, nil) when no key matches. Empty keys are not looked
// up. Any store error other than not-found aborts resolution.
func (r *Resolver) Resolve(ctx context.Context, email, externalID, documentID string) (*models.Account, error) {
	values := []string{
		pstrings.NormalizeEmail(email),
		strings.TrimSpace(externalID),
		strings.TrimSpace(documentID),
	}
	for i, s := range r.strategies {
		if values[i] == "" {
			continue
		}
		account, err := s.lookup(ctx, values[i])
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve by %s: %w", s.key, err)
		}
		if account != nil {
			return account, nil
		}
	}
	return nil, nil
}
