package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"roster/internal/account/models"
	id "roster/pkg/domain"
	"roster/pkg/platform/sentinel"
)

// InMemory is a thread-safe account store with unique secondary indexes.
type InMemory struct {
	mu           sync.RWMutex
	accounts     map[id.AccountID]*models.Account
	byEmail      map[string]id.AccountID
	byExternalID map[string]id.AccountID
	byDocumentID map[string]id.AccountID
}

func NewInMemory() *InMemory {
	return &InMemory{
		accounts:     make(map[id.AccountID]*models.Account),
		byEmail:      make(map[string]id.AccountID),
		byExternalID: make(map[string]id.AccountID),
		byDocumentID: make(map[string]id.AccountID),
	}
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	return s.findBy(s.byEmail, email)
}

func (s *InMemory) FindByExternalID(_ context.Context, externalID string) (*models.Account, error) {
	return s.findBy(s.byExternalID, externalID)
}

func (s *InMemory) FindByDocumentID(_ context.Context, documentID string) (*models.Account, error) {
	return s.findBy(s.byDocumentID, documentID)
}

func (s *InMemory) findBy(index map[string]id.AccountID, key string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if key == "" {
		return nil, sentinel.ErrNotFound
	}
	accountID, ok := index[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.accounts[accountID]), nil
}

// Create inserts a new account. Any identity key already claimed yields ErrConflict.
func (s *InMemory) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.ID]; exists {
		return fmt.Errorf("account %s: %w", account.ID, sentinel.ErrConflict)
	}
	if err := s.checkUnique(account); err != nil {
		return err
	}
	s.put(clone(account))
	return nil
}

// Update persists profile fields. The stored credential hash and creation
// time are preserved regardless of what the caller passes in.
func (s *InMemory) Update(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[account.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if err := s.checkUnique(account); err != nil {
		return err
	}

	s.unindex(current)
	next := clone(account)
	next.CredentialHash = current.CredentialHash
	next.CreatedAt = current.CreatedAt
	next.Role = current.Role
	s.put(next)
	return nil
}

func (s *InMemory) ListBySources(_ context.Context, sourceIDs []string) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		if len(sourceIDs) == 0 || slices.Contains(sourceIDs, a.SourceID) {
			out = append(out, clone(a))
		}
	}
	sortAccounts(out)
	return out, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts), nil
}

// checkUnique requires the write lock.
func (s *InMemory) checkUnique(a *models.Account) error {
	claims := []struct {
		index map[string]id.AccountID
		key   string
		field string
	}{
		{s.byEmail, a.Email, "email"},
		{s.byExternalID, a.ExternalID, "external id"},
		{s.byDocumentID, a.DocumentID, "document id"},
	}
	for _, c := range claims {
		if c.key == "" {
			continue
		}
		if owner, ok := c.index[c.key]; ok && owner != a.ID {
			return fmt.Errorf("%s already claimed: %w", c.field, sentinel.ErrConflict)
		}
	}
	return nil
}

func (s *InMemory) put(a *models.Account) {
	s.accounts[a.ID] = a
	s.byEmail[a.Email] = a.ID
	s.byDocumentID[a.DocumentID] = a.ID
	if a.ExternalID != "" {
		s.byExternalID[a.ExternalID] = a.ID
	}
}

func (s *InMemory) unindex(a *models.Account) {
	delete(s.byEmail, a.Email)
	delete(s.byDocumentID, a.DocumentID)
	if a.ExternalID != "" {
		delete(s.byExternalID, a.ExternalID)
	}
}

func clone(a *models.Account) *models.Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
