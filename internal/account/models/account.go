package models

import (
	"time"

	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

// Role is the access tag stamped on an account.
type Role string

// RoleStudent is the only role the sync engine ever assigns.
const RoleStudent Role = "student"

// Account is a local identity materialized from an external registrant.
//
// Invariants:
//   - Email, DocumentID and CredentialHash are non-empty
//   - Role is RoleStudent for every account created by sync
//   - CredentialHash is set once at construction; ApplyProfile never touches it
//   - CreatedAt is immutable after construction
type Account struct {
	ID             id.AccountID `json:"id"`
	Email          string       `json:"email"`
	DisplayName    string       `json:"display_name"`
	DocumentID     string       `json:"document_id"`
	SourceID       string       `json:"source_id"`
	ExternalID     string       `json:"external_id,omitempty"`
	GroupLabel     string       `json:"group_label,omitempty"`
	CredentialHash string       `json:"-"`
	Role           Role         `json:"role"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Profile carries the fields a sync is allowed to overwrite.
type Profile struct {
	DisplayName string
	ExternalID  string
	SourceID    string
	GroupLabel  string
}

// NewAccount builds a student account. The credential hash must already be derived.
func NewAccount(accountID id.AccountID, email, documentID, credentialHash string, profile Profile, now time.Time) (*Account, error) {
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "account email cannot be empty")
	}
	if documentID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "account document id cannot be empty")
	}
	if credentialHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "account credential hash cannot be empty")
	}
	return &Account{
		ID:             accountID,
		Email:          email,
		DisplayName:    profile.DisplayName,
		DocumentID:     documentID,
		SourceID:       profile.SourceID,
		ExternalID:     profile.ExternalID,
		GroupLabel:     profile.GroupLabel,
		CredentialHash: credentialHash,
		Role:           RoleStudent,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ApplyProfile overwrites mutable profile fields. Empty group labels and
// external IDs keep the previous values so a source that omits them does not
// erase an assignment or an identity key.
func (a *Account) ApplyProfile(p Profile, now time.Time) {
	a.DisplayName = p.DisplayName
	a.SourceID = p.SourceID
	if p.ExternalID != "" {
		a.ExternalID = p.ExternalID
	}
	if p.GroupLabel != "" {
		a.GroupLabel = p.GroupLabel
	}
	a.UpdatedAt = now
}
