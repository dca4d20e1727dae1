package handler

import (
	"time"

	account "roster/internal/account/models"
)

// AccountResponse is one listed account. Credential hashes never leave the store.
type AccountResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	DocumentID  string    `json:"document_id"`
	SourceID    string    `json:"source_id"`
	ExternalID  string    `json:"external_id,omitempty"`
	GroupLabel  string    `json:"group_label,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type AccountListResponse struct {
	Accounts []AccountResponse `json:"accounts"`
	Count    int               `json:"count"`
}

func fromAccounts(accounts []*account.Account) AccountListResponse {
	out := AccountListResponse{Accounts: make([]AccountResponse, 0, len(accounts))}
	for _, a := range accounts {
		out.Accounts = append(out.Accounts, AccountResponse{
			ID:          a.ID.String(),
			Email:       a.Email,
			DisplayName: a.DisplayName,
			DocumentID:  a.DocumentID,
			SourceID:    a.SourceID,
			ExternalID:  a.ExternalID,
			GroupLabel:  a.GroupLabel,
			Role:        string(a.Role),
			CreatedAt:   a.CreatedAt,
			UpdatedAt:   a.UpdatedAt,
		})
	}
	out.Count = len(out.Accounts)
	return out
}
