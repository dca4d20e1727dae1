// Package store persists local accounts. Both implementations enforce unique
// email, external id and document id, returning sentinel.ErrConflict when a
// write would give one identity key to two accounts.
package store

import (
	"sort"
	"strings"

	"roster/internal/account/models"
)

func sortAccounts(accounts []*models.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		return strings.Compare(accounts[i].Email, accounts[j].Email) < 0
	})
}
