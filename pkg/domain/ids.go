package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "roster/pkg/domain-errors"
)

// Typed identifiers keep account, operator and run IDs from being mixed up at
// compile time. All of them are UUIDs on the wire.
type (
	AccountID  uuid.UUID
	OperatorID uuid.UUID
	RunID      uuid.UUID
)

// maxIDLength bounds input before handing it to uuid.Parse.
const maxIDLength = 64

func parseUUID(kind, s string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if len(s) > maxIDLength || !utf8.ValidString(s) {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	return parsed, nil
}

// NewAccountID returns a fresh random account ID.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// ParseAccountID validates and converts a string into an AccountID.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID("account id", s)
	return AccountID(u), err
}

func (id AccountID) String() string { return uuid.UUID(id).String() }
func (id AccountID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// ParseOperatorID validates and converts a string into an OperatorID.
func ParseOperatorID(s string) (OperatorID, error) {
	u, err := parseUUID("operator id", s)
	return OperatorID(u), err
}

func (id OperatorID) String() string { return uuid.UUID(id).String() }
func (id OperatorID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// NewRunID returns a fresh random run ID.
func NewRunID() RunID { return RunID(uuid.New()) }

func (id RunID) String() string { return uuid.UUID(id).String() }
func (id RunID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs serialize as plain UUID strings.
func (id AccountID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id RunID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }

// UnmarshalText accepts the nil UUID so zero-valued IDs round-trip.
func (id *AccountID) UnmarshalText(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(b); err != nil {
		return err
	}
	*id = AccountID(u)
	return nil
}
