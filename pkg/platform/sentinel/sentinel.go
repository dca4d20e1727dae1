package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Account and checkpoint stores return
// these (optionally wrapped) so the sync engine can translate them into outcomes.
//
//   - ErrNotFound: no record matches the lookup key
//   - ErrConflict: a unique key (email, external id, document id) is already claimed
//   - ErrUnavailable: backing store temporarily unreachable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
