// Package models holds the types shared by every stage of a sync run.
package models

import (
	"strings"
	"sync"
	"time"

	id "roster/pkg/domain"
)

// SourceConfig binds a feed source to the question IDs that carry the
// document and group answers for that source.
type SourceConfig struct {
	ID                 string
	DocumentQuestionID string
	GroupQuestionID    string
}

// Answer is one custom-question response.
type Answer struct {
	QuestionID string
	Answer     string
}

// Registrant is one attendee record as fetched from the feed. It is never persisted.
type Registrant struct {
	ExternalID string
	SourceID   string
	FirstName  string
	LastName   string
	Name       string
	Email      string
	Answers    []Answer
}

// Identifier names the registrant in run details: email first, external id otherwise.
func (r Registrant) Identifier() string {
	if e := strings.TrimSpace(r.Email); e != "" {
		return e
	}
	return r.ExternalID
}

// Page is one fetched page of registrants.
type Page struct {
	Number      int
	Registrants []Registrant
	HasMore     bool
}

// ExtractedIdentity is what the answer extractor derives from a registrant.
// A non-empty SkipReason means the registrant cannot be upserted.
type ExtractedIdentity struct {
	DocumentID string
	GroupLabel string
	SkipReason SkipReason
}

func (e ExtractedIdentity) Processable() bool {
	return e.SkipReason == "" && e.DocumentID != ""
}

type OutcomeStatus string

const (
	StatusCreated OutcomeStatus = "created"
	StatusUpdated OutcomeStatus = "updated"
	StatusSkipped OutcomeStatus = "skipped"
	StatusError   OutcomeStatus = "error"
)

type SkipReason string

const (
	ReasonNoDocumentID  SkipReason = "no_document_id"
	ReasonInfoRequested SkipReason = "info_requested"
)

// Outcome is the per-registrant result of one run.
type Outcome struct {
	Identifier string
	SourceID   string
	Status     OutcomeStatus
	// Reason holds the skip reason or a short error description.
	Reason    string
	AccountID id.AccountID
}

func Created(identifier, sourceID string, accountID id.AccountID) Outcome {
	return Outcome{Identifier: identifier, SourceID: sourceID, Status: StatusCreated, AccountID: accountID}
}

func Updated(identifier, sourceID string, accountID id.AccountID) Outcome {
	return Outcome{Identifier: identifier, SourceID: sourceID, Status: StatusUpdated, AccountID: accountID}
}

func Skipped(identifier, sourceID string, reason SkipReason) Outcome {
	return Outcome{Identifier: identifier, SourceID: sourceID, Status: StatusSkipped, Reason: string(reason)}
}

func Failed(identifier, sourceID, reason string) Outcome {
	return Outcome{Identifier: identifier, SourceID: sourceID, Status: StatusError, Reason: reason}
}

// Accumulator collects outcomes from concurrent workers.
type Accumulator struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (a *Accumulator) Add(o Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outcomes = append(a.outcomes, o)
}

func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.outcomes)
}

// Outcomes returns a copy of everything collected so far.
func (a *Accumulator) Outcomes() []Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Outcome(nil), a.outcomes...)
}

type SourceStatus string

const (
	SourceCompleted SourceStatus = "completed"
	SourceFailed    SourceStatus = "failed"
	SourceCancelled SourceStatus = "cancelled"
	// SourcePending marks sources a cancelled run never started.
	SourcePending SourceStatus = "not_started"
)

// SourceReport records how far one source got.
type SourceReport struct {
	SourceID string
	Pages    int
	Status   SourceStatus
	Error    string
	// StartPage is the first page fetched; above 1 only when resuming.
	StartPage int
}

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// RunRequest is what an operator asks for.
type RunRequest struct {
	Sources []string
	Resume  bool
}

// RunResult is built fresh per run and only lives as long as the response.
type RunResult struct {
	RunID      id.RunID
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Sources    []SourceReport
	Outcomes   []Outcome
}

// DeriveStatus folds per-source reports into a run status. A run fails only
// when every source failed before dispatching a single page.
func DeriveStatus(reports []SourceReport) RunStatus {
	var failed, failedEmpty, cancelled int
	for _, r := range reports {
		switch r.Status {
		case SourceFailed:
			failed++
			if r.Pages == 0 {
				failedEmpty++
			}
		case SourceCancelled, SourcePending:
			cancelled++
		}
	}
	switch {
	case cancelled > 0:
		return RunCancelled
	case len(reports) > 0 && failedEmpty == len(reports):
		return RunFailed
	case failed > 0:
		return RunPartial
	default:
		return RunCompleted
	}
}

// Error reasons. They stay coarse so details never leak store internals.
const (
	ReasonIdentityConflict  = "identity_conflict"
	ReasonMissingEmail      = "missing_email"
	ReasonCredentialFailed  = "credential_failed"
	ReasonPersistenceFailed = "persistence_failed"
	ReasonLookupFailed      = "lookup_failed"
)
