// Package report projects a run result into the response summary.
package report

import (
	"time"

	"roster/internal/sync/models"
)

// Detail is one registrant line of the summary.
type Detail struct {
	Identifier string `json:"identifier"`
	SourceID   string `json:"source_id,omitempty"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
}

// Source summarizes how far one source got.
type Source struct {
	SourceID  string `json:"source_id"`
	Status    string `json:"status"`
	Pages     int    `json:"pages"`
	StartPage int    `json:"start_page,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Summary is the response payload of a sync run.
type Summary struct {
	RunID      string    `json:"run_id"`
	Status     string    `json:"status"`
	Total      int       `json:"total"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Errors     int       `json:"errors"`
	Details    []Detail  `json:"details"`
	Sources    []Source  `json:"sources"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`
}

// Build is a pure projection; Total always equals the sum of the four counts.
func Build(result models.RunResult) Summary {
	s := Summary{
		RunID:      result.RunID.String(),
		Status:     string(result.Status),
		Total:      len(result.Outcomes),
		Details:    make([]Detail, 0, len(result.Outcomes)),
		Sources:    make([]Source, 0, len(result.Sources)),
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		DurationMs: result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	}
	for _, o := range result.Outcomes {
		switch o.Status {
		case models.StatusCreated:
			s.Created++
		case models.StatusUpdated:
			s.Updated++
		case models.StatusSkipped:
			s.Skipped++
		default:
			s.Errors++
		}
		s.Details = append(s.Details, Detail{
			Identifier: o.Identifier,
			SourceID:   o.SourceID,
			Status:     string(o.Status),
			Reason:     o.Reason,
		})
	}
	for _, r := range result.Sources {
		s.Sources = append(s.Sources, Source{
			SourceID:  r.SourceID,
			Status:    string(r.Status),
			Pages:     r.Pages,
			StartPage: r.StartPage,
			Error:     r.Error,
		})
	}
	return s
}
