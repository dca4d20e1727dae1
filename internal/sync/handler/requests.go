package handler

import (
	dErrors "roster/pkg/domain-errors"
	pstrings "roster/pkg/platform/strings"
)

const maxSourcesPerRun = 50

// RunRequest is the HTTP request body for POST /admin/sync/runs.
// An empty body or empty sources list selects every configured source.
type RunRequest struct {
	Sources []string `json:"sources"`
	Resume  bool     `json:"resume"`
}

// Validate implements httputil.Validatable.
func (r *RunRequest) Validate() error {
	if len(r.Sources) > maxSourcesPerRun {
		return dErrors.New(dErrors.CodeValidation, "too many sources in one run")
	}
	r.Sources = pstrings.DedupeAndTrim(r.Sources)
	for _, s := range r.Sources {
		if len(s) > 64 {
			return dErrors.New(dErrors.CodeValidation, "source id must be at most 64 characters")
		}
	}
	return nil
}
