// Package extract derives identity fields from a registrant's custom-question answers.
package extract

import (
	"strings"

	"roster/internal/sync/models"
)

// InfoRequested is the placeholder the feed puts in name fields of
// privacy-gated registrants.
const InfoRequested = "Info Requested"

// Extract scans the answers once, matching question IDs exactly. Registrants
// whose first and last names are both the placeholder are skipped with
// info_requested whether or not a document answer exists. A missing or blank
// document answer leaves DocumentID empty; the upsert engine decides the skip.
func Extract(r models.Registrant, documentQuestionID, groupQuestionID string) models.ExtractedIdentity {
	if isPlaceholder(r.FirstName) && isPlaceholder(r.LastName) {
		return models.ExtractedIdentity{SkipReason: models.ReasonInfoRequested}
	}

	var out models.ExtractedIdentity
	for _, a := range r.Answers {
		switch {
		case documentQuestionID != "" && a.QuestionID == documentQuestionID:
			out.DocumentID = strings.TrimSpace(a.Answer)
		case groupQuestionID != "" && a.QuestionID == groupQuestionID:
			out.GroupLabel = strings.TrimSpace(a.Answer)
		}
	}

	return out
}

// ForSource is Extract with the source's configured question IDs.
func ForSource(r models.Registrant, src models.SourceConfig) models.ExtractedIdentity {
	return Extract(r, src.DocumentQuestionID, src.GroupQuestionID)
}

func isPlaceholder(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), InfoRequested)
}
