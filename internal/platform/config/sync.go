package config

import (
	"strings"
	"time"

	"roster/internal/sync/models"
	dErrors "roster/pkg/domain-errors"
	pstrings "roster/pkg/platform/strings"
)

const (
	DefaultWorkers   = 10
	DefaultPageDelay = time.Second
	DefaultMaxPages  = 500
)

// SyncConfig holds the engine's tuning knobs and the per-source question map.
type SyncConfig struct {
	Workers   int
	PageDelay time.Duration
	MaxPages  int
	// DefaultDocumentQuestionID applies to sources that are requested but have
	// no explicit entry in Sources.
	DefaultDocumentQuestionID string
	Sources                   []models.SourceConfig
}

// ParseSources reads "source[:docQuestion[:groupQuestion]]" entries separated by commas.
func ParseSources(raw string) []models.SourceConfig {
	var sources []models.SourceConfig
	for _, entry := range splitList(raw) {
		parts := strings.Split(entry, ":")
		src := models.SourceConfig{ID: strings.TrimSpace(parts[0])}
		if len(parts) > 1 {
			src.DocumentQuestionID = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			src.GroupQuestionID = strings.TrimSpace(parts[2])
		}
		if src.ID != "" {
			sources = append(sources, src)
		}
	}
	return sources
}

// Catalog resolves requested source IDs into concrete source configurations.
// An empty request selects every configured source. Any source that ends up
// without a document question is a configuration error for the whole run.
func (c SyncConfig) Catalog(requested []string) ([]models.SourceConfig, error) {
	requested = pstrings.DedupeAndTrim(requested)

	known := make(map[string]models.SourceConfig, len(c.Sources))
	for _, s := range c.Sources {
		known[s.ID] = s
	}

	var selected []models.SourceConfig
	if len(requested) == 0 {
		selected = append(selected, c.Sources...)
	} else {
		for _, sourceID := range requested {
			src, ok := known[sourceID]
			if !ok {
				src = models.SourceConfig{ID: sourceID}
			}
			selected = append(selected, src)
		}
	}

	if len(selected) == 0 {
		return nil, dErrors.New(dErrors.CodeConfiguration, "no sync sources configured")
	}

	for i := range selected {
		if selected[i].DocumentQuestionID == "" {
			selected[i].DocumentQuestionID = c.DefaultDocumentQuestionID
		}
		if selected[i].DocumentQuestionID == "" {
			return nil, dErrors.New(dErrors.CodeConfiguration,
				"source "+selected[i].ID+" has no document question configured")
		}
	}
	return selected, nil
}

// Validate reports feed settings the engine cannot run without.
func (f FeedConfig) Validate() error {
	if f.BaseURL == "" {
		return dErrors.New(dErrors.CodeConfiguration, "feed base URL is not configured")
	}
	if f.Token == "" {
		return dErrors.New(dErrors.CodeConfiguration, "feed token is not configured")
	}
	return nil
}
