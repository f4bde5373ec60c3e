package tablefilter

import (
	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"snow-mirror/internal/config"
	"snow-mirror/internal/models"
	"snow-mirror/pkg/log"
)

// TableFilter decides which registered tables the mirror actually pulls.
type TableFilter interface {
	ShouldMirror(table string) bool
}

type GlobTableFilter struct {
	syncRule *config.SyncRule
	logger   zerolog.Logger
}

func NewGlobTableFilter(syncRule *config.SyncRule) *GlobTableFilter {
	return &GlobTableFilter{
		syncRule: syncRule,
		logger:   log.Logger.With().Str("component", "table_filter").Logger(),
	}
}

// ShouldMirror checks a table name against the sync rule. Skip patterns win
// over mirror patterns; an empty mirror list means "everything registered".
func (f *GlobTableFilter) ShouldMirror(table string) bool {
	for _, pattern := range f.syncRule.TablesToSkip {
		if matchesGlobPattern(pattern, table) {
			return false
		}
	}

	if len(f.syncRule.TablesToMirror) > 0 {
		for _, pattern := range f.syncRule.TablesToMirror {
			if matchesGlobPattern(pattern, table) {
				return true
			}
		}
		return false
	}

	return true
}

// Partition splits the registered targets into mirrored and skipped sets,
// preserving registration order within each.
func (f *GlobTableFilter) Partition(targets []models.SyncTarget) (mirrored, skipped []models.SyncTarget) {
	for _, target := range targets {
		if f.ShouldMirror(target.Table) {
			mirrored = append(mirrored, target)
		} else {
			f.logger.Debug().Str("table", target.Table).Msg("Table excluded by sync rule")
			skipped = append(skipped, target)
		}
	}
	return mirrored, skipped
}

func matchesGlobPattern(pattern, table string) bool {
	matched, err := doublestar.Match(pattern, table)
	if err != nil {
		return false
	}
	return matched
}
