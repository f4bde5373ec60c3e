package servicenow

import (
	"context"

	"snow-mirror/internal/models"
)

// TableFetcher retrieves the complete record set of one remote table, bounded
// by an optional modification-time watermark ("" means full).
type TableFetcher interface {
	Fetch(ctx context.Context, table, since string) *FetchResult
}

// RecordPatcher pushes a single-field correction to the remote instance.
type RecordPatcher interface {
	PatchRecord(ctx context.Context, table, sysID, field string, value interface{}) (*PatchResult, error)
}

// TableQuerier runs bounded ad-hoc queries, used by analysis consumers for
// targeted lookups that do not go through the mirror.
type TableQuerier interface {
	QueryTable(ctx context.Context, table, query, fields string, limit int) ([]models.Record, error)
}
