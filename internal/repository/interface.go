package repository

import "snow-mirror/internal/models"

// RecordCache is the local mirror of remote tables: idempotent batch writes,
// schema evolution, and read access for the analysis layers.
type RecordCache interface {
	// UpsertBatch writes a batch of remote records and, when a non-empty
	// watermark can be determined (explicitMax, or the batch maximum as a
	// fallback), advances the table's watermark. Returns the number of rows
	// actually written; individual bad rows are skipped, not fatal.
	UpsertBatch(table string, records []models.Record, explicitMax string) (int, error)

	// FetchCached returns cached rows as field maps. limit <= 0 means all
	// rows. Every row carries a "data" field holding the full row as JSON.
	FetchCached(table string, limit int) ([]map[string]interface{}, error)

	RowCount(table string) (int, error)

	// UpdateField patches one column of one cached row. Patching the
	// modification-timestamp field also advances the table's watermark.
	UpdateField(table, sysID, field string, value interface{}) (bool, error)
}

// WatermarkStore persists the last fully ingested remote modification
// timestamp per table. Advance keeps the literal value last written; callers
// are responsible for only advancing with values safe to treat as synced.
type WatermarkStore interface {
	// Get returns the watermark for a table, or "" when the table has never
	// been synced.
	Get(table string) (string, error)
	Advance(table, timestamp string) error
}
