package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/cenkalti/backoff/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"snow-mirror/internal/models"
	"snow-mirror/internal/repository"
	"snow-mirror/pkg/converter"
	postgres "snow-mirror/pkg/db"
	"snow-mirror/pkg/log"
)

// catchAllField is present on every row returned by FetchCached and carries
// the full row serialized as JSON, for consumers that want an opaque blob.
const catchAllField = "data"

//nolint:gochecknoglobals
var identifierPattern = regexp.MustCompile(`^[a-z0-9_]{1,63}$`)

// RecordCacheRepository mirrors remote tables into dynamically shaped
// Postgres tables: sys_id TEXT PRIMARY KEY plus an open-ended set of TEXT
// columns that grows as new fields appear (append-only, never retyped).
type RecordCacheRepository struct {
	psql       *postgres.PostgresDatastore
	watermarks repository.WatermarkStore

	// knownColumns caches the column set per table so the engine does not hit
	// information_schema for every record. Concurrent ADD COLUMN races are
	// harmless: the statements use IF NOT EXISTS.
	mu           sync.Mutex
	knownColumns map[string]map[string]struct{}

	circuitBreaker *gobreaker.CircuitBreaker
	retryOptFunc   func() []backoff.RetryOption
	logger         zerolog.Logger
}

func NewRecordCacheRepository(psql *postgres.PostgresDatastore, watermarks repository.WatermarkStore) *RecordCacheRepository {
	return &RecordCacheRepository{
		psql:           psql,
		watermarks:     watermarks,
		knownColumns:   make(map[string]map[string]struct{}),
		circuitBreaker: newCircuitBreaker("record_cache_repository"),
		retryOptFunc:   newBackoffStrategy,
		logger:         log.Logger.With().Str("component", "record_cache").Logger(),
	}
}

// UpsertBatch writes a batch of remote records idempotently and advances the
// table's watermark. A record that fails to write is logged and skipped; the
// batch always continues. When the caller supplies no explicit maximum
// timestamp, the maximum across the whole batch is used instead.
func (repo *RecordCacheRepository) UpsertBatch(table string, records []models.Record, explicitMax string) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	safeTable, ok := sanitizeIdentifier(table)
	if !ok {
		return 0, fmt.Errorf("%w: %q", repository.ErrInvalidIdentifier, table)
	}

	logger := repo.logger.With().Str("table", safeTable).Logger()
	highest := explicitMax
	written := 0

	for _, record := range records {
		if record == nil {
			continue
		}

		flat := record.Flatten()
		if sysID, _ := flat[models.FieldSysID].(string); sysID == "" {
			logger.Warn().Msg("Skipping record without a primary key")
			continue
		}

		if err := repo.ensureSchema(safeTable, flat); err != nil {
			logger.Error().Err(err).Msg("Failed to evolve schema for record, skipping")
			continue
		}

		columns, args := storableColumns(flat)
		if err := repo.upsertRow(safeTable, columns, args); err != nil {
			logger.Warn().Err(err).Str(models.FieldSysID, fmt.Sprint(flat[models.FieldSysID])).
				Msg("Skipping record that failed to upsert")
			continue
		}
		written++

		if explicitMax == "" {
			if ts := record.UpdatedOn(); ts != "" && ts > highest {
				highest = ts
			}
		}
	}

	if highest != "" {
		if err := repo.watermarks.Advance(safeTable, highest); err != nil {
			return written, fmt.Errorf("failed to advance watermark for %s: %w", safeTable, err)
		}
	}

	logger.Debug().Int("written", written).Int("batch", len(records)).Str("watermark", highest).
		Msg("Batch upserted")
	return written, nil
}

// FetchCached returns cached rows as field maps, optionally capped. Every row
// carries the catch-all "data" field with the full row serialized as JSON.
func (repo *RecordCacheRepository) FetchCached(table string, limit int) ([]map[string]interface{}, error) {
	safeTable, ok := sanitizeIdentifier(table)
	if !ok {
		return nil, fmt.Errorf("%w: %q", repository.ErrInvalidIdentifier, table)
	}

	result, err := repo.execute(func() (interface{}, error) {
		query := fmt.Sprintf(`SELECT * FROM %q`, safeTable)
		if limit > 0 {
			return repo.scanRows(query+` LIMIT $1`, limit)
		}
		return repo.scanRows(query)
	})
	if err != nil {
		repo.logger.Error().Err(err).Str("table", safeTable).Msg("Failed to fetch cached rows")
		return nil, err
	}
	return result.([]map[string]interface{}), nil
}

func (repo *RecordCacheRepository) scanRows(query string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := repo.psql.DB.Queryx(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]map[string]interface{}, 0)
	for rows.Next() {
		row := make(map[string]interface{})
		if scanErr := rows.MapScan(row); scanErr != nil {
			return nil, scanErr
		}
		normalizeRow(row)
		if _, present := row[catchAllField]; !present {
			if encoded, marshalErr := json.Marshal(row); marshalErr == nil {
				row[catchAllField] = string(encoded)
			}
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

func (repo *RecordCacheRepository) RowCount(table string) (int, error) {
	safeTable, ok := sanitizeIdentifier(table)
	if !ok {
		return 0, fmt.Errorf("%w: %q", repository.ErrInvalidIdentifier, table)
	}

	result, err := repo.execute(func() (interface{}, error) {
		var count int
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %q`, safeTable)
		if getErr := repo.psql.DB.Get(&count, query); getErr != nil {
			return nil, getErr
		}
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

// UpdateField patches one column of one cached row, used by the corrector for
// point-fixes. Patching the modification timestamp also advances the table's
// watermark so the next delta pass cannot pull the pre-fix version back.
func (repo *RecordCacheRepository) UpdateField(table, sysID, field string, value interface{}) (bool, error) {
	safeTable, tableOK := sanitizeIdentifier(table)
	safeField, fieldOK := sanitizeIdentifier(field)
	if !tableOK || !fieldOK {
		return false, fmt.Errorf("%w: table %q field %q", repository.ErrInvalidIdentifier, table, field)
	}

	if err := repo.ensureSchema(safeTable, map[string]interface{}{safeField: value}); err != nil {
		return false, err
	}

	query := fmt.Sprintf(`UPDATE %q SET %q = $1 WHERE %s = $2`, safeTable, safeField, models.FieldSysID)
	result, err := repo.psql.DB.Exec(query, value, sysID)
	if err != nil {
		repo.logger.Error().Err(err).Str("table", safeTable).Str("field", safeField).
			Msg("Failed to update cached field")
		return false, fmt.Errorf("failed to update field %s.%s: %w", safeTable, safeField, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if safeField == models.FieldUpdatedOn {
		if ts, isString := value.(string); isString && ts != "" {
			if advErr := repo.watermarks.Advance(safeTable, truncateTimestamp(ts)); advErr != nil {
				return true, advErr
			}
		}
	}

	return true, nil
}

// ensureSchema creates the table on first sight and adds any columns present
// in the flattened record but missing from the table. Columns are only ever
// added, as TEXT.
func (repo *RecordCacheRepository) ensureSchema(safeTable string, flat map[string]interface{}) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	known, seen := repo.knownColumns[safeTable]
	if !seen {
		if err := repo.createTable(safeTable, flat); err != nil {
			return err
		}
		loaded, err := repo.loadColumns(safeTable)
		if err != nil {
			return err
		}
		known = loaded
		repo.knownColumns[safeTable] = known
	}

	for _, name := range sortedKeys(flat) {
		safeColumn, ok := sanitizeIdentifier(name)
		if !ok {
			continue
		}
		if _, exists := known[safeColumn]; exists {
			continue
		}
		statement := fmt.Sprintf(`ALTER TABLE %q ADD COLUMN IF NOT EXISTS %q TEXT`, safeTable, safeColumn)
		if _, err := repo.psql.DB.Exec(statement); err != nil {
			// Lost a race with a concurrent ADD COLUMN, or the column is
			// otherwise unusable. Either way the batch must continue.
			repo.logger.Debug().Err(err).Str("table", safeTable).Str("column", safeColumn).
				Msg("Ignoring failed column addition")
			continue
		}
		known[safeColumn] = struct{}{}
	}

	return nil
}

func (repo *RecordCacheRepository) createTable(safeTable string, flat map[string]interface{}) error {
	columnDefs := []string{fmt.Sprintf(`%q TEXT PRIMARY KEY`, models.FieldSysID)}
	for _, name := range sortedKeys(flat) {
		safeColumn, ok := sanitizeIdentifier(name)
		if !ok || safeColumn == models.FieldSysID {
			continue
		}
		columnDefs = append(columnDefs, fmt.Sprintf(`%q TEXT`, safeColumn))
	}

	statement := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (%s)`, safeTable, strings.Join(columnDefs, ", "))
	if _, err := repo.psql.DB.Exec(statement); err != nil {
		return fmt.Errorf("failed to create table %s: %w", safeTable, err)
	}
	return nil
}

func (repo *RecordCacheRepository) loadColumns(safeTable string) (map[string]struct{}, error) {
	var names []string
	query := `SELECT column_name FROM information_schema.columns WHERE table_name = $1`
	if err := repo.psql.DB.Select(&names, query, safeTable); err != nil {
		return nil, fmt.Errorf("failed to inspect columns of %s: %w", safeTable, err)
	}

	columns := make(map[string]struct{}, len(names))
	for _, name := range names {
		columns[name] = struct{}{}
	}
	return columns, nil
}

func (repo *RecordCacheRepository) upsertRow(safeTable string, columns []string, args []interface{}) error {
	quoted := make([]string, 0, len(columns))
	placeholders := make([]string, 0, len(columns))
	updates := make([]string, 0, len(columns))

	for i, column := range columns {
		quoted = append(quoted, fmt.Sprintf("%q", column))
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		if column != models.FieldSysID {
			updates = append(updates, fmt.Sprintf("%q = EXCLUDED.%q", column, column))
		}
	}

	var statement string
	if len(updates) > 0 {
		statement = fmt.Sprintf(
			`INSERT INTO %q (%s) VALUES (%s) ON CONFLICT (%q) DO UPDATE SET %s`,
			safeTable, strings.Join(quoted, ", "), strings.Join(placeholders, ", "),
			models.FieldSysID, strings.Join(updates, ", "),
		)
	} else {
		statement = fmt.Sprintf(
			`INSERT INTO %q (%s) VALUES (%s) ON CONFLICT (%q) DO NOTHING`,
			safeTable, strings.Join(quoted, ", "), strings.Join(placeholders, ", "),
			models.FieldSysID,
		)
	}

	_, err := repo.psql.DB.Exec(statement, args...)
	return err
}

func (repo *RecordCacheRepository) execute(operation func() (interface{}, error)) (interface{}, error) {
	result, err := repo.circuitBreaker.Execute(func() (interface{}, error) {
		return backoff.Retry(context.Background(), operation, repo.retryOptFunc()...)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, repository.ErrDatabaseUnavailable
		}
		return nil, fmt.Errorf("%w: %w", repository.ErrDatabaseGeneric, err)
	}
	return result, nil
}

// storableColumns returns the sanitized column names of a flattened record in
// deterministic order, with their values aligned by index.
func storableColumns(flat map[string]interface{}) ([]string, []interface{}) {
	columns := make([]string, 0, len(flat))
	args := make([]interface{}, 0, len(flat))
	for _, name := range sortedKeys(flat) {
		safeColumn, ok := sanitizeIdentifier(name)
		if !ok {
			continue
		}
		columns = append(columns, safeColumn)
		args = append(args, flat[name])
	}
	return columns, args
}

func sortedKeys(m map[string]interface{}) []string {
	keys := converter.MapKeysToSlice(m)
	sort.Strings(keys)
	return keys
}

// sanitizeIdentifier lowercases a remote field or table name and accepts it
// only if it is a plain Postgres identifier. Unquoted names fold to lower
// case, which keeps information_schema lookups consistent.
func sanitizeIdentifier(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !identifierPattern.MatchString(name) {
		return "", false
	}
	return name, true
}

func normalizeRow(row map[string]interface{}) {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
}

func truncateTimestamp(ts string) string {
	if len(ts) > len(models.TimestampLayout) {
		return ts[:len(models.TimestampLayout)]
	}
	return ts
}
