package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"snow-mirror/internal/repository"
	postgres "snow-mirror/pkg/db"
	"snow-mirror/pkg/log"
)

// WatermarkRepository persists per-table watermarks in table_sync_state.
// Reads and writes go through a circuit breaker with a retry strategy so a
// flapping database surfaces as ErrDatabaseUnavailable instead of hammering
// the pool every cycle.
type WatermarkRepository struct {
	psql           *postgres.PostgresDatastore
	circuitBreaker *gobreaker.CircuitBreaker
	retryOptFunc   func() []backoff.RetryOption
	logger         zerolog.Logger
}

func NewWatermarkRepository(psql *postgres.PostgresDatastore) *WatermarkRepository {
	return &WatermarkRepository{
		psql:           psql,
		circuitBreaker: newCircuitBreaker("watermark_repository"),
		retryOptFunc:   newBackoffStrategy,
		logger:         log.Logger.With().Str("component", "watermark_repository").Logger(),
	}
}

//nolint:mnd
func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.TotalFailures >= 3
		},
	})
}

//nolint:mnd
func newBackoffStrategy() []backoff.RetryOption {
	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = 200 * time.Millisecond
	return []backoff.RetryOption{
		backoff.WithBackOff(strategy),
		backoff.WithMaxTries(3),
	}
}

// Get returns the stored watermark for a table, "" when the table has never
// completed a pass.
func (repo *WatermarkRepository) Get(table string) (string, error) {
	result, err := repo.execute(func() (interface{}, error) {
		var watermark sql.NullString
		query := `SELECT last_updated_on FROM table_sync_state WHERE table_name = $1`
		getErr := repo.psql.DB.Get(&watermark, query, table)
		if errors.Is(getErr, sql.ErrNoRows) {
			return "", nil
		}
		if getErr != nil {
			return nil, getErr
		}
		if !watermark.Valid {
			return "", nil
		}
		return watermark.String, nil
	})
	if err != nil {
		repo.logger.Error().Err(err).Str("table", table).Msg("Failed to read watermark")
		return "", err
	}
	return result.(string), nil
}

// Advance stores the literal timestamp for a table. Empty timestamps are a
// no-op so a batch without timestamp-bearing records never blanks the mark.
func (repo *WatermarkRepository) Advance(table, timestamp string) error {
	if timestamp == "" {
		return nil
	}

	_, err := repo.execute(func() (interface{}, error) {
		query := `
			INSERT INTO table_sync_state (table_name, last_updated_on)
			VALUES ($1, $2)
			ON CONFLICT (table_name)
			DO UPDATE SET last_updated_on = EXCLUDED.last_updated_on`
		_, execErr := repo.psql.DB.Exec(query, table, timestamp)
		return nil, execErr
	})
	if err != nil {
		repo.logger.Error().Err(err).Str("table", table).Str("watermark", timestamp).Msg("Failed to advance watermark")
		return err
	}

	repo.logger.Debug().Str("table", table).Str("watermark", timestamp).Msg("Watermark advanced")
	return nil
}

func (repo *WatermarkRepository) execute(operation func() (interface{}, error)) (interface{}, error) {
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
