package db

import (
	"context"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"snow-mirror/internal/config"
	"snow-mirror/pkg/db/migrations"
	"snow-mirror/testutil"
)

type PostgresDatastoreTestSuite struct {
	suite.Suite
	pgHelper *testutil.PostgresHelper
	store    *PostgresDatastore
}

type testColumn struct {
	DataType   string
	IsNullable string
}

func TestPostgresDatastoreSuite(t *testing.T) {
	if os.Getenv("SKIP_INTEGRATION_TESTS") == "true" {
		t.Skip("Skipping integration tests")
	}
	suite.Run(t, new(PostgresDatastoreTestSuite))
}

func (s *PostgresDatastoreTestSuite) SetupSuite() {
	var err error
	s.pgHelper, err = testutil.NewPostgresContainer(s.T(), context.Background())
	require.NoError(s.T(), err, "Failed to start PostgreSQL container")
}

func (s *PostgresDatastoreTestSuite) TearDownSuite() {
	ctx := context.Background()
	if s.store != nil {
		err := s.store.Close()
		if err != nil {
			log.Printf("Error closing datastore: %v", err)
		}
	}
	if s.pgHelper != nil {
		err := s.pgHelper.Terminate(ctx)
		if err != nil {
			log.Printf("Error terminating container: %v", err)
		}
	}
}

func (s *PostgresDatastoreTestSuite) TestNewPostgresDatastore() {
	s.T().Run("successful connection to postgres", func(t *testing.T) {
		store, err := NewPostgresDatastore(s.pgHelper.Config, migrations.NewPostgresMigration())
		s.store = store
		require.NoError(t, err, "Should create datastore without error")

		assert.NotNil(t, s.store, "Expected store to be non-nil on successful connection")
		assert.NotNil(t, s.store.DB, "Expected store.DB to be non-nil on successful connection")
		assert.Equal(t, "pgx", s.store.DB.DriverName(), "Expected driver name to be 'pgx'")
	})

	s.T().Run("db connection failure returns error", func(t *testing.T) {
		badConfig := &config.Postgres{
			Address:  "localhost",
			Port:     9999,
			Username: "wrong",
			Password: "wrong",
			DBName:   "wrongdb",
		}

		store, err := NewPostgresDatastore(badConfig, migrations.NewPostgresMigration())

		assert.Nil(t, store, "Expected store to be nil on connection failure")
		assert.Error(t, err, "Expected error when connecting to invalid postgres instance")
		assert.Contains(t, err.Error(), "failed to connect to postgres", "Error message should indicate connection failure")
	})

	s.T().Run("set maxConnection when it is configured", func(t *testing.T) {
		cfg := *s.pgHelper.Config
		cfg.MaxConnections = 5
		store, err := NewPostgresDatastore(&cfg, migrations.NewPostgresMigration())
		s.store = store
		require.NoError(t, err, "Should create datastore without error")

		got := s.store.DB.Stats().MaxOpenConnections

		assert.Equal(t, cfg.MaxConnections, got, "MaxOpenConnections should match config.MaxConnections")
	})
}

func (s *PostgresDatastoreTestSuite) TestInitSchema_VerifyTableStructure() {
	s.T().Run("verifies table_sync_state table structure", func(t *testing.T) {
		expectedColumns := map[string]testColumn{
			"table_name":      {"character varying", "NO"},
			"last_updated_on": {"character varying", "YES"},
		}

		store, err := NewPostgresDatastore(s.pgHelper.Config, migrations.NewPostgresMigration())
		require.NoError(t, err, "Should create datastore without error")
		s.store = store

		actualColumns := s.getColumns("public", "table_sync_state")

		assert.Len(t, actualColumns, len(expectedColumns), "Number of columns does not match expected")

		for col, exp := range expectedColumns {
			act, ok := actualColumns[col]
			assert.True(t, ok, "Expected column '%s' not found", col)
			assert.Equal(t, exp.DataType, act.DataType, "Data type mismatch for column '%s'", col)
			assert.True(t, strings.EqualFold(exp.IsNullable, act.IsNullable), "Nullability mismatch for column '%s'", col)
		}
	})

	s.T().Run("verifies primary key constraint", func(t *testing.T) {
		store, err := NewPostgresDatastore(s.pgHelper.Config, migrations.NewPostgresMigration())
		require.NoError(t, err, "Should create datastore without error")
		s.store = store

		pkColumns := s.getPrimaryKeyColumns("public", "table_sync_state")

		assert.Equal(t, []string{"table_name"}, pkColumns, "PRIMARY KEY should be on 'table_name'")
	})
}

func (s *PostgresDatastoreTestSuite) TestHealthCheck() {
	s.T().Run("health check continues after database temporary outage", func(t *testing.T) {
		shortInterval := 300 * time.Millisecond
		originalHealthCheckPeriod := defaultHealthCheckPeriod
		defaultHealthCheckPeriod = shortInterval
		defer func() { defaultHealthCheckPeriod = originalHealthCheckPeriod }()

		store, err := NewPostgresDatastore(s.pgHelper.Config, migrations.NewPostgresMigration())
		require.NoError(t, err)
		s.store = store

		// Let it run a few cycles
		time.Sleep(shortInterval * 3)

		// Pause the container to simulate a DB outage
		ctx := context.Background()
		err = s.pgHelper.Stop(ctx, &shortInterval)
		require.NoError(t, err)

		// Wait for a few health check cycles during the outage
		time.Sleep(shortInterval * 3)

		// Resume the container
		err = s.pgHelper.Start(ctx)
		require.NoError(t, err)

		// Wait for recovery
		time.Sleep(time.Second * 3)

		var count int
		err = store.DB.Get(&count, "SELECT 1")
		assert.NoError(t, err, "Database should be working after recovery")
	})

	s.T().Run("it stops healthcheck when DB is closed", func(t *testing.T) {
		store, err := NewPostgresDatastore(s.pgHelper.Config, migrations.NewPostgresMigration())
		s.store = store
		require.NoError(t, err, "Should create datastore without error")

		s.store.Close()

		assert.Nil(t, s.store.healthCheckInterval)
		assert.Nil(t, s.store.stopHealthCheckCh)
	})
}

func (s *PostgresDatastoreTestSuite) getColumns(schema string, table string) map[string]testColumn {
	query := `
				SELECT column_name, data_type, is_nullable
				FROM information_schema.columns
				WHERE table_schema = $1
					AND table_name   = $2
				ORDER BY ordinal_position;
		`
	rows, _ := s.store.DB.Queryx(query, schema, table)
	defer rows.Close()

	cols := make(map[string]testColumn)
	for rows.Next() {
		var name, dataType, isNullable string
		assert.NoError(s.T(), rows.Scan(&name, &dataType, &isNullable))
		cols[name] = testColumn{dataType, isNullable}
	}
	return cols
}

func (s *PostgresDatastoreTestSuite) getPrimaryKeyColumns(schema string, table string) []string {
	query := `
        SELECT kcu.column_name
        FROM information_schema.table_constraints tc
        JOIN information_schema.key_column_usage kcu
          ON tc.constraint_name = kcu.constraint_name
          AND tc.table_schema = kcu.table_schema
        WHERE tc.constraint_type = 'PRIMARY KEY'
          AND tc.table_name = $2
          AND tc.table_schema = $1
        ORDER BY kcu.ordinal_position;
    `
	var columns []string
	s.store.DB.Select(&columns, query, schema, table)
	return columns
}
