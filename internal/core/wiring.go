package core

import (
	"os"
	"sync"
	"time"

	"snow-mirror/internal/config"
	"snow-mirror/internal/registry"
	repo "snow-mirror/internal/repository"
	psqlRepo "snow-mirror/internal/repository/postgres"
	"snow-mirror/internal/service/corrector"
	"snow-mirror/internal/service/orchestrator"
	"snow-mirror/internal/service/status"
	"snow-mirror/internal/service/tablefilter"
	"snow-mirror/internal/servicenow"
	"snow-mirror/pkg/db"
	"snow-mirror/pkg/db/migrations"
	"snow-mirror/pkg/log"

	"github.com/rs/zerolog"
)

type Wiring struct {
	config *config.Config
	logger zerolog.Logger

	datastoreOnce sync.Once
	datastore     *db.PostgresDatastore

	credentialsOnce sync.Once
	credentials     *config.CredentialStore
}

func NewWiring(cfg *config.Config) *Wiring {
	var once sync.Once
	var instance *Wiring
	once.Do(func() {
		instance = &Wiring{
			config: cfg,
			logger: log.Logger.With().Str("component", "wiring").Logger(),
		}
	})
	return instance
}

func (w *Wiring) GetConfig() *config.Config {
	return w.config
}

func (w *Wiring) InitPostgresDataStore() *db.PostgresDatastore {
	w.datastoreOnce.Do(func() {
		var err error
		w.datastore, err = db.NewPostgresDatastore(&w.config.Postgres, migrations.NewPostgresMigration())
		if err != nil {
			w.logger.Error().Err(err).Msg("Failed to create Postgres datastore")
			os.Exit(-1)
		}
	})
	return w.datastore
}

func (w *Wiring) InitCredentialStore() *config.CredentialStore {
	w.credentialsOnce.Do(func() {
		w.credentials = config.NewCredentialStore(&w.config.ServiceNow)
	})
	return w.credentials
}

func (w *Wiring) InitServiceNowClient() *servicenow.Client {
	return servicenow.NewClient(w.InitCredentialStore(), &w.config.ServiceNow)
}

func (w *Wiring) InitWatermarkRepository() repo.WatermarkStore {
	return psqlRepo.NewWatermarkRepository(w.InitPostgresDataStore())
}

func (w *Wiring) InitRecordCacheRepository() repo.RecordCache {
	return psqlRepo.NewRecordCacheRepository(w.InitPostgresDataStore(), w.InitWatermarkRepository())
}

// InitTableFilter merges the built-in skip list with the configured one so
// tables known to reject API reads stay excluded even with an empty config.
func (w *Wiring) InitTableFilter() *tablefilter.GlobTableFilter {
	rule := w.config.SyncRule
	rule.TablesToSkip = append(registry.DefaultSkipPatterns(), rule.TablesToSkip...)
	return tablefilter.NewGlobTableFilter(&rule)
}

func (w *Wiring) InitStatusReporter() *status.Reporter {
	return status.NewReporter(registry.Targets())
}

func (w *Wiring) InitOrchestrator(reporter *status.Reporter) *orchestrator.SyncOrchestrator {
	return orchestrator.NewSyncOrchestrator(
		w.InitServiceNowClient(),
		w.InitRecordCacheRepository(),
		w.InitWatermarkRepository(),
		reporter,
		w.InitTableFilter(),
		registry.Targets(),
		time.Duration(w.config.Interval)*time.Second,
	)
}

func (w *Wiring) InitCorrector() *corrector.Corrector {
	watermarks := w.InitWatermarkRepository()
	return corrector.NewCorrector(
		w.InitServiceNowClient(),
		w.InitRecordCacheRepository(),
		corrector.NewWritebackGuard(watermarks),
	)
}
