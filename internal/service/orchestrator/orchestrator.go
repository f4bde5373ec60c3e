package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"snow-mirror/internal/models"
	"snow-mirror/internal/repository"
	"snow-mirror/internal/service/status"
	"snow-mirror/internal/service/tablefilter"
	"snow-mirror/internal/servicenow"
	"snow-mirror/pkg/log"
)

const skippedReason = "restricted"

// SyncOrchestrator drives the mirror: one full pass over every configured
// table at startup, then delta passes forever on a fixed interval. Tables are
// processed sequentially in registration order; one table's failure never
// stops the cycle.
type SyncOrchestrator struct {
	fetcher    servicenow.TableFetcher
	cache      repository.RecordCache
	watermarks repository.WatermarkStore
	reporter   *status.Reporter
	filter     tablefilter.TableFilter
	targets    []models.SyncTarget
	interval   time.Duration
	logger     zerolog.Logger
}

func NewSyncOrchestrator(
	fetcher servicenow.TableFetcher,
	cache repository.RecordCache,
	watermarks repository.WatermarkStore,
	reporter *status.Reporter,
	filter tablefilter.TableFilter,
	targets []models.SyncTarget,
	interval time.Duration,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		fetcher:    fetcher,
		cache:      cache,
		watermarks: watermarks,
		reporter:   reporter,
		filter:     filter,
		targets:    targets,
		interval:   interval,
		logger:     log.Logger.With().Str("component", "orchestrator").Logger(),
	}
}

// RunForever performs the initial full pass and then loops delta passes for
// the life of the process. It runs on one dedicated goroutine; the context is
// only consulted between table passes, so an in-flight table always finishes.
func (o *SyncOrchestrator) RunForever(ctx context.Context) {
	o.logger.Info().Dur("interval", o.interval).Int("tables", len(o.targets)).
		Msg("Starting initial full synchronization")
	o.runCycle(ctx, true)
	o.logger.Info().Msg("Full synchronization done, entering delta loop")

	for {
		if o.sleepUntilNextRun(ctx) {
			o.logger.Info().Msg("Sync loop stopping")
			return
		}
		o.logger.Debug().Msg("Starting delta cycle")
		o.runCycle(ctx, false)
	}
}

// RunOnce performs a single cycle, used by the one-shot command.
func (o *SyncOrchestrator) RunOnce(ctx context.Context, forceFull bool) {
	o.runCycle(ctx, forceFull)
}

// sleepUntilNextRun counts the interval down one second at a time so pollers
// see a live next_run_in. Returns true when the context ended.
func (o *SyncOrchestrator) sleepUntilNextRun(ctx context.Context) bool {
	for remaining := int(o.interval.Seconds()); remaining > 0; remaining-- {
		o.reporter.SetNextRunIn(remaining)
		select {
		case <-ctx.Done():
			return true
		case <-time.After(1 * time.Second):
		}
	}
	return false
}

func (o *SyncOrchestrator) runCycle(ctx context.Context, forceFull bool) {
	phase := models.PhaseDelta
	if forceFull {
		phase = models.PhaseFullSync
	}
	cycle := o.reporter.BeginCycle(phase)
	logger := o.logger.With().Int("cycle", cycle).Str("phase", string(phase)).Logger()

	totalNew := 0
	for _, target := range o.targets {
		if ctx.Err() != nil {
			break
		}

		if !o.filter.ShouldMirror(target.Table) {
			o.reporter.TableSkipped(target.Table, skippedReason)
			continue
		}

		totalNew += o.syncTable(ctx, target, forceFull)
	}

	o.reporter.EndCycle(forceFull)
	logger.Info().Int("new_records", totalNew).Msg("Cycle completed")
}

// syncTable runs one table pass and returns how many records it ingested.
// Every outcome, including failure, ends with a status update so pollers see
// progress mid-cycle.
func (o *SyncOrchestrator) syncTable(ctx context.Context, target models.SyncTarget, forceFull bool) int {
	logger := o.logger.With().Str("table", target.Table).Logger()

	mode, since := o.resolveMode(target.Table, forceFull)
	o.reporter.TableRunning(target.Table, mode)
	logger.Info().Str("mode", string(mode)).Str("since", since).Msg("Syncing table")

	result := o.fetcher.Fetch(ctx, target.Table, since)

	written := 0
	if len(result.Records) > 0 && !(result.Failed() && mode == models.SyncModeFull) {
		// A partial delta fetch is safe to persist: pages arrive in cursor
		// order, so the observed maximum timestamp only covers records that
		// were actually seen. A partial full scan is not, since it is ordered
		// by key; persisting its watermark would skip the unscanned tail
		// forever, so the records are refetched next cycle instead.
		var err error
		written, err = o.cache.UpsertBatch(target.Table, result.Records, result.MaxTimestamp)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to persist fetched records")
			o.reporter.TableFailed(target.Table, err.Error())
			return written
		}
	}

	if result.Unreachable {
		o.reporter.TableFailed(target.Table, "table unreachable (authorization or not found)")
		return written
	}
	if result.Err != nil {
		o.reporter.TableFailed(target.Table, result.Err.Error())
		return written
	}

	count, err := o.cache.RowCount(target.Table)
	if err != nil {
		// The pass itself succeeded; a failed count only degrades the status
		// detail.
		logger.Warn().Err(err).Msg("Failed to count cached rows")
		count = written
	}

	o.reporter.TableSucceeded(target.Table, count, written)
	logger.Info().Int("new_records", written).Int("records", count).Msg("Table synced")
	return written
}

// resolveMode picks FULL when forced or when the table has no watermark yet,
// DELTA otherwise. A watermark read failure degrades to FULL: refetching
// everything is always safe, the upsert is idempotent.
func (o *SyncOrchestrator) resolveMode(table string, forceFull bool) (models.SyncMode, string) {
	if forceFull {
		return models.SyncModeFull, ""
	}

	watermark, err := o.watermarks.Get(table)
	if err != nil {
		o.logger.Warn().Err(err).Str("table", table).Msg("Failed to read watermark, falling back to full sync")
		return models.SyncModeFull, ""
	}
	if watermark == "" {
		return models.SyncModeFull, ""
	}
	return models.SyncModeDelta, watermark
}
