package corrector

import (
	"github.com/rs/zerolog"

	"snow-mirror/internal/models"
	"snow-mirror/internal/repository"
	"snow-mirror/pkg/log"
)

// WritebackGuard advances a table's watermark after an external correction so
// the next delta pass, which only pulls records modified after the watermark,
// cannot re-fetch the pre-correction version and silently revert the fix.
type WritebackGuard struct {
	watermarks repository.WatermarkStore
	logger     zerolog.Logger
}

func NewWritebackGuard(watermarks repository.WatermarkStore) *WritebackGuard {
	return &WritebackGuard{
		watermarks: watermarks,
		logger:     log.Logger.With().Str("component", "writeback_guard").Logger(),
	}
}

// AfterPatch always advances: the corrector's write is by definition the
// newest known state of that record at this instant. An empty timestamp means
// "now".
func (g *WritebackGuard) AfterPatch(table, timestamp string) {
	if timestamp == "" {
		timestamp = models.NowTimestamp()
	}
	if len(timestamp) > len(models.TimestampLayout) {
		timestamp = timestamp[:len(models.TimestampLayout)]
	}

	if err := g.watermarks.Advance(table, timestamp); err != nil {
		g.logger.Error().Err(err).Str("table", table).Str("watermark", timestamp).
			Msg("Failed to guard watermark after patch")
		return
	}
	g.logger.Info().Str("table", table).Str("watermark", timestamp).Msg("Watermark guarded after patch")
}
