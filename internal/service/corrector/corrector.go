package corrector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"snow-mirror/internal/models"
	"snow-mirror/internal/repository"
	"snow-mirror/internal/servicenow"
	"snow-mirror/pkg/log"
)

const minSysIDLength = 10

// PushStatus summarizes how far a fix made it.
type PushStatus string

const (
	PushStatusSuccess PushStatus = "success"
	PushStatusPartial PushStatus = "partial"
	PushStatusError   PushStatus = "error"
)

// PushResult reports the outcome of pushing one corrected field.
type PushResult struct {
	SysID           string
	Table           string
	Field           string
	RemotePushed    bool
	CacheUpdated    bool
	RemoteUpdatedOn string
	Status          PushStatus
}

// Corrector applies a single-field point-fix: PATCH the remote record, update
// the local cache so readers see the fix immediately, then guard the
// watermark so the next delta pass cannot overwrite it.
type Corrector struct {
	patcher servicenow.RecordPatcher
	cache   repository.RecordCache
	guard   *WritebackGuard
	logger  zerolog.Logger
}

func NewCorrector(patcher servicenow.RecordPatcher, cache repository.RecordCache, guard *WritebackGuard) *Corrector {
	return &Corrector{
		patcher: patcher,
		cache:   cache,
		guard:   guard,
		logger:  log.Logger.With().Str("component", "corrector").Logger(),
	}
}

func (c *Corrector) PushFix(ctx context.Context, table, sysID, field, value string) (*PushResult, error) {
	cleanID, err := SanitizeSysID(sysID)
	if err != nil {
		return nil, err
	}
	if table == "" {
		return nil, fmt.Errorf("table is required")
	}
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("corrected value is empty")
	}

	logger := c.logger.With().Str("table", table).Str(models.FieldSysID, cleanID).Str("field", field).Logger()
	result := &PushResult{SysID: cleanID, Table: table, Field: field}

	patched, patchErr := c.patcher.PatchRecord(ctx, table, cleanID, field, value)
	if patchErr != nil {
		logger.Error().Err(patchErr).Msg("Remote patch failed, cache will still be updated")
	} else {
		result.RemotePushed = true
		result.RemoteUpdatedOn = patched.UpdatedOn
	}

	// The cache is updated regardless of the remote outcome so local readers
	// see the fix immediately.
	updated, cacheErr := c.cache.UpdateField(table, cleanID, field, value)
	if cacheErr != nil {
		logger.Error().Err(cacheErr).Msg("Cache update failed")
	}
	result.CacheUpdated = updated && cacheErr == nil

	if result.CacheUpdated {
		timestamp := result.RemoteUpdatedOn
		if timestamp == "" {
			timestamp = models.NowTimestamp()
		}
		if _, tsErr := c.cache.UpdateField(table, cleanID, models.FieldUpdatedOn, timestamp); tsErr != nil {
			logger.Error().Err(tsErr).Msg("Failed to stamp corrected record")
		}
		c.guard.AfterPatch(table, timestamp)
	}

	switch {
	case result.RemotePushed && result.CacheUpdated:
		result.Status = PushStatusSuccess
	case result.RemotePushed || result.CacheUpdated:
		result.Status = PushStatusPartial
	default:
		result.Status = PushStatusError
	}

	logger.Info().Str("status", string(result.Status)).Bool("remote", result.RemotePushed).
		Bool("cache", result.CacheUpdated).Msg("Fix push finished")
	return result, nil
}

// SanitizeSysID unwraps identifiers that were cached as serialized reference
// blobs ({"value":"..."}) and rejects anything too short to be a real sys_id.
func SanitizeSysID(sysID string) (string, error) {
	cleaned := strings.TrimSpace(sysID)
	if strings.HasPrefix(cleaned, "{") {
		var ref map[string]interface{}
		if err := json.Unmarshal([]byte(cleaned), &ref); err == nil {
			if v := models.ClassifyField(ref); v.Kind == models.FieldKindReference && v.Scalar != "" {
				cleaned = v.Scalar
			}
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	if len(cleaned) < minSysIDLength {
		return "", fmt.Errorf("invalid %s %q", models.FieldSysID, sysID)
	}
	return cleaned, nil
}
