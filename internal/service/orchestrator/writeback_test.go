package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"snow-mirror/internal/config"
	"snow-mirror/internal/models"
	"snow-mirror/internal/service/corrector"
	"snow-mirror/internal/service/status"
	"snow-mirror/internal/service/tablefilter"
	"snow-mirror/internal/servicenow"
	"snow-mirror/testutil/testbuilder"
)

type memoryWatermarks struct {
	values map[string]string
}

func (m *memoryWatermarks) Get(table string) (string, error) {
	return m.values[table], nil
}

func (m *memoryWatermarks) Advance(table, timestamp string) error {
	m.values[table] = timestamp
	return nil
}

// Exercises the whole correction chain against a live fetcher: a point-fix
// advances the watermark, and the following delta pass, served a stale copy
// of the corrected record, refetches nothing.
func TestCorrectedFieldSurvivesNextDeltaPass(t *testing.T) {
	const (
		table        = "sys_script"
		sysID        = "abc123def4567890abc123def4567890"
		staleUpdated = "2024-03-05 09:00:00"
		fixUpdated   = "2024-03-06 12:00:00"
	)

	stale := models.Record{
		"sys_id":         sysID,
		"sys_updated_on": staleUpdated,
		"script":         "broken",
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		since := ""
		for _, term := range strings.Split(r.URL.Query().Get("sysparm_query"), "^") {
			if strings.HasPrefix(term, "sys_updated_on>") {
				since = strings.TrimPrefix(term, "sys_updated_on>")
			}
		}

		result := []models.Record{}
		if staleUpdated > since {
			result = append(result, stale)
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{"result": result}))
	}))
	defer server.Close()

	snCfg := &config.ServiceNow{
		Instance:       server.URL,
		Username:       "mirror",
		Password:       "secret",
		PageSize:       1000,
		RequestTimeout: 5,
	}
	client := servicenow.NewClient(config.NewCredentialStore(snCfg), snCfg)
	watermarks := &memoryWatermarks{values: map[string]string{table: "2024-03-01 00:00:00"}}
	targets := []models.SyncTarget{target(table)}

	newDeltaPass := func(cache *testbuilder.MockRecordCache) *SyncOrchestrator {
		return NewSyncOrchestrator(
			client,
			cache,
			watermarks,
			status.NewReporter(targets),
			tablefilter.NewGlobTableFilter(&config.SyncRule{}),
			targets,
			time.Second,
		)
	}

	// Before the fix the fixture is newer than the watermark, so a delta pass
	// pulls it.
	preFix := &testbuilder.MockRecordCache{}
	preFix.On("UpsertBatch", table, []models.Record{stale}, staleUpdated).Return(1, nil)
	preFix.On("RowCount", table).Return(1, nil)
	newDeltaPass(preFix).RunOnce(context.Background(), false)
	preFix.AssertExpectations(t)

	// Point-fix: the remote patch reports its own write time and the guard
	// advances the watermark past the stale fixture.
	patcher := &testbuilder.MockRecordPatcher{}
	patcher.On("PatchRecord", mock.Anything, table, sysID, "script", "fixed").
		Return(&servicenow.PatchResult{SysID: sysID, UpdatedOn: fixUpdated}, nil)
	fixCache := &testbuilder.MockRecordCache{}
	fixCache.On("UpdateField", table, sysID, "script", "fixed").Return(true, nil)
	fixCache.On("UpdateField", table, sysID, models.FieldUpdatedOn, fixUpdated).Return(true, nil)

	pushed, err := corrector.NewCorrector(patcher, fixCache, corrector.NewWritebackGuard(watermarks)).
		PushFix(context.Background(), table, sysID, "script", "fixed")
	require.NoError(t, err)
	require.Equal(t, corrector.PushStatusSuccess, pushed.Status)
	require.Equal(t, fixUpdated, watermarks.values[table])

	// The next delta pass is bounded past the fixture's timestamp, so the
	// pre-correction version is never refetched and the fix stands.
	postFix := &testbuilder.MockRecordCache{}
	postFix.On("RowCount", table).Return(1, nil)
	newDeltaPass(postFix).RunOnce(context.Background(), false)
	postFix.AssertNotCalled(t, "UpsertBatch", mock.Anything, mock.Anything, mock.Anything)
	postFix.AssertExpectations(t)
}
