package status

import (
	"sync"
	"time"

	"snow-mirror/internal/models"
)

// TableStatus is the externally visible state of one mirrored table.
type TableStatus struct {
	Label      string           `json:"label"`
	Category   string           `json:"category"`
	Records    int              `json:"records"`
	NewRecords int              `json:"new_records"`
	Mode       models.SyncMode  `json:"mode"`
	State      models.SyncState `json:"status"`
	LastSynced string           `json:"last_synced,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Snapshot is a point-in-time copy of the whole sync state, safe to hand to
// any number of pollers.
type Snapshot struct {
	Running       bool                   `json:"running"`
	Phase         models.Phase           `json:"phase"`
	Cycle         int                    `json:"cycle"`
	NextRunIn     int                    `json:"next_run_in"`
	FullSyncDone  bool                   `json:"full_sync_done"`
	LastCompleted string                 `json:"last_completed,omitempty"`
	Tables        map[string]TableStatus `json:"tables"`
}

// Reporter tracks sync progress for external polling. The orchestrator is the
// only writer; the single mutex is held just long enough for a field update
// or a snapshot copy, never across I/O.
type Reporter struct {
	mu sync.Mutex

	running       bool
	phase         models.Phase
	cycle         int
	nextRunIn     int
	fullSyncDone  bool
	lastCompleted string
	tables        map[string]TableStatus
}

func NewReporter(targets []models.SyncTarget) *Reporter {
	tables := make(map[string]TableStatus, len(targets))
	for _, target := range targets {
		tables[target.Table] = TableStatus{
			Label:    target.Label,
			Category: target.Category,
			Mode:     models.SyncModePending,
			State:    models.SyncStatePending,
		}
	}
	return &Reporter{
		phase:  models.PhaseIdle,
		tables: tables,
	}
}

func (r *Reporter) BeginCycle(phase models.Phase) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = true
	r.cycle++
	r.phase = phase
	return r.cycle
}

func (r *Reporter) EndCycle(fullSync bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.phase = models.PhaseIdle
	r.lastCompleted = time.Now().UTC().Format(time.RFC3339)
	if fullSync {
		r.fullSyncDone = true
	}
}

func (r *Reporter) SetNextRunIn(seconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextRunIn = seconds
}

func (r *Reporter) TableRunning(table string, mode models.SyncMode) {
	r.mutateTable(table, func(ts *TableStatus) {
		ts.Mode = mode
		ts.State = models.SyncStateRunning
		ts.NewRecords = 0
		ts.Error = ""
	})
}

func (r *Reporter) TableSkipped(table, reason string) {
	r.mutateTable(table, func(ts *TableStatus) {
		ts.State = models.SyncStateSkipped
		ts.Error = reason
	})
}

func (r *Reporter) TableSucceeded(table string, records, newRecords int) {
	r.mutateTable(table, func(ts *TableStatus) {
		ts.Records = records
		ts.NewRecords = newRecords
		ts.State = models.SyncStateOK
		ts.LastSynced = time.Now().UTC().Format(time.RFC3339)
		ts.Error = ""
	})
}

func (r *Reporter) TableFailed(table, errMsg string) {
	r.mutateTable(table, func(ts *TableStatus) {
		ts.State = models.SyncStateError
		ts.Error = errMsg
	})
}

func (r *Reporter) mutateTable(table string, mutate func(*TableStatus)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts, known := r.tables[table]
	if !known {
		return
	}
	mutate(&ts)
	r.tables[table] = ts
}

// Snapshot copies the current state. TableStatus holds no references, so a
// map copy is a deep copy.
func (r *Reporter) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	tables := make(map[string]TableStatus, len(r.tables))
	for name, ts := range r.tables {
		tables[name] = ts
	}

	return Snapshot{
		Running:       r.running,
		Phase:         r.phase,
		Cycle:         r.cycle,
		NextRunIn:     r.nextRunIn,
		FullSyncDone:  r.fullSyncDone,
		LastCompleted: r.lastCompleted,
		Tables:        tables,
	}
}
