package models

// SyncTarget is the static configuration of one mirrored table. Instances are
// created from the registry at process start and never mutated.
type SyncTarget struct {
	Table    string
	Label    string
	Category string
}

// SyncMode selects how a table pass bounds its fetch.
type SyncMode string

const (
	SyncModePending SyncMode = "PENDING"
	SyncModeFull    SyncMode = "FULL"
	SyncModeDelta   SyncMode = "DELTA"
)

// SyncState is the lifecycle state of a table within the current cycle.
type SyncState string

const (
	SyncStatePending SyncState = "pending"
	SyncStateRunning SyncState = "running"
	SyncStateOK      SyncState = "ok"
	SyncStateError   SyncState = "error"
	SyncStateSkipped SyncState = "skipped"
)

// Phase is the overall position of the sync loop.
type Phase string

const (
	PhaseIdle     Phase = "IDLE"
	PhaseFullSync Phase = "FULL_SYNC"
	PhaseDelta    Phase = "DELTA"
)
