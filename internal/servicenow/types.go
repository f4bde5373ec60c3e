package servicenow

import "snow-mirror/internal/models"

// FetchResult is everything one table fetch produced. Failures travel inside
// the result rather than as a returned error so the sync loop can treat every
// table outcome uniformly: gathered records are always usable.
type FetchResult struct {
	Records []models.Record

	// MaxTimestamp is the highest sys_updated_on observed across the whole
	// fetch, seeded with the caller's lower bound. "" when neither exists.
	MaxTimestamp string

	Pages int

	// Unreachable marks an authorization/not-found class response: the table
	// cannot be pulled with the current credentials and paging stopped.
	Unreachable bool

	// Err is set when a page request failed for a transient reason. Records
	// holds whatever was gathered before the failure.
	Err error
}

// Failed reports whether the fetch ended before the final page.
func (r *FetchResult) Failed() bool {
	return r.Err != nil || r.Unreachable
}

// PatchResult is the remote acknowledgment of a single-record PATCH.
type PatchResult struct {
	SysID     string
	Name      string
	UpdatedOn string
}
