package servicenow

import (
	"fmt"

	"snow-mirror/internal/models"
)

// buildCursorQuery encodes one page's filter and ordering in the instance's
// query syntax (^ joins terms, ORDERBY orders ascending).
//
// Full scan pages by primary key alone; a watermark-bounded scan orders by
// (sys_updated_on, sys_id) and bookmarks on the last key seen, so rows
// modified or inserted mid-scan can never shift already-read pages the way a
// numeric offset would.
//
// The bookmark ANDs onto the timestamp bound, so a row appearing mid-scan
// with a key at or below the bookmark is not paged within the current pass.
// It is deferred, not lost: its timestamp exceeds the watermark this pass
// persists, and the next delta pass picks it up.
func buildCursorQuery(since, lastSysID string) string {
	if since == "" {
		if lastSysID == "" {
			return orderBy(models.FieldSysID)
		}
		return fmt.Sprintf("%s>%s^%s", models.FieldSysID, lastSysID, orderBy(models.FieldSysID))
	}

	base := fmt.Sprintf("%s>%s", models.FieldUpdatedOn, since)
	ordering := orderBy(models.FieldUpdatedOn) + "^" + orderBy(models.FieldSysID)
	if lastSysID == "" {
		return base + "^" + ordering
	}
	return fmt.Sprintf("%s^%s>%s^%s", base, models.FieldSysID, lastSysID, ordering)
}

func orderBy(field string) string {
	return "ORDERBY" + field
}
