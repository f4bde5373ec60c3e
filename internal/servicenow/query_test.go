package servicenow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildCursorQuery(t *testing.T) {
	tests := []struct {
		name      string
		since     string
		lastSysID string
		expected  string
	}{
		{
			name:     "full scan first page orders by key",
			expected: "ORDERBYsys_id",
		},
		{
			name:      "full scan later page bookmarks on last key",
			lastSysID: "abc123",
			expected:  "sys_id>abc123^ORDERBYsys_id",
		},
		{
			name:     "delta first page bounds by watermark",
			since:    "2024-03-01 10:00:00",
			expected: "sys_updated_on>2024-03-01 10:00:00^ORDERBYsys_updated_on^ORDERBYsys_id",
		},
		{
			name:      "delta later page bookmarks inside the watermark bound",
			since:     "2024-03-01 10:00:00",
			lastSysID: "abc123",
			expected:  "sys_updated_on>2024-03-01 10:00:00^sys_id>abc123^ORDERBYsys_updated_on^ORDERBYsys_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildCursorQuery(tt.since, tt.lastSysID))
		})
	}
}
