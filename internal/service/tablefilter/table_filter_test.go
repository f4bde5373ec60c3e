package tablefilter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"snow-mirror/internal/config"
	"snow-mirror/internal/models"
)

func TestShouldMirror(t *testing.T) {
	tests := []struct {
		name     string
		rule     config.SyncRule
		table    string
		expected bool
	}{
		{
			name:     "empty rule mirrors everything",
			rule:     config.SyncRule{},
			table:    "sys_script",
			expected: true,
		},
		{
			name:     "exact mirror pattern matches",
			rule:     config.SyncRule{TablesToMirror: []string{"sys_script"}},
			table:    "sys_script",
			expected: true,
		},
		{
			name:     "mirror list excludes everything else",
			rule:     config.SyncRule{TablesToMirror: []string{"sys_script"}},
			table:    "sys_ui_page",
			expected: false,
		},
		{
			name:     "glob mirror pattern matches a family",
			rule:     config.SyncRule{TablesToMirror: []string{"sys_script*"}},
			table:    "sys_script_include",
			expected: true,
		},
		{
			name:     "skip pattern wins over mirror pattern",
			rule:     config.SyncRule{TablesToMirror: []string{"sys_*"}, TablesToSkip: []string{"sys_hub_*"}},
			table:    "sys_hub_action_type",
			expected: false,
		},
		{
			name:     "skip applies even with an empty mirror list",
			rule:     config.SyncRule{TablesToSkip: []string{"sys_hub_action_type"}},
			table:    "sys_hub_action_type",
			expected: false,
		},
		{
			name:     "invalid pattern matches nothing",
			rule:     config.SyncRule{TablesToMirror: []string{"[invalid"}},
			table:    "sys_script",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := NewGlobTableFilter(&tt.rule)
			assert.Equal(t, tt.expected, filter.ShouldMirror(tt.table))
		})
	}
}

func TestPartition(t *testing.T) {
	targets := []models.SyncTarget{
		{Table: "sys_script", Label: "Business Rules", Category: "logic"},
		{Table: "sys_hub_action_type", Label: "Action Types", Category: "flow"},
		{Table: "sys_ui_page", Label: "UI Pages", Category: "ui"},
	}
	filter := NewGlobTableFilter(&config.SyncRule{TablesToSkip: []string{"sys_hub_*"}})

	mirrored, skipped := filter.Partition(targets)

	assert.Len(t, mirrored, 2)
	assert.Equal(t, "sys_script", mirrored[0].Table)
	assert.Equal(t, "sys_ui_page", mirrored[1].Table)
	assert.Len(t, skipped, 1)
	assert.Equal(t, "sys_hub_action_type", skipped[0].Table)
}
