package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargets(t *testing.T) {
	targets := Targets()

	require.NotEmpty(t, targets)

	t.Run("registration order is stable", func(t *testing.T) {
		assert.Equal(t, "sys_db_object", targets[0].Table)
		assert.Equal(t, "sys_update_xml", targets[len(targets)-1].Table)
	})

	t.Run("no duplicate tables", func(t *testing.T) {
		seen := make(map[string]struct{}, len(targets))
		for _, target := range targets {
			_, dup := seen[target.Table]
			assert.False(t, dup, "duplicate table %s", target.Table)
			seen[target.Table] = struct{}{}
		}
	})

	t.Run("every target is fully described", func(t *testing.T) {
		for _, target := range targets {
			assert.NotEmpty(t, target.Table)
			assert.NotEmpty(t, target.Label, "label missing for %s", target.Table)
			assert.NotEmpty(t, target.Category, "category missing for %s", target.Table)
		}
	})
}

func TestDefaultSkipPatterns(t *testing.T) {
	assert.Contains(t, DefaultSkipPatterns(), "sys_hub_action_type")
}
