package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type MapStringKeysToSliceTestData struct {
	name     string
	input    map[string]bool
	expected []string
}

func TestMapKeysToSlice(t *testing.T) {
	tests := []MapStringKeysToSliceTestData{
		{
			name:     "empty map",
			input:    map[string]bool{},
			expected: []string{},
		},
		{
			name:     "single key",
			input:    map[string]bool{"foo": true},
			expected: []string{"foo"},
		},
		{
			name:     "multiple keys",
			input:    map[string]bool{"a": true, "b": false, "c": true},
			expected: []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MapKeysToSlice(tt.input)
			assert.ElementsMatch(t, result, tt.expected)
		})
	}
}

func TestDeepCopy(t *testing.T) {
	t.Run("nil map stays nil", func(t *testing.T) {
		assert.Nil(t, DeepCopy(nil))
	})

	t.Run("nested maps are copied, not shared", func(t *testing.T) {
		src := map[string]interface{}{
			"a": "1",
			"nested": map[string]interface{}{
				"b": "2",
			},
		}

		dst := DeepCopy(src)
		dst["nested"].(map[string]interface{})["b"] = "changed"

		assert.Equal(t, "2", src["nested"].(map[string]interface{})["b"])
	})
}
