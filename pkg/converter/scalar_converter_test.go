package converter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

type ConvertToStringTestData struct {
	name        string
	input       interface{}
	expected    string
	expectError bool
	errorMsg    string
}

func TestConvertScalarToString(t *testing.T) {
	tests := []ConvertToStringTestData{
		{
			name:        "string input",
			input:       "hello",
			expected:    "hello",
			expectError: false,
		},
		{
			name:        "bool true input",
			input:       true,
			expected:    "true",
			expectError: false,
		},
		{
			name:        "bool false input",
			input:       false,
			expected:    "false",
			expectError: false,
		},
		{
			name:        "json.Number input",
			input:       json.Number("42.5"),
			expected:    "42.5",
			expectError: false,
		},
		{
			name:        "float64 input",
			input:       float64(3.25),
			expected:    "3.25",
			expectError: false,
		},
		{
			name:        "float64 whole number keeps no trailing zeros",
			input:       float64(42),
			expected:    "42",
			expectError: false,
		},
		{
			name:        "int input",
			input:       int(99),
			expected:    "99",
			expectError: false,
		},
		{
			name:        "int64 input",
			input:       int64(123456789),
			expected:    "123456789",
			expectError: false,
		},
		{
			name:        "unsupported map input",
			input:       map[string]interface{}{"value": "x"},
			expected:    "",
			expectError: true,
			errorMsg:    "unsupported type map[string]interface {} for conversion to string",
		},
		{
			name:        "unsupported slice input",
			input:       []interface{}{"a"},
			expected:    "",
			expectError: true,
			errorMsg:    "unsupported type []interface {} for conversion to string",
		},
		{
			name:        "unsupported nil input",
			input:       nil,
			expected:    "",
			expectError: true,
			errorMsg:    "unsupported type <nil> for conversion to string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ConvertScalarToString(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				assert.Equal(t, tt.expected, result)
				assert.EqualError(t, err, tt.errorMsg)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}
