package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Raniani-lab/enterpriise-sub000/packages/functions"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name     string
		value    functions.Value
		format   string
		expected string
	}{
		{"empty", nil, "", ""},
		{"integer", 42.0, "", "42"},
		{"float noise", 0.1 + 0.2, "", "0.3"},
		{"decimals", 3.14159, "0.00", "3.14"},
		{"percent", 0.125, "0.0%", "12.5%"},
		{"thousands", -1234567.0, "#,##0", "-1,234,567"},
		{"negative zero", -0.001, "0.00", "0.00"},
		{"date", 45000.0, "yyyy-mm-dd", "2023-03-15"},
		{"date time", 45000.5, "yyyy-mm-dd hh:mm:ss", "2023-03-15 12:00:00"},
		{"boolean", true, "0.00", "TRUE"},
		{"text", "abc", "0%", "abc"},
		{"error", functions.NewError(functions.ErrorCodeNA, "missing"), "", "#N/A"},
		{"loading", Loading, "", "Loading..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatValue(tt.value, tt.format))
		})
	}
}
