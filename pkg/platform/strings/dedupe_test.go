package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "trims whitespace",
			input:    []string{"  evt-1  ", "evt-2  ", "  evt-3"},
			expected: []string{"evt-1", "evt-2", "evt-3"},
		},
		{
			name:     "removes duplicates preserving order",
			input:    []string{"evt-2", "evt-1", "evt-2", "evt-3", "evt-1"},
			expected: []string{"evt-2", "evt-1", "evt-3"},
		},
		{
			name:     "removes blank entries",
			input:    []string{"evt-1", "", "  ", "evt-2"},
			expected: []string{"evt-1", "evt-2"},
		},
		{
			name:     "source ids are case sensitive",
			input:    []string{"Evt", "evt"},
			expected: []string{"Evt", "evt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ana.perez@example.com", NormalizeEmail("  Ana.Perez@Example.COM "))
	assert.Equal(t, "", NormalizeEmail("   "))
}
