package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain json untouched",
			input:    `{"canvas":{"width":1080}}`,
			expected: `{"canvas":{"width":1080}}`,
		},
		{
			name:     "json fence stripped",
			input:    "```json\n{\"a\":1}\n```",
			expected: `{"a":1}`,
		},
		{
			name:     "bare fence stripped",
			input:    "```\n{\"a\":1}\n```",
			expected: `{"a":1}`,
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  \n{\"a\":1}\n  ",
			expected: `{"a":1}`,
		},
		{
			name:     "fence with trailing prose after close",
			input:    "```json\n{\"a\":1}\n``` ",
			expected: `{"a":1}`,
		},
		{
			name:     "fence with unexpected language tag",
			input:    "```JSON\n{\"a\":1}\n```",
			expected: `{"a":1}`,
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}
