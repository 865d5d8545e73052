package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "nil slice", input: nil, want: nil},
		{name: "empty slice", input: []string{}, want: []string{}},
		{name: "single element", input: []string{"kafka-1:9092"}, want: []string{"kafka-1:9092"}},
		{
			name:  "trims whitespace",
			input: []string{"  kafka-1:9092  ", "kafka-2:9092 "},
			want:  []string{"kafka-1:9092", "kafka-2:9092"},
		},
		{
			name:  "drops duplicates keeping first-occurrence order",
			input: []string{"a", "b", "a", "c", "b"},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "drops entries left by stray commas",
			input: []string{"a", "", "  ", "b"},
			want:  []string{"a", "b"},
		},
		{
			name:  "case is preserved and significant",
			input: []string{"Topic", "topic"},
			want:  []string{"Topic", "topic"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrim(tt.input))
		})
	}
}
