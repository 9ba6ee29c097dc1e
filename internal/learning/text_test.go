package learning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single without terminator", "Use B", []string{"Use B"}},
		{"several", "Use B. It is faster!  Why? ", []string{"Use B.", "It is faster!", "Why?"}},
		{"dotted identifier", "Call time.Sleep sparingly. Done.", []string{"Call time.Sleep sparingly.", "Done."}},
		{"newlines", "First line.\nSecond line.", []string{"First line.", "Second line."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.in))
		})
	}
}

func TestIsImperative(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Use approach B instead of approach A.", true},
		{"Do not fall back to approach A.", true},
		{"Don't mock the database.", true},
		{"Please verify the flag first.", true},
		{"Remember that CI caches modules.", true},
		{"The user explicitly corrected this.", false},
		{"Do the thing.", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsImperative(tt.in))
		})
	}
}

func TestFirstImperative(t *testing.T) {
	assert.Equal(t, "Keep using it.", FirstImperative("The user approved it. Keep using it. Use it often."))
	assert.Empty(t, FirstImperative("Nothing to do here. It just works."))
}
