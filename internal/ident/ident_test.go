package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "T001", "T001"},
		{"trims whitespace", "  T001\t\n", "T001"},
		{"empty", "   ", ""},
		{"composes decomposed accent", "Gate E\u0301", "Gate \u00c9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}
