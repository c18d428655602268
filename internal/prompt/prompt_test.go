package prompt_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktreectl/internal/errors"
	"worktreectl/internal/prompt"
)

func TestLinePrompter_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var out bytes.Buffer
			p := prompt.NewLinePrompter(strings.NewReader(tt.input), &out)

			got, err := p.Confirm("Remove 2 items?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Remove 2 items? (y/N)")
		})
	}
}

func TestLinePrompter_Input(t *testing.T) {
	var out bytes.Buffer
	p := prompt.NewLinePrompter(strings.NewReader("  1-3,5 \n"), &out)

	got, err := p.Input("Select", "all")
	require.NoError(t, err)
	assert.Equal(t, "1-3,5", got)

	_, err = p.Input("Select", "all")
	assert.True(t, errors.HasCode(err, errors.ErrCancelled))
}
