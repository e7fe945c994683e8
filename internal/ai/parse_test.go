package ai

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanAnswer(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"trims", "  It is blue.  \n", "It is blue.", false},
		{"collapses blank lines", "a\n\n\n\nb", "a\n\nb", false},
		{"crlf", "a\r\nb", "a\nb", false},
		{"empty", " \n\t ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanAnswer(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrEmptyAnswer)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanAnswerCapsLength(t *testing.T) {
	got, err := CleanAnswer(strings.Repeat("あ", maxAnswerRunes+50))
	require.NoError(t, err)
	assert.Equal(t, maxAnswerRunes+1, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestBuildItemPrompt(t *testing.T) {
	p := BuildItemPrompt(ItemFacts{
		Name:        " Desk lamp ",
		Description: "Warm light",
		PriceCents:  1205,
		Quantity:    2,
		Category:    "Home",
	})
	assert.Contains(t, p, "Name: Desk lamp\n")
	assert.Contains(t, p, "Price: 12.05\n")
	assert.Contains(t, p, "Quantity: 2\n")
	assert.Contains(t, p, "Category: Home\n")
	assert.NotContains(t, p, "Condition:")
}
