package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobTitle(t *testing.T) {
	title, err := JobTitle("  Монтаж котла  ")
	require.NoError(t, err)
	assert.Equal(t, "Монтаж котла", title)

	tests := []struct {
		name  string
		title string
	}{
		{"пустое", "   "},
		{"короткое", "ab"},
		{"длинное", strings.Repeat("я", MaxJobTitleLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := JobTitle(tt.title)
			assert.Error(t, err)
		})
	}
}

func TestValidateLength_CountsRunes(t *testing.T) {
	assert.NoError(t, ValidateLength("поле", "ёжик", 4, 4))
	assert.Error(t, ValidateLength("поле", "ёж", 3, 0))
}

func TestBidAmount(t *testing.T) {
	assert.NoError(t, BidAmount(1))
	assert.NoError(t, BidAmount(MaxBidAmount))
	assert.Error(t, BidAmount(0))
	assert.Error(t, BidAmount(-5))
	assert.Error(t, BidAmount(MaxBidAmount+1))
}

func TestCoverLetter_Optional(t *testing.T) {
	letter, err := CoverLetter("")
	require.NoError(t, err)
	assert.Empty(t, letter)

	_, err = CoverLetter(strings.Repeat("a", MaxCoverLetterLength+1))
	assert.Error(t, err)
}

func TestMessageContentAndReason(t *testing.T) {
	msg, err := MessageContent(" буду в 10 ")
	require.NoError(t, err)
	assert.Equal(t, "буду в 10", msg)

	_, err = MessageContent("  ")
	assert.Error(t, err)

	_, err = Reason("спор", "")
	assert.ErrorContains(t, err, "спор")

	reason, err := Reason("спор", "работа не выполнена")
	require.NoError(t, err)
	assert.Equal(t, "работа не выполнена", reason)
}
