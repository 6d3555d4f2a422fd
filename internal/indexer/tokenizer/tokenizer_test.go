package tokenizer

import (
	"errors"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitWords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", []string{}},
		{"only spaces", "    ", []string{}},
		{"single", "cat", []string{"cat"}},
		{"runs of spaces", "  white   cat  ", []string{"white", "cat"}},
		{"cyrillic", "пушистый кот", []string{"пушистый", "кот"}},
		{"tab is not a separator", "a\tb c", []string{"a\tb", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitWords(tt.input))
		})
	}
}

func TestIsValidWord(t *testing.T) {
	assert.True(t, IsValidWord("кот"))
	assert.True(t, IsValidWord("-"))
	assert.False(t, IsValidWord("ca\x12t"))
	assert.False(t, IsValidWord("\n"))
}

func TestStopWords(t *testing.T) {
	sw, err := ParseStopWords("и в  на")
	require.NoError(t, err)

	assert.Equal(t, 3, sw.Len())
	assert.True(t, sw.Contains("в"))
	assert.False(t, sw.Contains("кот"))
	assert.Equal(t, []string{"в", "и", "на"}, sw.Words())
}

func TestStopWordsRejectControlCharacters(t *testing.T) {
	_, err := NewStopWords("and", "o\x01r")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument))
}

func TestTokenize(t *testing.T) {
	sw, err := NewStopWords("и")
	require.NoError(t, err)

	tokens, err := sw.Tokenize("белый кот и модный ошейник")
	require.NoError(t, err)
	assert.Equal(t, []string{"белый", "кот", "модный", "ошейник"}, tokens)

	_, err = sw.Tokenize("кот и\x02 пёс")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidWord))
}

func TestTokenizeZeroValueStopWords(t *testing.T) {
	var sw StopWords
	tokens, err := sw.Tokenize("a b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tokens)
}
