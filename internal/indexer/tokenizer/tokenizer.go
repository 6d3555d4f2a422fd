// Package tokenizer provides word splitting and validation for the search
// engine. Words are case-sensitive and unstemmed; splitting happens on runs of
// spaces and returns substrings of the input without copying.
package tokenizer

import (
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

// SplitWords breaks text on runs of the space character. Empty tokens are
// discarded. The returned strings share memory with text.
func SplitWords(text string) []string {
	words := make([]string, 0, strings.Count(text, " ")+1)
	for len(text) > 0 {
		space := strings.IndexByte(text, ' ')
		if space < 0 {
			words = append(words, text)
			break
		}
		if space > 0 {
			words = append(words, text[:space])
		}
		text = text[space+1:]
	}
	return words
}

// IsValidWord reports whether word is free of control characters
// (bytes below 0x20).
func IsValidWord(word string) bool {
	for i := 0; i < len(word); i++ {
		if word[i] < ' ' {
			return false
		}
	}
	return true
}

// StopWords is an immutable set of words excluded from indexing and
// matching.
type StopWords struct {
	words map[string]struct{}
}

// NewStopWords builds a set from words. Empty strings are ignored; any word
// with a control character is rejected.
func NewStopWords(words ...string) (StopWords, error) {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if !IsValidWord(w) {
			return StopWords{}, apperrors.Newf(apperrors.ErrInvalidWord, "stop word %q contains a control character", w)
		}
		set[w] = struct{}{}
	}
	return StopWords{words: set}, nil
}

// ParseStopWords builds a set from a space-separated list.
func ParseStopWords(text string) (StopWords, error) {
	return NewStopWords(SplitWords(text)...)
}

// Contains reports whether word is a stop word.
func (s StopWords) Contains(word string) bool {
	_, ok := s.words[word]
	return ok
}

func (s StopWords) Len() int {
	return len(s.words)
}

// Words returns the stop words in sorted order.
func (s StopWords) Words() []string {
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Tokenize splits text and drops stop words. It fails on the first word that
// contains a control character.
func (s StopWords) Tokenize(text string) ([]string, error) {
	words := SplitWords(text)
	tokens := words[:0]
	for _, word := range words {
		if !IsValidWord(word) {
			return nil, apperrors.Newf(apperrors.ErrInvalidWord, "word %q contains a control character", word)
		}
		if s.Contains(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens, nil
}
