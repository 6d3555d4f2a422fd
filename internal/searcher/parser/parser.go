package parser

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

const minusPrefix = '-'

// QueryPlan is a parsed query. Terms must match; a document containing any
// of ExcludeTerms is dropped. Both slices are sorted and free of duplicates.
type QueryPlan struct {
	Terms        []string
	ExcludeTerms []string
	RawQuery     string
}

// Parse splits query into plus and minus terms, dropping stop words. A word
// that is a bare "-", starts with "--", or contains a control character
// fails the whole parse; no partial plan is returned.
func Parse(query string, stopWords tokenizer.StopWords) (*QueryPlan, error) {
	plan := &QueryPlan{
		Terms:        make([]string, 0),
		ExcludeTerms: make([]string, 0),
		RawQuery:     query,
	}
	for _, word := range tokenizer.SplitWords(query) {
		term, exclude, err := parseWord(word)
		if err != nil {
			return nil, err
		}
		if stopWords.Contains(term) {
			continue
		}
		if exclude {
			plan.ExcludeTerms = append(plan.ExcludeTerms, term)
		} else {
			plan.Terms = append(plan.Terms, term)
		}
	}
	plan.Terms = dedupe(plan.Terms)
	plan.ExcludeTerms = dedupe(plan.ExcludeTerms)
	return plan, nil
}

func parseWord(word string) (term string, exclude bool, err error) {
	if word == "" {
		return "", false, apperrors.New(apperrors.ErrInvalidQuery, "query word is empty")
	}
	if word[0] == minusPrefix {
		exclude = true
		word = word[1:]
	}
	if word == "" {
		return "", false, apperrors.New(apperrors.ErrInvalidQuery, "minus sign without a word")
	}
	if word[0] == minusPrefix {
		return "", false, apperrors.Newf(apperrors.ErrInvalidQuery, "query word %q has more than one minus sign", "-"+word)
	}
	if !tokenizer.IsValidWord(word) {
		return "", false, apperrors.Newf(apperrors.ErrInvalidQuery, "query word %q contains a control character", word)
	}
	return word, exclude, nil
}

func dedupe(terms []string) []string {
	if len(terms) < 2 {
		return terms
	}
	sort.Strings(terms)
	out := terms[:1]
	for _, t := range terms[1:] {
		if t != out[len(out)-1] {
			out = append(out, t)
		}
	}
	return out
}
