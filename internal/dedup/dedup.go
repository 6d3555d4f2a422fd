// Package dedup removes documents whose set of words repeats an earlier
// document's.
package dedup

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
)

// Engine is the part of *indexer.Engine the detector needs.
type Engine interface {
	DocumentIDs() []int
	GetWordFrequencies(id int) map[string]float64
	RemoveDocument(strategy indexer.Strategy, id int)
}

// RemoveDuplicates walks documents in insertion order and removes every
// document whose word set, ignoring frequencies, equals that of an earlier
// document. It returns the removed ids in removal order. m may be nil.
func RemoveDuplicates(engine Engine, m *metrics.Metrics) []int {
	logger := slog.Default().With("component", "dedup")
	seen := make(map[string]int)
	removed := make([]int, 0)

	for _, id := range engine.DocumentIDs() {
		key := wordSetKey(engine.GetWordFrequencies(id))
		if first, dup := seen[key]; dup {
			removed = append(removed, id)
			logger.Info("found duplicate document", "doc_id", id, "duplicate_of", first)
			continue
		}
		seen[key] = id
	}

	for _, id := range removed {
		engine.RemoveDocument(indexer.Sequential, id)
	}
	if m != nil {
		m.DuplicatesRemoved.Add(float64(len(removed)))
	}
	return removed
}

// wordSetKey joins the sorted words with a byte that no valid word contains.
func wordSetKey(freqs map[string]float64) string {
	words := make([]string, 0, len(freqs))
	for w := range freqs {
		words = append(words, w)
	}
	sort.Strings(words)
	return strings.Join(words, "\x00")
}
