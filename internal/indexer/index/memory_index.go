package index

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/shard"
)

// DefaultBucketCount is the number of inverted-index buckets used when the
// caller does not pick one.
const DefaultBucketCount = 64

// MemoryIndex holds the forward index (document -> term frequencies) and the
// inverted index (term -> posting list). Both store interned term handles.
//
// A (document, term, frequency) triple is present in one index exactly when it
// is present in the other. MemoryIndex does not serialise Add and Remove
// against each other or against readers; the owning engine does.
type MemoryIndex struct {
	terms    *TermTable
	forward  map[int]TermFreqs
	inverted *shard.Map[TermID, PostingList]
}

func NewMemoryIndex(bucketCount int) *MemoryIndex {
	if bucketCount <= 0 {
		bucketCount = DefaultBucketCount
	}
	return &MemoryIndex{
		terms:   NewTermTable(),
		forward: make(map[int]TermFreqs),
		inverted: shard.New[TermID, PostingList](bucketCount, func() PostingList {
			return make(PostingList)
		}),
	}
}

// Add indexes tokens for docID. Each occurrence contributes 1/len(tokens) to
// the term's frequency. A document without tokens gets no rows.
func (m *MemoryIndex) Add(docID int, tokens []string) {
	if len(tokens) == 0 {
		return
	}
	inv := 1.0 / float64(len(tokens))
	row := make(TermFreqs)
	for _, token := range tokens {
		row[m.terms.Intern(token)] += inv
	}
	m.forward[docID] = row
	for id, tf := range row {
		m.inverted.Update(id, func(pl *PostingList) {
			(*pl)[docID] = tf
		})
	}
}

// Remove erases every row for docID. With parallel set, the per-term
// posting-list erasures are spread over at most workers goroutines; each
// erasure touches a distinct term so workers only meet on bucket locks.
func (m *MemoryIndex) Remove(docID int, parallel bool, workers int) {
	row, ok := m.forward[docID]
	if !ok {
		return
	}
	if !parallel {
		for id := range row {
			m.erase(id, docID)
		}
		delete(m.forward, docID)
		return
	}

	ids := make([]TermID, 0, len(row))
	for id := range row {
		ids = append(ids, id)
	}
	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, id := range ids {
		g.Go(func() error {
			m.erase(id, docID)
			return nil
		})
	}
	_ = g.Wait()
	delete(m.forward, docID)
}

func (m *MemoryIndex) erase(id TermID, docID int) {
	m.inverted.Modify(id, func(pl *PostingList) bool {
		delete(*pl, docID)
		return len(*pl) > 0
	})
}

// Postings returns the posting list for term. The returned map is shared
// with the index and must not be modified.
func (m *MemoryIndex) Postings(term string) (PostingList, bool) {
	id, ok := m.terms.Lookup(term)
	if !ok {
		return nil, false
	}
	pl, ok := m.inverted.Load(id)
	if !ok || len(*pl) == 0 {
		return nil, false
	}
	return *pl, true
}

// Contains reports whether docID appears in term's posting list.
func (m *MemoryIndex) Contains(term string, docID int) bool {
	pl, ok := m.Postings(term)
	if !ok {
		return false
	}
	_, ok = pl[docID]
	return ok
}

// DocTerms returns a copy of the forward-index row for docID keyed by term
// text. Unknown documents yield an empty map.
func (m *MemoryIndex) DocTerms(docID int) map[string]float64 {
	row := m.forward[docID]
	out := make(map[string]float64, len(row))
	for id, tf := range row {
		out[m.terms.Term(id)] = tf
	}
	return out
}

// HasRow reports whether docID contributed any tokens.
func (m *MemoryIndex) HasRow(docID int) bool {
	_, ok := m.forward[docID]
	return ok
}

// Docs returns the number of documents with a forward-index row.
func (m *MemoryIndex) Docs() int {
	return len(m.forward)
}

// Terms returns the number of terms with a non-empty posting list.
func (m *MemoryIndex) Terms() int {
	return m.inverted.Len()
}

// Snapshot returns every posting list sorted by term.
func (m *MemoryIndex) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, m.inverted.Len())
	m.inverted.Range(func(id TermID, pl *PostingList) bool {
		postings := make(PostingList, len(*pl))
		for docID, tf := range *pl {
			postings[docID] = tf
		}
		entries = append(entries, TermEntry{Term: m.terms.Term(id), Postings: postings})
		return true
	})
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// CheckConsistency verifies that the forward and inverted indices describe
// the same set of triples and that every row's frequencies sum to one.
func (m *MemoryIndex) CheckConsistency() error {
	triples := 0
	for docID, row := range m.forward {
		sum := 0.0
		for id, tf := range row {
			sum += tf
			pl, ok := m.inverted.Load(id)
			if !ok {
				return fmt.Errorf("doc %d: term %q missing from inverted index", docID, m.terms.Term(id))
			}
			got, ok := (*pl)[docID]
			if !ok || got != tf {
				return fmt.Errorf("doc %d: term %q has tf %v in forward index, %v in inverted index", docID, m.terms.Term(id), tf, got)
			}
			triples++
		}
		if math.Abs(sum-1) > 1e-9 {
			return fmt.Errorf("doc %d: term frequencies sum to %v", docID, sum)
		}
	}
	inverted := 0
	m.inverted.Range(func(_ TermID, pl *PostingList) bool {
		inverted += len(*pl)
		return true
	})
	if inverted != triples {
		return fmt.Errorf("inverted index holds %d postings, forward index %d", inverted, triples)
	}
	return nil
}
