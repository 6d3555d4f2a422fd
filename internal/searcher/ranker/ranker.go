package ranker

import (
	"math"
	"sort"
)

const (
	// MaxResults caps every ranked result list.
	MaxResults = 5
	// RelevanceEpsilon is the tolerance under which two relevance scores
	// count as tied.
	RelevanceEpsilon = 1e-6
)

type ScoredDoc struct {
	ID        int     `json:"id"`
	Relevance float64 `json:"relevance"`
	Rating    int     `json:"rating"`
}

// IDF returns ln(totalDocs / docFreq).
func IDF(totalDocs int, docFreq int) float64 {
	return math.Log(float64(totalDocs) / float64(docFreq))
}

// Less orders a before b: higher relevance first, relevance within
// RelevanceEpsilon falls back to higher rating, then lower id.
func Less(a, b ScoredDoc) bool {
	if math.Abs(a.Relevance-b.Relevance) < RelevanceEpsilon {
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.ID < b.ID
	}
	return a.Relevance > b.Relevance
}

// Sort orders docs in place by Less.
func Sort(docs []ScoredDoc) {
	sort.SliceStable(docs, func(i, j int) bool {
		return Less(docs[i], docs[j])
	})
}

// Rank turns accumulated relevance scores into a sorted list of at most limit
// documents. rating supplies each document's rating; limit <= 0 means
// MaxResults.
func Rank(scores map[int]float64, rating func(docID int) int, limit int) []ScoredDoc {
	if limit <= 0 {
		limit = MaxResults
	}
	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		result = append(result, ScoredDoc{
			ID:        docID,
			Relevance: score,
			Rating:    rating(docID),
		})
	}
	// Pre-sorting by id gives the epsilon comparison a deterministic input
	// order regardless of map iteration.
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	Sort(result)
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}
