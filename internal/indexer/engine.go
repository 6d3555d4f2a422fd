package indexer

import (
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
)

type documentData struct {
	status DocumentStatus
	rating int
	text   string
}

// Engine owns document metadata, the insertion-order id ledger and the
// forward and inverted indices.
//
// Mutations take the write lock and queries take the read lock, so any
// number of queries may run together. A single mutation may still fan out
// internally when called with the Parallel strategy.
type Engine struct {
	mu          sync.RWMutex
	stopWords   tokenizer.StopWords
	index       *index.MemoryIndex
	docs        map[int]documentData
	ids         []int
	workers     int
	bucketCount int
	generation  atomic.Uint64
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewEngine builds an empty engine. m may be nil.
func NewEngine(cfg config.EngineConfig, m *metrics.Metrics) (*Engine, error) {
	stopWords, err := tokenizer.NewStopWords(cfg.StopWords...)
	if err != nil {
		return nil, fmt.Errorf("building stop words: %w", err)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	buckets := cfg.BucketCount
	if buckets <= 0 {
		buckets = index.DefaultBucketCount
	}
	e := &Engine{
		stopWords:   stopWords,
		index:       index.NewMemoryIndex(buckets),
		docs:        make(map[int]documentData),
		workers:     workers,
		bucketCount: buckets,
		metrics:     m,
		logger:      slog.Default().With("component", "indexer"),
	}
	e.logger.Info("engine initialized",
		"stop_words", stopWords.Len(),
		"workers", workers,
		"buckets", buckets,
	)
	return e, nil
}

// AddDocument indexes text under id. It fails with an InvalidArgument error
// when id is negative or already present, or when a word contains a control
// character; a failed call leaves the engine unchanged.
func (e *Engine) AddDocument(id int, text string, status DocumentStatus, ratings []int) error {
	if id < 0 {
		return e.addFailed(apperrors.Newf(apperrors.ErrInvalidArgument, "document id %d is negative", id))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.docs[id]; exists {
		return e.addFailed(apperrors.Newf(apperrors.ErrInvalidArgument, "document id %d already exists", id))
	}
	owned := strings.Clone(text)
	tokens, err := e.stopWords.Tokenize(owned)
	if err != nil {
		return e.addFailed(fmt.Errorf("document %d: %w", id, err))
	}

	e.docs[id] = documentData{
		status: status,
		rating: AverageRating(ratings),
		text:   owned,
	}
	e.ids = append(e.ids, id)
	e.index.Add(id, tokens)
	e.generation.Add(1)

	if e.metrics != nil {
		e.metrics.DocsAddedTotal.Inc()
		e.metrics.IndexedDocs.Set(float64(len(e.docs)))
		e.metrics.IndexedTerms.Set(float64(e.index.Terms()))
	}
	e.logger.Debug("document indexed",
		"doc_id", id,
		"status", status,
		"token_count", len(tokens),
	)
	return nil
}

func (e *Engine) addFailed(err error) error {
	if e.metrics != nil {
		e.metrics.AddFailuresTotal.WithLabelValues(apperrors.Kind(err)).Inc()
	}
	return err
}

// RemoveDocument erases id from both indices, the metadata and the ledger.
// Unknown ids are ignored.
func (e *Engine) RemoveDocument(strategy Strategy, id int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.docs[id]; !ok {
		return
	}
	e.index.Remove(id, strategy == Parallel, e.workers)
	delete(e.docs, id)
	if i := slices.Index(e.ids, id); i >= 0 {
		e.ids = slices.Delete(e.ids, i, i+1)
	}
	e.generation.Add(1)

	if e.metrics != nil {
		e.metrics.DocsRemovedTotal.WithLabelValues(strategy.String()).Inc()
		e.metrics.IndexedDocs.Set(float64(len(e.docs)))
		e.metrics.IndexedTerms.Set(float64(e.index.Terms()))
	}
	e.logger.Debug("document removed", "doc_id", id, "strategy", strategy)
}

// FindTopDocuments ranks documents matching query by TF-IDF. filter selects
// eligible documents; nil keeps only StatusActual. At most
// ranker.MaxResults documents are returned.
func (e *Engine) FindTopDocuments(strategy Strategy, query string, filter Predicate) ([]ranker.ScoredDoc, error) {
	start := time.Now()
	if filter == nil {
		filter = StatusIs(StatusActual)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	plan, err := parser.Parse(query, e.stopWords)
	if err != nil {
		e.observeSearch(strategy, start, 0, err)
		return nil, fmt.Errorf("parsing query: %w", err)
	}

	excluded := e.excludedDocs(plan.ExcludeTerms)
	var scores map[int]float64
	if strategy == Parallel {
		scores = e.relevanceParallel(plan.Terms, filter, excluded)
	} else {
		scores = e.relevanceSequential(plan.Terms, filter, excluded)
	}
	result := ranker.Rank(scores, e.ratingOf, ranker.MaxResults)

	e.observeSearch(strategy, start, len(result), nil)
	e.logger.Debug("query executed",
		"query", query,
		"strategy", strategy,
		"terms", plan.Terms,
		"exclude_terms", plan.ExcludeTerms,
		"candidates", len(scores),
		"results", len(result),
	)
	return result, nil
}

// FindTopDocumentsByStatus is FindTopDocuments filtered to one status.
func (e *Engine) FindTopDocumentsByStatus(strategy Strategy, query string, status DocumentStatus) ([]ranker.ScoredDoc, error) {
	return e.FindTopDocuments(strategy, query, StatusIs(status))
}

func (e *Engine) excludedDocs(terms []string) map[int]struct{} {
	excluded := make(map[int]struct{})
	for _, term := range terms {
		postings, ok := e.index.Postings(term)
		if !ok {
			continue
		}
		for docID := range postings {
			excluded[docID] = struct{}{}
		}
	}
	return excluded
}

func (e *Engine) relevanceSequential(terms []string, filter Predicate, excluded map[int]struct{}) map[int]float64 {
	scores := make(map[int]float64)
	for _, term := range terms {
		postings, ok := e.index.Postings(term)
		if !ok {
			continue
		}
		idf := ranker.IDF(len(e.docs), len(postings))
		for docID, tf := range postings {
			if e.eligible(docID, filter, excluded) {
				scores[docID] += tf * idf
			}
		}
	}
	return scores
}

// relevanceParallel gives each term its own worker; workers accumulate into
// a shard.Map keyed by document id.
func (e *Engine) relevanceParallel(terms []string, filter Predicate, excluded map[int]struct{}) map[int]float64 {
	acc := shard.New[int, float64](e.bucketCount, nil)
	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, term := range terms {
		g.Go(func() error {
			postings, ok := e.index.Postings(term)
			if !ok {
				return nil
			}
			idf := ranker.IDF(len(e.docs), len(postings))
			for docID, tf := range postings {
				if !e.eligible(docID, filter, excluded) {
					continue
				}
				weight := tf * idf
				acc.Update(docID, func(v *float64) {
					*v += weight
				})
			}
			return nil
		})
	}
	_ = g.Wait()
	return acc.ToMap()
}

func (e *Engine) eligible(docID int, filter Predicate, excluded map[int]struct{}) bool {
	if _, skip := excluded[docID]; skip {
		return false
	}
	doc := e.docs[docID]
	return filter(docID, doc.status, doc.rating)
}

func (e *Engine) ratingOf(docID int) int {
	return e.docs[docID].rating
}

func (e *Engine) observeSearch(strategy Strategy, start time.Time, results int, err error) {
	if e.metrics == nil {
		return
	}
	outcome := "hit"
	switch {
	case err != nil:
		outcome = apperrors.Kind(err)
	case results == 0:
		outcome = "zero_result"
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(strategy.String(), outcome).Inc()
	e.metrics.SearchLatency.WithLabelValues(strategy.String()).Observe(time.Since(start).Seconds())
	if err == nil {
		e.metrics.SearchResultsCount.Observe(float64(results))
	}
}

// MatchDocument returns the plus terms of query found in document id, in
// sorted order, along with the document's status. If any minus term matches,
// the term list is empty. Unknown ids fail with a NotFound error.
func (e *Engine) MatchDocument(strategy Strategy, query string, id int) ([]string, DocumentStatus, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	doc, ok := e.docs[id]
	if !ok {
		return nil, 0, apperrors.Newf(apperrors.ErrNotFound, "no document with id %d", id)
	}
	plan, err := parser.Parse(query, e.stopWords)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing query: %w", err)
	}

	if strategy == Parallel {
		return e.matchParallel(plan, id), doc.status, nil
	}

	matched := make([]string, 0, len(plan.Terms))
	for _, term := range plan.ExcludeTerms {
		if e.index.Contains(term, id) {
			return matched, doc.status, nil
		}
	}
	for _, term := range plan.Terms {
		if e.index.Contains(term, id) {
			matched = append(matched, term)
		}
	}
	return matched, doc.status, nil
}

func (e *Engine) matchParallel(plan *parser.QueryPlan, id int) []string {
	var excluded atomic.Bool
	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, term := range plan.ExcludeTerms {
		g.Go(func() error {
			if !excluded.Load() && e.index.Contains(term, id) {
				excluded.Store(true)
			}
			return nil
		})
	}
	_ = g.Wait()
	if excluded.Load() {
		return []string{}
	}

	hits := make([]bool, len(plan.Terms))
	for i, term := range plan.Terms {
		g.Go(func() error {
			hits[i] = e.index.Contains(term, id)
			return nil
		})
	}
	_ = g.Wait()

	matched := make([]string, 0, len(plan.Terms))
	for i, hit := range hits {
		if hit {
			matched = append(matched, plan.Terms[i])
		}
	}
	return matched
}

// GetWordFrequencies returns a copy of the term frequencies of document id.
// Unknown ids yield an empty map rather than an error.
func (e *Engine) GetWordFrequencies(id int) map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index.DocTerms(id)
}

// GetDocument returns the stored metadata and text of document id.
func (e *Engine) GetDocument(id int) (DocumentInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	doc, ok := e.docs[id]
	if !ok {
		return DocumentInfo{}, apperrors.Newf(apperrors.ErrNotFound, "no document with id %d", id)
	}
	return DocumentInfo{ID: id, Status: doc.status, Rating: doc.rating, Text: doc.text}, nil
}

func (e *Engine) GetDocumentCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

// DocumentIDs returns live document ids in insertion order.
func (e *Engine) DocumentIDs() []int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.ids)
}

// Generation changes after every successful AddDocument or RemoveDocument.
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

func (e *Engine) StopWords() tokenizer.StopWords {
	return e.stopWords
}

// CheckConsistency verifies the forward/inverted index invariant and that
// metadata, ledger and index agree on the set of documents.
func (e *Engine) CheckConsistency() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.ids) != len(e.docs) {
		return fmt.Errorf("ledger holds %d ids, metadata %d", len(e.ids), len(e.docs))
	}
	for _, id := range e.ids {
		if _, ok := e.docs[id]; !ok {
			return fmt.Errorf("ledger id %d has no metadata", id)
		}
	}
	if e.index.Docs() > len(e.docs) {
		return fmt.Errorf("index holds %d documents, metadata %d", e.index.Docs(), len(e.docs))
	}
	return e.index.CheckConsistency()
}

// Snapshot returns every posting list sorted by term.
func (e *Engine) Snapshot() []index.TermEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index.Snapshot()
}
