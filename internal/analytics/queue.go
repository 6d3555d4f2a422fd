// Package analytics tracks search requests: a sliding window of recent
// outcomes, an asynchronous event pipeline, and an aggregator for reports.
package analytics

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
)

// DefaultWindow is one request per minute for a day.
const DefaultWindow = 1440

// RequestQueue runs searches and remembers whether each of the last window
// successful requests returned anything.
type RequestQueue struct {
	mu        sync.Mutex
	searcher  executor.Searcher
	strategy  indexer.Strategy
	collector *Collector
	metrics   *metrics.Metrics

	empty     []bool
	head      int
	size      int
	noResults int
}

// NewRequestQueue wraps searcher. collector and m may be nil.
func NewRequestQueue(searcher executor.Searcher, window int, strategy indexer.Strategy, collector *Collector, m *metrics.Metrics) *RequestQueue {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RequestQueue{
		searcher:  searcher,
		strategy:  strategy,
		collector: collector,
		metrics:   m,
		empty:     make([]bool, window),
	}
}

// AddFindRequest searches for query and records the outcome. Failed searches
// return their error and leave the window unchanged.
func (q *RequestQueue) AddFindRequest(query string, filter indexer.Predicate) ([]ranker.ScoredDoc, error) {
	return q.FindTopDocuments(q.strategy, query, filter)
}

// FindTopDocuments is AddFindRequest with an explicit strategy, so a
// RequestQueue can stand in for any executor.Searcher.
func (q *RequestQueue) FindTopDocuments(strategy indexer.Strategy, query string, filter indexer.Predicate) ([]ranker.ScoredDoc, error) {
	start := time.Now()
	docs, err := q.searcher.FindTopDocuments(strategy, query, filter)
	q.track(query, docs, err, time.Since(start))
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	q.push(len(docs) == 0)
	noResults := q.noResults
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.ZeroResultRequests.Set(float64(noResults))
	}
	return docs, nil
}

func (q *RequestQueue) AddFindRequestByStatus(query string, status indexer.DocumentStatus) ([]ranker.ScoredDoc, error) {
	return q.AddFindRequest(query, indexer.StatusIs(status))
}

// NoResultRequests counts empty results among the requests in the window.
func (q *RequestQueue) NoResultRequests() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.noResults
}

// Len is the number of requests currently in the window.
func (q *RequestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// push appends one outcome, evicting the oldest once the window is full.
func (q *RequestQueue) push(empty bool) {
	window := len(q.empty)
	if q.size == window {
		if q.empty[q.head] {
			q.noResults--
		}
		q.empty[q.head] = empty
		q.head = (q.head + 1) % window
	} else {
		q.empty[(q.head+q.size)%window] = empty
		q.size++
	}
	if empty {
		q.noResults++
	}
}

func (q *RequestQueue) track(query string, docs []ranker.ScoredDoc, err error, latency time.Duration) {
	if q.collector == nil {
		return
	}
	event := SearchEvent{
		Type:      EventSearch,
		Query:     query,
		Returned:  len(docs),
		LatencyMs: latency.Milliseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: uuid.NewString(),
	}
	switch {
	case err != nil:
		event.Type = EventFailed
		event.Error = err.Error()
	case len(docs) == 0:
		event.Type = EventZeroResult
	default:
		top := docs[0].ID
		event.TopDocID = &top
	}
	q.collector.Track(event)
}
