package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/tracing"
)

// Searcher ranks documents for a single query. *indexer.Engine and
// *cache.QueryCache both satisfy it.
type Searcher interface {
	FindTopDocuments(strategy indexer.Strategy, query string, filter indexer.Predicate) ([]ranker.ScoredDoc, error)
}

// BatchError reports the failed queries of a batch. Errors[i] belongs to
// queries[i] and is nil when that query succeeded.
type BatchError struct {
	Errors []error
}

func (e *BatchError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return strings.Join(msgs, "\n")
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors))
	for _, err := range e.Errors {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Failed counts the queries that failed.
func (e *BatchError) Failed() int {
	return len(e.Unwrap())
}

// Executor answers batches of queries against a Searcher.
type Executor struct {
	searcher Searcher
	strategy indexer.Strategy
	workers  int
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New builds an Executor from the search settings. m may be nil.
func New(searcher Searcher, cfg config.SearchConfig, m *metrics.Metrics) (*Executor, error) {
	strategy, err := indexer.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("search strategy: %w", err)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Executor{
		searcher: searcher,
		strategy: strategy,
		workers:  workers,
		metrics:  m,
		logger:   slog.Default().With("component", "query-executor"),
	}, nil
}

// ProcessQueries runs every query with the default status filter. The result
// at index i belongs to queries[i]. A failed query leaves a nil entry and the
// returned error is then a *BatchError. Queries not yet started when ctx is
// cancelled fail with ctx.Err().
func (x *Executor) ProcessQueries(ctx context.Context, queries []string) ([][]ranker.ScoredDoc, error) {
	batchID := uuid.NewString()
	ctx = logger.WithBatchID(ctx, batchID)
	ctx, span := tracing.StartSpan(ctx, "process_queries", batchID)
	log := logger.FromContext(ctx).With("component", "query-executor")

	results := make([][]ranker.ScoredDoc, len(queries))
	errs := make([]error, len(queries))

	var g errgroup.Group
	g.SetLimit(x.workers)
	for i, query := range queries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = fmt.Errorf("query %d %q: %w", i, query, err)
				return nil
			}
			docs, err := x.searcher.FindTopDocuments(x.strategy, query, nil)
			if err != nil {
				errs[i] = fmt.Errorf("query %d %q: %w", i, query, err)
				return nil
			}
			results[i] = docs
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	span.SetAttr("queries", len(queries))
	span.SetAttr("failed", failed)
	span.End()

	if x.metrics != nil {
		x.metrics.BatchQueriesTotal.Add(float64(len(queries)))
	}
	log.Info("batch processed",
		"queries", len(queries),
		"failed", failed,
		"strategy", x.strategy,
		"workers", x.workers,
		"duration", span.Duration.Round(time.Microsecond),
	)
	if failed > 0 {
		return results, &BatchError{Errors: errs}
	}
	return results, nil
}

// ProcessQueriesJoined concatenates the results of ProcessQueries in query
// order, skipping failed queries.
func (x *Executor) ProcessQueriesJoined(ctx context.Context, queries []string) ([]ranker.ScoredDoc, error) {
	perQuery, err := x.ProcessQueries(ctx, queries)
	total := 0
	for _, docs := range perQuery {
		total += len(docs)
	}
	joined := make([]ranker.ScoredDoc, 0, total)
	for _, docs := range perQuery {
		joined = append(joined, docs...)
	}
	return joined, err
}

// Strategy reports the per-query strategy in use.
func (x *Executor) Strategy() indexer.Strategy {
	return x.strategy
}
