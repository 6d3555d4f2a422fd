package executor

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
)

func newEngine(t *testing.T) *indexer.Engine {
	t.Helper()
	e, err := indexer.NewEngine(config.EngineConfig{StopWords: []string{"and", "with"}, Workers: 4}, nil)
	require.NoError(t, err)
	texts := []string{
		"funny pet and nasty rat",
		"funny pet with curly hair",
		"funny pet and not very nasty rat",
		"pet with rat and rat and rat",
		"nasty rat with curly hair",
	}
	for id, text := range texts {
		require.NoError(t, e.AddDocument(id+1, text, indexer.StatusActual, []int{id, id + 1}))
	}
	return e
}

func newExecutor(t *testing.T, s Searcher, strategy string, m *metrics.Metrics) *Executor {
	t.Helper()
	x, err := New(s, config.SearchConfig{Workers: 3, Strategy: strategy}, m)
	require.NoError(t, err)
	return x
}

func TestProcessQueriesMatchesSingleQueries(t *testing.T) {
	e := newEngine(t)
	queries := []string{"nasty rat -not", "not very funny nasty pet", "curly hair", "unknown"}

	for _, strategy := range []string{"sequential", "parallel"} {
		t.Run(strategy, func(t *testing.T) {
			x := newExecutor(t, e, strategy, nil)
			got, err := x.ProcessQueries(context.Background(), queries)
			require.NoError(t, err)
			require.Len(t, got, len(queries))

			for i, q := range queries {
				want, err := e.FindTopDocuments(indexer.Sequential, q, nil)
				require.NoError(t, err)
				require.Len(t, got[i], len(want), "query %q", q)
				for j := range want {
					assert.Equal(t, want[j].ID, got[i][j].ID)
					assert.InDelta(t, want[j].Relevance, got[i][j].Relevance, ranker.RelevanceEpsilon)
				}
			}
			assert.Empty(t, got[3])
		})
	}
}

func TestProcessQueriesJoined(t *testing.T) {
	e := newEngine(t)
	x := newExecutor(t, e, "sequential", nil)
	queries := []string{"nasty rat -not", "not very funny nasty pet", "curly hair"}

	perQuery, err := x.ProcessQueries(context.Background(), queries)
	require.NoError(t, err)
	joined, err := x.ProcessQueriesJoined(context.Background(), queries)
	require.NoError(t, err)

	var want []int
	for _, docs := range perQuery {
		for _, d := range docs {
			want = append(want, d.ID)
		}
	}
	got := make([]int, len(joined))
	for i, d := range joined {
		got[i] = d.ID
	}
	assert.Equal(t, want, got)
}

func TestProcessQueriesReportsEachFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e := newEngine(t)
	x := newExecutor(t, e, "parallel", m)

	got, err := x.ProcessQueries(context.Background(), []string{"rat", "--rat", "pet", "-"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)
	assert.Contains(t, err.Error(), `query 1 "--rat"`)
	assert.Contains(t, err.Error(), `query 3 "-"`)

	assert.NotEmpty(t, got[0])
	assert.Nil(t, got[1])
	assert.NotEmpty(t, got[2])
	assert.Nil(t, got[3])
	assert.Equal(t, 4.0, testutil.ToFloat64(m.BatchQueriesTotal))

	joined, err := x.ProcessQueriesJoined(context.Background(), []string{"rat", "--rat"})
	require.Error(t, err)
	assert.Len(t, joined, len(got[0]))
}

func TestProcessQueriesEmptyBatch(t *testing.T) {
	x := newExecutor(t, newEngine(t), "sequential", nil)
	got, err := x.ProcessQueries(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

type countingSearcher struct {
	calls atomic.Int64
}

func (c *countingSearcher) FindTopDocuments(_ indexer.Strategy, query string, _ indexer.Predicate) ([]ranker.ScoredDoc, error) {
	c.calls.Add(1)
	return []ranker.ScoredDoc{{ID: len(query)}}, nil
}

func TestProcessQueriesCancelled(t *testing.T) {
	s := &countingSearcher{}
	x := newExecutor(t, s, "sequential", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	queries := make([]string, 10)
	for i := range queries {
		queries[i] = fmt.Sprintf("q%d", i)
	}
	got, err := x.ProcessQueries(ctx, queries)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), s.calls.Load())
	for _, docs := range got {
		assert.Nil(t, docs)
	}
}

func TestProcessQueriesKeepsInputOrder(t *testing.T) {
	s := &countingSearcher{}
	x := newExecutor(t, s, "parallel", nil)
	queries := []string{"a", "bbb", "cc", "dddd", "e"}
	got, err := x.ProcessQueries(context.Background(), queries)
	require.NoError(t, err)
	for i, q := range queries {
		require.Len(t, got[i], 1)
		assert.Equal(t, len(q), got[i][0].ID)
	}
	assert.Equal(t, int64(len(queries)), s.calls.Load())
	assert.Equal(t, indexer.Parallel, x.Strategy())
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	_, err := New(&countingSearcher{}, config.SearchConfig{Workers: 1, Strategy: "eager"}, nil)
	assert.Error(t, err)
}
