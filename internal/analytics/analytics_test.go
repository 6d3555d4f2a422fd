package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
)

func newPetEngine(t *testing.T) *indexer.Engine {
	t.Helper()
	e, err := indexer.NewEngine(config.EngineConfig{StopWords: []string{"and", "in", "at"}, Workers: 2}, nil)
	require.NoError(t, err)
	docs := []struct {
		id      int
		text    string
		ratings []int
	}{
		{1, "curly cat curly tail", []int{7, 2, 7}},
		{2, "curly dog and fancy collar", []int{1, 2, 3}},
		{3, "big cat fancy collar ", []int{1, 2, 8}},
		{4, "big dog sparrow Eugene", []int{1, 3, 2}},
		{5, "big dog sparrow Vasiliy", []int{1, 1, 1}},
	}
	for _, d := range docs {
		require.NoError(t, e.AddDocument(d.id, d.text, indexer.StatusActual, d.ratings))
	}
	return e
}

func TestRequestQueueSlidingWindow(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	q := NewRequestQueue(newPetEngine(t), DefaultWindow, indexer.Sequential, nil, m)

	for i := 0; i < 1439; i++ {
		docs, err := q.AddFindRequest("empty request", nil)
		require.NoError(t, err)
		require.Empty(t, docs)
	}
	assert.Equal(t, 1439, q.NoResultRequests())

	docs, err := q.AddFindRequest("curly dog", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, docs)
	assert.Equal(t, 1439, q.NoResultRequests())
	assert.Equal(t, DefaultWindow, q.Len())

	_, err = q.AddFindRequest("big collar", nil)
	require.NoError(t, err)
	_, err = q.AddFindRequest("sparrow", nil)
	require.NoError(t, err)

	assert.Equal(t, 1437, q.NoResultRequests())
	assert.Equal(t, DefaultWindow, q.Len())
	assert.Equal(t, 1437.0, testutil.ToFloat64(m.ZeroResultRequests))
}

func TestRequestQueueSmallWindow(t *testing.T) {
	q := NewRequestQueue(newPetEngine(t), 3, indexer.Parallel, nil, nil)
	outcomes := []struct {
		query string
		want  int
	}{
		{"nothing", 1},
		{"cat", 1},
		{"nothing", 2},
		{"nothing", 2},
		{"nothing", 3},
		{"dog", 2},
	}
	for _, o := range outcomes {
		_, err := q.AddFindRequest(o.query, nil)
		require.NoError(t, err)
		assert.Equal(t, o.want, q.NoResultRequests(), "after %q", o.query)
	}
}

func TestRequestQueueIgnoresFailedRequests(t *testing.T) {
	q := NewRequestQueue(newPetEngine(t), 10, indexer.Sequential, nil, nil)
	_, err := q.AddFindRequest("--cat", nil)
	require.Error(t, err)
	assert.Zero(t, q.Len())

	docs, err := q.AddFindRequestByStatus("cat", indexer.StatusBanned)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, 1, q.NoResultRequests())
}

type fakePublisher struct {
	mu      sync.Mutex
	events  []SearchEvent
	batches int
	fail    bool
	block   chan struct{}
}

func (f *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	if f.fail {
		return errors.New("broker unavailable")
	}
	for _, e := range events {
		f.events = append(f.events, e.Value.(SearchEvent))
	}
	return nil
}

func (f *fakePublisher) snapshot() []SearchEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SearchEvent(nil), f.events...)
}

func TestCollectorPublishesQueueEvents(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 64, nil)
	c.Start(context.Background())

	q := NewRequestQueue(newPetEngine(t), 10, indexer.Sequential, c, nil)
	_, err := q.AddFindRequest("curly", nil)
	require.NoError(t, err)
	_, err = q.AddFindRequest("nothing", nil)
	require.NoError(t, err)
	_, err = q.AddFindRequest("-", nil)
	require.Error(t, err)
	c.Close()

	events := pub.snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, EventSearch, events[0].Type)
	assert.Equal(t, "curly", events[0].Query)
	require.NotNil(t, events[0].TopDocID)
	assert.Equal(t, 1, *events[0].TopDocID)
	assert.NotEmpty(t, events[0].RequestID)

	assert.Equal(t, EventZeroResult, events[1].Type)
	assert.Nil(t, events[1].TopDocID)

	assert.Equal(t, EventFailed, events[2].Type)
	assert.NotEmpty(t, events[2].Error)
}

func TestCollectorDropsWhenFull(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	pub := &fakePublisher{}
	c := NewCollector(pub, 2, m)

	for i := 0; i < 5; i++ {
		c.Track(SearchEvent{Type: EventSearch, Query: "q"})
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.AnalyticsDropsTotal))

	c.Start(context.Background())
	c.Close()
	assert.Len(t, pub.snapshot(), 2)
}

func TestCollectorDrainsOnCancel(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 16, nil)
	for i := 0; i < 10; i++ {
		c.Track(SearchEvent{Type: EventSearch, Query: "q"})
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Start(ctx)
	c.Close()
	assert.Len(t, pub.snapshot(), 10)
}

func TestCollectorSurvivesPublishErrors(t *testing.T) {
	pub := &fakePublisher{fail: true}
	c := NewCollector(pub, 16, nil)
	c.Start(context.Background())
	c.Track(SearchEvent{Type: EventSearch, Query: "q"})
	c.Close()
	assert.Equal(t, publishBackoff.Attempts, pub.batches)
	assert.Empty(t, pub.snapshot())
}

func TestCollectorCloseWithoutStart(t *testing.T) {
	c := NewCollector(&fakePublisher{}, 1, nil)
	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close blocked without Start")
	}
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator(2)
	events := []kafka.Event{
		{Key: "search", Value: SearchEvent{Type: EventSearch, Query: "cat", LatencyMs: 2}},
		{Key: "search", Value: SearchEvent{Type: EventSearch, Query: "cat", LatencyMs: 4}},
		{Key: "zero_result", Value: SearchEvent{Type: EventZeroResult, Query: "unicorn", LatencyMs: 6}},
		{Key: "failed", Value: SearchEvent{Type: EventFailed, Query: "--x"}},
	}
	require.NoError(t, agg.PublishBatch(context.Background(), events))

	stats := agg.Stats()
	assert.Equal(t, int64(4), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, int64(1), stats.FailedCount)
	assert.InDelta(t, 4.0, stats.AvgLatencyMs, 1e-9)
	assert.Equal(t, int64(4), stats.P50LatencyMs)
	assert.Equal(t, int64(6), stats.P99LatencyMs)
	assert.Equal(t, []QueryCount{{Query: "cat", Count: 2}, {Query: "--x", Count: 1}}, stats.TopQueries)
	assert.Equal(t, []QueryCount{{Query: "unicorn", Count: 1}}, stats.ZeroResultQueries)

	err := agg.PublishBatch(context.Background(), []kafka.Event{{Value: "bogus"}})
	assert.Error(t, err)
}

func TestAggregatorHandleMessage(t *testing.T) {
	agg := NewAggregator(10)
	raw, err := json.Marshal(SearchEvent{Type: EventZeroResult, Query: "unicorn"})
	require.NoError(t, err)

	require.NoError(t, agg.HandleMessage(context.Background(), []byte("zero_result"), raw))
	require.NoError(t, agg.HandleMessage(context.Background(), nil, []byte("{not json")))

	stats := agg.Stats()
	assert.Equal(t, int64(1), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
}
