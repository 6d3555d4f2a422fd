package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/resilience"
)

const (
	// KeyPrefix starts every key written to the remote tier.
	KeyPrefix     = "search:"
	remoteTimeout = 250 * time.Millisecond
)

// Source is the engine behind the cache.
type Source interface {
	FindTopDocuments(strategy indexer.Strategy, query string, filter indexer.Predicate) ([]ranker.ScoredDoc, error)
	Generation() uint64
	StopWords() tokenizer.StopWords
}

// RemoteStore is an optional shared tier such as Redis. Get reports a miss
// with ok == false and a nil error.
type RemoteStore interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// QueryCache memoizes default-filter searches. Entries are keyed by the
// normalized query and the source's generation, so any mutation of the
// source makes every earlier entry unreachable.
type QueryCache struct {
	source Source
	local  *lru.Cache[string, []ranker.ScoredDoc]
	remote RemoteStore
	cb     *resilience.Breaker
	ttl    time.Duration
	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
	m      *metrics.Metrics
	logger *slog.Logger
}

// New wraps source. size <= 0 disables the in-process tier; remote and m may
// be nil. Repeated remote failures open a circuit breaker that skips the
// remote tier until it recovers.
func New(source Source, size int, remote RemoteStore, ttl time.Duration, m *metrics.Metrics) (*QueryCache, error) {
	c := &QueryCache{
		source: source,
		remote: remote,
		ttl:    ttl,
		m:      m,
		logger: slog.Default().With("component", "query-cache"),
	}
	if remote != nil {
		c.cb = resilience.NewBreaker("query-cache-remote", resilience.BreakerConfig{})
	}
	if size > 0 {
		local, err := lru.New[string, []ranker.ScoredDoc](size)
		if err != nil {
			return nil, fmt.Errorf("creating lru cache: %w", err)
		}
		c.local = local
	}
	return c, nil
}

// FindTopDocuments serves query from the cache when possible. Calls with a
// non-nil filter, and queries that fail to parse, go straight to the source.
func (c *QueryCache) FindTopDocuments(strategy indexer.Strategy, query string, filter indexer.Predicate) ([]ranker.ScoredDoc, error) {
	if filter != nil {
		return c.source.FindTopDocuments(strategy, query, filter)
	}
	key, ok := c.buildKey(query)
	if !ok {
		return c.source.FindTopDocuments(strategy, query, nil)
	}

	if docs, ok := c.getLocal(key); ok {
		c.hit(key, "local")
		return docs, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if docs, ok := c.getRemote(key); ok {
			c.hit(key, "remote")
			c.putLocal(key, docs)
			return docs, nil
		}
		c.miss()
		docs, err := c.source.FindTopDocuments(strategy, query, nil)
		if err != nil {
			return nil, err
		}
		c.putLocal(key, docs)
		c.putRemote(key, docs)
		return docs, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(val.([]ranker.ScoredDoc)), nil
}

// Stats returns hit and miss counts since creation.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge drops every in-process entry.
func (c *QueryCache) Purge() {
	if c.local != nil {
		c.local.Purge()
	}
}

func (c *QueryCache) hit(key, tier string) {
	c.hits.Add(1)
	if c.m != nil {
		c.m.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "key", key, "tier", tier)
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.m != nil {
		c.m.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) getLocal(key string) ([]ranker.ScoredDoc, bool) {
	if c.local == nil {
		return nil, false
	}
	docs, ok := c.local.Get(key)
	if !ok {
		return nil, false
	}
	return slices.Clone(docs), true
}

func (c *QueryCache) putLocal(key string, docs []ranker.ScoredDoc) {
	if c.local != nil {
		c.local.Add(key, slices.Clone(docs))
	}
}

func (c *QueryCache) getRemote(key string) ([]ranker.ScoredDoc, bool) {
	if c.remote == nil {
		return nil, false
	}
	var data []byte
	var ok bool
	err := c.cb.Do(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		var err error
		data, ok, err = c.remote.Get(ctx, key)
		return err
	})
	if err != nil {
		c.remoteFailed("get", key, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var docs []ranker.ScoredDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return docs, true
}

func (c *QueryCache) putRemote(key string, docs []ranker.ScoredDoc) {
	if c.remote == nil {
		return
	}
	data, err := json.Marshal(docs)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.cb.Do(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		return c.remote.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.remoteFailed("set", key, err)
	}
}

func (c *QueryCache) remoteFailed(op, key string, err error) {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Debug("remote cache skipped", "op", op, "error", err)
		return
	}
	c.logger.Error("remote cache "+op+" failed", "key", key, "error", err)
}

// buildKey normalizes query through the parser so that word order, repeats
// and stop words do not split entries. It reports false for invalid queries.
func (c *QueryCache) buildKey(query string) (string, bool) {
	gen := c.source.Generation()
	plan, err := parser.Parse(query, c.source.StopWords())
	if err != nil {
		return "", false
	}
	raw := fmt.Sprintf("%d|%s|-%s",
		gen,
		strings.Join(plan.Terms, " "),
		strings.Join(plan.ExcludeTerms, " "),
	)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", KeyPrefix, hash[:16]), true
}
