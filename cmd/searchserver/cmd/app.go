package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/search-server/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/tracing"
)

const shutdownTimeout = 5 * time.Second

// app owns everything a command builds and tears it down in reverse order.
type app struct {
	cfg      *config.Config
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	engine   *indexer.Engine
	health   *health.Checker
	closers  []func()
}

func newApp(cfg *config.Config) (*app, error) {
	reg := prometheus.NewRegistry()
	a := &app{
		cfg:      cfg,
		registry: reg,
		metrics:  metrics.New(reg),
		health:   health.NewChecker(),
	}
	engine, err := indexer.NewEngine(cfg.Engine, a.metrics)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	a.engine = engine
	a.health.Register("engine", health.FromError(func(context.Context) error {
		return engine.CheckConsistency()
	}))
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg, a.health)
		a.onClose(func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				slog.Error("metrics server shutdown failed", "error", err)
			}
		})
	}
	return a, nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) loadDocuments(path string) (int, error) {
	defer tracing.LogDuration("load documents")()
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening documents: %w", err)
	}
	defer f.Close()
	n, err := ingestion.LoadInto(ingestion.NewReader(f, a.cfg.Ingestion.MaxLineBytes), a.engine)
	if err != nil {
		return n, fmt.Errorf("loading %s: %w", path, err)
	}
	return n, nil
}

func (a *app) loadQueries(path string) ([]string, error) {
	if path == "-" {
		return ingestion.ReadQueries(os.Stdin, a.cfg.Ingestion.MaxLineBytes)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening queries: %w", err)
	}
	defer f.Close()
	return ingestion.ReadQueries(f, a.cfg.Ingestion.MaxLineBytes)
}

// redisClient connects when Redis is enabled. A failed connection is logged
// and reported as nil so that callers fall back to the local tier.
func (a *app) redisClient() *pkgredis.Client {
	if !a.cfg.Redis.Enabled {
		return nil
	}
	client, err := pkgredis.NewClient(a.cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, shared cache disabled", "error", err)
		return nil
	}
	a.onClose(func() { _ = client.Close() })
	a.health.Register("redis", health.FromError(client.Ping))
	slog.Info("shared cache enabled", "addr", a.cfg.Redis.Addr, "ttl", a.cfg.Redis.CacheTTL)
	return client
}

// searchPipeline is the searcher stack every query command runs through:
// request queue, then result cache, then engine.
type searchPipeline struct {
	queue      *analytics.RequestQueue
	cache      *cache.QueryCache
	collector  *analytics.Collector
	aggregator *analytics.Aggregator
	metrics    *metrics.Metrics
}

func (a *app) newSearchPipeline(ctx context.Context, strategy indexer.Strategy) (*searchPipeline, error) {
	var remote cache.RemoteStore
	if client := a.redisClient(); client != nil {
		remote = client
	}
	qc, err := cache.New(a.engine, a.cfg.Search.CacheSize, remote, a.cfg.Redis.CacheTTL, a.metrics)
	if err != nil {
		return nil, err
	}

	p := &searchPipeline{cache: qc, metrics: a.metrics}
	var publisher analytics.EventPublisher
	if a.cfg.Kafka.Enabled {
		producer := kafka.NewProducer(a.cfg.Kafka, a.cfg.Kafka.Topics.AnalyticsEvents)
		a.onClose(func() { _ = producer.Close() })
		publisher = producer
		slog.Info("analytics events enabled", "topic", a.cfg.Kafka.Topics.AnalyticsEvents)
	} else {
		p.aggregator = analytics.NewAggregator(10)
		publisher = p.aggregator
	}
	collector := analytics.NewCollector(publisher, a.cfg.Analytics.BufferSize, a.metrics)
	collector.Start(ctx)
	a.onClose(collector.Close)
	p.collector = collector

	p.queue = analytics.NewRequestQueue(qc, a.cfg.Analytics.Window, strategy, collector, a.metrics)
	return p, nil
}

// finish flushes pending analytics events and logs what the run saw.
func (p *searchPipeline) finish() {
	p.collector.Close()
	hits, misses := p.cache.Stats()
	attrs := []any{
		"window", p.queue.Len(),
		"no_result_requests", p.queue.NoResultRequests(),
		"cache_hits", hits,
		"cache_misses", misses,
	}
	if p.aggregator != nil {
		stats := p.aggregator.Stats()
		attrs = append(attrs,
			"searches", stats.TotalSearches,
			"failed", stats.FailedCount,
			"p95_latency_ms", stats.P95LatencyMs,
		)
	}
	slog.Info("search summary", attrs...)
}

func (o *rootOptions) strategy(flag string) (indexer.Strategy, error) {
	if flag == "" {
		flag = o.cfg.Search.Strategy
	}
	return indexer.ParseStrategy(flag)
}
