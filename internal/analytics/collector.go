package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/resilience"
)

const (
	maxBatch     = 100
	drainTimeout = 5 * time.Second
)

var publishBackoff = resilience.Backoff{
	Attempts: 3,
	Initial:  50 * time.Millisecond,
	Max:      time.Second,
	Jitter:   0.1,
}

// EventPublisher delivers a batch of events. *kafka.Producer and
// *Aggregator implement it.
type EventPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers search events and publishes them from a background
// goroutine so that tracking never blocks a search.
type Collector struct {
	publisher EventPublisher
	eventCh   chan SearchEvent
	started   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewCollector(publisher EventPublisher, bufferSize int, m *metrics.Metrics) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan SearchEvent, bufferSize),
		done:      make(chan struct{}),
		metrics:   m,
		logger:    slog.Default().With("component", "analytics-collector"),
	}
}

// Start launches the publish loop. When ctx is cancelled the loop publishes
// whatever is still buffered and exits.
func (c *Collector) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, c.fill([]kafka.Event{toKafka(event)}))
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues event, dropping it when the buffer is full. Track must not
// be called after Close.
func (c *Collector) Track(event SearchEvent) {
	select {
	case c.eventCh <- event:
	default:
		if c.metrics != nil {
			c.metrics.AnalyticsDropsTotal.Inc()
		}
		c.logger.Warn("analytics event dropped (buffer full)", "query", event.Query)
	}
}

// Close stops accepting events and waits until every buffered event has been
// handed to the publisher. Later calls are no-ops.
func (c *Collector) Close() {
	c.closeOnce.Do(func() {
		close(c.eventCh)
		if c.started.Load() {
			<-c.done
		}
	})
}

// fill tops batch up with events that are already buffered.
func (c *Collector) fill(batch []kafka.Event) []kafka.Event {
	for len(batch) < maxBatch {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, toKafka(event))
		default:
			return batch
		}
	}
	return batch
}

func (c *Collector) publish(ctx context.Context, batch []kafka.Event) {
	err := resilience.Retry(ctx, "publish analytics events", publishBackoff, func(ctx context.Context) error {
		return c.publisher.PublishBatch(ctx, batch)
	})
	if err != nil {
		c.logger.Error("failed to publish analytics events", "count", len(batch), "error", err)
	}
}

func (c *Collector) drainRemaining() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		batch := c.fill(nil)
		if len(batch) == 0 {
			return
		}
		c.publish(ctx, batch)
	}
}

func toKafka(event SearchEvent) kafka.Event {
	return kafka.Event{Key: string(event.Type), Value: event}
}
