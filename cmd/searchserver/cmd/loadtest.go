package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
)

const maxGeneratedQueries = 64

// loadStats accumulates outcomes across load-test workers.
type loadStats struct {
	totalRequests atomic.Int64
	withResults   atomic.Int64
	emptyResults  atomic.Int64
	errorCount    atomic.Int64

	latenciesMu sync.Mutex
	latencies   []time.Duration
}

func newLoadStats() *loadStats {
	return &loadStats{latencies: make([]time.Duration, 0, 100000)}
}

func (s *loadStats) record(d time.Duration, returned int, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if returned > 0 {
		s.withResults.Add(1)
	} else {
		s.emptyResults.Add(1)
	}
	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, d)
	s.latenciesMu.Unlock()
}

func newLoadTestCmd(root *rootOptions) *cobra.Command {
	var docs, queriesPath, strategyFlag string
	var concurrency int
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Hammer the search pipeline with concurrent queries",
		Long: `Load documents and run queries from several workers for a fixed time,
then report throughput and latency percentiles. Without --queries, queries
are built from the indexed vocabulary.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if concurrency <= 0 {
				return fmt.Errorf("concurrency must be positive, got %d", concurrency)
			}
			strategy, err := root.strategy(strategyFlag)
			if err != nil {
				return err
			}
			a, err := newApp(root.cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			if _, err := a.loadDocuments(docs); err != nil {
				return err
			}

			var queries []string
			if queriesPath != "" {
				if queries, err = a.loadQueries(queriesPath); err != nil {
					return err
				}
			} else {
				queries = queriesFromTerms(a.engine.Snapshot(), maxGeneratedQueries)
			}
			if len(queries) == 0 {
				return fmt.Errorf("no queries to run")
			}

			pipeline, err := a.newSearchPipeline(cmd.Context(), strategy)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "=== Search Load Test ===")
			fmt.Fprintf(out, "Documents:   %d\n", a.engine.GetDocumentCount())
			fmt.Fprintf(out, "Strategy:    %s\n", strategy)
			fmt.Fprintf(out, "Concurrency: %d\n", concurrency)
			fmt.Fprintf(out, "Duration:    %s\n", duration)
			fmt.Fprintf(out, "Queries:     %d unique\n", len(queries))
			fmt.Fprintln(out)

			ctx, cancel := context.WithTimeout(cmd.Context(), duration)
			defer cancel()
			start := time.Now()
			stats := runLoadTest(ctx, pipeline, queries, concurrency)
			elapsed := time.Since(start)
			if cmd.Context().Err() != nil {
				fmt.Fprintln(out, "interrupted")
			}
			pipeline.finish()

			printLoadReport(out, stats, elapsed)
			if stats.totalRequests.Load() == 0 {
				return fmt.Errorf("no requests completed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&docs, "docs", "d", "", "Document file (required)")
	cmd.Flags().StringVarP(&queriesPath, "queries", "q", "", "Query file, one query per line")
	cmd.Flags().StringVar(&strategyFlag, "strategy", "", "Per-query strategy: sequential or parallel")
	cmd.Flags().IntVar(&concurrency, "concurrency", 10, "Number of concurrent workers")
	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "Test duration")
	_ = cmd.MarkFlagRequired("docs")
	return cmd
}

func runLoadTest(ctx context.Context, p *searchPipeline, queries []string, concurrency int) *loadStats {
	stats := newLoadStats()
	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			queryIdx := workerID
			for ctx.Err() == nil {
				query := queries[queryIdx%len(queries)]
				queryIdx++

				start := time.Now()
				docs, err := p.queue.AddFindRequest(query, nil)
				stats.record(time.Since(start), len(docs), err)
			}
		}(w)
	}
	wg.Wait()
	return stats
}

// queriesFromTerms pairs the most widely used terms into two-word queries,
// with every third query excluding another term.
func queriesFromTerms(entries []index.TermEntry, limit int) []string {
	sorted := make([]index.TermEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Postings) > len(sorted[j].Postings)
	})
	if len(sorted) == 1 {
		return []string{sorted[0].Term}
	}
	queries := make([]string, 0, limit)
	for i := 0; i+1 < len(sorted) && len(queries) < limit; i++ {
		q := sorted[i].Term + " " + sorted[i+1].Term
		if i%3 == 2 && i+2 < len(sorted) {
			q += " -" + sorted[i+2].Term
		}
		queries = append(queries, q)
	}
	return queries
}

func printLoadReport(w io.Writer, stats *loadStats, duration time.Duration) {
	total := stats.totalRequests.Load()
	errs := stats.errorCount.Load()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "With Results:    %d\n", stats.withResults.Load())
	fmt.Fprintf(w, "Empty Results:   %d\n", stats.emptyResults.Load())
	fmt.Fprintf(w, "Errors:          %d\n", errs)
	if total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(errs)/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.latenciesMu.Lock()
	latencies := make([]time.Duration, len(stats.latencies))
	copy(latencies, stats.latencies)
	stats.latenciesMu.Unlock()
	if len(latencies) == 0 {
		return
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg := sum / time.Duration(len(latencies))

	var sumSquared float64
	for _, l := range latencies {
		diff := float64(l) - float64(avg)
		sumSquared += diff * diff
	}
	stddev := time.Duration(math.Sqrt(sumSquared / float64(len(latencies))))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Latency ===")
	fmt.Fprintf(w, "Min:    %s\n", latencies[0])
	fmt.Fprintf(w, "Avg:    %s\n", avg)
	fmt.Fprintf(w, "P50:    %s\n", percentile(latencies, 50))
	fmt.Fprintf(w, "P90:    %s\n", percentile(latencies, 90))
	fmt.Fprintf(w, "P95:    %s\n", percentile(latencies, 95))
	fmt.Fprintf(w, "P99:    %s\n", percentile(latencies, 99))
	fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])
	fmt.Fprintf(w, "StdDev: %s\n", stddev)
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
