package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	docs     string
	queries  string
	status   string
	strategy string
	format   string
	joined   bool
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Rank documents for one or more queries",
		Long: `Load documents and print the top five matches for each query.

Queries come from --queries (one per line, "-" for stdin) or from the
arguments, one query per argument. A word prefixed with '-' excludes
documents that contain it.

Examples:
  searchserver search --docs docs.tsv "fluffy cat -collar"
  searchserver search --docs docs.tsv --queries queries.txt --format json
  searchserver search --docs docs.tsv --status banned "starling"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, root, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.docs, "docs", "d", "", "Document file (required)")
	cmd.Flags().StringVarP(&opts.queries, "queries", "q", "", "Query file, one query per line")
	cmd.Flags().StringVarP(&opts.status, "status", "s", "", "Only match documents with this status")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "Per-query strategy: sequential or parallel")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.joined, "joined", false, "Print all results as one flat list")
	_ = cmd.MarkFlagRequired("docs")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, root *rootOptions, opts searchOptions, args []string) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	strategy, err := root.strategy(opts.strategy)
	if err != nil {
		return err
	}

	a, err := newApp(root.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.loadDocuments(opts.docs); err != nil {
		return err
	}
	queries := args
	if opts.queries != "" {
		fromFile, err := a.loadQueries(opts.queries)
		if err != nil {
			return err
		}
		queries = append(queries, fromFile...)
	}
	if len(queries) == 0 {
		return fmt.Errorf("no queries given")
	}

	pipeline, err := a.newSearchPipeline(ctx, strategy)
	if err != nil {
		return err
	}

	var perQuery [][]ranker.ScoredDoc
	var errs []error
	if opts.status != "" {
		perQuery, errs, err = searchByStatus(pipeline, queries, opts.status)
	} else {
		perQuery, errs, err = searchBatch(ctx, pipeline, root, strategy, queries)
	}
	if err != nil {
		return err
	}
	pipeline.finish()

	out := cmd.OutOrStdout()
	if opts.joined {
		flat := make([]ranker.ScoredDoc, 0)
		for _, docs := range perQuery {
			flat = append(flat, docs...)
		}
		if opts.format == "json" {
			if err := writeJSON(out, flat); err != nil {
				return err
			}
		} else {
			for _, d := range flat {
				fmt.Fprintln(out, formatDoc(d))
			}
		}
	} else {
		results := make([]queryResult, len(queries))
		for i, q := range queries {
			results[i] = queryResult{Query: q, Results: perQuery[i]}
			if errs[i] != nil {
				results[i].Error = errs[i].Error()
			}
			if results[i].Results == nil {
				results[i].Results = []ranker.ScoredDoc{}
			}
		}
		if opts.format == "json" {
			if err := writeJSON(out, results); err != nil {
				return err
			}
		} else {
			writeText(out, results)
		}
	}

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed", failed, len(queries))
	}
	return nil
}

func searchByStatus(p *searchPipeline, queries []string, name string) ([][]ranker.ScoredDoc, []error, error) {
	status, err := indexer.ParseStatus(name)
	if err != nil {
		return nil, nil, err
	}
	perQuery := make([][]ranker.ScoredDoc, len(queries))
	errs := make([]error, len(queries))
	for i, q := range queries {
		perQuery[i], errs[i] = p.queue.AddFindRequestByStatus(q, status)
	}
	return perQuery, errs, nil
}

// searchBatch runs queries through the executor and unpacks its batch error
// into per-query errors.
func searchBatch(ctx context.Context, p *searchPipeline, root *rootOptions, strategy indexer.Strategy, queries []string) ([][]ranker.ScoredDoc, []error, error) {
	searchCfg := root.cfg.Search
	searchCfg.Strategy = strategy.String()
	x, err := executor.New(p.queue, searchCfg, p.metrics)
	if err != nil {
		return nil, nil, err
	}
	perQuery, err := x.ProcessQueries(ctx, queries)
	errs := make([]error, len(queries))
	var batchErr *executor.BatchError
	switch {
	case err == nil:
	case errors.As(err, &batchErr):
		copy(errs, batchErr.Errors)
		slog.Warn("some queries failed", "failed", batchErr.Failed(), "queries", len(queries))
	default:
		return nil, nil, err
	}
	return perQuery, errs, nil
}
