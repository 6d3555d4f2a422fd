package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
)

// queryResult is one query's outcome in JSON output.
type queryResult struct {
	Query   string             `json:"query"`
	Results []ranker.ScoredDoc `json:"results"`
	Error   string             `json:"error,omitempty"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatDoc(d ranker.ScoredDoc) string {
	return fmt.Sprintf("{ document_id = %d, relevance = %g, rating = %d }", d.ID, d.Relevance, d.Rating)
}

func writeText(w io.Writer, results []queryResult) {
	for _, r := range results {
		fmt.Fprintf(w, "Results for query: %s\n", r.Query)
		if r.Error != "" {
			fmt.Fprintf(w, "error: %s\n", r.Error)
			continue
		}
		for _, d := range r.Results {
			fmt.Fprintln(w, formatDoc(d))
		}
	}
}

func formatMatch(id int, status indexer.DocumentStatus, words []string) string {
	return fmt.Sprintf("{ document_id = %d, status = %s, words = %s }", id, status, strings.Join(words, " "))
}
