package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/dedup"
)

func newDedupCmd(root *rootOptions) *cobra.Command {
	var docs string

	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Report documents that repeat an earlier document's words",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root.cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			if _, err := a.loadDocuments(docs); err != nil {
				return err
			}

			before := a.engine.GetDocumentCount()
			removed := dedup.RemoveDuplicates(a.engine, a.metrics)
			out := cmd.OutOrStdout()
			for _, id := range removed {
				fmt.Fprintf(out, "Found duplicate document id %d\n", id)
			}
			fmt.Fprintf(out, "Before duplicates removed: %d\n", before)
			fmt.Fprintf(out, "After duplicates removed: %d\n", a.engine.GetDocumentCount())
			return nil
		},
	}

	cmd.Flags().StringVarP(&docs, "docs", "d", "", "Document file (required)")
	_ = cmd.MarkFlagRequired("docs")
	return cmd
}
