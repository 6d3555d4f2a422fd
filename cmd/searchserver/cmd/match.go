package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMatchCmd(root *rootOptions) *cobra.Command {
	var docs, strategyFlag string

	cmd := &cobra.Command{
		Use:   "match <query>",
		Short: "Show which query words each document contains",
		Long: `Load documents and, for every document in insertion order, print the
plus-words of the query that it contains. A document containing any
minus-word reports no words.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Matching documents for query: %s\n", args[0])
			for _, id := range a.engine.DocumentIDs() {
				words, status, err := a.engine.MatchDocument(strategy, args[0], id)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, formatMatch(id, status, words))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&docs, "docs", "d", "", "Document file (required)")
	cmd.Flags().StringVar(&strategyFlag, "strategy", "", "Strategy: sequential or parallel")
	_ = cmd.MarkFlagRequired("docs")
	return cmd
}
