package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
)

func newEventsCmd(root *rootOptions) *cobra.Command {
	var fromStart bool
	var duration time.Duration
	var top int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Aggregate search analytics events from Kafka",
		Long: `Consume the analytics topic written by the search command and print
aggregated statistics when interrupted or when --duration elapses.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg
			if !cfg.Kafka.Enabled {
				return fmt.Errorf("kafka is disabled; set kafka.enabled or SS_KAFKA_ENABLED")
			}
			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			agg := analytics.NewAggregator(top)
			consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, fromStart, agg.HandleMessage)
			slog.Info("consuming analytics events",
				"topic", cfg.Kafka.Topics.AnalyticsEvents,
				"group", cfg.Kafka.ConsumerGroup,
			)
			if err := consumer.Start(ctx); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), agg.Stats())
		},
	}

	cmd.Flags().BoolVar(&fromStart, "from-start", false, "Read the topic from the earliest offset")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 waits for an interrupt)")
	cmd.Flags().IntVar(&top, "top", 10, "Number of top queries to report")
	return cmd
}
