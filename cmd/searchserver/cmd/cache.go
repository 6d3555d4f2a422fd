package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/cache"
	pkgredis "github.com/Adithya-Monish-Kumar-K/search-server/pkg/redis"
)

func newCacheCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the shared result cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "flush",
		Short: "Delete every cached result from Redis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !root.cfg.Redis.Enabled {
				return fmt.Errorf("redis is disabled; set redis.enabled or SS_REDIS_ENABLED")
			}
			client, err := pkgredis.NewClient(root.cfg.Redis)
			if err != nil {
				return err
			}
			defer client.Close()

			deleted, err := client.FlushByPattern(cmd.Context(), cache.KeyPrefix+"*")
			if err != nil {
				return fmt.Errorf("flushing cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d cached results\n", deleted)
			return nil
		},
	})
	return cmd
}
