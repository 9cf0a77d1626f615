package cli

import (
	"fmt"

	"github.com/ppiankov/credence/internal/cache"
	"github.com/spf13/cobra"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the fact-check result cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached fact-check result",
	Long:  `Clear empties the configured cache backend so the next analysis queries the fact-check sources again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cache.New(cfg.Cache)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		if closer, ok := store.(interface{ Close() error }); ok {
			defer func() { _ = closer.Close() }()
		}

		if err := store.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared %s cache (%s)\n", cfg.Cache.Backend, cfg.Cache.Dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
