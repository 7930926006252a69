package main

import (
	"github.com/spf13/cobra"

	"github.com/rose-music/rose/internal/cache"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Inspect and refresh the metadata cache."}
	cmd.AddCommand(newCacheRefreshCmd())
	return cmd
}

func newCacheRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh [dir...]",
		Short: "Rescan the music source directory and update the cache.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			if err := runErr(cache.Refresh(cmd.Context(), c, cfg, args)); err != nil {
				return err
			}
			printSuccess("Cache refreshed.")
			return nil
		},
	}
}
