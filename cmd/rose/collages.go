package main

import (
	"github.com/spf13/cobra"

	"github.com/rose-music/rose/internal/collections"
)

func newCollagesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "collages", Short: "Manage collages."}

	cmd.AddCommand(&cobra.Command{
		Use: "create [name]", Args: cobra.ExactArgs(1), Short: "Create a new collage.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			return runErr(collections.CreateCollage(cmd.Context(), cfg, c, args[0]))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use: "delete [name]", Args: cobra.ExactArgs(1), Short: "Delete a collage.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			return runErr(collections.DeleteCollage(cmd.Context(), cfg, c, args[0]))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use: "rename [old-name] [new-name]", Args: cobra.ExactArgs(2), Short: "Rename a collage.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			return runErr(collections.RenameCollage(cmd.Context(), cfg, c, args[0], args[1]))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use: "add [name] [release-id]", Args: cobra.ExactArgs(2), Short: "Add a release to a collage.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			return runErr(collections.AddReleaseToCollage(cmd.Context(), cfg, c, args[0], args[1]))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use: "remove [name] [release-id]", Args: cobra.ExactArgs(2), Short: "Remove a release from a collage.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			return runErr(collections.RemoveReleaseFromCollage(cmd.Context(), cfg, c, args[0], args[1]))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use: "edit [name]", Args: cobra.ExactArgs(1), Short: "Edit a collage's release list in $EDITOR.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			return runErr(collections.EditCollageInEditor(cmd.Context(), cfg, c, args[0]))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use: "set-cover [name] [image-path]", Args: cobra.ExactArgs(2), Short: "Set a collage's cover art.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := openCacheForCommand()
			return runErr(collections.SetCollageCoverArt(cfg, args[0], args[1], extOf(args[1])))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use: "delete-cover [name]", Args: cobra.ExactArgs(1), Short: "Remove a collage's cover art.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := openCacheForCommand()
			return runErr(collections.DeleteCollageCoverArt(cfg, args[0]))
		},
	})
	return cmd
}
