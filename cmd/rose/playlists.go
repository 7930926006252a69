package main

import (
	"github.com/spf13/cobra"

	"github.com/rose-music/rose/internal/collections"
)

func newPlaylistsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "playlists", Short: "Manage playlists."}

	cmd.AddCommand(&cobra.Command{
		Use: "create [name]", Args: cobra.ExactArgs(1), Short: "Create a new playlist.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			return runErr(collections.CreatePlaylist(cmd.Context(), cfg, c, args[0]))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use: "delete [name]", Args: cobra.ExactArgs(1), Short: "Delete a playlist.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			return runErr(collections.DeletePlaylist(cmd.Context(), cfg, c, args[0]))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use: "rename [old-name] [new-name]", Args: cobra.ExactArgs(2), Short: "Rename a playlist.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			return runErr(collections.RenamePlaylist(cmd.Context(), cfg, c, args[0], args[1]))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use: "add [name] [track-id]", Args: cobra.ExactArgs(2), Short: "Add a track to a playlist.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			return runErr(collections.AddTrackToPlaylist(cmd.Context(), cfg, c, args[0], args[1]))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use: "remove [name] [track-id]", Args: cobra.ExactArgs(2), Short: "Remove a track from a playlist.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			return runErr(collections.RemoveTrackFromPlaylist(cmd.Context(), cfg, c, args[0], args[1]))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use: "edit [name]", Args: cobra.ExactArgs(1), Short: "Edit a playlist's track list in $EDITOR.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			return runErr(collections.EditPlaylistInEditor(cmd.Context(), cfg, c, args[0]))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use: "set-cover [name] [image-path]", Args: cobra.ExactArgs(2), Short: "Set a playlist's cover art.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := openCacheForCommand()
			return runErr(collections.SetPlaylistCoverArt(cfg, args[0], args[1], extOf(args[1])))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use: "delete-cover [name]", Args: cobra.ExactArgs(1), Short: "Remove a playlist's cover art.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := openCacheForCommand()
			return runErr(collections.DeletePlaylistCoverArt(cfg, args[0]))
		},
	})
	return cmd
}
