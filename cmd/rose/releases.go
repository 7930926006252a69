package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rose-music/rose/internal/library"
)

func newReleasesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "releases", Short: "Manage releases."}
	cmd.AddCommand(newReleasesListCmd())
	cmd.AddCommand(newReleasesDeleteCmd())
	cmd.AddCommand(newReleasesToggleNewCmd())
	cmd.AddCommand(newReleasesSetCoverCmd())
	cmd.AddCommand(newReleasesDeleteCoverCmd())
	cmd.AddCommand(newReleasesEditCmd())
	cmd.AddCommand(newReleasesCreateSingleCmd())
	return cmd
}

func newReleasesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every release in the cache.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c := openCacheForCommand()
			defer c.Close()
			releases, err := c.Releases(cmd.Context())
			if err != nil {
				return runErr(err)
			}
			for _, r := range releases {
				printInfo("%s  %s - %s", r.ID, r.Title, r.ReleaseType)
			}
			return nil
		},
	}
}

func newReleasesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [release-id]",
		Short: "Move a release's directory to the trash.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			if err := runErr(library.DeleteRelease(cmd.Context(), cfg, c, args[0])); err != nil {
				return err
			}
			printSuccess("Deleted release %s.", args[0])
			return nil
		},
	}
}

func newReleasesToggleNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-new [release-id]",
		Short: "Flip a release's \"new\" flag.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			if err := runErr(library.ToggleNew(cmd.Context(), cfg, c, args[0])); err != nil {
				return err
			}
			printSuccess("Toggled new flag for %s.", args[0])
			return nil
		},
	}
}

func newReleasesSetCoverCmd() *cobra.Command {
	var ext string
	cmd := &cobra.Command{
		Use:   "set-cover [release-id] [image-path]",
		Short: "Replace a release's cover art.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			useExt := ext
			if useExt == "" {
				useExt = extOf(args[1])
			}
			if err := runErr(library.SetCoverArt(cmd.Context(), cfg, c, args[0], args[1], useExt)); err != nil {
				return err
			}
			printSuccess("Set cover art for %s.", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&ext, "ext", "", "cover art extension override")
	return cmd
}

func newReleasesDeleteCoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-cover [release-id]",
		Short: "Remove a release's cover art.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			if err := runErr(library.DeleteCoverArt(cmd.Context(), cfg, c, args[0])); err != nil {
				return err
			}
			printSuccess("Removed cover art for %s.", args[0])
			return nil
		},
	}
}

func newReleasesEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit [release-id]",
		Short: "Edit a release's metadata in $EDITOR.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			if err := runErr(library.EditRelease(cmd.Context(), cfg, c, args[0])); err != nil {
				return err
			}
			printSuccess("Edited release %s.", args[0])
			return nil
		},
	}
}

func newReleasesCreateSingleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-single [track-id]",
		Short: "Create a new single-track release from an existing track.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c := openCacheForCommand()
			defer c.Close()
			releaseID, err := library.CreateSingle(cmd.Context(), cfg, c, args[0])
			if err != nil {
				return runErr(err)
			}
			printSuccess("Created single release %s.", releaseID)
			return nil
		},
	}
}

func extOf(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}
