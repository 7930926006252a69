package main

import (
	"github.com/spf13/cobra"

	"github.com/rose-music/rose/internal/rules"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "rules", Short: "Run bulk tag-editing rules."}
	cmd.AddCommand(newRulesRunCmd())
	return cmd
}

func newRulesRunCmd() *cobra.Command {
	var (
		actions   []string
		releaseID string
		trackID   string
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "run [matcher]",
		Short: "Run a matcher/action rule against the library.",
		Long: "Run applies one or more actions to every track a matcher selects, " +
			"e.g. rose rules run 'tracktitle:Foo' --action 'sed:Foo:Bar'.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := rules.ParseRule(args[0], actions)
			if err != nil {
				return runErr(err)
			}

			cfg, c := openCacheForCommand()
			defer c.Close()

			scope := rules.Scope{ReleaseID: releaseID, TrackID: trackID}
			result, err := rules.Run(cmd.Context(), c, cfg, rule, scope, dryRun)
			if err != nil {
				return runErr(err)
			}

			if len(result.Changes) == 0 {
				printInfo("No tracks matched.")
				return nil
			}
			for _, ch := range result.Changes {
				printInfo("%s  %s: %q -> %q", ch.TrackID, ch.Tag, ch.Old, ch.New)
			}
			if dryRun {
				printInfo("Dry run: %d change(s) would be made.", len(result.Changes))
			} else {
				printSuccess("Applied %d change(s).", len(result.Changes))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&actions, "action", nil, "an action to apply (repeatable)")
	cmd.Flags().StringVar(&releaseID, "release-id", "", "restrict the run to one release")
	cmd.Flags().StringVar(&trackID, "track-id", "", "restrict the run to one track")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the changes without writing them")
	return cmd
}
