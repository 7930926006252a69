// Command rose is the CLI entry point: load configuration, open the
// cache, and dispatch to the library/collections/cache/rules
// components via cobra subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rose-music/rose/internal/cache"
	"github.com/rose-music/rose/internal/config"
	"github.com/rose-music/rose/internal/rose"
)

var (
	colorInfo    = color.New(color.FgCyan)
	colorSuccess = color.New(color.FgGreen)
	colorError   = color.New(color.FgRed)
)

var rootCmd = &cobra.Command{
	Use:   "rose",
	Short: "A personal music library manager.",
}

// openCacheForCommand loads configuration and opens the cache,
// printing and exiting on failure so subcommand RunE bodies don't each
// repeat the same boilerplate.
func openCacheForCommand() (*config.Config, *cache.Cache) {
	cfg, err := config.Load()
	if err != nil {
		colorError.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	c, err := cache.Open(cfg.CacheDir, cfg.MaxProc)
	if err != nil {
		colorError.Fprintf(os.Stderr, "Failed to open cache: %v\n", err)
		os.Exit(1)
	}
	return cfg, c
}

func runErr(err error) error {
	if err != nil {
		colorError.Fprintf(os.Stderr, "%v\n", err)
	}
	return err
}

func main() {
	rose.SetupLogging(os.Getenv("ROSE_LOG_FILE"))

	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newReleasesCmd())
	rootCmd.AddCommand(newCollagesCmd())
	rootCmd.AddCommand(newPlaylistsCmd())
	rootCmd.AddCommand(newRulesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func printSuccess(format string, args ...any) {
	colorSuccess.Println(fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	colorInfo.Println(fmt.Sprintf(format, args...))
}
