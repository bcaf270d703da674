// Package cli builds the wallter command tree. Every command loads the
// shared configuration, then wires only the components it needs: the
// cache commands never touch the network, and search never opens the
// index.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wallter/wallter/internal/config"
	"github.com/wallter/wallter/internal/log"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var verbose bool

// BuildCLI assembles the root command and its subcommands.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wallter",
		Short: "Wallter downloads, caches, and rotates desktop wallpapers",
		Long: `Wallter fetches wallpapers from wallhaven, keeps a checksummed local
cache, and rotates them across your monitors on a timer. Local images
from the wallpaper directory join the rotation alongside downloads.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "mirror logs to stderr")

	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildSearchCommand())
	rootCmd.AddCommand(buildFetchCommand())
	rootCmd.AddCommand(buildListCommand())
	rootCmd.AddCommand(buildApplyCommand())
	rootCmd.AddCommand(buildFavoriteCommand())
	rootCmd.AddCommand(buildEvictCommand())
	rootCmd.AddCommand(buildStatusCommand())

	return rootCmd
}

// setup loads config and the logger, the common preamble of every command.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := log.SetupLogger(&cfg.Logging, verbose)
	if err != nil {
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}
