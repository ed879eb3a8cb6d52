// Package commands implements the chanbrief CLI using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root CLI command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chanbrief",
		Short: "chanbrief - daily Discord channel digest bot",
		Long: `chanbrief collects the last day of messages from a set of Discord
channels, filters them against a keyword list, summarizes the matches,
and DMs the digest to the configured recipient once a day.

Examples:
  chanbrief serve
  chanbrief run
  chanbrief run --day yesterday
  chanbrief secret set discord_token`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newRunCmd(),
		newConfigCmd(),
		newSecretCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
