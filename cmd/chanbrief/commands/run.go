package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// newRunCmd creates the `chanbrief run` command: one pipeline pass
// without the scheduler.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one digest pass immediately and exit",
		Long: `Collect, summarize, and deliver a single digest without starting the
daily scheduler. Useful for testing configuration and for ad-hoc digests.

Examples:
  chanbrief run
  chanbrief run --day yesterday
  chanbrief run --day "dec 02"`,
		RunE: runOnceCmd,
	}
	cmd.Flags().String("day", "", "digest a specific day instead of the trailing 24h")
	return cmd
}

func runOnceCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg.Logging)

	dayArg, _ := cmd.Flags().GetString("day")
	day, err := parseDay(dayArg, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	dc, err := connectDiscord(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer dc.Disconnect()

	runner, err := buildRunner(ctx, cfg, dc, logger)
	if err != nil {
		return err
	}

	_, err = runner.Run(ctx, day)
	return err
}
