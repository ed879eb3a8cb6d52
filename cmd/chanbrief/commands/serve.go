package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hferr/chanbrief/pkg/chanbrief/channels/discord"
	"github.com/hferr/chanbrief/pkg/chanbrief/scheduler"
)

// newServeCmd creates the `chanbrief serve` command that starts the daemon.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the daily digest daemon",
		Long: `Connect to Discord, schedule one digest per day at the configured
local time, and listen for the owner's manual !brief command.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
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

	trigger := &runTrigger{
		run: func(ctx context.Context, day *time.Time) error {
			_, err := runner.Run(ctx, day)
			return err
		},
		parseDay: func(arg string) (*time.Time, error) { return parseDay(arg, cfg) },
		reply:    dc.Reply,
		logger:   logger,
	}

	dc.SetBriefHandler(func(cmd discord.BriefCommand) {
		go trigger.Manual(ctx, cmd.DayArg, cmd.ChannelID)
	})

	// ── Schedule state ──
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	hour, minute, err := cfg.FireClock()
	if err != nil {
		return err
	}

	store, err := scheduler.OpenSQLiteStateStore(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("opening schedule state: %w", err)
	}
	defer store.Close()

	sched := scheduler.New(
		scheduler.State{Timezone: loc, TargetHour: hour, TargetMinute: minute},
		store,
		trigger.Scheduled,
		logger,
	)

	// ── Shutdown on signal ──
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutdown signal received", "signal", sig.String())
		cancel()
	}()

	err = sched.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
