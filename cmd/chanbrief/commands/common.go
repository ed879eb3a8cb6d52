package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hferr/chanbrief/pkg/chanbrief/channels/discord"
	"github.com/hferr/chanbrief/pkg/chanbrief/config"
	"github.com/hferr/chanbrief/pkg/chanbrief/digest"
	"github.com/hferr/chanbrief/pkg/chanbrief/llm"
	"github.com/hferr/chanbrief/pkg/chanbrief/secrets"
)

// loadConfig resolves the effective configuration for a command,
// including keyring-backed credentials.
func loadConfig(cmd *cobra.Command, logger *slog.Logger) (*config.Config, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	cfg.DiscordToken = secrets.Resolve(cfg.DiscordToken, secrets.KeyDiscordToken, logger)
	cfg.Gemini.APIKey = secrets.Resolve(cfg.Gemini.APIKey, secrets.KeyGeminiAPIKey, logger)

	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("discord token not configured (SUMMARY_DISCORD_TOKEN or `chanbrief secret set discord_token`)")
	}
	return cfg, nil
}

// newLogger builds the process logger from config and the --verbose flag.
func newLogger(cmd *cobra.Command, logging config.LoggingConfig) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	level := slog.LevelInfo
	if verbose || logging.Level == "debug" {
		level = slog.LevelDebug
	} else if logging.Level == "warn" {
		level = slog.LevelWarn
	} else if logging.Level == "error" {
		level = slog.LevelError
	}

	var handler slog.Handler
	if logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

// buildRunner wires the pipeline stages over a connected Discord client.
func buildRunner(ctx context.Context, cfg *config.Config, dc *discord.Discord, logger *slog.Logger) (*digest.Runner, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	channels, err := dc.ResolveChannels(ctx)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		logger.Warn("no channels resolved, digests will be empty")
	}

	keywords := digest.NewKeywordSet(cfg.Keywords)
	if keywords.Len() == 0 {
		logger.Warn("keyword list is empty, the filter matches nothing")
	}

	var client digest.SummaryClient
	if cfg.Gemini.APIKey != "" {
		client = llm.New(cfg.Gemini.APIKey, cfg.Gemini.BaseURL, cfg.Gemini.Model, logger)
	} else {
		logger.Info("summarization service disabled, using fallback summaries")
	}

	collector := digest.NewCollector(dc, keywords, logger)
	summarizer := digest.NewSummarizer(client, cfg.PromptBudget, cfg.TruncateOrder, logger)
	dispatcher := digest.NewDispatcher(dc, cfg.OwnerUserID, logger)

	return digest.NewRunner(channels, collector, summarizer, dispatcher, loc, cfg.RunTimeout, logger), nil
}

// connectDiscord builds and connects the Discord client.
func connectDiscord(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*discord.Discord, error) {
	dc := discord.New(discord.Config{
		Token:         cfg.DiscordToken,
		GuildID:       cfg.GuildID,
		ChannelIDs:    cfg.Channels,
		ChannelPrefix: cfg.ChannelPrefix,
		OwnerUserID:   cfg.OwnerUserID,
	}, logger)

	if err := dc.Connect(ctx); err != nil {
		return nil, err
	}
	return dc, nil
}

// parseDay resolves an optional day argument against the configured zone.
func parseDay(arg string, cfg *config.Config) (*time.Time, error) {
	if arg == "" {
		return nil, nil
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	day, err := digest.ParseDayArg(arg, time.Now(), loc)
	if err != nil {
		return nil, err
	}
	return &day, nil
}
