package digest

import (
	"context"
	"log/slog"
	"time"
)

// ChannelRef identifies one channel to collect from.
type ChannelRef struct {
	ID   string
	Name string
}

// HistoryFetcher is the platform capability "fetch message history for
// channel C since time T". Implementations must return messages in
// chronological order and exhaust pagination down to the since bound.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, channelID string, since time.Time) ([]Message, error)
}

// Collector pulls the trailing window of messages for each configured
// channel and keeps only those matching the keyword set.
type Collector struct {
	fetcher  HistoryFetcher
	keywords *KeywordSet
	logger   *slog.Logger
}

// NewCollector creates a Collector over the given fetcher and keyword set.
func NewCollector(fetcher HistoryFetcher, keywords *KeywordSet, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		fetcher:  fetcher,
		keywords: keywords,
		logger:   logger.With("component", "collector"),
	}
}

// Collect fetches and filters every channel's window. A failing channel
// is mapped to an empty window and recorded as a ChannelError; one bad
// channel never aborts the whole collection. Output order follows the
// configured channel order.
func (c *Collector) Collect(ctx context.Context, channels []ChannelRef, since time.Time) ([]ChannelWindow, []*ChannelError) {
	windows := make([]ChannelWindow, 0, len(channels))
	var failures []*ChannelError

	for _, ch := range channels {
		window := ChannelWindow{
			ChannelID:   ch.ID,
			ChannelName: ch.Name,
			Since:       since,
		}

		messages, err := c.fetcher.FetchHistory(ctx, ch.ID, since)
		if err != nil {
			cerr := &ChannelError{ChannelID: ch.ID, ChannelName: ch.Name, Err: err}
			failures = append(failures, cerr)
			c.logger.Warn("channel fetch failed, skipping",
				"channel", ch.Name, "channel_id", ch.ID, "error", err)
			windows = append(windows, window)
			continue
		}

		for _, msg := range messages {
			if msg.Timestamp.Before(since) {
				continue
			}
			if c.keywords.Matches(msg.Text) {
				if msg.ChannelName == "" {
					msg.ChannelName = ch.Name
				}
				window.Messages = append(window.Messages, msg)
			}
		}

		c.logger.Debug("channel collected",
			"channel", ch.Name,
			"fetched", len(messages),
			"matched", len(window.Messages),
		)
		windows = append(windows, window)
	}

	return windows, failures
}
