// Package digest implements the daily channel digest pipeline:
// collect messages per channel over a time window, filter them against a
// keyword set, compress the matches into a short report, and deliver the
// report as a direct message to the configured recipient.
//
// The package is platform-agnostic: the chat platform and the
// summarization service are consumed through small capability interfaces
// (HistoryFetcher, SummaryClient, DirectMessenger) implemented elsewhere.
package digest

import (
	"fmt"
	"time"
)

// Message is one chat message as fetched from the platform.
// Immutable once fetched; owned by the collector for the duration of a
// single run and never persisted.
type Message struct {
	ChannelID   string
	ChannelName string
	AuthorID    string
	AuthorName  string
	Text        string
	Timestamp   time.Time
}

// ChannelWindow holds the filtered messages of one channel for one run.
type ChannelWindow struct {
	ChannelID   string
	ChannelName string

	// Since is the lower bound of the collection window.
	Since time.Time

	// Messages are the keyword-matching messages in chronological order.
	Messages []Message
}

// Report is the finished digest for one run. Ownership transfers to the
// dispatcher, which consumes it exactly once.
type Report struct {
	GeneratedAt         time.Time
	Body                string
	SourceChannelCount  int
	MatchedMessageCount int

	// Fallback is true when the body was produced by the deterministic
	// extractive path instead of the summarization service.
	Fallback bool
}

// ---------- Errors ----------

// ChannelError records a per-channel history fetch failure. The failing
// channel is skipped; collection continues with the remaining channels.
type ChannelError struct {
	ChannelID   string
	ChannelName string
	Err         error
}

func (e *ChannelError) Error() string {
	name := e.ChannelName
	if name == "" {
		name = e.ChannelID
	}
	return fmt.Sprintf("channel %s: %v", name, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// DeliveryError records a final-send failure. The report is lost by
// design; nothing stores it for replay.
type DeliveryError struct {
	RecipientID string
	Err         error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.RecipientID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
