package digest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Truncation order for prompt assembly when the matched messages exceed
// the prompt character budget. Oldest-first dropping is the default; the
// exact order is configurable rather than load-bearing.
const (
	TruncateOldestFirst = "oldest-first"
	TruncateNewestFirst = "newest-first"
)

const (
	defaultPromptBudget = 12000

	// fallbackMaxItems caps the bullet list in the extractive fallback.
	fallbackMaxItems = 20

	// fallbackSnippetLen is how much of each message the fallback quotes.
	fallbackSnippetLen = 120
)

const summaryPrompt = `You are writing a short daily digest of chat activity for a busy reader.
Below are keyword-matched messages from the last day, grouped by channel.
Summarize what happened in plain language: group related messages, call out
errors or incidents first, and mention which channel each item came from.
Keep it under 15 lines. Do not invent activity that is not in the input.`

// SummaryClient is the external summarization capability. A nil client
// means the service is disabled and the deterministic fallback is used.
type SummaryClient interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Summarizer reduces the collected per-channel windows into one Report.
type Summarizer struct {
	client        SummaryClient
	promptBudget  int
	truncateOrder string
	now           func() time.Time
	logger        *slog.Logger
}

// NewSummarizer creates a Summarizer. client may be nil to force the
// deterministic fallback path. A zero promptBudget uses the default.
func NewSummarizer(client SummaryClient, promptBudget int, truncateOrder string, logger *slog.Logger) *Summarizer {
	if promptBudget <= 0 {
		promptBudget = defaultPromptBudget
	}
	if truncateOrder != TruncateNewestFirst {
		truncateOrder = TruncateOldestFirst
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{
		client:        client,
		promptBudget:  promptBudget,
		truncateOrder: truncateOrder,
		now:           time.Now,
		logger:        logger.With("component", "summarizer"),
	}
}

// SetNow overrides the clock, for tests.
func (s *Summarizer) SetNow(now func() time.Time) { s.now = now }

// Summarize produces the run's Report. Service failure is not an error
// condition: the deterministic fallback always yields a valid Report and
// the run proceeds to dispatch.
func (s *Summarizer) Summarize(ctx context.Context, windows []ChannelWindow) Report {
	matched := 0
	for _, w := range windows {
		matched += len(w.Messages)
	}

	report := Report{
		GeneratedAt:         s.now(),
		SourceChannelCount:  len(windows),
		MatchedMessageCount: matched,
	}

	if matched == 0 || s.client == nil {
		report.Body = s.fallbackBody(windows, matched)
		report.Fallback = true
		return report
	}

	prompt, kept := s.buildPrompt(windows)
	if kept == 0 {
		s.logger.Warn("prompt budget dropped every message, using fallback",
			"budget", s.promptBudget, "matched", matched)
		report.Body = s.fallbackBody(windows, matched)
		report.Fallback = true
		return report
	}

	body, err := s.client.Summarize(ctx, prompt)
	if err != nil {
		s.logger.Warn("summarization service failed, using fallback", "error", err)
		report.Body = s.fallbackBody(windows, matched)
		report.Fallback = true
		return report
	}

	body = strings.TrimSpace(body)
	if body == "" {
		s.logger.Warn("summarization service returned empty body, using fallback")
		report.Body = s.fallbackBody(windows, matched)
		report.Fallback = true
		return report
	}

	report.Body = body
	return report
}

// buildPrompt concatenates a per-channel header and the matched messages,
// bounded by the prompt character budget. Also returns how many messages
// survived truncation; zero means the prompt carries no activity at all.
func (s *Summarizer) buildPrompt(windows []ChannelWindow) (string, int) {
	kept := s.truncateToBudget(windows)

	var b strings.Builder
	b.WriteString(summaryPrompt)
	b.WriteString("\n")
	keptCount := 0
	for _, w := range windows {
		messages := kept[w.ChannelID]
		if len(messages) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n# %s\n", channelLabel(w))
		for _, m := range messages {
			fmt.Fprintf(&b, "%s: %s\n", m.AuthorName, m.Text)
		}
		keptCount += len(messages)
	}
	return b.String(), keptCount
}

// truncateToBudget drops messages in the configured order until the
// estimated prompt size fits the budget. Returns the surviving messages
// keyed by channel ID, each channel still in chronological order.
func (s *Summarizer) truncateToBudget(windows []ChannelWindow) map[string][]Message {
	type entry struct {
		msg  Message
		cost int
		drop bool
	}

	var all []entry
	total := len(summaryPrompt)
	for _, w := range windows {
		if len(w.Messages) > 0 {
			total += len(channelLabel(w)) + 4
		}
		for _, m := range w.Messages {
			cost := len(m.AuthorName) + len(m.Text) + 3
			all = append(all, entry{msg: m, cost: cost})
			total += cost
		}
	}

	// Drop candidates in timestamp order; oldest-first drops from the
	// front, newest-first from the back.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].msg.Timestamp.Before(all[j].msg.Timestamp)
	})

	i, j := 0, len(all)-1
	for total > s.promptBudget && i <= j {
		if s.truncateOrder == TruncateNewestFirst {
			all[j].drop = true
			total -= all[j].cost
			j--
		} else {
			all[i].drop = true
			total -= all[i].cost
			i++
		}
	}

	kept := make(map[string][]Message)
	for idx := range all {
		if all[idx].drop {
			continue
		}
		m := all[idx].msg
		kept[m.ChannelID] = append(kept[m.ChannelID], m)
	}
	for id := range kept {
		msgs := kept[id]
		sort.SliceStable(msgs, func(a, b int) bool {
			return msgs[a].Timestamp.Before(msgs[b].Timestamp)
		})
		kept[id] = msgs
	}
	return kept
}

// fallbackBody builds the deterministic extractive summary. No network
// dependency: a zero/low-activity header plus a bullet list of the raw
// matched messages, capped at fallbackMaxItems.
func (s *Summarizer) fallbackBody(windows []ChannelWindow, matched int) string {
	var b strings.Builder

	if matched == 0 {
		b.WriteString("No keyword-matching activity in the covered window.\n")
		for _, w := range windows {
			fmt.Fprintf(&b, "- #%s: no matching activity\n", channelLabel(w))
		}
		return strings.TrimRight(b.String(), "\n")
	}

	fmt.Fprintf(&b, "%d matching message(s) across %d channel(s):\n", matched, len(windows))
	items := 0
	for _, w := range windows {
		for _, m := range w.Messages {
			if items >= fallbackMaxItems {
				fmt.Fprintf(&b, "… and %d more\n", matched-items)
				return strings.TrimRight(b.String(), "\n")
			}
			fmt.Fprintf(&b, "- [#%s] %s: %s\n", channelLabel(w), m.AuthorName, snippet(m.Text, fallbackSnippetLen))
			items++
		}
	}
	for _, w := range windows {
		if len(w.Messages) == 0 {
			fmt.Fprintf(&b, "- #%s: no matching activity\n", channelLabel(w))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func channelLabel(w ChannelWindow) string {
	if w.ChannelName != "" {
		return w.ChannelName
	}
	return w.ChannelID
}

// snippet returns the first n runes of text with newlines flattened.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "…"
}
