package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// windowSpan is the trailing span covered by a normal daily run.
const windowSpan = 24 * time.Hour

// defaultRunTimeout caps the total duration of one pipeline run so a
// stalled network call cannot wedge the scheduler past the next day's
// target time.
const defaultRunTimeout = 5 * time.Minute

// RunDiagnostics records the outcome of one pipeline run. Logged at the
// end of each run, never persisted.
type RunDiagnostics struct {
	RunID         string
	StartedAt     time.Time
	Duration      time.Duration
	Matched       int
	ChannelErrors []*ChannelError
	DeliveryError *DeliveryError
	FallbackUsed  bool
}

// Runner drives one complete digest pass:
// collect → filter → summarize → deliver.
type Runner struct {
	channels   []ChannelRef
	collector  *Collector
	summarizer *Summarizer
	dispatcher *Dispatcher
	timezone   *time.Location
	runTimeout time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewRunner wires the pipeline stages together. A zero runTimeout uses
// the default cap.
func NewRunner(
	channels []ChannelRef,
	collector *Collector,
	summarizer *Summarizer,
	dispatcher *Dispatcher,
	timezone *time.Location,
	runTimeout time.Duration,
	logger *slog.Logger,
) *Runner {
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}
	if timezone == nil {
		timezone = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		channels:   channels,
		collector:  collector,
		summarizer: summarizer,
		dispatcher: dispatcher,
		timezone:   timezone,
		runTimeout: runTimeout,
		now:        time.Now,
		logger:     logger.With("component", "pipeline"),
	}
}

// SetNow overrides the clock, for tests.
func (r *Runner) SetNow(now func() time.Time) { r.now = now }

// Run executes one pipeline pass. A nil day covers the trailing 24 hours
// ending now; a concrete day covers that calendar day in the configured
// timezone. The returned error reports an end-to-end failure (panic or
// context cancellation); per-stage failures are handled inside the run
// and surface only in the diagnostics.
func (r *Runner) Run(ctx context.Context, day *time.Time) (diag RunDiagnostics, err error) {
	diag.RunID = uuid.NewString()
	diag.StartedAt = r.now()

	defer func() {
		diag.Duration = r.now().Sub(diag.StartedAt)
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pipeline panic: %v", rec)
		}
		r.logRun(diag, err)
	}()

	ctx, cancel := context.WithTimeout(ctx, r.runTimeout)
	defer cancel()

	since, until := r.window(day)

	windows, failures := r.collector.Collect(ctx, r.channels, since)
	diag.ChannelErrors = failures

	// Day-targeted runs also bound the upper edge of the window.
	if day != nil {
		for i := range windows {
			windows[i].Messages = clampUpper(windows[i].Messages, until)
		}
	}

	report := r.summarizer.Summarize(ctx, windows)
	diag.Matched = report.MatchedMessageCount
	diag.FallbackUsed = report.Fallback

	if ctx.Err() != nil {
		return diag, fmt.Errorf("run aborted: %w", ctx.Err())
	}

	diag.DeliveryError = r.dispatcher.Deliver(ctx, report)
	return diag, nil
}

// window computes the collection bounds for a run.
func (r *Runner) window(day *time.Time) (since, until time.Time) {
	if day == nil {
		now := r.now()
		return now.Add(-windowSpan), now
	}
	local := day.In(r.timezone)
	since = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.timezone)
	return since, since.Add(windowSpan)
}

func clampUpper(messages []Message, until time.Time) []Message {
	out := messages[:0]
	for _, m := range messages {
		if m.Timestamp.Before(until) {
			out = append(out, m)
		}
	}
	return out
}

func (r *Runner) logRun(diag RunDiagnostics, err error) {
	attrs := []any{
		"run_id", diag.RunID,
		"duration", diag.Duration,
		"matched", diag.Matched,
		"channel_errors", len(diag.ChannelErrors),
		"fallback", diag.FallbackUsed,
	}
	if diag.DeliveryError != nil {
		attrs = append(attrs, "delivery_error", diag.DeliveryError.Error())
	}
	if err != nil {
		attrs = append(attrs, "error", err)
		r.logger.Error("digest run failed", attrs...)
		return
	}
	r.logger.Info("digest run completed", attrs...)
}
