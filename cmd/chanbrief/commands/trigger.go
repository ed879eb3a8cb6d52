package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// runTrigger serializes digest runs from the scheduler and the owner's
// manual command. The daily fire blocks until an in-flight manual run
// finishes (the pipeline's run cap bounds the wait) so a scheduled day
// is never dropped; manual requests refuse to queue instead.
type runTrigger struct {
	mu       sync.Mutex
	run      func(ctx context.Context, day *time.Time) error
	parseDay func(arg string) (*time.Time, error)
	reply    func(channelID, text string)
	logger   *slog.Logger
}

// Scheduled executes the daily pass, waiting out any in-flight manual
// run first.
func (t *runTrigger) Scheduled(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.run(ctx, nil)
}

// Manual executes an owner-requested pass and acknowledges on replyTo.
func (t *runTrigger) Manual(ctx context.Context, dayArg, replyTo string) {
	if !t.mu.TryLock() {
		t.reply(replyTo, "A digest run is already in progress.")
		return
	}
	defer t.mu.Unlock()

	day, err := t.parseDay(dayArg)
	if err != nil {
		t.reply(replyTo, fmt.Sprintf("Could not parse day %q. Try: today, yesterday, monday, dec 02, 2025-12-02, 12/02.", dayArg))
		return
	}
	t.reply(replyTo, "Generating digest…")
	if err := t.run(ctx, day); err != nil {
		t.logger.Error("manual digest run failed", "error", err)
	}
}
