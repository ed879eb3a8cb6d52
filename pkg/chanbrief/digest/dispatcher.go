package digest

import (
	"context"
	"log/slog"
)

// DirectMessenger is the platform capability "send a direct message to
// user U".
type DirectMessenger interface {
	SendDirectMessage(ctx context.Context, userID, text string) error
}

// Dispatcher sends the finished report to the configured recipient and
// isolates delivery failures from the scheduling loop.
type Dispatcher struct {
	messenger   DirectMessenger
	recipientID string
	logger      *slog.Logger
}

// NewDispatcher creates a Dispatcher for the given recipient.
func NewDispatcher(messenger DirectMessenger, recipientID string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		messenger:   messenger,
		recipientID: recipientID,
		logger:      logger.With("component", "dispatcher"),
	}
}

// Deliver sends the report exactly once. On failure the error is logged
// and returned as a DeliveryError for the run's diagnostics; there is no
// retry queue and no report persistence, so a failed delivery is a lost
// report.
func (d *Dispatcher) Deliver(ctx context.Context, report Report) *DeliveryError {
	if err := d.messenger.SendDirectMessage(ctx, d.recipientID, report.Body); err != nil {
		derr := &DeliveryError{RecipientID: d.recipientID, Err: err}
		d.logger.Error("report delivery failed", "recipient", d.recipientID, "error", err)
		return derr
	}
	d.logger.Info("report delivered",
		"recipient", d.recipientID,
		"body_len", len(report.Body),
		"matched", report.MatchedMessageCount,
		"fallback", report.Fallback,
	)
	return nil
}
