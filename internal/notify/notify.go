// Package notify defines the notification sink through which assembled match
// reports and service announcements leave the process.
package notify

import (
	"context"

	"matchherald/internal/report"
)

// Sink delivers reports and plain announcements to the configured channel.
//
// Implementations must be safe for concurrent use. Delivery errors are
// expected operational conditions; callers log them and move on rather than
// treating them as fatal.
type Sink interface {
	// DeliverReport sends one match report.
	DeliverReport(ctx context.Context, r *report.Report) error

	// Announce sends a plain text message (startup, shutdown, degraded-state
	// notices).
	Announce(ctx context.Context, message string) error
}
