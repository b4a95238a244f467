package notify

import (
	"context"
	"log/slog"

	"travelcore/internal/usecase/commands"
)

// LogDispatcher writes events to the structured log instead of a broker.
// Used when AMQP_URL is unset, typically local runs and tests.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher { return &LogDispatcher{} }

var _ commands.NotificationDispatcher = (*LogDispatcher)(nil)

func (d *LogDispatcher) Publish(ctx context.Context, event commands.Event) error {
	slog.InfoContext(ctx, "event published",
		"topic", event.Topic,
		"booking_id", event.BookingID,
		"kind", event.Kind,
		"occurred_at", event.OccurredAt,
	)
	return nil
}
