package receiving

import (
	"context"

	"github.com/ovenline-erp/ovenline-erp/internal/realtime"
)

// EventTypeCompleted is broadcast after an approval commits.
const EventTypeCompleted = "grn-completed"

// EventPublisher is the injected publish capability for post-approval
// notifications. Publishing is best effort and never part of the
// transactional guarantee; realtime.NoopPublisher satisfies it for
// environments without listeners.
type EventPublisher interface {
	Publish(ctx context.Context, event realtime.Event) error
}
