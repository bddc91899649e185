package notify

import "context"

// Notifier defines the interface for announcing portal events to the
// maintainers' channel. This abstraction keeps the delivery mechanism
// swappable without touching the handlers.
type Notifier interface {
	Publish(ctx context.Context, subject, message string) error
}
