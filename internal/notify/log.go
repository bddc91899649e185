package notify

import (
	"context"
	"log"
)

// LogNotifier implements Notifier by writing to the server log. It is the
// development-mode stand-in used when no email credentials are configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Publish(ctx context.Context, subject, message string) error {
	log.Printf("📨 [Notify] %s: %s", subject, message)
	return nil
}
