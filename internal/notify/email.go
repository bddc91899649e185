package notify

import (
	"context"
	"fmt"
	"html"
	"log"

	"github.com/resend/resend-go/v2"
)

// EmailNotifier delivers portal events to the maintainers' inbox via Resend.
type EmailNotifier struct {
	client *resend.Client
	from   string
	to     string
}

func NewEmailNotifier(apiKey, from, to string) *EmailNotifier {
	return &EmailNotifier{
		client: resend.NewClient(apiKey),
		from:   from,
		to:     to,
	}
}

func (n *EmailNotifier) Publish(ctx context.Context, subject, message string) error {
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{n.to},
		Subject: subject,
		Html: fmt.Sprintf(`
			<div style="font-family: sans-serif; max-width: 480px; margin: 0 auto; padding: 24px;">
				<h2 style="color: #333;">%s</h2>
				<pre style="white-space: pre-wrap; color: #444;">%s</pre>
			</div>
		`, html.EscapeString(subject), html.EscapeString(message)),
	}

	sent, err := n.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}
	log.Printf("📧 Notification email sent (ID: %s)", sent.Id)
	return nil
}
