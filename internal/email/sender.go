// Package email sends booking confirmation and cancellation emails to
// clients through Amazon SES.
package email

import "context"

// EmailSender provides a testable abstraction over SES delivery.
type EmailSender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}
