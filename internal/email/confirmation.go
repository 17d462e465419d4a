package email

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rezvo/bookinggrid/internal/models"
)

const sendTimeout = 5 * time.Second

// Notifier emails clients when their booking is created or cancelled. Sends
// run in the background; failures are logged and never fail the write.
type Notifier struct {
	sender       EmailSender
	businessName string
	loc          *time.Location
	timeout      time.Duration
}

func NewNotifier(sender EmailSender, businessName string, loc *time.Location) *Notifier {
	return &Notifier{sender: sender, businessName: businessName, loc: loc, timeout: sendTimeout}
}

func (n *Notifier) BookingCreated(ctx context.Context, booking models.Booking, snap models.Snapshot) {
	if !n.enabled() {
		return
	}
	n.send(ctx, booking, BuildConfirmationEmail(DetailsFor(booking, snap, n.businessName, n.loc)))
}

func (n *Notifier) BookingCancelled(ctx context.Context, booking models.Booking, snap models.Snapshot) {
	if !n.enabled() {
		return
	}
	n.send(ctx, booking, BuildCancellationEmail(DetailsFor(booking, snap, n.businessName, n.loc)))
}

func (n *Notifier) enabled() bool {
	return n != nil && n.sender != nil
}

func (n *Notifier) send(ctx context.Context, booking models.Booking, message Message) {
	logger := log.Ctx(ctx).With().Str("booking_id", booking.ID).Logger()
	recipient := strings.TrimSpace(booking.ClientEmail)
	if recipient == "" {
		logger.Debug().Msg("Skipping booking email without client address")
		return
	}

	go func() {
		sendCtx, cancel := newEmailContext(ctx, n.timeout)
		defer cancel()
		if err := n.sender.Send(sendCtx, recipient, message.Subject, message.Body); err != nil {
			logger.Error().Err(err).Str("subject", message.Subject).Msg("Failed to send booking email")
		}
	}()
}
