package draft

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/rezvo/bookinggrid/internal/bookingapi"
	"github.com/rezvo/bookinggrid/internal/models"
)

var ErrNilForm = errors.New("draft form is nil")

// Creator is the write side of the booking backend.
type Creator interface {
	CreateBooking(ctx context.Context, req bookingapi.CreateBookingRequest) (models.Booking, error)
}

// Submitter sends drafts to the backend and reports created bookings so the
// snapshot can be re-fetched.
type Submitter struct {
	creator   Creator
	onCreated func(context.Context, models.Booking)
}

func NewSubmitter(creator Creator, onCreated func(context.Context, models.Booking)) *Submitter {
	return &Submitter{creator: creator, onCreated: onCreated}
}

// Submit validates form locally and, only if it is valid, issues exactly one
// creation request. On success the form is reset and onCreated runs; on any
// failure the form is left untouched so the user can retry.
func (s *Submitter) Submit(ctx context.Context, form *Form) (models.Booking, error) {
	if form == nil {
		return models.Booking{}, ErrNilForm
	}
	form.EnsureKey()
	req, err := form.Request()
	if err != nil {
		return models.Booking{}, err
	}

	logger := log.Ctx(ctx)
	created, err := s.creator.CreateBooking(ctx, req)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("service_id", req.ServiceID).
			Time("start", req.StartInstant).
			Msg("Booking draft submission failed")
		return models.Booking{}, fmt.Errorf("submit booking draft: %w", err)
	}

	logger.Info().
		Str("booking_id", created.ID).
		Str("service_id", created.ServiceID).
		Time("start", created.Start).
		Msg("Booking created from draft")

	form.Reset()
	if s.onCreated != nil {
		s.onCreated(ctx, created)
	}
	return created, nil
}
