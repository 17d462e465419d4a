package bookingapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rezvo/bookinggrid/internal/models"
)

// wireBooking accepts the start either as one instant or as separate date
// and time fields, and the duration under either name.
type wireBooking struct {
	ID              string  `json:"id"`
	ClientName      string  `json:"clientName"`
	ClientEmail     string  `json:"clientEmail"`
	ClientPhone     string  `json:"clientPhone"`
	ServiceID       string  `json:"serviceId"`
	ResourceID      *string `json:"resourceId"`
	StartInstant    string  `json:"startInstant"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	DurationMinutes *int    `json:"durationMinutes"`
	Duration        *int    `json:"duration"`
	Status          string  `json:"status"`
	Price           int64   `json:"price"`
	Notes           string  `json:"notes"`
}

func (c *Client) decodeBooking(raw json.RawMessage) (models.Booking, error) {
	var wire wireBooking
	if err := json.Unmarshal(raw, &wire); err != nil {
		return models.Booking{}, fmt.Errorf("decode booking: %w", err)
	}
	if strings.TrimSpace(wire.ID) == "" {
		return models.Booking{}, ErrMissingID
	}

	start, err := c.parseStart(wire)
	if err != nil {
		return models.Booking{}, fmt.Errorf("booking %s: %w", wire.ID, err)
	}

	duration := 0
	switch {
	case wire.DurationMinutes != nil:
		duration = *wire.DurationMinutes
	case wire.Duration != nil:
		duration = *wire.Duration
	}

	status, err := models.ParseBookingStatus(wire.Status)
	if err != nil {
		status = models.BookingStatusPending
	}

	var resourceID *string
	if wire.ResourceID != nil && strings.TrimSpace(*wire.ResourceID) != "" {
		id := strings.TrimSpace(*wire.ResourceID)
		resourceID = &id
	}

	booking := models.Booking{
		ID:              wire.ID,
		ClientName:      wire.ClientName,
		ClientEmail:     wire.ClientEmail,
		ClientPhone:     wire.ClientPhone,
		ServiceID:       wire.ServiceID,
		ResourceID:      resourceID,
		Start:           start,
		DurationMinutes: duration,
		Status:          status,
		Price:           wire.Price,
		Notes:           wire.Notes,
	}
	if err := booking.Validate(); err != nil {
		return models.Booking{}, fmt.Errorf("booking %s: %w", wire.ID, err)
	}
	return booking, nil
}

func (c *Client) parseStart(wire wireBooking) (time.Time, error) {
	raw := strings.TrimSpace(wire.StartInstant)
	if raw == "" {
		date := strings.TrimSpace(wire.Date)
		clock := strings.TrimSpace(wire.Time)
		if date == "" || clock == "" {
			return time.Time{}, models.ErrMissingStart
		}
		raw = date + "T" + clock
	}

	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.In(c.loc), nil
	}
	layouts := []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
	for _, layout := range layouts {
		if parsed, err := time.ParseInLocation(layout, raw, c.loc); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("start %q is not a valid time", raw)
}

// unwrapList accepts a bare JSON array or a {"data": [...]} envelope.
func unwrapList(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] == '[' {
		return trimmed
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(trimmed, &envelope) == nil && len(envelope.Data) > 0 {
		return envelope.Data
	}
	return trimmed
}

// unwrapObject accepts a bare object or a {"data": {...}} envelope.
func unwrapObject(raw json.RawMessage) json.RawMessage {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(raw, &envelope) == nil && len(bytes.TrimSpace(envelope.Data)) > 0 && bytes.TrimSpace(envelope.Data)[0] == '{' {
		return envelope.Data
	}
	return raw
}
