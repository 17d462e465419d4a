// internal/models/booking.go
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

var (
	ErrMissingStart    = errors.New("booking start is missing")
	ErrInvalidDuration = errors.New("booking duration must be positive")
)

// Valid reports whether s is one of the statuses the backend accepts.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

func ParseBookingStatus(raw string) (BookingStatus, error) {
	status := BookingStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown booking status %q", raw)
	}
	return status, nil
}

// Booking is a read-only record owned by the booking backend.
type Booking struct {
	ID              string        `json:"id"`
	ClientName      string        `json:"clientName"`
	ClientEmail     string        `json:"clientEmail"`
	ClientPhone     string        `json:"clientPhone,omitempty"`
	ServiceID       string        `json:"serviceId"`
	ResourceID      *string       `json:"resourceId,omitempty"`
	Start           time.Time     `json:"startInstant"`
	DurationMinutes int           `json:"durationMinutes"`
	Status          BookingStatus `json:"status"`
	Price           int64         `json:"price"`
	Notes           string        `json:"notes,omitempty"`
}

// Validate checks the fields the calendar needs to place a booking.
func (b Booking) Validate() error {
	if b.Start.IsZero() {
		return ErrMissingStart
	}
	if b.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

func (b Booking) End() time.Time {
	return b.Start.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// In returns a copy of b with Start in loc.
func (b Booking) In(loc *time.Location) Booking {
	b.Start = b.Start.In(loc)
	return b
}

func (b Booking) IsAssigned() bool {
	return b.ResourceID != nil && strings.TrimSpace(*b.ResourceID) != ""
}

func (b Booking) IsCancelled() bool {
	return b.Status == BookingStatusCancelled
}

// Snapshot is one immutable fetch of everything the calendar renders.
type Snapshot struct {
	Bookings  []Booking  `json:"bookings"`
	Resources []Resource `json:"resources"`
	Services  []Service  `json:"services"`
	FetchedAt time.Time  `json:"fetchedAt"`
}

func (s Snapshot) ServiceByID(id string) (Service, bool) {
	for _, service := range s.Services {
		if service.ID == id {
			return service, true
		}
	}
	return Service{}, false
}

func (s Snapshot) ResourceByID(id string) (Resource, bool) {
	for _, resource := range s.Resources {
		if resource.ID == id {
			return resource, true
		}
	}
	return Resource{}, false
}

func (s Snapshot) BookingByID(id string) (Booking, bool) {
	for _, booking := range s.Bookings {
		if booking.ID == id {
			return booking, true
		}
	}
	return Booking{}, false
}
