// Package draft holds the booking draft form that a create intent opens:
// local validation, slot chips and a single-shot submission to the backend.
package draft

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"

	"github.com/rezvo/bookinggrid/internal/bookingapi"
	"github.com/rezvo/bookinggrid/internal/calendar"
	"github.com/rezvo/bookinggrid/internal/models"
)

const (
	// DefaultRegion is used to read phone numbers written without a country code.
	DefaultRegion = "GB"

	maxClientNameLength = 120
	maxNotesLength      = 1000
)

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ValidationError lists every field that blocks submission.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, field := range e.Fields {
		parts[i] = field.Error()
	}
	return "invalid booking draft: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

type Form struct {
	ClientName  string    `json:"clientName"`
	ClientEmail string    `json:"clientEmail"`
	ClientPhone string    `json:"clientPhone,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	ServiceID   string    `json:"serviceId"`
	ResourceID  *string   `json:"resourceId,omitempty"`
	Start       time.Time `json:"startTime"`

	// IdempotencyKey identifies this draft to the backend across retries.
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// FromIntent pre-fills a form from a tap on an empty slot.
func FromIntent(intent calendar.CreateIntent) Form {
	form := Form{Start: intent.ProposedStart, IdempotencyKey: uuid.NewString()}
	if intent.ResourceID != nil {
		id := *intent.ResourceID
		form.ResourceID = &id
	}
	return form
}

// Validate reports missing required fields and malformed optional ones. It
// returns a *ValidationError or nil.
func (f Form) Validate() error {
	verr := &ValidationError{}

	name := strings.TrimSpace(f.ClientName)
	switch {
	case name == "":
		verr.add("clientName", "is required")
	case len(name) > maxClientNameLength:
		verr.add("clientName", fmt.Sprintf("must be %d characters or fewer", maxClientNameLength))
	}

	email := strings.TrimSpace(f.ClientEmail)
	if email == "" {
		verr.add("clientEmail", "is required")
	} else if !validEmail(email) {
		verr.add("clientEmail", "must be a valid email address")
	}

	if strings.TrimSpace(f.ServiceID) == "" {
		verr.add("serviceId", "is required")
	}
	if f.Start.IsZero() {
		verr.add("startTime", "is required")
	}

	if phone := strings.TrimSpace(f.ClientPhone); phone != "" {
		if _, err := NormalizePhone(phone); err != nil {
			verr.add("clientPhone", "must be a valid phone number")
		}
	}
	if len(f.Notes) > maxNotesLength {
		verr.add("notes", fmt.Sprintf("must be %d characters or fewer", maxNotesLength))
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// Request validates the form and builds the creation payload.
func (f Form) Request() (bookingapi.CreateBookingRequest, error) {
	if err := f.Validate(); err != nil {
		return bookingapi.CreateBookingRequest{}, err
	}
	req := bookingapi.CreateBookingRequest{
		ServiceID:    strings.TrimSpace(f.ServiceID),
		ClientName:   strings.TrimSpace(f.ClientName),
		ClientEmail:  strings.TrimSpace(f.ClientEmail),
		StartInstant: f.Start,
		Notes:        strings.TrimSpace(f.Notes),
	}
	req.IdempotencyKey = strings.TrimSpace(f.IdempotencyKey)
	if f.ResourceID != nil {
		if id := strings.TrimSpace(*f.ResourceID); id != "" && id != calendar.Unassigned {
			req.ResourceID = &id
		}
	}
	if phone := strings.TrimSpace(f.ClientPhone); phone != "" {
		req.ClientPhone, _ = NormalizePhone(phone)
	}
	return req, nil
}

// EnsureKey gives the draft an idempotency key if it has none yet and
// returns it.
func (f *Form) EnsureKey() string {
	f.IdempotencyKey = strings.TrimSpace(f.IdempotencyKey)
	if f.IdempotencyKey == "" {
		f.IdempotencyKey = uuid.NewString()
	}
	return f.IdempotencyKey
}

// Reset clears the form after a successful submission, including its key.
func (f *Form) Reset() {
	*f = Form{}
}

// SlotChips lists the start times the form offers on the form's date, in the
// grid's form granularity.
func (f Form) SlotChips(g calendar.Geometry) []time.Time {
	if f.Start.IsZero() {
		return nil
	}
	return g.SlotTimes(f.Start)
}

// DurationFor is the duration a draft for serviceID will occupy.
func DurationFor(snap models.Snapshot, serviceID string) int {
	service, ok := snap.ServiceByID(serviceID)
	if !ok {
		return models.Service{}.DefaultDuration()
	}
	return service.DefaultDuration()
}

// NormalizePhone parses a phone number, defaulting to UK numbering, and
// returns it in E.164 form.
func NormalizePhone(raw string) (string, error) {
	number, err := phonenumbers.Parse(strings.TrimSpace(raw), DefaultRegion)
	if err != nil {
		return "", fmt.Errorf("parse phone number: %w", err)
	}
	if !phonenumbers.IsValidNumber(number) {
		return "", fmt.Errorf("phone number %q is not valid", raw)
	}
	return phonenumbers.Format(number, phonenumbers.E164), nil
}

func validEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return false
	}
	// ParseAddress accepts display names; the form only wants the bare address.
	return addr.Address == value && strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@"):], ".")
}
