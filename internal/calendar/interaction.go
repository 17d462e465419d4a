package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rezvo/bookinggrid/internal/models"
)

type IntentKind string

const (
	IntentCreate   IntentKind = "create"
	IntentDetail   IntentKind = "detail"
	IntentNavigate IntentKind = "navigate"
)

var (
	ErrHourOutOfRange  = errors.New("hour is outside the visible grid")
	ErrUnknownBooking  = errors.New("booking not found in snapshot")
	ErrUnknownResource = errors.New("resource not found in snapshot")
	ErrNoTarget        = errors.New("tap does not hit a slot, booking or day")
	ErrUnknownTapKind  = errors.New("unknown tap kind")
)

// Intent is the single outcome of a tap on the grid.
type Intent interface {
	Kind() IntentKind
}

// CreateIntent proposes a new booking. It is advisory: availability is
// decided by the draft form and the backend.
type CreateIntent struct {
	ResourceID    *string   `json:"resourceId"`
	ProposedStart time.Time `json:"proposedStartTime"`
	AnchorDate    time.Time `json:"anchorDate"`
}

func (CreateIntent) Kind() IntentKind { return IntentCreate }

// DetailIntent opens a read-only booking detail view.
type DetailIntent struct {
	Booking models.Booking `json:"booking"`
}

func (DetailIntent) Kind() IntentKind { return IntentDetail }

// NavigateIntent switches to the day view at Date.
type NavigateIntent struct {
	Date time.Time `json:"date"`
}

func (NavigateIntent) Kind() IntentKind { return IntentNavigate }

type TapKind string

const (
	TapSlot    TapKind = "slot"
	TapBooking TapKind = "booking"
	TapDay     TapKind = "day"
	TapPoint   TapKind = "point"
)

// Tap is a gesture as reported by the view layer.
type Tap struct {
	Kind       TapKind   `json:"kind"`
	Date       time.Time `json:"date"`
	Hour       *int      `json:"hour,omitempty"`
	Offset     *float64  `json:"offset,omitempty"`
	X          float64   `json:"x,omitempty"`
	Y          float64   `json:"y,omitempty"`
	ResourceID *string   `json:"resourceId,omitempty"`
	BookingID  string    `json:"bookingId,omitempty"`
}

// Resolver maps taps to intents against one snapshot. It never performs I/O.
type Resolver struct {
	geometry  Geometry
	snap      models.Snapshot
	resources map[string]bool
}

func NewResolver(snap models.Snapshot, g Geometry) *Resolver {
	resources := make(map[string]bool, len(snap.Resources))
	for _, resource := range snap.Resources {
		resources[resource.ID] = true
	}
	return &Resolver{geometry: g, snap: snap, resources: resources}
}

// Slot resolves a tap on an empty hour cell in a resource column.
func (r *Resolver) Slot(date time.Time, hour int, resourceID *string) (CreateIntent, error) {
	if hour < r.geometry.StartHour || hour >= r.geometry.EndHour {
		return CreateIntent{}, fmt.Errorf("%w: %d", ErrHourOutOfRange, hour)
	}
	resource, err := r.resourceFor(resourceID)
	if err != nil {
		return CreateIntent{}, err
	}
	year, month, day := date.Date()
	return CreateIntent{
		ResourceID:    resource,
		ProposedStart: time.Date(year, month, day, hour, 0, 0, 0, date.Location()),
		AnchorDate:    TruncateDate(date),
	}, nil
}

// Offset resolves a tap at a vertical offset within a column, rounded down
// to the tap granularity.
func (r *Resolver) Offset(date time.Time, offset float64, resourceID *string) (CreateIntent, error) {
	if offset < 0 || offset >= r.geometry.Height() {
		return CreateIntent{}, fmt.Errorf("%w: offset %.1f", ErrHourOutOfRange, offset)
	}
	resource, err := r.resourceFor(resourceID)
	if err != nil {
		return CreateIntent{}, err
	}
	return CreateIntent{
		ResourceID:    resource,
		ProposedStart: r.geometry.TapTime(date, offset),
		AnchorDate:    TruncateDate(date),
	}, nil
}

func (r *Resolver) Booking(id string) (DetailIntent, error) {
	booking, ok := r.snap.BookingByID(id)
	if !ok {
		return DetailIntent{}, fmt.Errorf("%w: %s", ErrUnknownBooking, id)
	}
	return DetailIntent{Booking: booking}, nil
}

func (r *Resolver) Day(date time.Time) NavigateIntent {
	return NavigateIntent{Date: TruncateDate(date)}
}

// Point hit-tests raw grid coordinates: a booking block wins over the empty
// slot underneath it.
func (r *Resolver) Point(grid Grid, x, y float64) (Intent, error) {
	if grid.Mode == ViewMonth {
		return nil, fmt.Errorf("%w: month cells are tapped by date", ErrNoTarget)
	}
	if block, ok := grid.BlockAt(x, y); ok {
		return DetailIntent{Booking: block.Booking}, nil
	}
	column, ok := grid.Layout.ColumnAt(x)
	if !ok {
		return nil, ErrNoTarget
	}
	intent, err := r.Offset(column.Date, y, column.ResourceID)
	if err != nil {
		return nil, err
	}
	return intent, nil
}

// Resolve dispatches a view-layer tap. TapPoint needs the grid the tap was
// made on; the other kinds ignore it.
func (r *Resolver) Resolve(tap Tap, grid Grid) (Intent, error) {
	switch tap.Kind {
	case TapSlot:
		if tap.Offset != nil {
			return r.Offset(tap.Date, *tap.Offset, tap.ResourceID)
		}
		if tap.Hour == nil {
			return nil, fmt.Errorf("%w: slot tap needs hour or offset", ErrNoTarget)
		}
		return r.Slot(tap.Date, *tap.Hour, tap.ResourceID)
	case TapBooking:
		return r.Booking(tap.BookingID)
	case TapDay:
		if tap.Date.IsZero() {
			return nil, fmt.Errorf("%w: day tap needs a date", ErrNoTarget)
		}
		return r.Day(tap.Date), nil
	case TapPoint:
		return r.Point(grid, tap.X, tap.Y)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTapKind, tap.Kind)
	}
}

// resourceFor normalizes the unassigned column to a nil resource and rejects
// ids the snapshot does not know.
func (r *Resolver) resourceFor(resourceID *string) (*string, error) {
	if resourceID == nil {
		return nil, nil
	}
	id := strings.TrimSpace(*resourceID)
	if id == "" || id == Unassigned {
		return nil, nil
	}
	if !r.resources[id] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, id)
	}
	return &id, nil
}
