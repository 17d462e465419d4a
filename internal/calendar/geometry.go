package calendar

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rezvo/bookinggrid/internal/models"
)

const (
	DefaultStartHour           = 6
	DefaultEndHour             = 23
	DefaultPixelsPerHour       = 80
	DefaultMinBlockHeight      = 30
	DefaultMaxBlockHeightRatio = 0.8
	DefaultMinColumnWidth      = 120
	DefaultTimeColumnWidth     = 56
	DefaultTapStepMinutes      = 60
	DefaultFormStepMinutes     = 30

	// Offsets are floored after this nudge so a top computed from a
	// non-terminating fraction maps back to the minute it came from.
	offsetEpsilon = 1e-9
)

var ErrInvalidGeometry = errors.New("invalid grid geometry")

// Geometry is the fixed-resolution time grid. The grid spans StartHour:00 up
// to EndHour:00; bookings starting outside that window are not drawn.
type Geometry struct {
	StartHour           int     `json:"startHour"`
	EndHour             int     `json:"endHour"`
	PixelsPerHour       float64 `json:"pixelsPerHour"`
	MinBlockHeight      float64 `json:"minBlockHeight"`
	MaxBlockHeightRatio float64 `json:"maxBlockHeightRatio"`
	MinColumnWidth      float64 `json:"minColumnWidth"`
	TimeColumnWidth     float64 `json:"timeColumnWidth"`
	TapStepMinutes      int     `json:"tapStepMinutes"`
	FormStepMinutes     int     `json:"formStepMinutes"`
}

func DefaultGeometry() Geometry {
	return Geometry{
		StartHour:           DefaultStartHour,
		EndHour:             DefaultEndHour,
		PixelsPerHour:       DefaultPixelsPerHour,
		MinBlockHeight:      DefaultMinBlockHeight,
		MaxBlockHeightRatio: DefaultMaxBlockHeightRatio,
		MinColumnWidth:      DefaultMinColumnWidth,
		TimeColumnWidth:     DefaultTimeColumnWidth,
		TapStepMinutes:      DefaultTapStepMinutes,
		FormStepMinutes:     DefaultFormStepMinutes,
	}
}

func (g Geometry) Validate() error {
	if g.StartHour < 0 || g.StartHour > 23 {
		return fmt.Errorf("%w: start hour %d must be between 0 and 23", ErrInvalidGeometry, g.StartHour)
	}
	if g.EndHour <= g.StartHour || g.EndHour > 24 {
		return fmt.Errorf("%w: end hour %d must be after start hour %d and at most 24", ErrInvalidGeometry, g.EndHour, g.StartHour)
	}
	if g.PixelsPerHour <= 0 {
		return fmt.Errorf("%w: pixels per hour must be greater than 0", ErrInvalidGeometry)
	}
	if g.MinBlockHeight <= 0 {
		return fmt.Errorf("%w: minimum block height must be greater than 0", ErrInvalidGeometry)
	}
	if g.MaxBlockHeightRatio <= 0 || g.MaxBlockHeightRatio > 1 {
		return fmt.Errorf("%w: max block height ratio must be in (0, 1]", ErrInvalidGeometry)
	}
	if g.MinColumnWidth <= 0 {
		return fmt.Errorf("%w: minimum column width must be greater than 0", ErrInvalidGeometry)
	}
	if g.TimeColumnWidth < 0 {
		return fmt.Errorf("%w: time column width must be 0 or greater", ErrInvalidGeometry)
	}
	for name, step := range map[string]int{"tap": g.TapStepMinutes, "form": g.FormStepMinutes} {
		if !validStep(step) {
			return fmt.Errorf("%w: %s step %d must divide 60", ErrInvalidGeometry, name, step)
		}
	}
	return nil
}

func validStep(step int) bool {
	return step > 0 && step <= 60 && 60%step == 0
}

// Hours lists the hour rows from StartHour to EndHour-1.
func (g Geometry) Hours() []int {
	hours := make([]int, 0, g.EndHour-g.StartHour)
	for hour := g.StartHour; hour < g.EndHour; hour++ {
		hours = append(hours, hour)
	}
	return hours
}

func (g Geometry) Height() float64 {
	return float64(g.EndHour-g.StartHour) * g.PixelsPerHour
}

func (g Geometry) spanMinutes() int {
	return (g.EndHour - g.StartHour) * 60
}

// MinHeight is the tap-able floor for short bookings, capped at
// MaxBlockHeightRatio of one hour row so it never covers the next hour line.
func (g Geometry) MinHeight() float64 {
	floor := g.MinBlockHeight
	if ratio := g.MaxBlockHeightRatio; ratio > 0 {
		floor = math.Min(floor, ratio*g.PixelsPerHour)
	}
	if floor <= 0 {
		floor = 1
	}
	return floor
}

type Position struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

func (p Position) Bottom() float64 {
	return p.Top + p.Height
}

// OffsetOf maps a wall-clock time to a vertical offset.
func (g Geometry) OffsetOf(t time.Time) float64 {
	hour, minute, _ := t.Clock()
	return float64(hour-g.StartHour)*g.PixelsPerHour + float64(minute)/60*g.PixelsPerHour
}

// PositionOf places a booking using the wall clock of its Start. It reports
// false when the booking starts outside the visible hours.
func (g Geometry) PositionOf(b models.Booking) (Position, bool) {
	hour := b.Start.Hour()
	if hour < g.StartHour || hour >= g.EndHour {
		return Position{}, false
	}

	top := g.OffsetOf(b.Start)
	height := float64(b.DurationMinutes) / 60 * g.PixelsPerHour
	if minHeight := g.MinHeight(); height < minHeight {
		height = minHeight
	}
	// Clip at the bottom of the grid, but keep the floor so late bookings stay tappable.
	if bottom := g.Height(); top+height > bottom {
		height = math.Max(bottom-top, g.MinHeight())
	}
	return Position{Top: top, Height: height}, true
}

// TimeOf maps a vertical offset on date back to a start time, floored to
// stepMinutes and clamped to the visible hours.
func (g Geometry) TimeOf(date time.Time, offset float64, stepMinutes int) time.Time {
	if !validStep(stepMinutes) {
		stepMinutes = 1
	}
	minutes := offset / g.PixelsPerHour * 60
	slot := int(math.Floor(minutes/float64(stepMinutes)+offsetEpsilon)) * stepMinutes
	if slot < 0 {
		slot = 0
	}
	if last := g.spanMinutes() - stepMinutes; slot > last {
		slot = last
	}
	year, month, day := date.Date()
	return time.Date(year, month, day, g.StartHour, slot, 0, 0, date.Location())
}

// TapTime resolves a tap on an empty cell using the coarse tap granularity.
func (g Geometry) TapTime(date time.Time, offset float64) time.Time {
	return g.TimeOf(date, offset, g.TapStepMinutes)
}

// SlotTimes lists the start times offered by the draft form on date.
func (g Geometry) SlotTimes(date time.Time) []time.Time {
	step := g.FormStepMinutes
	if !validStep(step) {
		step = DefaultFormStepMinutes
	}
	year, month, day := date.Date()
	times := make([]time.Time, 0, g.spanMinutes()/step)
	for minute := 0; minute < g.spanMinutes(); minute += step {
		times = append(times, time.Date(year, month, day, g.StartHour, minute, 0, 0, date.Location()))
	}
	return times
}

// Contains reports whether t falls on a visible hour row.
func (g Geometry) Contains(t time.Time) bool {
	hour := t.Hour()
	return hour >= g.StartHour && hour < g.EndHour
}
