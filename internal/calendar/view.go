package calendar

import (
	"fmt"
	"strings"
	"time"
)

type ViewMode string

const (
	ViewDay   ViewMode = "day"
	ViewWeek  ViewMode = "week"
	ViewMonth ViewMode = "month"
)

func (m ViewMode) Valid() bool {
	switch m {
	case ViewDay, ViewWeek, ViewMonth:
		return true
	}
	return false
}

// ParseViewMode accepts day, week or month; an empty value means day.
func ParseViewMode(raw string) (ViewMode, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ViewDay, nil
	}
	mode := ViewMode(raw)
	if !mode.Valid() {
		return "", fmt.Errorf("view must be one of day, week, month")
	}
	return mode, nil
}

// State is the transient view state a render depends on.
type State struct {
	Mode   ViewMode  `json:"mode"`
	Anchor time.Time `json:"anchor"`
}

// Controller owns the active view mode and anchor date. It is not safe for
// concurrent use; each calendar screen or request owns its own.
type Controller struct {
	mode   ViewMode
	anchor time.Time
	now    func() time.Time
}

type ControllerOption func(*Controller)

// WithNow replaces the clock used by Today and IsToday checks.
func WithNow(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func NewController(mode ViewMode, anchor time.Time, opts ...ControllerOption) *Controller {
	c := &Controller{mode: mode, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if !c.mode.Valid() {
		c.mode = ViewDay
	}
	if anchor.IsZero() {
		anchor = c.now()
	}
	c.anchor = TruncateDate(anchor)
	return c
}

func (c *Controller) Mode() ViewMode {
	return c.mode
}

func (c *Controller) Anchor() time.Time {
	return c.anchor
}

func (c *Controller) State() State {
	return State{Mode: c.mode, Anchor: c.anchor}
}

func (c *Controller) SetMode(mode ViewMode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown view mode %q", mode)
	}
	c.mode = mode
	return nil
}

// Advance moves the anchor by steps units of the current mode: days, weeks,
// or calendar months. Month moves land on the 1st of the target month.
func (c *Controller) Advance(steps int) {
	switch c.mode {
	case ViewWeek:
		c.anchor = c.anchor.AddDate(0, 0, DaysPerWeek*steps)
	case ViewMonth:
		year, month, _ := c.anchor.Date()
		c.anchor = time.Date(year, month+time.Month(steps), 1, 0, 0, 0, 0, c.anchor.Location())
	default:
		c.anchor = c.anchor.AddDate(0, 0, steps)
	}
}

func (c *Controller) Next() {
	c.Advance(1)
}

func (c *Controller) Previous() {
	c.Advance(-1)
}

// SelectDate switches to the day view anchored at date.
func (c *Controller) SelectDate(date time.Time) {
	c.mode = ViewDay
	c.anchor = TruncateDate(date)
}

// Apply performs the view transition carried by a navigate intent.
func (c *Controller) Apply(intent NavigateIntent) {
	c.SelectDate(intent.Date)
}

func (c *Controller) Today() {
	c.anchor = TruncateDate(c.now().In(c.anchor.Location()))
}

func (c *Controller) IsToday(date time.Time) bool {
	return SameDate(date, c.now().In(date.Location()))
}

// Dates returns the dates the current view shows.
func (c *Controller) Dates() []time.Time {
	switch c.mode {
	case ViewWeek:
		return WeekDates(c.anchor)
	case ViewMonth:
		cells := MonthGridDates(c.anchor)
		dates := make([]time.Time, len(cells))
		for i, cell := range cells {
			dates[i] = cell.Date
		}
		return dates
	default:
		return DayDates(c.anchor)
	}
}

// Range returns the half-open interval of instants the view needs bookings for.
func (c *Controller) Range() (time.Time, time.Time) {
	return RangeOf(c.State())
}

func RangeOf(state State) (time.Time, time.Time) {
	switch state.Mode {
	case ViewWeek:
		dates := WeekDates(state.Anchor)
		return dates[0], dates[len(dates)-1].AddDate(0, 0, 1)
	case ViewMonth:
		cells := MonthGridDates(state.Anchor)
		return cells[0].Date, cells[len(cells)-1].Date.AddDate(0, 0, 1)
	default:
		start := TruncateDate(state.Anchor)
		return start, start.AddDate(0, 0, 1)
	}
}

// Title is the header label for the current view.
func (c *Controller) Title() string {
	return TitleOf(c.State())
}

func TitleOf(state State) string {
	switch state.Mode {
	case ViewWeek:
		dates := WeekDates(state.Anchor)
		first, last := dates[0], dates[len(dates)-1]
		if first.Year() != last.Year() {
			return first.Format("2 Jan 2006") + " – " + last.Format("2 Jan 2006")
		}
		return first.Format("2 Jan") + " – " + last.Format("2 Jan 2006")
	case ViewMonth:
		return state.Anchor.Format("January 2006")
	default:
		return state.Anchor.Format("Monday 2 January 2006")
	}
}
