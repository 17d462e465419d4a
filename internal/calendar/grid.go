package calendar

import (
	"sort"
	"time"

	"github.com/rezvo/bookinggrid/internal/models"
)

// MaxMonthCellBookings caps the bookings previewed in a month cell.
const MaxMonthCellBookings = 3

type Block struct {
	Booking     models.Booking `json:"booking"`
	ServiceName string         `json:"serviceName,omitempty"`
	Color       string         `json:"color"`
	ColumnKey   string         `json:"columnKey"`
	Top         float64        `json:"top"`
	Height      float64        `json:"height"`
	X           float64        `json:"x"`
	Width       float64        `json:"width"`
	Lane        int            `json:"lane"`
	LaneCount   int            `json:"laneCount"`
	Dimmed      bool           `json:"dimmed"`
}

func (b Block) Bottom() float64 {
	return b.Top + b.Height
}

func (b Block) Contains(x, y float64) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Top && y < b.Bottom()
}

type MonthCellView struct {
	MonthCell
	IsToday  bool             `json:"isToday"`
	Count    int              `json:"count"`
	Bookings []models.Booking `json:"bookings"`
}

type SkippedBooking struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Grid is everything a view needs to draw one render cycle.
type Grid struct {
	Mode     ViewMode         `json:"mode"`
	Anchor   time.Time        `json:"anchor"`
	Title    string           `json:"title"`
	Dates    []time.Time      `json:"dates"`
	Hours    []int            `json:"hours,omitempty"`
	Height   float64          `json:"height,omitempty"`
	Geometry Geometry         `json:"geometry"`
	Layout   ColumnLayout     `json:"layout"`
	Cells    []MonthCellView  `json:"cells,omitempty"`
	Skipped  []SkippedBooking `json:"skipped,omitempty"`
	// Hidden counts bookings outside the visible hours.
	Hidden    int       `json:"hidden"`
	FetchedAt time.Time `json:"fetchedAt"`
}

type RenderOptions struct {
	ViewportWidth float64
	Location      *time.Location
	Now           time.Time
}

// Render runs snapshot -> index -> layout -> geometry for one view state.
// It never fails: malformed bookings are reported in Grid.Skipped and
// bookings outside the visible hours are counted in Grid.Hidden.
func Render(snap models.Snapshot, state State, g Geometry, opts RenderOptions) Grid {
	loc := opts.Location
	if loc == nil {
		loc = state.Anchor.Location()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(loc)
	anchor := TruncateDate(state.Anchor.In(loc))
	if !state.Mode.Valid() {
		state.Mode = ViewDay
	}
	state.Anchor = anchor

	idx := NewIndex(snap.Bookings, loc)
	r := renderer{
		geometry: g,
		loc:      loc,
		services: make(map[string]models.Service, len(snap.Services)),
		colors:   make(map[string]string, len(snap.Resources)),
	}
	for _, service := range snap.Services {
		r.services[service.ID] = service
	}
	for _, resource := range snap.Resources {
		r.colors[resource.ID] = resource.DisplayColor()
	}

	grid := Grid{
		Mode:      state.Mode,
		Anchor:    anchor,
		Title:     TitleOf(state),
		Geometry:  g,
		FetchedAt: snap.FetchedAt,
	}

	switch state.Mode {
	case ViewMonth:
		cells := MonthGridDates(anchor)
		grid.Cells = make([]MonthCellView, len(cells))
		grid.Dates = make([]time.Time, len(cells))
		for i, cell := range cells {
			bookings := idx.ForDate(cell.Date)
			preview := bookings
			if len(preview) > MaxMonthCellBookings {
				preview = preview[:MaxMonthCellBookings]
			}
			grid.Cells[i] = MonthCellView{
				MonthCell: cell,
				IsToday:   SameDate(cell.Date, now),
				Count:     len(bookings),
				Bookings:  append([]models.Booking(nil), preview...),
			}
			grid.Dates[i] = cell.Date
		}
		grid.Layout = LayoutColumns(DateColumns(grid.Dates[:DaysPerWeek]), opts.ViewportWidth, g)
		return grid

	case ViewWeek:
		grid.Dates = WeekDates(anchor)
		grid.Layout = LayoutColumns(DateColumns(grid.Dates), opts.ViewportWidth, g)
		for i := range grid.Layout.Columns {
			column := &grid.Layout.Columns[i]
			column.Blocks = r.blocks(idx.ForDate(column.Date), column.Key, &grid)
			placeInColumn(column.Blocks, *column)
		}

	default:
		grid.Dates = DayDates(anchor)
		byResource := idx.ByResource(anchor)
		known := make(map[string]bool, len(snap.Resources))
		for _, resource := range snap.Resources {
			known[resource.ID] = true
		}
		// Bookings with no team member, or one the snapshot does not know,
		// go to the unassigned column so nothing disappears.
		var orphans []models.Booking
		for key, bookings := range byResource {
			if !known[key] {
				orphans = append(orphans, bookings...)
			}
		}
		sort.SliceStable(orphans, func(i, j int) bool {
			if !orphans[i].Start.Equal(orphans[j].Start) {
				return orphans[i].Start.Before(orphans[j].Start)
			}
			return orphans[i].ID < orphans[j].ID
		})
		specs := ResourceColumns(snap.Resources, anchor, len(orphans) > 0)
		grid.Layout = LayoutColumns(specs, opts.ViewportWidth, g)
		for i := range grid.Layout.Columns {
			column := &grid.Layout.Columns[i]
			bookings := byResource[column.Key]
			if column.Key == Unassigned {
				bookings = orphans
			}
			column.Blocks = r.blocks(bookings, column.Key, &grid)
			placeInColumn(column.Blocks, *column)
		}
	}

	grid.Hours = g.Hours()
	grid.Height = g.Height()
	return grid
}

type renderer struct {
	geometry Geometry
	loc      *time.Location
	services map[string]models.Service
	colors   map[string]string
}

func (r renderer) blocks(bookings []models.Booking, columnKey string, grid *Grid) []Block {
	blocks := make([]Block, 0, len(bookings))
	for _, booking := range bookings {
		if err := booking.Validate(); err != nil {
			grid.Skipped = append(grid.Skipped, SkippedBooking{ID: booking.ID, Reason: err.Error()})
			continue
		}
		local := booking
		local.Start = booking.Start.In(r.loc)
		pos, ok := r.geometry.PositionOf(local)
		if !ok {
			grid.Hidden++
			continue
		}
		block := Block{
			Booking:   local,
			Color:     models.DefaultResourceColor,
			ColumnKey: columnKey,
			Top:       pos.Top,
			Height:    pos.Height,
			Dimmed:    booking.IsCancelled(),
		}
		if service, ok := r.services[booking.ServiceID]; ok {
			block.ServiceName = service.Name
		}
		if booking.IsAssigned() {
			if color, ok := r.colors[ResourceKey(booking)]; ok {
				block.Color = color
			}
		}
		blocks = append(blocks, block)
	}
	assignLanes(blocks)
	return blocks
}

// BlockAt hit-tests a tap at (x, y) against rendered booking blocks.
func (g Grid) BlockAt(x, y float64) (Block, bool) {
	for _, column := range g.Layout.Columns {
		if !column.ContainsX(x) {
			continue
		}
		for _, block := range column.Blocks {
			if block.Contains(x, y) {
				return block, true
			}
		}
	}
	return Block{}, false
}
