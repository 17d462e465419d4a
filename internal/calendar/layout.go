package calendar

import (
	"math"
	"time"

	"github.com/rezvo/bookinggrid/internal/models"
)

// ColumnSpec describes one parallel column before widths are known.
type ColumnSpec struct {
	Key        string    `json:"key"`
	Label      string    `json:"label"`
	Color      string    `json:"color"`
	ResourceID *string   `json:"resourceId,omitempty"`
	Date       time.Time `json:"date"`
	AvatarURL  string    `json:"avatar,omitempty"`
}

type Column struct {
	ColumnSpec
	X      float64 `json:"x"`
	Width  float64 `json:"width"`
	Blocks []Block `json:"blocks"`
}

func (c Column) ContainsX(x float64) bool {
	return x >= c.X && x < c.X+c.Width
}

type ColumnLayout struct {
	Columns         []Column `json:"columns"`
	ColumnWidth     float64  `json:"columnWidth"`
	TimeColumnWidth float64  `json:"timeColumnWidth"`
	TotalWidth      float64  `json:"totalWidth"`
	ViewportWidth   float64  `json:"viewportWidth"`
	Scrollable      bool     `json:"scrollable"`
}

// ColumnAt finds the column under horizontal offset x.
func (l ColumnLayout) ColumnAt(x float64) (Column, bool) {
	for _, column := range l.Columns {
		if column.ContainsX(x) {
			return column, true
		}
	}
	return Column{}, false
}

func (l ColumnLayout) ColumnByKey(key string) (Column, bool) {
	for _, column := range l.Columns {
		if column.Key == key {
			return column, true
		}
	}
	return Column{}, false
}

// ResourceColumns builds one column per team member. With no team the grid
// collapses to a single implicit unassigned column; with a team, an extra
// trailing unassigned column is added only when includeUnassigned is set.
func ResourceColumns(resources []models.Resource, date time.Time, includeUnassigned bool) []ColumnSpec {
	if len(resources) == 0 {
		return []ColumnSpec{unassignedSpec(date)}
	}
	specs := make([]ColumnSpec, 0, len(resources)+1)
	for _, resource := range resources {
		id := resource.ID
		specs = append(specs, ColumnSpec{
			Key:        resource.ID,
			Label:      resource.Name,
			Color:      resource.DisplayColor(),
			ResourceID: &id,
			Date:       date,
			AvatarURL:  resource.AvatarURL,
		})
	}
	if includeUnassigned {
		specs = append(specs, unassignedSpec(date))
	}
	return specs
}

func unassignedSpec(date time.Time) ColumnSpec {
	return ColumnSpec{
		Key:   Unassigned,
		Label: "Unassigned",
		Color: models.UnassignedColumnColor,
		Date:  date,
	}
}

// DateColumns builds one column per date for the week view.
func DateColumns(dates []time.Time) []ColumnSpec {
	specs := make([]ColumnSpec, 0, len(dates))
	for _, date := range dates {
		specs = append(specs, ColumnSpec{
			Key:   DateKey(date),
			Label: date.Format("Mon 2"),
			Color: models.UnassignedColumnColor,
			Date:  date,
		})
	}
	return specs
}

// LayoutColumns splits the viewport width, minus the time axis, evenly across
// specs. Columns never shrink below MinColumnWidth; the grid scrolls
// horizontally instead. A zero-width viewport or empty spec list falls back
// to a single implicit column.
func LayoutColumns(specs []ColumnSpec, viewportWidth float64, g Geometry) ColumnLayout {
	if len(specs) == 0 {
		specs = []ColumnSpec{unassignedSpec(time.Time{})}
	}
	if viewportWidth < 0 || math.IsNaN(viewportWidth) {
		viewportWidth = 0
	}

	available := math.Max(viewportWidth-g.TimeColumnWidth, 0)
	width := math.Max(available/float64(len(specs)), g.MinColumnWidth)

	layout := ColumnLayout{
		Columns:         make([]Column, len(specs)),
		ColumnWidth:     width,
		TimeColumnWidth: g.TimeColumnWidth,
		ViewportWidth:   viewportWidth,
	}
	x := g.TimeColumnWidth
	for i, spec := range specs {
		layout.Columns[i] = Column{ColumnSpec: spec, X: x, Width: width}
		x += width
	}
	layout.TotalWidth = x
	layout.Scrollable = layout.TotalWidth > viewportWidth
	return layout
}
