package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"

	engine "github.com/rezvo/bookinggrid/internal/calendar"
	"github.com/rezvo/bookinggrid/internal/draft"
	"github.com/rezvo/bookinggrid/internal/models"
)

func asValidation(err error, target **draft.ValidationError) bool {
	return errors.As(err, target)
}

func render(fn func(ctx context.Context, buf *bytes.Buffer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		fn(ctx, &buf)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

func esc(value string) string {
	return templ.EscapeString(value)
}

// Calendar renders the header and the grid for one view. It is swapped into
// #calendar by htmx on navigation.
func Calendar(data PageData) templ.Component {
	return render(func(ctx context.Context, buf *bytes.Buffer) {
		grid := data.Grid
		buf.WriteString(`<div id="calendar" class="flex flex-col h-full" hx-get="` + esc(ViewURL(engine.State{Mode: grid.Mode, Anchor: grid.Anchor})) + `" hx-trigger="bookings-changed from:body" hx-target="#calendar" hx-swap="outerHTML">`)

		buf.WriteString(`<div class="flex items-center justify-between px-4 py-3 border-b border-gray-200">`)
		buf.WriteString(`<div class="flex items-center space-x-2">`)
		writeNavButton(buf, data.PrevURL, "&lsaquo;", "Previous")
		writeNavButton(buf, data.TodayURL, "Today", "Today")
		writeNavButton(buf, data.NextURL, "&rsaquo;", "Next")
		buf.WriteString(`</div>`)
		fmt.Fprintf(buf, `<h2 class="text-lg font-semibold text-gray-900">%s</h2>`, esc(grid.Title))
		buf.WriteString(`<div class="flex space-x-1">`)
		for _, mode := range []engine.ViewMode{engine.ViewDay, engine.ViewWeek, engine.ViewMonth} {
			class := "px-3 py-1 text-sm rounded-md text-gray-700 hover:bg-gray-100"
			if mode == grid.Mode {
				class = "px-3 py-1 text-sm rounded-md bg-gray-900 text-white"
			}
			fmt.Fprintf(buf, `<button type="button" class="%s" hx-get="%s" hx-target="#calendar" hx-swap="outerHTML" hx-push-url="true">%s</button>`,
				class, esc(ViewURL(engine.State{Mode: mode, Anchor: grid.Anchor})), esc(string(mode)))
		}
		buf.WriteString(`</div></div>`)

		if data.Notice != "" {
			fmt.Fprintf(buf, `<div role="status" class="mx-4 mt-3 rounded-md bg-amber-50 px-3 py-2 text-sm text-amber-800">%s</div>`, esc(data.Notice))
		}
		if grid.Hidden > 0 {
			fmt.Fprintf(buf, `<p class="mx-4 mt-2 text-xs text-gray-500">%d booking(s) fall outside the visible hours.</p>`, grid.Hidden)
		}

		if grid.Mode == engine.ViewMonth {
			writeMonth(buf, grid)
		} else {
			writeTimeGrid(buf, grid)
		}
		buf.WriteString(`</div>`)
	})
}

func writeNavButton(buf *bytes.Buffer, target, label, title string) {
	fmt.Fprintf(buf, `<button type="button" title="%s" class="px-3 py-1 text-sm rounded-md border border-gray-300 text-gray-700 hover:bg-gray-50" hx-get="%s" hx-target="#calendar" hx-swap="outerHTML" hx-push-url="true">%s</button>`,
		esc(title), esc(target), label)
}

func writeTimeGrid(buf *bytes.Buffer, grid engine.Grid) {
	layout := grid.Layout
	overflow := "overflow-x-hidden"
	if layout.Scrollable {
		overflow = "overflow-x-auto"
	}
	fmt.Fprintf(buf, `<div class="flex-1 overflow-y-auto %s">`, overflow)

	// Column headers
	fmt.Fprintf(buf, `<div class="sticky top-0 z-10 flex bg-white border-b border-gray-200" style="width:%.0fpx">`, layout.TotalWidth)
	fmt.Fprintf(buf, `<div style="width:%.0fpx"></div>`, layout.TimeColumnWidth)
	for _, column := range layout.Columns {
		fmt.Fprintf(buf, `<div class="px-2 py-2 text-sm font-medium truncate border-l-4" style="width:%.0fpx;border-color:%s">`, column.Width, esc(column.Color))
		if grid.Mode == engine.ViewWeek {
			fmt.Fprintf(buf, `<button type="button" class="hover:underline" hx-get="%s" hx-target="#calendar" hx-swap="outerHTML" hx-push-url="true">%s</button>`,
				esc(ViewURL(engine.State{Mode: engine.ViewDay, Anchor: column.Date})), esc(column.Label))
		} else {
			buf.WriteString(esc(column.Label))
		}
		buf.WriteString(`</div>`)
	}
	buf.WriteString(`</div>`)

	fmt.Fprintf(buf, `<div class="relative" style="width:%.0fpx;height:%.0fpx">`, layout.TotalWidth, grid.Height)
	pph := grid.Geometry.PixelsPerHour
	for i, hour := range grid.Hours {
		top := float64(i) * pph
		fmt.Fprintf(buf, `<div class="absolute left-0 pr-2 text-right text-xs text-gray-500" style="top:%.1fpx;width:%.0fpx">%02d:00</div>`, top, layout.TimeColumnWidth, hour)
		fmt.Fprintf(buf, `<div class="absolute border-t border-gray-100" style="top:%.1fpx;left:%.0fpx;right:0"></div>`, top, layout.TimeColumnWidth)
	}

	for _, column := range layout.Columns {
		for i, hour := range grid.Hours {
			values := url.Values{}
			values.Set("date", engine.DateKey(column.Date))
			values.Set("hour", fmt.Sprint(hour))
			if column.ResourceID != nil {
				values.Set("resource", *column.ResourceID)
			}
			fmt.Fprintf(buf, `<button type="button" aria-label="New booking at %02d:00" class="absolute hover:bg-blue-50" style="top:%.1fpx;left:%.1fpx;width:%.1fpx;height:%.1fpx" hx-get="/calendar/draft?%s" hx-target="#modal" hx-swap="innerHTML"></button>`,
				hour, float64(i)*pph, column.X, column.Width, pph, esc(values.Encode()))
		}
		for _, block := range column.Blocks {
			writeBlock(buf, block)
		}
	}
	buf.WriteString(`</div></div>`)
}

func writeBlock(buf *bytes.Buffer, block engine.Block) {
	opacity := "1"
	status := ""
	if block.Dimmed {
		opacity = "0.45"
		status = " line-through"
	}
	fmt.Fprintf(buf, `<button type="button" class="absolute overflow-hidden rounded-md border-l-4 bg-white px-2 py-1 text-left text-xs shadow-sm%s" style="top:%.1fpx;left:%.1fpx;width:%.1fpx;height:%.1fpx;border-color:%s;opacity:%s" hx-get="/calendar/bookings/%s" hx-target="#modal" hx-swap="innerHTML">`,
		status, block.Top, block.X+1, block.Width-2, block.Height, esc(block.Color), opacity, esc(url.PathEscape(block.Booking.ID)))
	fmt.Fprintf(buf, `<span class="block font-medium text-gray-900 truncate">%s</span>`, esc(block.Booking.ClientName))
	label := block.Booking.Start.Format("15:04")
	if block.ServiceName != "" {
		label += " · " + block.ServiceName
	}
	fmt.Fprintf(buf, `<span class="block text-gray-500 truncate">%s</span>`, esc(label))
	buf.WriteString(`</button>`)
}

func writeMonth(buf *bytes.Buffer, grid engine.Grid) {
	buf.WriteString(`<div class="grid grid-cols-7 flex-1 border-l border-t border-gray-200">`)
	for i := 0; i < engine.DaysPerWeek && i < len(grid.Dates); i++ {
		fmt.Fprintf(buf, `<div class="px-2 py-1 text-xs font-medium text-gray-500 border-r border-b border-gray-200">%s</div>`, grid.Dates[i].Format("Mon"))
	}
	for _, cell := range grid.Cells {
		class := "min-h-24 p-1 text-left border-r border-b border-gray-200 hover:bg-gray-50"
		if !cell.IsCurrentMonth {
			class += " bg-gray-50 text-gray-400"
		}
		fmt.Fprintf(buf, `<button type="button" class="%s" hx-get="%s" hx-target="#calendar" hx-swap="outerHTML" hx-push-url="true">`,
			class, esc(ViewURL(engine.State{Mode: engine.ViewDay, Anchor: cell.Date})))
		dayClass := "text-sm"
		if cell.IsToday {
			dayClass = "text-sm inline-flex h-6 w-6 items-center justify-center rounded-full bg-blue-600 text-white"
		}
		fmt.Fprintf(buf, `<span class="%s">%d</span>`, dayClass, cell.Date.Day())
		for _, booking := range cell.Bookings {
			fmt.Fprintf(buf, `<span class="mt-1 block truncate text-xs%s">%s %s</span>`,
				dimClass(booking), booking.Start.Format("15:04"), esc(booking.ClientName))
		}
		if extra := cell.Count - len(cell.Bookings); extra > 0 {
			fmt.Fprintf(buf, `<span class="mt-1 block text-xs text-gray-500">+%d more</span>`, extra)
		}
		buf.WriteString(`</button>`)
	}
	buf.WriteString(`</div>`)
}

func dimClass(booking models.Booking) string {
	if booking.IsCancelled() {
		return " text-gray-400 line-through"
	}
	return ""
}
