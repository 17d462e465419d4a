package calendar

import (
	"bytes"
	"context"
	"fmt"

	"github.com/a-h/templ"

	"github.com/rezvo/bookinggrid/internal/models"
)

// DraftForm renders the booking draft opened by a tap on an empty slot.
func DraftForm(data DraftFormData) templ.Component {
	return render(func(ctx context.Context, buf *bytes.Buffer) {
		buf.WriteString(`<div class="fixed inset-0 z-40 flex items-center justify-center bg-black/30">`)
		buf.WriteString(`<form id="booking-draft" class="w-full max-w-md space-y-3 rounded-lg bg-white p-5 shadow-xl" hx-post="/calendar/draft" hx-target="#modal" hx-swap="innerHTML">`)
		fmt.Fprintf(buf, `<h3 class="text-base font-semibold">New booking · %s</h3>`, esc(data.Date.Format("Mon 2 Jan 2006")))

		if data.Message != "" {
			fmt.Fprintf(buf, `<div role="alert" class="rounded-md bg-red-50 px-3 py-2 text-sm text-red-700">%s</div>`, esc(data.Message))
		}

		if data.Form.IdempotencyKey != "" {
			writeComponent(ctx, buf, HiddenInput("idempotencyKey", data.Form.IdempotencyKey))
		}
		writeInput(ctx, buf, "clientName", "Client name", "text", data.Form.ClientName, data.Errors)
		writeInput(ctx, buf, "clientEmail", "Email", "email", data.Form.ClientEmail, data.Errors)
		writeInput(ctx, buf, "clientPhone", "Phone", "tel", data.Form.ClientPhone, data.Errors)

		buf.WriteString(`<label class="block text-sm font-medium">Service<select name="serviceId" class="mt-1 block w-full rounded-md border-gray-300"><option value="">Choose a service</option>`)
		for _, option := range data.Services {
			fmt.Fprintf(buf, `<option value="%s"%s>%s</option>`, esc(option.ID), selected(option.Selected), esc(option.Label))
		}
		buf.WriteString(`</select>`)
		writeComponent(ctx, buf, FieldError("serviceId", data.Errors))
		buf.WriteString(`</label>`)

		buf.WriteString(`<label class="block text-sm font-medium">Team member<select name="resourceId" class="mt-1 block w-full rounded-md border-gray-300"><option value="">Anyone</option>`)
		for _, option := range data.Resources {
			fmt.Fprintf(buf, `<option value="%s"%s>%s</option>`, esc(option.ID), selected(option.Selected), esc(option.Name))
		}
		buf.WriteString(`</select></label>`)

		buf.WriteString(`<fieldset><legend class="text-sm font-medium">Start time</legend><div class="mt-1 flex flex-wrap gap-1">`)
		for _, chip := range data.Chips {
			checked := ""
			if chip.Selected {
				checked = " checked"
			}
			fmt.Fprintf(buf, `<label class="cursor-pointer"><input type="radio" name="startTime" value="%s" class="peer sr-only"%s><span class="block rounded-full border px-2 py-0.5 text-xs peer-checked:bg-gray-900 peer-checked:text-white">%s</span></label>`,
				esc(chip.Value), checked, esc(chip.Label))
		}
		buf.WriteString(`</div>`)
		writeComponent(ctx, buf, FieldError("startTime", data.Errors))
		buf.WriteString(`</fieldset>`)

		fmt.Fprintf(buf, `<label class="block text-sm font-medium">Notes<textarea name="notes" rows="2" class="mt-1 block w-full rounded-md border-gray-300">%s</textarea>`, esc(data.Form.Notes))
		writeComponent(ctx, buf, FieldError("notes", data.Errors))
		buf.WriteString(`</label>`)

		buf.WriteString(`<div class="flex justify-end gap-2 pt-2">`)
		writeComponent(ctx, buf, CloseModalButton("Cancel"))
		buf.WriteString(`<button type="submit" class="rounded-md bg-gray-900 px-3 py-1.5 text-sm text-white">Create booking</button>`)
		buf.WriteString(`</div></form></div>`)
	})
}

func writeInput(ctx context.Context, buf *bytes.Buffer, name, label, kind, value string, errs map[string]string) {
	fmt.Fprintf(buf, `<label class="block text-sm font-medium">%s<input type="%s" name="%s" value="%s" class="mt-1 block w-full rounded-md border-gray-300">`,
		esc(label), kind, name, esc(value))
	writeComponent(ctx, buf, FieldError(name, errs))
	buf.WriteString(`</label>`)
}

func selected(ok bool) string {
	if ok {
		return " selected"
	}
	return ""
}

// DraftCreated replaces the draft modal once the backend accepted the booking.
func DraftCreated(booking models.Booking) templ.Component {
	return render(func(ctx context.Context, buf *bytes.Buffer) {
		fmt.Fprintf(buf, `<div role="status" class="fixed bottom-4 right-4 z-40 rounded-md bg-emerald-600 px-4 py-2 text-sm text-white">Booked %s at %s</div>`,
			esc(booking.ClientName), booking.Start.Format("Mon 2 Jan 15:04"))
	})
}

// BookingDetail is the read-only view a tap on a booking block opens.
func BookingDetail(booking models.Booking, service *models.Service, resource *models.Resource) templ.Component {
	return render(func(ctx context.Context, buf *bytes.Buffer) {
		color := models.UnassignedColumnColor
		who := "Unassigned"
		if resource != nil {
			color = resource.DisplayColor()
			who = resource.Name
		}
		what := "Unknown service"
		if service != nil {
			what = service.Name
		}

		buf.WriteString(`<div class="fixed inset-0 z-40 flex items-center justify-center bg-black/30">`)
		fmt.Fprintf(buf, `<div class="w-full max-w-sm rounded-lg border-t-4 bg-white p-5 shadow-xl" style="border-color:%s">`, esc(color))
		fmt.Fprintf(buf, `<h3 class="text-base font-semibold">%s</h3>`, esc(booking.ClientName))
		buf.WriteString(`<dl class="mt-3 grid grid-cols-3 gap-y-1 text-sm">`)
		writeDetailRow(buf, "When", fmt.Sprintf("%s – %s", booking.Start.Format("Mon 2 Jan 15:04"), booking.End().Format("15:04")))
		writeDetailRow(buf, "Service", what)
		writeDetailRow(buf, "With", who)
		writeDetailRow(buf, "Status", string(booking.Status))
		writeDetailRow(buf, "Price", models.FormatPrice(booking.Price))
		writeDetailRow(buf, "Email", booking.ClientEmail)
		if booking.ClientPhone != "" {
			writeDetailRow(buf, "Phone", booking.ClientPhone)
		}
		if booking.Notes != "" {
			writeDetailRow(buf, "Notes", booking.Notes)
		}
		buf.WriteString(`</dl>`)
		buf.WriteString(`<div class="mt-4 flex justify-end">`)
		writeComponent(ctx, buf, CloseModalButton("Close"))
		buf.WriteString(`</div>`)
		buf.WriteString(`</div></div>`)
	})
}

func writeDetailRow(buf *bytes.Buffer, label, value string) {
	fmt.Fprintf(buf, `<dt class="text-gray-500">%s</dt><dd class="col-span-2">%s</dd>`, esc(label), esc(value))
}

// Notice renders a standalone message fragment, used when a tap cannot be
// resolved against the current snapshot.
func Notice(message string) templ.Component {
	return render(func(ctx context.Context, buf *bytes.Buffer) {
		fmt.Fprintf(buf, `<div role="status" class="fixed bottom-4 right-4 z-40 rounded-md bg-gray-900 px-4 py-2 text-sm text-white">%s</div>`, esc(message))
	})
}
