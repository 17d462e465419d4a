package calendar

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rezvo/bookinggrid/internal/api/apiutil"
	"github.com/rezvo/bookinggrid/internal/api/htmx"
	"github.com/rezvo/bookinggrid/internal/bookingapi"
	engine "github.com/rezvo/bookinggrid/internal/calendar"
	"github.com/rezvo/bookinggrid/internal/draft"
	"github.com/rezvo/bookinggrid/internal/models"
	"github.com/rezvo/bookinggrid/internal/request"
	"github.com/rezvo/bookinggrid/internal/snapshot"
	calendartempl "github.com/rezvo/bookinggrid/internal/templates/components/calendar"
	"github.com/rezvo/bookinggrid/internal/templates/layouts"
)

const pageTitle = "Calendar"

func noticeFor(res snapshot.Result) string {
	switch {
	case res.Err == nil:
		return ""
	case res.Stale:
		return fmt.Sprintf("Showing bookings from %h. The booking service is not responding.", res.Snapshot.FetchedAt.Format("15:04"))
	default:
		return "Bookings could not be loaded. Try refreshing in a moment."
	}
}

// HandleCalendarPage handles GET /calendar. htmx navigation gets the calendar
// fragment; a full load gets the whole page.
func (h *Handlers) HandleCalendarPage(w http.ResponseWriter, r *http.Request) {

	view, err := request.ViewState(r, h.Location, h.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// A failed fetch with nothing cached still draws the empty grid frame.
	res := h.Snapshots.Load(r.Context(), snapshot.RangeFor(view))
	grid := h.render(r, res.Snapshot, view)
	component := calendartempl.Calendar(calendartempl.NewPageData(grid, h.now(), noticeFor(res)))

	if htmx.IsRequest(r) {
		renderComponent(w, r, http.StatusOK, component)
		return
	}
	renderComponent(w, r, http.StatusOK, layouts.Base(pageTitle+" · "+grid.Title, component, res.Snapshot.Resources))
}

// HandleDraftNew handles GET /calendar/draft?date=&hour=&resource=.
func (h *Handlers) HandleDraftNew(w http.ResponseWriter, r *http.Request) {

	query := r.URL.Query()
	date, ok := request.ParseDate(query.Get("date"), h.Location)
	if !ok {
		http.Error(w, "date must be formatted as YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	hour, err := apiutil.ParseNonNegativeIntField(query.Get("hour"), "hour")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var resourceID *string
	if raw := strings.TrimSpace(query.Get("resource")); raw != "" {
		resourceID = &raw
	}

	res := h.Snapshots.Load(r.Context(), snapshot.RangeFor(engine.State{Mode: engine.ViewDay, Anchor: date}))
	intent, err := engine.NewResolver(res.Snapshot, h.Geometry).Slot(date, hour, resourceID)
	if err != nil {
		log.Ctx(r.Context()).Debug().Err(err).Msg("Rejected slot tap")
		renderComponent(w, r, http.StatusOK, calendartempl.Notice(slotMessage(err)))
		return
	}

	form := draft.FromIntent(intent)
	renderComponent(w, r, http.StatusOK, calendartempl.DraftForm(calendartempl.NewDraftFormData(form, res.Snapshot, h.Geometry, nil)))
}

func slotMessage(err error) string {
	switch {
	case errors.Is(err, engine.ErrUnknownResource):
		return "That team member is no longer on the calendar. Refresh and try again."
	case errors.Is(err, engine.ErrHourOutOfRange):
		return "That time is outside opening hours."
	default:
		return "That slot can't be booked."
	}
}

// HandleDraftSubmit handles POST /calendar/draft.
func (h *Handlers) HandleDraftSubmit(w http.ResponseWriter, r *http.Request) {

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	form := draft.Form{
		ClientName:  r.FormValue("clientName"),
		ClientEmail: r.FormValue("clientEmail"),
		ClientPhone: r.FormValue("clientPhone"),
		Notes:       r.FormValue("notes"),
		ServiceID:   r.FormValue("serviceId"),
	}
	form.IdempotencyKey = r.FormValue("idempotencyKey")
	form.EnsureKey()
	if raw := strings.TrimSpace(r.FormValue("resourceId")); raw != "" {
		form.ResourceID = &raw
	}
	if start, err := apiutil.ParseStartTime(r.FormValue("startTime"), h.Location); err == nil {
		form.Start = start
	}

	booking, err := h.submitter.Submit(r.Context(), &form)
	if err == nil {
		htmx.Trigger(w, htmx.BookingsChangedEvent)
		renderComponent(w, r, http.StatusOK, calendartempl.DraftCreated(booking))
		return
	}

	// Re-render the form with what the user entered; the options come from
	// the day the draft is for.
	anchor := form.Start
	if anchor.IsZero() {
		anchor = h.now()
	}
	res := h.Snapshots.Load(r.Context(), snapshot.RangeFor(engine.State{Mode: engine.ViewDay, Anchor: anchor}))
	data := calendartempl.NewDraftFormData(form, res.Snapshot, h.Geometry, err)

	var statusErr *bookingapi.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusConflict {
			data.Message = "That time is no longer available. Pick another slot."
		} else if statusErr.IsValidation() && statusErr.Message != "" {
			data.Message = statusErr.Message
		}
	}
	renderComponent(w, r, http.StatusOK, calendartempl.DraftForm(data))
}

// HandleBookingDetail handles GET /calendar/bookings/{id}.
func (h *Handlers) HandleBookingDetail(w http.ResponseWriter, r *http.Request) {

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		http.Error(w, "booking id is required", http.StatusBadRequest)
		return
	}
	view, err := request.ViewState(r, h.Location, h.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := h.Snapshots.Load(r.Context(), snapshot.RangeFor(view))
	intent, err := engine.NewResolver(res.Snapshot, h.Geometry).Booking(id)
	if err != nil {
		renderComponent(w, r, http.StatusNotFound, calendartempl.Notice("That booking is no longer on the calendar."))
		return
	}

	booking := intent.Booking
	var service *models.Service
	if found, ok := res.Snapshot.ServiceByID(booking.ServiceID); ok {
		service = &found
	}
	var resource *models.Resource
	if booking.IsAssigned() {
		if found, ok := res.Snapshot.ResourceByID(*booking.ResourceID); ok {
			resource = &found
		}
	}
	renderComponent(w, r, http.StatusOK, calendartempl.BookingDetail(booking.In(h.Location), service, resource))
}
