// internal/api/calendar/handlers.go
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rezvo/bookinggrid/internal/api/apiutil"
	"github.com/rezvo/bookinggrid/internal/api/htmx"
	"github.com/rezvo/bookinggrid/internal/bookingapi"
	engine "github.com/rezvo/bookinggrid/internal/calendar"
	"github.com/rezvo/bookinggrid/internal/draft"
	"github.com/rezvo/bookinggrid/internal/models"
	"github.com/rezvo/bookinggrid/internal/request"
	"github.com/rezvo/bookinggrid/internal/snapshot"
)

const refreshAfterWriteTimeout = 10 * time.Second

// Snapshots is the read path the handlers render from.
type Snapshots interface {
	Load(ctx context.Context, rng snapshot.Range) snapshot.Result
	Refresh(ctx context.Context, rng snapshot.Range) snapshot.Result
	RefreshLatest(ctx context.Context) (snapshot.Result, bool)
}

// Bookings is the write path to the booking backend.
type Bookings interface {
	draft.Creator
	UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) (models.Booking, error)
}

// Notifier tells clients about writes made from the calendar. It must not
// block.
type Notifier interface {
	BookingCreated(ctx context.Context, booking models.Booking, snap models.Snapshot)
	BookingCancelled(ctx context.Context, booking models.Booking, snap models.Snapshot)
}

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Deps struct {
	Snapshots     Snapshots
	Bookings      Bookings
	Geometry      engine.Geometry
	Location      *time.Location
	ViewportWidth float64
	Clock         Clock
	// Notifier is optional.
	Notifier Notifier
}

var ErrMissingDeps = errors.New("calendar handlers need snapshots and bookings")

// Handlers serves the calendar routes. Build one with NewHandlers and
// register its methods on the mux.
type Handlers struct {
	Deps
	submitter *draft.Submitter
}

func NewHandlers(deps Deps) (*Handlers, error) {
	if deps.Snapshots == nil || deps.Bookings == nil {
		return nil, ErrMissingDeps
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Clock == nil {
		deps.Clock = realClock{}
	}
	h := &Handlers{Deps: deps}
	h.submitter = draft.NewSubmitter(deps.Bookings, h.bookingCreated)
	return h, nil
}

func (h *Handlers) bookingCreated(ctx context.Context, booking models.Booking) {
	snap := h.afterWrite(ctx, booking)
	if h.Notifier != nil {
		h.Notifier.BookingCreated(ctx, booking, snap)
	}
}

// afterWrite re-fetches the range the user is looking at so the change shows
// up without waiting for the next scheduled refresh. It returns whatever
// snapshot is available afterwards.
func (h *Handlers) afterWrite(ctx context.Context, booking models.Booking) models.Snapshot {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshAfterWriteTimeout)
	defer cancel()

	res, ok := h.Snapshots.RefreshLatest(ctx)
	if !ok {
		return models.Snapshot{}
	}
	if res.Err != nil {
		log.Ctx(ctx).Warn().
			Err(res.Err).
			Str("booking_id", booking.ID).
			Msg("Failed to refresh calendar after booking write")
	}
	return res.Snapshot
}

func (h *Handlers) now() time.Time {
	return h.Clock.Now().In(h.Location)
}

func (h *Handlers) render(r *http.Request, snap models.Snapshot, view engine.State) engine.Grid {
	grid := engine.Render(snap, view, h.Geometry, engine.RenderOptions{
		ViewportWidth: request.ViewportWidth(r, h.ViewportWidth),
		Location:      h.Location,
		Now:           h.now(),
	})
	logSkipped(log.Ctx(r.Context()), grid)
	return grid
}

func logSkipped(logger *zerolog.Logger, grid engine.Grid) {
	for _, skipped := range grid.Skipped {
		logger.Warn().
			Str("booking_id", skipped.ID).
			Str("reason", skipped.Reason).
			Msg("Skipped malformed booking")
	}
}

type calendarResponse struct {
	Grid  engine.Grid `json:"grid"`
	Stale bool        `json:"stale"`
	Error string      `json:"error,omitempty"`
}

func newCalendarResponse(grid engine.Grid, res snapshot.Result) calendarResponse {
	resp := calendarResponse{Grid: grid, Stale: res.Stale}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	return resp
}

// HandleCalendar handles GET /api/v1/calendar.
func (h *Handlers) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	h.writeCalendar(w, r, false)
}

// HandleRefresh handles POST /api/v1/calendar/refresh.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.writeCalendar(w, r, true)
}

func (h *Handlers) writeCalendar(w http.ResponseWriter, r *http.Request, refresh bool) {

	view, err := request.ViewState(r, h.Location, h.now())
	if err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err})
		return
	}

	rng := snapshot.RangeFor(view)
	var res snapshot.Result
	if refresh {
		res = h.Snapshots.Refresh(r.Context(), rng)
	} else {
		res = h.Snapshots.Load(r.Context(), rng)
	}
	if !res.HasData() {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadGateway, Message: "Failed to load bookings", Err: res.Err})
		return
	}

	grid := h.render(r, res.Snapshot, view)
	if refresh && htmx.IsRequest(r) {
		htmx.Trigger(w, htmx.BookingsChangedEvent)
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, newCalendarResponse(grid, res)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write calendar response")
	}
}

type tapRequest struct {
	View       string   `json:"view"`
	Date       string   `json:"date"`
	Kind       string   `json:"kind"`
	Hour       *int     `json:"hour"`
	Offset     *float64 `json:"offset"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	ResourceID *string  `json:"resourceId"`
	BookingID  string   `json:"bookingId"`
	Width      float64  `json:"width"`
}

type draftResponse struct {
	Form            draft.Form  `json:"form"`
	SlotChips       []time.Time `json:"slotChips"`
	DurationMinutes int         `json:"durationMinutes"`
}

type tapResponse struct {
	Kind   engine.IntentKind `json:"kind"`
	Intent engine.Intent     `json:"intent"`
	Draft  *draftResponse    `json:"draft,omitempty"`
}

// HandleTap handles POST /api/v1/calendar/tap.
func (h *Handlers) HandleTap(w http.ResponseWriter, r *http.Request) {

	var req tapRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid JSON body", Err: err})
		return
	}

	mode, err := engine.ParseViewMode(req.View)
	if err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err})
		return
	}
	date, ok := request.ParseDate(req.Date, h.Location)
	if !ok {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "date must be formatted as YYYY-MM-DD"})
		return
	}
	view := engine.State{Mode: mode, Anchor: date}

	res := h.Snapshots.Load(r.Context(), snapshot.RangeFor(view))
	if !res.HasData() {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadGateway, Message: "Failed to load bookings", Err: res.Err})
		return
	}

	var grid engine.Grid
	if engine.TapKind(req.Kind) == engine.TapPoint {
		width := req.Width
		if width <= 0 {
			width = h.ViewportWidth
		}
		grid = engine.Render(res.Snapshot, view, h.Geometry, engine.RenderOptions{ViewportWidth: width, Location: h.Location, Now: h.now()})
	}

	tap := engine.Tap{
		Kind:       engine.TapKind(req.Kind),
		Date:       date,
		Hour:       req.Hour,
		Offset:     req.Offset,
		X:          req.X,
		Y:          req.Y,
		ResourceID: req.ResourceID,
		BookingID:  req.BookingID,
	}
	intent, err := engine.NewResolver(res.Snapshot, h.Geometry).Resolve(tap, grid)
	if err != nil {
		apiutil.WriteError(w, r, tapError(err))
		return
	}

	resp := tapResponse{Kind: intent.Kind(), Intent: intent}
	if create, ok := intent.(engine.CreateIntent); ok {
		form := draft.FromIntent(create)
		resp.Draft = &draftResponse{
			Form:            form,
			SlotChips:       form.SlotChips(h.Geometry),
			DurationMinutes: draft.DurationFor(res.Snapshot, form.ServiceID),
		}
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write tap response")
	}
}

func tapError(err error) apiutil.HandlerError {
	switch {
	case errors.Is(err, engine.ErrUnknownBooking), errors.Is(err, engine.ErrUnknownResource):
		return apiutil.HandlerError{Status: http.StatusNotFound, Message: err.Error(), Err: err}
	default:
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
	}
}

type createBookingRequest struct {
	ClientName  string  `json:"clientName"`
	ClientEmail string  `json:"clientEmail"`
	ClientPhone string  `json:"clientPhone"`
	Notes       string  `json:"notes"`
	ServiceID   string  `json:"serviceId"`
	ResourceID  *string `json:"resourceId"`
	StartTime   string  `json:"startTime"`

	IdempotencyKey string `json:"idempotencyKey"`
}

type bookingResponse struct {
	Booking models.Booking `json:"booking"`
}

// HandleCreateBooking handles POST /api/v1/bookings.
func (h *Handlers) HandleCreateBooking(w http.ResponseWriter, r *http.Request) {

	var req createBookingRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid JSON body", Err: err})
		return
	}

	form := draft.Form{
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		ClientPhone: req.ClientPhone,
		Notes:       req.Notes,
		ServiceID:   req.ServiceID,
		ResourceID:  req.ResourceID,
	}
	form.IdempotencyKey = req.IdempotencyKey
	form.EnsureKey()
	if strings.TrimSpace(req.StartTime) != "" {
		start, err := apiutil.ParseStartTime(req.StartTime, h.Location)
		if err != nil {
			writeFieldErrors(w, r, []apiutil.FieldError{{Field: "startTime", Reason: "must be a valid date and time"}}, form)
			return
		}
		form.Start = start
	}
	echo := form

	booking, err := h.submitter.Submit(r.Context(), &form)
	if err != nil {
		writeBookingError(w, r, err, echo)
		return
	}

	htmx.Trigger(w, htmx.BookingsChangedEvent)
	if err := apiutil.WriteJSON(w, http.StatusCreated, bookingResponse{Booking: booking}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write booking response")
	}
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// HandleUpdateBookingStatus handles PATCH /api/v1/bookings/{id}.
func (h *Handlers) HandleUpdateBookingStatus(w http.ResponseWriter, r *http.Request) {

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "booking id is required"})
		return
	}

	var req updateStatusRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid JSON body", Err: err})
		return
	}
	status, err := models.ParseBookingStatus(req.Status)
	if err != nil {
		writeFieldErrors(w, r, []apiutil.FieldError{{Field: "status", Reason: err.Error()}}, nil)
		return
	}

	booking, err := h.Bookings.UpdateBookingStatus(r.Context(), id, status)
	if err != nil {
		writeBookingError(w, r, err, nil)
		return
	}
	log.Ctx(r.Context()).Info().
		Str("booking_id", booking.ID).
		Str("status", string(booking.Status)).
		Msg("Booking status updated")

	snap := h.afterWrite(r.Context(), booking)
	if booking.IsCancelled() && h.Notifier != nil {
		h.Notifier.BookingCancelled(r.Context(), booking, snap)
	}
	htmx.Trigger(w, htmx.BookingsChangedEvent)
	if err := apiutil.WriteJSON(w, http.StatusOK, bookingResponse{Booking: booking}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write booking response")
	}
}

func writeFieldErrors(w http.ResponseWriter, r *http.Request, fields []apiutil.FieldError, echo any) {
	log.Ctx(r.Context()).Debug().Int("fields", len(fields)).Msg("Booking request failed validation")
	if err := apiutil.WriteJSON(w, http.StatusUnprocessableEntity, apiutil.ErrorResponse{
		Error:  "Please correct the highlighted fields",
		Fields: fields,
		Draft:  echo,
	}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write validation response")
	}
}

// writeBookingError maps a failed write to a response. Local validation
// failures list their fields; anything the backend rejects or fails to answer
// echoes the draft so the client can retry without re-entering it.
func writeBookingError(w http.ResponseWriter, r *http.Request, err error, echo any) {
	var verr *draft.ValidationError
	if errors.As(err, &verr) {
		fields := make([]apiutil.FieldError, len(verr.Fields))
		for i, field := range verr.Fields {
			fields[i] = apiutil.FieldError{Field: field.Field, Reason: field.Reason}
		}
		writeFieldErrors(w, r, fields, echo)
		return
	}

	status := http.StatusBadGateway
	message := "Booking service unavailable, please try again"
	var statusErr *bookingapi.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.IsValidation():
			status = http.StatusUnprocessableEntity
			message = statusErr.Message
		case statusErr.StatusCode == http.StatusConflict:
			status = http.StatusConflict
			message = "That time is no longer available"
		case statusErr.StatusCode == http.StatusNotFound:
			status = http.StatusNotFound
			message = "Booking not found"
		}
		if message == "" {
			message = fmt.Sprintf("Booking service rejected the request (%d)", statusErr.StatusCode)
		}
	}

	logger := log.Ctx(r.Context())
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).Int("status", status).Str("path", r.URL.Path).Msg(message)

	if writeErr := apiutil.WriteJSON(w, status, apiutil.ErrorResponse{Error: message, Draft: echo}); writeErr != nil {
		logger.Error().Err(writeErr).Msg("Failed to write error response")
	}
}

func renderComponent(w http.ResponseWriter, r *http.Request, status int, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := component.Render(r.Context(), w); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to render component")
	}
}
