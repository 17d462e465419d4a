package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rezvo/bookinggrid/internal/api/apiutil"
	"github.com/rezvo/bookinggrid/internal/bookingapi"
	engine "github.com/rezvo/bookinggrid/internal/calendar"
	"github.com/rezvo/bookinggrid/internal/models"
	"github.com/rezvo/bookinggrid/internal/snapshot"
)

type mockClock struct {
	now time.Time
}

func (c mockClock) Now() time.Time { return c.now }

type fakeSnapshots struct {
	mu        sync.Mutex
	result    snapshot.Result
	loads     []snapshot.Range
	refreshes []snapshot.Range
	latest    int
}

func (f *fakeSnapshots) Load(ctx context.Context, rng snapshot.Range) snapshot.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, rng)
	return f.result
}

func (f *fakeSnapshots) Refresh(ctx context.Context, rng snapshot.Range) snapshot.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, rng)
	return f.result
}

func (f *fakeSnapshots) RefreshLatest(ctx context.Context) (snapshot.Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest++
	return f.result, true
}

type fakeBookings struct {
	mu        sync.Mutex
	creates   []bookingapi.CreateBookingRequest
	createErr error
	updates   []models.BookingStatus
	updateErr error
}

func (f *fakeBookings) CreateBooking(ctx context.Context, req bookingapi.CreateBookingRequest) (models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, req)
	if f.createErr != nil {
		return models.Booking{}, f.createErr
	}
	return models.Booking{
		ID:              "bk-new",
		ClientName:      req.ClientName,
		ClientEmail:     req.ClientEmail,
		ServiceID:       req.ServiceID,
		ResourceID:      req.ResourceID,
		Start:           req.StartInstant,
		DurationMinutes: 45,
		Status:          models.BookingStatusPending,
	}, nil
}

func (f *fakeBookings) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) (models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, status)
	if f.updateErr != nil {
		return models.Booking{}, f.updateErr
	}
	return models.Booking{ID: id, Status: status}, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	created   []string
	cancelled []string
	services  int
}

func (f *fakeNotifier) BookingCreated(ctx context.Context, booking models.Booking, snap models.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, booking.ID)
	f.services = len(snap.Services)
}

func (f *fakeNotifier) BookingCancelled(ctx context.Context, booking models.Booking, snap models.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, booking.ID)
}

func attachNotifier(h *Handlers) *fakeNotifier {
	notifier := &fakeNotifier{}
	h.Notifier = notifier
	return notifier
}

var testDay = time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)

func strPtr(value string) *string {
	return &value
}

func testSnapshot() models.Snapshot {
	return models.Snapshot{
		Resources: []models.Resource{
			{ID: "res-a", Name: "Ava", Color: "#10b981"},
			{ID: "res-b", Name: "Ben", Color: "#f59e0b"},
		},
		Services: []models.Service{{ID: "svc-1", Name: "Cut & finish", DurationMinutes: 45, Price: 3500}},
		Bookings: []models.Booking{{
			ID:              "bk-1",
			ClientName:      "Sam Reed",
			ClientEmail:     "sam@example.com",
			ServiceID:       "svc-1",
			ResourceID:      strPtr("res-a"),
			Start:           testDay.Add(9 * time.Hour),
			DurationMinutes: 45,
			Status:          models.BookingStatusConfirmed,
			Price:           3500,
		}},
		FetchedAt: testDay.Add(7 * time.Hour),
	}
}

func setupHandlers(t *testing.T, result snapshot.Result) (*Handlers, *fakeSnapshots, *fakeBookings) {
	t.Helper()

	snaps := &fakeSnapshots{result: result}
	bookings := &fakeBookings{}
	h, err := NewHandlers(Deps{
		Snapshots:     snaps,
		Bookings:      bookings,
		Geometry:      engine.DefaultGeometry(),
		Location:      time.UTC,
		ViewportWidth: 1024,
		Clock:         mockClock{now: testDay.Add(8 * time.Hour)},
	})
	if err != nil {
		t.Fatalf("NewHandlers: %v", err)
	}
	return h, snaps, bookings
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestNewHandlersRequiresDeps(t *testing.T) {
	tests := []struct {
		name string
		deps Deps
	}{
		{"no snapshots", Deps{Bookings: &fakeBookings{}}},
		{"no bookings", Deps{Snapshots: &fakeSnapshots{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandlers(tt.deps)
			if !errors.Is(err, ErrMissingDeps) {
				t.Fatalf("expected ErrMissingDeps, got %v", err)
			}
			if h != nil {
				t.Fatalf("expected no handlers on error")
			}
		})
	}

	h, err := NewHandlers(Deps{Snapshots: &fakeSnapshots{}, Bookings: &fakeBookings{}})
	if err != nil {
		t.Fatalf("NewHandlers: %v", err)
	}
	if h.Location != time.Local || h.Clock == nil {
		t.Fatalf("expected default location and clock, got %v %v", h.Location, h.Clock)
	}
}

func TestHandleCalendar(t *testing.T) {
	h, snaps, _ := setupHandlers(t, snapshot.Result{Snapshot: testSnapshot()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/calendar?view=day&date=2025-06-10", nil)
	rec := httptest.NewRecorder()
	h.HandleCalendar(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Grid struct {
			Title  string `json:"title"`
			Layout struct {
				Columns []struct {
					Key    string `json:"key"`
					Blocks []struct {
						Top float64 `json:"top"`
					} `json:"blocks"`
				} `json:"columns"`
			} `json:"layout"`
		} `json:"grid"`
		Stale bool `json:"stale"`
	}
	decodeBody(t, rec, &resp)

	if len(resp.Grid.Layout.Columns) != 2 {
		t.Fatalf("expected 2 resource columns, got %d", len(resp.Grid.Layout.Columns))
	}
	if blocks := resp.Grid.Layout.Columns[0].Blocks; len(blocks) != 1 || blocks[0].Top != 240 {
		t.Fatalf("unexpected res-a blocks %+v", blocks)
	}
	if resp.Stale {
		t.Fatalf("fresh snapshot reported stale")
	}
	if len(snaps.loads) != 1 || snaps.loads[0].Key() != "2025-06-10/2025-06-11" {
		t.Fatalf("unexpected loads %+v", snaps.loads)
	}
}

func TestHandleCalendarInvalidView(t *testing.T) {
	h, _, _ := setupHandlers(t, snapshot.Result{Snapshot: testSnapshot()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/calendar?view=year", nil)
	rec := httptest.NewRecorder()
	h.HandleCalendar(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandleCalendarFetchFailure(t *testing.T) {
	tests := []struct {
		name       string
		result     snapshot.Result
		wantStatus int
		wantStale  bool
	}{
		{
			name:       "no cached data",
			result:     snapshot.Result{Err: bookingapi.ErrRequestFailed},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "stale data",
			result:     snapshot.Result{Snapshot: testSnapshot(), Err: bookingapi.ErrRequestFailed, Stale: true},
			wantStatus: http.StatusOK,
			wantStale:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := setupHandlers(t, tt.result)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/calendar?view=week&date=2025-06-10", nil)
			rec := httptest.NewRecorder()
			h.HandleCalendar(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp calendarResponse
			decodeBody(t, rec, &resp)
			if resp.Stale != tt.wantStale || resp.Error == "" {
				t.Fatalf("expected stale response with error, got stale=%v error=%q", resp.Stale, resp.Error)
			}
		})
	}
}

func TestHandleRefresh(t *testing.T) {
	h, snaps, _ := setupHandlers(t, snapshot.Result{Snapshot: testSnapshot()})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/calendar/refresh", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Current-URL", "http://localhost/calendar?view=month&date=2025-06-10")
	rec := httptest.NewRecorder()
	h.HandleRefresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if len(snaps.refreshes) != 1 || snaps.refreshes[0].Key() != "2025-06-01/2025-07-13" {
		t.Fatalf("unexpected refreshes %+v", snaps.refreshes)
	}
	if len(snaps.loads) != 0 {
		t.Fatalf("refresh should not go through Load")
	}
	if got := rec.Header().Get("HX-Trigger"); got != "bookings-changed" {
		t.Fatalf("expected bookings-changed trigger, got %q", got)
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleTap(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantKind   string
	}{
		{
			name:       "empty slot",
			body:       map[string]any{"view": "day", "date": "2025-06-10", "kind": "slot", "hour": 10, "resourceId": "res-b"},
			wantStatus: http.StatusOK,
			wantKind:   "create",
		},
		{
			name:       "booking block",
			body:       map[string]any{"view": "day", "date": "2025-06-10", "kind": "booking", "bookingId": "bk-1"},
			wantStatus: http.StatusOK,
			wantKind:   "detail",
		},
		{
			name:       "month cell",
			body:       map[string]any{"view": "month", "date": "2025-06-10", "kind": "day"},
			wantStatus: http.StatusOK,
			wantKind:   "navigate",
		},
		{
			name:       "point on block",
			body:       map[string]any{"view": "day", "date": "2025-06-10", "kind": "point", "x": 100, "y": 250, "width": 456},
			wantStatus: http.StatusOK,
			wantKind:   "detail",
		},
		{
			name:       "hour before opening",
			body:       map[string]any{"view": "day", "date": "2025-06-10", "kind": "slot", "hour": 3},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown booking",
			body:       map[string]any{"view": "day", "date": "2025-06-10", "kind": "booking", "bookingId": "bk-gone"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown resource",
			body:       map[string]any{"view": "day", "date": "2025-06-10", "kind": "slot", "hour": 10, "resourceId": "res-z"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "bad date",
			body:       map[string]any{"view": "day", "date": "10/06/2025", "kind": "slot", "hour": 10},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := setupHandlers(t, snapshot.Result{Snapshot: testSnapshot()})

			rec := postJSON(t, h.HandleTap, "/api/v1/calendar/tap", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp struct {
				Kind string `json:"kind"`
			}
			decodeBody(t, rec, &resp)
			if resp.Kind != tt.wantKind {
				t.Fatalf("expected %s intent, got %s", tt.wantKind, resp.Kind)
			}
		})
	}
}

func TestHandleTapCreateIncludesDraft(t *testing.T) {
	h, _, _ := setupHandlers(t, snapshot.Result{Snapshot: testSnapshot()})

	rec := postJSON(t, h.HandleTap, "/api/v1/calendar/tap", map[string]any{
		"view": "day", "date": "2025-06-10", "kind": "slot", "hour": 14, "resourceId": "res-b",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp struct {
		Draft *struct {
			Form struct {
				ResourceID *string   `json:"resourceId"`
				Start      time.Time `json:"startTime"`
			} `json:"form"`
			SlotChips       []time.Time `json:"slotChips"`
			DurationMinutes int         `json:"durationMinutes"`
		} `json:"draft"`
	}
	decodeBody(t, rec, &resp)

	if resp.Draft == nil {
		t.Fatalf("expected draft for create intent")
	}
	if resp.Draft.Form.ResourceID == nil || *resp.Draft.Form.ResourceID != "res-b" {
		t.Fatalf("expected res-b draft, got %v", resp.Draft.Form.ResourceID)
	}
	if want := testDay.Add(14 * time.Hour); !resp.Draft.Form.Start.Equal(want) {
		t.Fatalf("expected start %s, got %s", want, resp.Draft.Form.Start)
	}
	if len(resp.Draft.SlotChips) != 34 {
		t.Fatalf("expected 34 slot chips, got %d", len(resp.Draft.SlotChips))
	}
	if resp.Draft.DurationMinutes != 60 {
		t.Fatalf("expected default 60 minute duration, got %d", resp.Draft.DurationMinutes)
	}
}

func TestHandleCreateBooking(t *testing.T) {
	valid := map[string]any{
		"clientName":  "Sam Reed",
		"clientEmail": "sam@example.com",
		"clientPhone": "07400 123456",
		"serviceId":   "svc-1",
		"resourceId":  "unassigned",
		"startTime":   "2025-06-10T10:00",
	}

	t.Run("created", func(t *testing.T) {
		h, snaps, bookings := setupHandlers(t, snapshot.Result{Snapshot: testSnapshot()})
		notifier := attachNotifier(h)

		rec := postJSON(t, h.HandleCreateBooking, "/api/v1/bookings", valid)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(bookings.creates) != 1 {
			t.Fatalf("expected one create call, got %d", len(bookings.creates))
		}
		created := bookings.creates[0]
		if created.ResourceID != nil {
			t.Fatalf("unassigned draft should not send a resource, got %v", *created.ResourceID)
		}
		if created.ClientPhone != "+447400123456" {
			t.Fatalf("expected E.164 phone, got %q", created.ClientPhone)
		}
		if !created.StartInstant.Equal(testDay.Add(10 * time.Hour)) {
			t.Fatalf("unexpected start %s", created.StartInstant)
		}
		if snaps.latest != 1 {
			t.Fatalf("expected snapshot refresh after create, got %d", snaps.latest)
		}
		if got := rec.Header().Get("HX-Trigger"); got != "bookings-changed" {
			t.Fatalf("expected bookings-changed trigger, got %q", got)
		}
		if len(notifier.created) != 1 || notifier.created[0] != "bk-new" || notifier.services != 1 {
			t.Fatalf("expected confirmation with refreshed snapshot, got %+v", notifier)
		}
	})

	t.Run("invalid draft makes no call", func(t *testing.T) {
		h, snaps, bookings := setupHandlers(t, snapshot.Result{Snapshot: testSnapshot()})

		body := map[string]any{"clientName": "Sam", "serviceId": "svc-1", "startTime": "2025-06-10T10:00"}
		rec := postJSON(t, h.HandleCreateBooking, "/api/v1/bookings", body)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status 422, got %d", rec.Code)
		}
		var resp apiutil.ErrorResponse
		decodeBody(t, rec, &resp)
		if len(resp.Fields) != 1 || resp.Fields[0].Field != "clientEmail" {
			t.Fatalf("expected clientEmail field error, got %+v", resp.Fields)
		}
		if len(bookings.creates) != 0 || snaps.latest != 0 {
			t.Fatalf("invalid draft reached the backend")
		}
	})

	t.Run("malformed start", func(t *testing.T) {
		h, _, bookings := setupHandlers(t, snapshot.Result{Snapshot: testSnapshot()})

		body := map[string]any{"clientName": "Sam", "clientEmail": "sam@example.com", "serviceId": "svc-1", "startTime": "tomorrow"}
		rec := postJSON(t, h.HandleCreateBooking, "/api/v1/bookings", body)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status 422, got %d", rec.Code)
		}
		if len(bookings.creates) != 0 {
			t.Fatalf("malformed draft reached the backend")
		}
	})

	backendErrors := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"network failure", fmt.Errorf("%w: dial tcp: connection refused", bookingapi.ErrRequestFailed), http.StatusBadGateway},
		{"slot taken", &bookingapi.StatusError{StatusCode: http.StatusConflict, Message: "overlap"}, http.StatusConflict},
		{"backend validation", &bookingapi.StatusError{StatusCode: http.StatusUnprocessableEntity, Message: "service is inactive"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range backendErrors {
		t.Run(tt.name, func(t *testing.T) {
			h, snaps, bookings := setupHandlers(t, snapshot.Result{Snapshot: testSnapshot()})
			bookings.createErr = tt.err

			rec := postJSON(t, h.HandleCreateBooking, "/api/v1/bookings", valid)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			var resp struct {
				Error string `json:"error"`
				Draft struct {
					ClientName string `json:"clientName"`
				} `json:"draft"`
			}
			decodeBody(t, rec, &resp)
			if resp.Draft.ClientName != "Sam Reed" {
				t.Fatalf("expected draft echo, got %+v", resp)
			}
			if len(bookings.creates) != 1 {
				t.Fatalf("expected exactly one attempt, got %d", len(bookings.creates))
			}
			if snaps.latest != 0 {
				t.Fatalf("failed write should not refresh")
			}
		})
	}
}

func TestHandleCreateBookingRetryKeepsKey(t *testing.T) {
	h, _, bookings := setupHandlers(t, snapshot.Result{Snapshot: testSnapshot()})
	bookings.createErr = fmt.Errorf("%w: context deadline exceeded", bookingapi.ErrRequestFailed)

	body := map[string]any{
		"clientName":  "Sam Reed",
		"clientEmail": "sam@example.com",
		"serviceId":   "svc-1",
		"startTime":   "2025-06-10T10:00",
	}
	rec := postJSON(t, h.HandleCreateBooking, "/api/v1/bookings", body)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rec.Code)
	}
	var resp struct {
		Draft struct {
			IdempotencyKey string `json:"idempotencyKey"`
		} `json:"draft"`
	}
	decodeBody(t, rec, &resp)
	key := resp.Draft.IdempotencyKey
	if key == "" {
		t.Fatalf("echoed draft should carry its idempotency key")
	}

	body["idempotencyKey"] = key
	postJSON(t, h.HandleCreateBooking, "/api/v1/bookings", body)
	if len(bookings.creates) != 2 {
		t.Fatalf("expected two attempts, got %d", len(bookings.creates))
	}
	for i, req := range bookings.creates {
		if req.IdempotencyKey != key {
			t.Fatalf("attempt %d key = %q, want %q", i, req.IdempotencyKey, key)
		}
	}
}

func TestHandleUpdateBookingStatus(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		updateErr  error
		wantStatus int
	}{
		{"cancel", `{"status":"cancelled"}`, nil, http.StatusOK},
		{"unknown status", `{"status":"archived"}`, nil, http.StatusUnprocessableEntity},
		{"missing booking", `{"status":"confirmed"}`, &bookingapi.StatusError{StatusCode: http.StatusNotFound}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, snaps, bookings := setupHandlers(t, snapshot.Result{Snapshot: testSnapshot()})
			notifier := attachNotifier(h)
			bookings.updateErr = tt.updateErr

			req := httptest.NewRequest(http.MethodPatch, "/api/v1/bookings/bk-1", strings.NewReader(tt.body))
			req.SetPathValue("id", "bk-1")
			rec := httptest.NewRecorder()
			h.HandleUpdateBookingStatus(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus == http.StatusOK && snaps.latest != 1 {
				t.Fatalf("expected refresh after status change")
			}
			wantCancelled := 0
			if tt.name == "cancel" {
				wantCancelled = 1
			}
			if len(notifier.cancelled) != wantCancelled || len(notifier.created) != 0 {
				t.Fatalf("unexpected notifications %+v", notifier)
			}
		})
	}
}

func TestHandleCalendarPage(t *testing.T) {
	h, _, _ := setupHandlers(t, snapshot.Result{Snapshot: testSnapshot()})

	req := httptest.NewRequest(http.MethodGet, "/calendar?view=day&date=2025-06-10", nil)
	rec := httptest.NewRecorder()
	h.HandleCalendarPage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	page := rec.Body.String()
	if !strings.HasPrefix(page, "<!DOCTYPE html>") || !strings.Contains(page, "Sam Reed") {
		t.Fatalf("expected full page with booking, got %s", page)
	}

	req = httptest.NewRequest(http.MethodGet, "/calendar?view=day&date=2025-06-10", nil)
	req.Header.Set("HX-Request", "true")
	rec = httptest.NewRecorder()
	h.HandleCalendarPage(rec, req)

	fragment := rec.Body.String()
	if strings.Contains(fragment, "<!DOCTYPE html>") {
		t.Fatalf("htmx request should get a fragment")
	}
	if !strings.HasPrefix(fragment, `<div id="calendar"`) {
		t.Fatalf("unexpected fragment %s", fragment)
	}
}

func TestHandleCalendarPageFetchFailure(t *testing.T) {
	h, _, _ := setupHandlers(t, snapshot.Result{Err: bookingapi.ErrRequestFailed})

	req := httptest.NewRequest(http.MethodGet, "/calendar?view=day&date=2025-06-10", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleCalendarPage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Bookings could not be loaded") {
		t.Fatalf("expected error notice")
	}
}

func TestHandleDraftNew(t *testing.T) {
	h, _, _ := setupHandlers(t, snapshot.Result{Snapshot: testSnapshot()})

	req := httptest.NewRequest(http.MethodGet, "/calendar/draft?date=2025-06-10&hour=11&resource=res-b", nil)
	rec := httptest.NewRecorder()
	h.HandleDraftNew(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `id="booking-draft"`) {
		t.Fatalf("expected draft form, got %s", body)
	}
	if !strings.Contains(body, `<option value="res-b" selected>Ben</option>`) {
		t.Fatalf("expected res-b preselected")
	}
	if !strings.Contains(body, `value="2025-06-10T11:00" class="peer sr-only" checked`) {
		t.Fatalf("expected 11:00 chip checked")
	}

	req = httptest.NewRequest(http.MethodGet, "/calendar/draft?date=2025-06-10&hour=11&resource=res-z", nil)
	rec = httptest.NewRecorder()
	h.HandleDraftNew(rec, req)
	if !strings.Contains(rec.Body.String(), "no longer on the calendar") {
		t.Fatalf("expected notice for unknown team member, got %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/calendar/draft?date=2025-06-10", nil)
	rec = httptest.NewRecorder()
	h.HandleDraftNew(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without hour, got %d", rec.Code)
	}
}

func postForm(handler http.HandlerFunc, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/calendar/draft", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleDraftSubmit(t *testing.T) {
	form := url.Values{}
	form.Set("clientName", "Sam Reed")
	form.Set("clientEmail", "sam@example.com")
	form.Set("serviceId", "svc-1")
	form.Set("resourceId", "res-a")
	form.Set("startTime", "2025-06-10T10:30")

	t.Run("created", func(t *testing.T) {
		h, _, bookings := setupHandlers(t, snapshot.Result{Snapshot: testSnapshot()})

		rec := postForm(h.HandleDraftSubmit, form)
		if !strings.Contains(rec.Body.String(), "Booked Sam Reed") {
			t.Fatalf("expected confirmation, got %s", rec.Body.String())
		}
		if rec.Header().Get("HX-Trigger") != "bookings-changed" {
			t.Fatalf("expected bookings-changed trigger")
		}
		if len(bookings.creates) != 1 || bookings.creates[0].ResourceID == nil || *bookings.creates[0].ResourceID != "res-a" {
			t.Fatalf("unexpected creates %+v", bookings.creates)
		}
	})

	t.Run("missing email", func(t *testing.T) {
		h, _, bookings := setupHandlers(t, snapshot.Result{Snapshot: testSnapshot()})

		invalid := url.Values{}
		for key, values := range form {
			invalid[key] = values
		}
		invalid.Del("clientEmail")

		rec := postForm(h.HandleDraftSubmit, invalid)
		body := rec.Body.String()
		if !strings.Contains(body, `data-field-error="clientEmail"`) {
			t.Fatalf("expected inline email error, got %s", body)
		}
		if !strings.Contains(body, `name="clientName" value="Sam Reed"`) {
			t.Fatalf("entered name should be kept")
		}
		if len(bookings.creates) != 0 {
			t.Fatalf("invalid draft reached the backend")
		}
	})

	t.Run("slot taken", func(t *testing.T) {
		h, _, bookings := setupHandlers(t, snapshot.Result{Snapshot: testSnapshot()})
		bookings.createErr = &bookingapi.StatusError{StatusCode: http.StatusConflict}

		rec := postForm(h.HandleDraftSubmit, form)
		body := rec.Body.String()
		if !strings.Contains(body, "no longer available") {
			t.Fatalf("expected conflict message, got %s", body)
		}
		if !strings.Contains(body, `value="2025-06-10T10:30" class="peer sr-only" checked`) {
			t.Fatalf("chosen start should stay selected")
		}
	})

	t.Run("retry reuses key", func(t *testing.T) {
		h, _, bookings := setupHandlers(t, snapshot.Result{Snapshot: testSnapshot()})
		bookings.createErr = fmt.Errorf("%w: connection reset", bookingapi.ErrRequestFailed)

		keyed := url.Values{}
		for key, values := range form {
			keyed[key] = values
		}
		keyed.Set("idempotencyKey", "draft-key-7")

		rec := postForm(h.HandleDraftSubmit, keyed)
		if !strings.Contains(rec.Body.String(), `<input type="hidden" name="idempotencyKey" value="draft-key-7">`) {
			t.Fatalf("re-rendered form should keep the key, got %s", rec.Body.String())
		}
		if len(bookings.creates) != 1 || bookings.creates[0].IdempotencyKey != "draft-key-7" {
			t.Fatalf("unexpected creates %+v", bookings.creates)
		}
	})
}

func TestHandleBookingDetail(t *testing.T) {
	h, _, _ := setupHandlers(t, snapshot.Result{Snapshot: testSnapshot()})

	req := httptest.NewRequest(http.MethodGet, "/calendar/bookings/bk-1", nil)
	req.Header.Set("HX-Current-URL", "http://localhost/calendar?view=day&date=2025-06-10")
	req.SetPathValue("id", "bk-1")
	rec := httptest.NewRecorder()
	h.HandleBookingDetail(rec, req)

	body := rec.Body.String()
	for _, want := range []string{"Sam Reed", "Cut &amp; finish", "Ava", "£35.00"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in detail, got %s", want, body)
		}
	}

	req = httptest.NewRequest(http.MethodGet, "/calendar/bookings/bk-gone?view=day&date=2025-06-10", nil)
	req.SetPathValue("id", "bk-gone")
	rec = httptest.NewRecorder()
	h.HandleBookingDetail(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}
