// cmd/server/server.go
package main

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rezvo/bookinggrid/internal/api"
	calendarapi "github.com/rezvo/bookinggrid/internal/api/calendar"
	"github.com/rezvo/bookinggrid/internal/config"
	"github.com/rezvo/bookinggrid/internal/ratelimit"
)

func newServer(cfg *config.Config, limiter *ratelimit.Limiter, cal *calendarapi.Handlers) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)

	// Register routes
	registerRoutes(router, limiter, cal)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, limiter *ratelimit.Limiter, cal *calendarapi.Handlers) {
	throttled := func(h http.HandlerFunc) http.Handler {
		return limiter.Middleware(h)
	}

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/calendar", http.StatusFound)
	})

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Calendar pages
	mux.HandleFunc("GET /calendar", cal.HandleCalendarPage)
	mux.HandleFunc("GET /calendar/draft", cal.HandleDraftNew)
	mux.Handle("POST /calendar/draft", throttled(cal.HandleDraftSubmit))
	mux.HandleFunc("GET /calendar/bookings/{id}", cal.HandleBookingDetail)

	// Calendar API
	mux.HandleFunc("GET /api/v1/calendar", cal.HandleCalendar)
	mux.HandleFunc("POST /api/v1/calendar/tap", cal.HandleTap)
	mux.Handle("POST /api/v1/calendar/refresh", throttled(cal.HandleRefresh))
	mux.Handle("POST /api/v1/bookings", throttled(cal.HandleCreateBooking))
	mux.Handle("PATCH /api/v1/bookings/{id}", throttled(cal.HandleUpdateBookingStatus))

	// Static file handling with logging and environment awareness
	staticDir := os.Getenv("STATIC_DIR")
	if staticDir == "" {
		staticDir = "build/bin/static"
	}
	fs := http.FileServer(http.Dir(staticDir))

	mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug().
			Str("path", r.URL.Path).
			Str("static_dir", staticDir).
			Msg("Static file request")
		http.StripPrefix("/static/", fs).ServeHTTP(w, r)
	}))
}
