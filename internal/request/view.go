// Package request reads calendar view parameters from incoming requests.
package request

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rezvo/bookinggrid/internal/calendar"
)

const (
	viewKey  = "view"
	dateKey  = "date"
	widthKey = "width"

	maxViewportWidth = 10000
)

// ParseDate parses a YYYY-MM-DD value as local midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	parsed, err := time.ParseInLocation(calendar.DateLayout, value, loc)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// ViewState reads view and date from the query string, falling back to the
// HX-Current-URL header so htmx fragments keep the page's view. A missing
// date anchors on today; a malformed one is an error.
func ViewState(r *http.Request, loc *time.Location, now time.Time) (calendar.State, error) {
	values := r.URL.Query()
	if values.Get(viewKey) == "" && values.Get(dateKey) == "" {
		values = currentURLQuery(r)
	}

	mode, err := calendar.ParseViewMode(values.Get(viewKey))
	if err != nil {
		return calendar.State{}, err
	}

	anchor := calendar.TruncateDate(now.In(loc))
	if raw := strings.TrimSpace(values.Get(dateKey)); raw != "" {
		parsed, ok := ParseDate(raw, loc)
		if !ok {
			return calendar.State{}, fmt.Errorf("date must be formatted as YYYY-MM-DD")
		}
		anchor = parsed
	}
	return calendar.State{Mode: mode, Anchor: anchor}, nil
}

// ViewportWidth reads the client's grid width, or returns fallback when the
// parameter is missing or unusable.
func ViewportWidth(r *http.Request, fallback float64) float64 {
	raw := strings.TrimSpace(r.URL.Query().Get(widthKey))
	if raw == "" {
		return fallback
	}
	width, err := strconv.ParseFloat(raw, 64)
	if err != nil || width < 0 || width > maxViewportWidth {
		return fallback
	}
	return width
}

func currentURLQuery(r *http.Request) url.Values {
	currentURL := strings.TrimSpace(r.Header.Get("HX-Current-URL"))
	if currentURL == "" {
		return url.Values{}
	}

	parsed, err := url.Parse(currentURL)
	if err != nil {
		log.Ctx(r.Context()).
			Debug().
			Err(err).
			Str("hx_current_url", currentURL).
			Msg("Failed to parse HX-Current-URL")
		return url.Values{}
	}
	return parsed.Query()
}
