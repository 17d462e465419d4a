// Package bookingapi is the client for the external booking backend: it lists
// bookings, team members and services, and submits new bookings.
package bookingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/rezvo/bookinggrid/internal/models"
)

const (
	DefaultTimeout = 10 * time.Second
	// Error bodies are only read for a message; anything longer is truncated.
	maxErrorBody = 4 << 10
)

var (
	ErrRequestFailed = errors.New("booking api request failed")
	ErrMissingID     = errors.New("booking id is required")
)

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("booking api returned %d", e.StatusCode)
	}
	return fmt.Sprintf("booking api returned %d: %s", e.StatusCode, e.Message)
}

// IsValidation reports whether the backend rejected the request payload.
func (e *StatusError) IsValidation() bool {
	return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
}

type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// RequestsPerSecond <= 0 disables client-side throttling.
	RequestsPerSecond float64
	Burst             int
	// Location interprets backend times that carry no zone offset.
	Location   *time.Location
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	limiter *rate.Limiter
	loc     *time.Location
	logger  zerolog.Logger
	newKey  func() string
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	burst := opts.Burst
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	logger := log.With().Str("component", "bookingapi").Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Client{
		baseURL: base,
		token:   opts.Token,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		loc:     loc,
		logger:  logger,
		newKey:  uuid.NewString,
	}, nil
}

// ListBookings returns the bookings the backend holds for one calendar date.
// Records with a missing or unparsable start or duration are skipped and
// logged; the rest of the list is returned.
func (c *Client) ListBookings(ctx context.Context, date time.Time) ([]models.Booking, error) {
	query := url.Values{}
	query.Set("date", date.Format("2006-01-02"))

	var raw []json.RawMessage
	if err := c.getList(ctx, "bookings", query, &raw); err != nil {
		return nil, err
	}

	bookings := make([]models.Booking, 0, len(raw))
	for i, item := range raw {
		booking, err := c.decodeBooking(item)
		if err != nil {
			c.logger.Warn().
				Err(err).
				Int("index", i).
				Str("date", query.Get("date")).
				Msg("Skipping malformed booking record")
			continue
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

func (c *Client) ListTeamMembers(ctx context.Context) ([]models.Resource, error) {
	var resources []models.Resource
	if err := c.getList(ctx, "team-members", nil, &resources); err != nil {
		return nil, err
	}
	return resources, nil
}

func (c *Client) ListServices(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	if err := c.getList(ctx, "services", nil, &services); err != nil {
		return nil, err
	}
	return services, nil
}

type CreateBookingRequest struct {
	ServiceID    string    `json:"serviceId"`
	ResourceID   *string   `json:"resourceId,omitempty"`
	ClientName   string    `json:"clientName"`
	ClientEmail  string    `json:"clientEmail"`
	ClientPhone  string    `json:"clientPhone,omitempty"`
	StartInstant time.Time `json:"startInstant"`
	Notes        string    `json:"notes,omitempty"`

	// IdempotencyKey is sent as a header. Retries of one draft reuse it.
	IdempotencyKey string `json:"-"`
}

// CreateBooking issues exactly one POST. A request without an idempotency
// key gets a fresh one.
func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest) (models.Booking, error) {
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = c.newKey()
	}
	var raw json.RawMessage
	headers := http.Header{}
	headers.Set("Idempotency-Key", key)
	if err := c.do(ctx, http.MethodPost, "bookings", nil, headers, req, &raw); err != nil {
		return models.Booking{}, err
	}
	return c.decodeBooking(unwrapObject(raw))
}

func (c *Client) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) (models.Booking, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Booking{}, ErrMissingID
	}
	if !status.Valid() {
		return models.Booking{}, fmt.Errorf("unknown booking status %q", status)
	}

	var raw json.RawMessage
	payload := struct {
		Status models.BookingStatus `json:"status"`
	}{Status: status}
	if err := c.do(ctx, http.MethodPatch, "bookings/"+url.PathEscape(id), nil, nil, payload, &raw); err != nil {
		return models.Booking{}, err
	}
	return c.decodeBooking(unwrapObject(raw))
}

func (c *Client) getList(ctx context.Context, path string, query url.Values, dst any) error {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, query, nil, nil, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(unwrapList(raw), dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, headers http.Header, body, dst any) error {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, path, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("Booking API request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", ErrRequestFailed, method, path, err)
	}
	return nil
}

// errorMessage pulls a message out of an error body, accepting either
// {"message": ...}, {"error": ...} or plain text.
func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(data))
}
