package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
	// Draft echoes a submission the server could not complete so the
	// client can keep it for retry.
	Draft any `json:"draft,omitempty"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteError logs err and writes it as an ErrorResponse. A HandlerError
// keeps its status and message; anything else becomes a 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())

	var handlerErr HandlerError
	if !errors.As(err, &handlerErr) {
		handlerErr = HandlerError{Status: http.StatusInternalServerError, Message: "Internal Server Error", Err: err}
	}

	event := logger.Warn()
	if handlerErr.Status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(handlerErr.Err).
		Int("status", handlerErr.Status).
		Str("path", r.URL.Path).
		Msg(handlerErr.Message)

	if writeErr := WriteJSON(w, handlerErr.Status, ErrorResponse{Error: handlerErr.Message}); writeErr != nil {
		logger.Error().Err(writeErr).Msg("Failed to write error response")
	}
}
