// Package respond writes the JSON envelope shared by every API handler.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/leapstack-labs/deckforge/internal/files"
	"github.com/leapstack-labs/deckforge/internal/generation"
	"github.com/leapstack-labs/deckforge/internal/provider"
	"github.com/leapstack-labs/deckforge/internal/tasks"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

// Error codes carried in the envelope.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeConfiguration  = "CONFIGURATION_ERROR"
	CodeInternal       = "INTERNAL_ERROR"
	CodeProvider       = "PROVIDER_ERROR"
	CodeUnavailable    = "SERVICE_UNAVAILABLE"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OK writes a 200 success envelope.
func OK(w http.ResponseWriter, data any, message string) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Message: message})
}

// Created writes a 201 success envelope.
func Created(w http.ResponseWriter, data any, message string) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Data: data, Message: message})
}

// Accepted writes a 202 success envelope, used for submitted tasks.
func Accepted(w http.ResponseWriter, data any, message string) {
	JSON(w, http.StatusAccepted, Envelope{Success: true, Data: data, Message: message})
}

// Fail writes an error envelope with an explicit status and code.
func Fail(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, Envelope{Error: &ErrorBody{Code: code, Message: message}})
}

// Error maps err onto a status and code and writes it. Internal errors are
// logged and their text is hidden from the client.
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := Classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		}
		msg = "internal server error"
	}
	Fail(w, status, code, msg)
}

// Classify returns the HTTP status and envelope code for err.
func Classify(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, provider.ErrConfig):
		return http.StatusUnprocessableEntity, CodeConfiguration
	case errors.Is(err, provider.ErrUpstream), errors.Is(err, generation.ErrBadResponse):
		return http.StatusBadGateway, CodeProvider
	case errors.Is(err, core.ErrInvalid), errors.Is(err, files.ErrOutsideRoot), errors.Is(err, files.ErrTooLarge), errors.As(err, &maxBytes):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, tasks.ErrShuttingDown):
		return http.StatusServiceUnavailable, CodeUnavailable
	}
	return http.StatusInternalServerError, CodeInternal
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Decode reads a JSON body into v. An empty body leaves v untouched.
func Decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return core.Invalidf("invalid JSON body: %v", err)
	}
	return nil
}
