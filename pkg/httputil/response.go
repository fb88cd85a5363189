package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	apperrors "github.com/utafrali/review-service/pkg/errors"
	"github.com/utafrali/review-service/pkg/logger"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Response is the JSON envelope used for every API response.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Total   *int64 `json:"total,omitempty"`
}

// Failure is the envelope for error responses. Details is always present and
// null when there is nothing to add.
type Failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

// WriteJSON writes a JSON response with the given status code.
// If encoding fails, the error is logged but headers are already sent so nothing can be done.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, status int, data any, message string) {
	WriteJSON(w, status, Response{Success: true, Data: data, Message: message})
}

// WriteList writes a success envelope carrying the total count of the
// unpaginated result set.
func WriteList(w http.ResponseWriter, data any, total int64, message string) {
	WriteJSON(w, http.StatusOK, Response{Success: true, Data: data, Total: &total, Message: message})
}

// WriteFailure writes a failure envelope with the given status and message.
func WriteFailure(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Failure{Message: message})
}

const internalServerError = "Internal Server Error"

// WriteError is the single translation point from errors to HTTP responses.
//
//   - *AppError: its own status, message and details. A 500 AppError is
//     logged and answered with the fixed message instead.
//   - errors carrying the store sentinel: 400 with the error text.
//   - anything else: 500 with a fixed "Internal Server Error" message, logged.
//
// It prefers the request-scoped logger from context (set by the RequestLogger
// middleware) over the fallback logger.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logServerError(l, r, err)
		}
		if appErr.Status == http.StatusInternalServerError {
			WriteFailure(w, http.StatusInternalServerError, internalServerError)
			return
		}
		WriteJSON(w, appErr.Status, Failure{
			Message: appErr.Message,
			Details: appErr.Details,
		})
		return
	}

	if errors.Is(err, apperrors.ErrStore) || errors.Is(err, apperrors.ErrValidation) {
		WriteFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	logServerError(l, r, err)
	WriteFailure(w, http.StatusInternalServerError, internalServerError)
}

func logServerError(l *slog.Logger, r *http.Request, err error) {
	l.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}

// DecodeObject reads a JSON object from the request body into a generic map.
// A body that is not valid JSON, or is valid JSON but not an object, yields a
// validation error.
func DecodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("invalid request body: %v", err))
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, apperrors.Validation("request body must be a JSON object")
	}
	return obj, nil
}
