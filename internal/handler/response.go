// Package handler contains the HTTP layer: request parsing, response
// formatting, and nothing else. Business rules live in internal/service.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mergequest/mergequest/internal/apperror"
)

// Response is the envelope every endpoint replies with.
//
//	success: {"success": true,  "data": ...}
//	failure: {"success": false, "message": "..."}
//
// One shape for everything means the frontend never branches on the
// endpoint to know where to look.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// writeJSON sends a success envelope with the given status code.
//
// Headers and status code must be set BEFORE the body: once Encode calls
// w.Write, the headers are sent and further changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Response{Success: true, Data: data}); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError maps a domain error to an HTTP status and sends the failure
// envelope.
//
// This is the single place where the service layer's error taxonomy meets
// HTTP. The services return apperror sentinels; here they become status
// codes:
//
//	ErrValidation       → 400  caller sent something unusable
//	ErrUnauthenticated  → 401  GitHub rejected the stored token; re-login
//	ErrNotFound         → 404
//	ErrConflict         → 409  requested state change cannot happen
//	ErrDuplicateKey     → 409  (same wire meaning; distinct internally so
//	                           the sync engine can treat it as benign)
//	ErrMalformedRecord  → 422  remote data we couldn't interpret
//	ErrTransport        → 502  GitHub unreachable or misbehaving
//	anything else       → 500
//
// errors.Is walks the whole wrap chain, so services are free to wrap with
// fmt.Errorf("%w", ...) on the way up.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "an internal error occurred"

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrUnauthenticated):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrConflict), errors.Is(err, apperror.ErrDuplicateKey):
			status = http.StatusConflict
		case errors.Is(err, apperror.ErrMalformedRecord):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, apperror.ErrTransport):
			status = http.StatusBadGateway
		default:
			// Typed but unmapped (e.g. ErrInternal). Don't leak the
			// internal message to the client.
			message = "an internal error occurred"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(Response{Success: false, Message: message}); encErr != nil {
		slog.Error("failed to encode error response", slog.String("error", encErr.Error()))
	}
}
