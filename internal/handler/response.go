package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON, writeText or writeError so status
// codes and content types are decided in one place.
//
// ERROR FORMAT:
// Most errors are JSON:
//
//	{"error": "validation_error", "message": "email is required"}
//
// The two credential failures are the exception. "Email already in use" and
// "Invalid credentials" go out as plain text with 400, which is what the web
// client displays verbatim.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/recipe-organizer/internal/apperror"
)

// maxBodyBytes caps request bodies. Recipes are small; anything larger is
// rejected by the JSON decoder.
const maxBodyBytes = 1 << 20

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable, e.g. "not_found"
	Message string `json:"message"` // human-readable
}

// writeJSON sends data as JSON. Headers and status must be written before the
// body; after the first Write they are frozen.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are already sent, all that's left is to log
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeText sends a plain-text body.
func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

// decodeJSON reads the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "request body must be valid JSON")
	}
	return nil
}

// writeError maps a service error to an HTTP response.
//
// errors.Is walks the %w chain, so a service error like
// fmt.Errorf("service/recipe: saving: %w", apperror.Conflict(...)) still maps
// to 409. Anything without an *AppError in its chain is a 500; its detail is
// logged but never sent to the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	switch {
	case errors.Is(err, apperror.ErrEmailTaken), errors.Is(err, apperror.ErrInvalidCredentials):
		writeText(w, http.StatusBadRequest, appErr.Message)
		return
	}

	status, errorType := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, errorType = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, errorType = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrNotFound):
		status, errorType = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status, errorType = http.StatusConflict, "conflict"
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
	})
}
