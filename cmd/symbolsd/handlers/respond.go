// Package handlers provides the HTTP handlers for the symbol extraction
// API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"manuscript-symbols/internal/classify"
	"manuscript-symbols/internal/detect"
	"manuscript-symbols/internal/job"
	"manuscript-symbols/internal/page"
	"manuscript-symbols/internal/symbol"
)

// ErrorDTO is the uniform error response body.
type ErrorDTO struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	writeJSON(w, status, ErrorDTO{Error: message, Detail: detail})
}

// writeDomainError maps domain errors onto HTTP statuses: validation
// failures are 422, conflicts 409, missing resources 404, everything else
// 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *detect.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, "invalid parameters", verr.Error())
	case errors.Is(err, classify.ErrInvalidCategory):
		writeError(w, http.StatusUnprocessableEntity, "invalid category", err.Error())
	case errors.Is(err, job.ErrConflict):
		writeError(w, http.StatusConflict, "extraction already in progress", err.Error())
	case errors.Is(err, job.ErrAlreadyFinished):
		writeError(w, http.StatusConflict, "job already finished", err.Error())
	case errors.Is(err, job.ErrNotFound),
		errors.Is(err, page.ErrNotFound),
		errors.Is(err, symbol.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}
