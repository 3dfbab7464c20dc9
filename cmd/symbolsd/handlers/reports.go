package handlers

import (
	"net/http"

	"manuscript-symbols/internal/symbol"

	"github.com/rs/zerolog"
)

// ReportsHandler serves manuscript-wide aggregate reports.
type ReportsHandler struct {
	repo *symbol.Repository
	log  zerolog.Logger
}

// NewReportsHandler creates a reports handler.
func NewReportsHandler(repo *symbol.Repository, logger zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{repo: repo, log: logger}
}

// Frequency handles GET /api/reports/frequency: signature bucket sizes
// across the manuscript, most frequent first.
func (h *ReportsHandler) Frequency(w http.ResponseWriter, r *http.Request) {
	report, err := h.repo.FrequencyReport(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if report == nil {
		report = []symbol.FrequencyEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"frequencies": report})
}

// Categories handles GET /api/reports/categories: symbol counts per
// category, unclassified symbols under the empty category.
func (h *ReportsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	dist, err := h.repo.DistributionByCategory(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if dist == nil {
		dist = []symbol.CategoryCount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": dist})
}
