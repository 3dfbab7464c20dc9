package handlers

import (
	"encoding/json"
	"net/http"

	"manuscript-symbols/internal/detect"
	"manuscript-symbols/internal/job"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// JobsHandler serves the extraction job endpoints.
type JobsHandler struct {
	manager *job.Manager
	log     zerolog.Logger
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(manager *job.Manager, logger zerolog.Logger) *JobsHandler {
	return &JobsHandler{manager: manager, log: logger}
}

// CreateJobDTO is the request body for starting an extraction job.
// Omitted parameter fields take their defaults.
type CreateJobDTO struct {
	StartPageID int64            `json:"startPageId"`
	EndPageID   int64            `json:"endPageId"`
	Parameters  *json.RawMessage `json:"parameters,omitempty"`
}

// Create handles POST /api/extraction/jobs.
func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreateJobDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	params := detect.DefaultParams()
	if dto.Parameters != nil {
		if err := json.Unmarshal(*dto.Parameters, &params); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid parameters", err.Error())
			return
		}
	}

	j, err := h.manager.Start(r.Context(), dto.StartPageID, dto.EndPageID, params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, j)
}

// List handles GET /api/extraction/jobs.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.manager.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*job.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// Get handles GET /api/extraction/jobs/{jobId}.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	j, err := h.manager.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// Cancel handles POST /api/extraction/jobs/{jobId}/cancel. Cancellation is
// cooperative: the response carries the job as it was when the request was
// accepted, and the terminal state is observed by polling.
func (h *JobsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	j, err := h.manager.Cancel(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, j)
}

func (h *JobsHandler) jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "jobId")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found", "malformed job id "+raw)
		return uuid.Nil, false
	}
	return id, true
}
