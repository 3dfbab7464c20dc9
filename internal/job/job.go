// Package job owns the extraction job lifecycle: the state machine,
// per-page mutual exclusion, progress reporting, and cancellation.
package job

import (
	"errors"
	"time"

	"manuscript-symbols/internal/detect"

	"github.com/google/uuid"
)

// Status is the extraction job state. The happy path is
// queued → preprocessing → detecting → feature_extraction → classifying →
// completed; failed is reachable from any non-terminal state and cancelled
// from any state before completion.
type Status string

const (
	StatusQueued            Status = "queued"
	StatusPreprocessing     Status = "preprocessing"
	StatusDetecting         Status = "detecting"
	StatusFeatureExtraction Status = "feature_extraction"
	StatusClassifying       Status = "classifying"
	StatusCompleted         Status = "completed"
	StatusFailed            Status = "failed"
	StatusCancelled         Status = "cancelled"
)

// Terminal reports whether the status is final. Terminal jobs are retained
// for history and never transition again.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

var (
	// ErrConflict is returned when a page in the requested range already
	// has a non-terminal job.
	ErrConflict = errors.New("extraction already in progress for page")
	// ErrNotFound is returned when a job id does not exist.
	ErrNotFound = errors.New("job not found")
	// ErrAlreadyFinished is returned when cancelling a terminal job.
	ErrAlreadyFinished = errors.New("job already finished")
)

// Job is one extraction run over a page range under a single parameter
// set. Jobs are mutated only by the Manager and retained after completion.
type Job struct {
	ID               uuid.UUID     `json:"id"`
	StartPageID      int64         `json:"startPageId"`
	EndPageID        int64         `json:"endPageId"`
	Params           detect.Params `json:"parameters"`
	Status           Status        `json:"status"`
	Progress         int           `json:"progress"`
	SymbolsExtracted int           `json:"symbolsExtracted"`
	StartedAt        time.Time     `json:"startedAt"`
	CompletedAt      *time.Time    `json:"completedAt,omitempty"`
	ErrorDetail      *string       `json:"error,omitempty"`
}

// Pages returns the page ids covered by the job, in processing order.
func (j *Job) Pages() []int64 {
	pages := make([]int64, 0, j.EndPageID-j.StartPageID+1)
	for p := j.StartPageID; p <= j.EndPageID; p++ {
		pages = append(pages, p)
	}
	return pages
}

// clone returns a copy safe to hand to callers while the manager keeps
// mutating the original.
func (j *Job) clone() *Job {
	c := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.ErrorDetail != nil {
		s := *j.ErrorDetail
		c.ErrorDetail = &s
	}
	return &c
}
