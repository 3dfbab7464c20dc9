package job

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"manuscript-symbols/internal/detect"
	"manuscript-symbols/internal/page"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// PageProcessor runs the extraction pipeline for one page and returns the
// number of symbols persisted. observe is called as the page moves through
// pipeline stages so the owning job can reflect them.
type PageProcessor interface {
	ProcessPage(ctx context.Context, pageID int64, params detect.Params, observe func(Status)) (int, error)
}

// Manager owns every job's lifecycle. It is the only writer of job state:
// callers observe jobs by polling reads or by subscribing to events.
type Manager struct {
	store *Store
	proc  PageProcessor
	log   zerolog.Logger
	sem   *semaphore.Weighted
	bus   *bus

	// baseCtx outlives individual job contexts so that cancellation is
	// cooperative: in-flight page work runs to completion.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu        sync.Mutex
	pageLocks map[int64]uuid.UUID
	cancels   map[uuid.UUID]context.CancelFunc
	wg        sync.WaitGroup
}

// NewManager creates a job manager running at most maxConcurrent jobs at
// once.
func NewManager(store *Store, proc PageProcessor, maxConcurrent int64, logger zerolog.Logger) *Manager {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:      store,
		proc:       proc,
		log:        logger.With().Str("component", "job-manager").Logger(),
		sem:        semaphore.NewWeighted(maxConcurrent),
		bus:        newBus(),
		baseCtx:    ctx,
		baseCancel: cancel,
		pageLocks:  make(map[int64]uuid.UUID),
		cancels:    make(map[uuid.UUID]context.CancelFunc),
	}
}

// Start validates the request and creates a job in Queued, scheduling
// asynchronous execution. The page-lock check and job creation happen
// under one lock, so two racing starts over overlapping ranges cannot both
// succeed.
func (m *Manager) Start(ctx context.Context, startPageID, endPageID int64, params detect.Params) (*Job, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if startPageID < 1 {
		return nil, &detect.ValidationError{Field: "pageRange", Reason: fmt.Sprintf("start page must be positive, got %d", startPageID)}
	}
	if endPageID < startPageID {
		return nil, &detect.ValidationError{Field: "pageRange", Reason: fmt.Sprintf("range [%d, %d] is empty", startPageID, endPageID)}
	}

	j := &Job{
		ID:          uuid.New(),
		StartPageID: startPageID,
		EndPageID:   endPageID,
		Params:      params,
		Status:      StatusQueued,
		StartedAt:   time.Now().UTC(),
	}

	m.mu.Lock()
	for p := startPageID; p <= endPageID; p++ {
		if holder, held := m.pageLocks[p]; held {
			m.mu.Unlock()
			return nil, fmt.Errorf("page %d is held by job %s: %w", p, holder, ErrConflict)
		}
	}
	if err := m.store.Create(ctx, j); err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("create job: %w", err)
	}
	for p := startPageID; p <= endPageID; p++ {
		m.pageLocks[p] = j.ID
	}
	jobCtx, cancel := context.WithCancel(m.baseCtx)
	m.cancels[j.ID] = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	// Snapshot before the worker starts: once run() is scheduled it owns
	// the job's mutable fields and reading them here would race.
	out := j.clone()
	m.bus.publish(eventFor(j))
	go m.run(jobCtx, j)

	m.log.Info().
		Stringer("job_id", j.ID).
		Int64("start_page", startPageID).
		Int64("end_page", endPageID).
		Msg("extraction job started")
	return out, nil
}

// Get retrieves a job by id.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	return m.store.Get(ctx, id)
}

// List returns all jobs, newest first.
func (m *Manager) List(ctx context.Context) ([]*Job, error) {
	return m.store.List(ctx)
}

// Cancel requests cancellation of a non-terminal job. In-flight page work
// finishes, no further pages start, and symbols already written are kept.
// The transition to Cancelled is observed by polling.
func (m *Manager) Cancel(ctx context.Context, id uuid.UUID) (*Job, error) {
	j, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.Status.Terminal() {
		return nil, fmt.Errorf("job %s is %s: %w", id, j.Status, ErrAlreadyFinished)
	}

	m.mu.Lock()
	cancel, active := m.cancels[id]
	m.mu.Unlock()
	if active {
		cancel()
	}

	m.log.Info().Stringer("job_id", id).Msg("cancellation requested")
	return j, nil
}

// Subscribe returns a channel of job state transitions and an unsubscribe
// function. Slow subscribers miss intermediate events rather than blocking
// execution.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	return m.bus.subscribe()
}

// Wait blocks until all running jobs have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Shutdown cancels all running jobs cooperatively and waits for them to
// finalize, or until ctx expires.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	for _, cancel := range m.cancels {
		cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		m.baseCancel()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run executes a job page by page. Pages are sequential within one job;
// concurrency exists only across jobs, bounded by the semaphore.
func (m *Manager) run(ctx context.Context, j *Job) {
	defer m.wg.Done()
	defer m.release(j)

	log := m.log.With().Stringer("job_id", j.ID).Logger()

	if err := m.sem.Acquire(ctx, 1); err != nil {
		m.finalize(j, StatusCancelled, nil)
		log.Info().Msg("job cancelled while queued")
		return
	}
	defer m.sem.Release(1)

	pages := j.Pages()
	total := len(pages)
	processed := 0
	var pageErrs []string

	for _, pageID := range pages {
		if ctx.Err() != nil {
			m.finalize(j, StatusCancelled, pageErrs)
			log.Info().Int("pages_done", processed).Msg("job cancelled")
			return
		}

		count, err := m.proc.ProcessPage(m.baseCtx, pageID, j.Params, func(s Status) {
			m.transition(j, s)
		})
		if err != nil {
			var imgErr *page.ImageReadError
			if errors.As(err, &imgErr) {
				// Page-scoped failure: record it and keep going so good
				// pages are not discarded.
				pageErrs = append(pageErrs, err.Error())
				log.Warn().Int64("page_id", pageID).Err(err).Msg("page skipped")
				continue
			}
			pageErrs = append(pageErrs, fmt.Sprintf("page %d: %v", pageID, err))
			m.finalize(j, StatusFailed, pageErrs)
			log.Error().Int64("page_id", pageID).Err(err).Msg("job failed")
			return
		}

		processed++
		j.SymbolsExtracted += count
		j.Progress = processed * 100 / total
		m.persist(j)
		m.bus.publish(eventFor(j))
	}

	if len(pageErrs) > 0 {
		m.finalize(j, StatusFailed, pageErrs)
		log.Warn().Int("failed_pages", len(pageErrs)).Msg("job finished with page failures")
		return
	}

	j.Progress = 100
	m.finalize(j, StatusCompleted, nil)
	log.Info().Int("symbols", j.SymbolsExtracted).Msg("job completed")
}

// transition moves the job to an in-progress state, ignoring repeats and
// anything after a terminal state.
func (m *Manager) transition(j *Job, s Status) {
	if j.Status == s || j.Status.Terminal() {
		return
	}
	j.Status = s
	m.persist(j)
	m.bus.publish(eventFor(j))
}

// finalize moves the job to a terminal state exactly once. The first
// page error leads the detail; later ones follow so no failure is silent.
func (m *Manager) finalize(j *Job, s Status, pageErrs []string) {
	if j.Status.Terminal() {
		return
	}
	j.Status = s
	now := time.Now().UTC()
	j.CompletedAt = &now
	if len(pageErrs) > 0 {
		detail := strings.Join(pageErrs, "; ")
		j.ErrorDetail = &detail
	}
	m.persist(j)
	m.bus.publish(eventFor(j))
}

func (m *Manager) persist(j *Job) {
	// Job state must outlive whatever request started it.
	if err := m.store.Update(context.Background(), j); err != nil {
		m.log.Error().Stringer("job_id", j.ID).Err(err).Msg("persist job state")
	}
}

func (m *Manager) release(j *Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := j.StartPageID; p <= j.EndPageID; p++ {
		if m.pageLocks[p] == j.ID {
			delete(m.pageLocks, p)
		}
	}
	if cancel, ok := m.cancels[j.ID]; ok {
		cancel()
		delete(m.cancels, j.ID)
	}
}

func eventFor(j *Job) Event {
	return Event{
		JobID:            j.ID,
		Status:           j.Status,
		Progress:         j.Progress,
		SymbolsExtracted: j.SymbolsExtracted,
	}
}
