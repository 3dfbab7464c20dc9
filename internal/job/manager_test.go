package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"manuscript-symbols/internal/detect"
	"manuscript-symbols/internal/page"
	"manuscript-symbols/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProcessor is a PageProcessor with controllable behavior: fixed
// symbol counts, per-page failures, and optional step gating so tests can
// hold a job mid-range.
type stubProcessor struct {
	symbolsPerPage int
	failPages      map[int64]error

	// When gated, ProcessPage announces each page on entered and waits
	// for a tick on proceed before returning.
	entered chan int64
	proceed chan struct{}

	mu        sync.Mutex
	processed []int64
}

func (s *stubProcessor) ProcessPage(ctx context.Context, pageID int64, params detect.Params, observe func(Status)) (int, error) {
	observe(StatusPreprocessing)
	observe(StatusDetecting)
	observe(StatusFeatureExtraction)
	observe(StatusClassifying)

	if s.entered != nil {
		s.entered <- pageID
		<-s.proceed
	}

	if err := s.failPages[pageID]; err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.processed = append(s.processed, pageID)
	s.mu.Unlock()
	return s.symbolsPerPage, nil
}

func (s *stubProcessor) processedPages() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.processed...)
}

func newTestManager(t *testing.T, proc PageProcessor, maxConcurrent int64) *Manager {
	t.Helper()
	db, err := storage.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewManager(NewStore(db), proc, maxConcurrent, zerolog.Nop())
}

func TestJobRunsToCompletion(t *testing.T) {
	proc := &stubProcessor{symbolsPerPage: 4}
	m := newTestManager(t, proc, 2)

	j, err := m.Start(context.Background(), 1, 3, detect.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, j.Status)

	m.Wait()

	final, err := m.Get(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, 12, final.SymbolsExtracted)
	assert.NotNil(t, final.CompletedAt)
	assert.Nil(t, final.ErrorDetail)
	assert.Equal(t, []int64{1, 2, 3}, proc.processedPages())
}

func TestStartReturnsQueuedSnapshot(t *testing.T) {
	// The job returned by Start is a snapshot taken before the worker is
	// scheduled: even when the processor finishes instantly, the caller
	// sees the queued state, not whatever the worker has since written.
	proc := &stubProcessor{symbolsPerPage: 1}
	m := newTestManager(t, proc, 4)

	for i := int64(0); i < 20; i++ {
		j, err := m.Start(context.Background(), i*10+1, i*10+2, detect.DefaultParams())
		require.NoError(t, err)
		assert.Equal(t, StatusQueued, j.Status)
		assert.Equal(t, 0, j.Progress)
		assert.Equal(t, 0, j.SymbolsExtracted)
	}
	m.Wait()
}

func TestSlowSubscriberDoesNotBlockCompletion(t *testing.T) {
	proc := &stubProcessor{symbolsPerPage: 1}
	m := newTestManager(t, proc, 1)

	// Subscribe but never drain: a 30-page job publishes more transitions
	// than the buffer holds, so the overflow is dropped rather than
	// stalling the worker, and the store remains the source of truth.
	events, unsubscribe := m.Subscribe()
	defer unsubscribe()

	j, err := m.Start(context.Background(), 1, 30, detect.DefaultParams())
	require.NoError(t, err)
	m.Wait()

	final, err := m.Get(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.LessOrEqual(t, len(events), eventBuffer)
}

func TestStartRejectsInvalidRequests(t *testing.T) {
	m := newTestManager(t, &stubProcessor{}, 1)
	ctx := context.Background()

	var verr *detect.ValidationError

	p := detect.DefaultParams()
	p.ThresholdValue = 999
	_, err := m.Start(ctx, 1, 2, p)
	assert.ErrorAs(t, err, &verr)

	_, err = m.Start(ctx, 5, 4, detect.DefaultParams())
	assert.ErrorAs(t, err, &verr)

	_, err = m.Start(ctx, 0, 4, detect.DefaultParams())
	assert.ErrorAs(t, err, &verr)

	// No job record is created for rejected requests.
	jobs, err := m.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestStartConflictsOnOverlappingRange(t *testing.T) {
	proc := &stubProcessor{
		symbolsPerPage: 1,
		entered:        make(chan int64),
		proceed:        make(chan struct{}),
	}
	m := newTestManager(t, proc, 2)
	ctx := context.Background()

	first, err := m.Start(ctx, 5, 7, detect.DefaultParams())
	require.NoError(t, err)
	<-proc.entered // job is mid-page and definitely non-terminal

	// Overlap on page 5 conflicts.
	_, err = m.Start(ctx, 5, 5, detect.DefaultParams())
	assert.ErrorIs(t, err, ErrConflict)

	// Overlap anywhere in the range conflicts.
	_, err = m.Start(ctx, 7, 9, detect.DefaultParams())
	assert.ErrorIs(t, err, ErrConflict)

	// A disjoint range proceeds concurrently.
	second, err := m.Start(ctx, 8, 8, detect.DefaultParams())
	require.NoError(t, err)

	// Let both jobs run out: first has 3 pages, second has 1.
	for i := 0; i < 4; i++ {
		proc.proceed <- struct{}{}
		if i < 3 {
			<-proc.entered
		}
	}
	m.Wait()

	f1, err := m.Get(ctx, first.ID)
	require.NoError(t, err)
	f2, err := m.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, f1.Status)
	assert.Equal(t, StatusCompleted, f2.Status)

	// Pages are free again once the jobs are terminal.
	_, err = m.Start(ctx, 5, 8, detect.DefaultParams())
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		<-proc.entered
		proc.proceed <- struct{}{}
	}
	m.Wait()
}

func TestProgressIsMonotonic(t *testing.T) {
	proc := &stubProcessor{symbolsPerPage: 2}
	m := newTestManager(t, proc, 1)

	events, unsubscribe := m.Subscribe()
	defer unsubscribe()

	j, err := m.Start(context.Background(), 1, 5, detect.DefaultParams())
	require.NoError(t, err)
	m.Wait()

	last := -1
	terminalSeen := false
	for {
		select {
		case e := <-events:
			if e.JobID != j.ID {
				continue
			}
			assert.GreaterOrEqual(t, e.Progress, last)
			last = e.Progress
			if e.Status.Terminal() {
				terminalSeen = true
			}
		default:
			assert.True(t, terminalSeen)
			assert.Equal(t, 100, last)
			return
		}
	}
}

func TestCancelMidRange(t *testing.T) {
	proc := &stubProcessor{
		symbolsPerPage: 1,
		entered:        make(chan int64),
		proceed:        make(chan struct{}),
	}
	m := newTestManager(t, proc, 1)
	ctx := context.Background()

	j, err := m.Start(ctx, 10, 20, detect.DefaultParams())
	require.NoError(t, err)

	// Let pages 10-14 finish, then cancel while page 15 is in flight.
	for p := int64(10); p < 15; p++ {
		assert.Equal(t, p, <-proc.entered)
		proc.proceed <- struct{}{}
	}
	assert.Equal(t, int64(15), <-proc.entered)
	_, err = m.Cancel(ctx, j.ID)
	require.NoError(t, err)
	proc.proceed <- struct{}{} // in-flight page is allowed to finish
	m.Wait()

	final, err := m.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, final.Status)
	assert.Equal(t, []int64{10, 11, 12, 13, 14, 15}, proc.processedPages())
	assert.Equal(t, 6, final.SymbolsExtracted)
	assert.Less(t, final.Progress, 100)

	// Cancelled jobs release their pages.
	restart, err := m.Start(ctx, 16, 16, detect.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, int64(16), <-proc.entered)
	proc.proceed <- struct{}{}
	m.Wait()

	done, err := m.Get(ctx, restart.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
}

func TestCancelRejectsTerminalAndUnknownJobs(t *testing.T) {
	proc := &stubProcessor{symbolsPerPage: 1}
	m := newTestManager(t, proc, 1)
	ctx := context.Background()

	j, err := m.Start(ctx, 1, 1, detect.DefaultParams())
	require.NoError(t, err)
	m.Wait()

	_, err = m.Cancel(ctx, j.ID)
	assert.ErrorIs(t, err, ErrAlreadyFinished)

	_, err = m.Cancel(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnreadablePageIsPageScoped(t *testing.T) {
	proc := &stubProcessor{
		symbolsPerPage: 3,
		failPages: map[int64]error{
			2: &page.ImageReadError{PageID: 2, Err: errors.New("corrupt scan")},
		},
	}
	m := newTestManager(t, proc, 1)

	j, err := m.Start(context.Background(), 1, 3, detect.DefaultParams())
	require.NoError(t, err)
	m.Wait()

	final, err := m.Get(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, final.Status)
	require.NotNil(t, final.ErrorDetail)
	assert.Contains(t, *final.ErrorDetail, "page 2")

	// Pages 1 and 3 still contributed.
	assert.Equal(t, 6, final.SymbolsExtracted)
}

func TestPersistenceFailureAbortsJob(t *testing.T) {
	proc := &stubProcessor{
		symbolsPerPage: 1,
		failPages: map[int64]error{
			2: fmt.Errorf("write symbols: disk full"),
		},
	}
	m := newTestManager(t, proc, 1)

	j, err := m.Start(context.Background(), 1, 4, detect.DefaultParams())
	require.NoError(t, err)
	m.Wait()

	final, err := m.Get(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, final.Status)
	require.NotNil(t, final.ErrorDetail)
	assert.Contains(t, *final.ErrorDetail, "disk full")

	// Page 1's work is kept, pages 3-4 were never started.
	assert.Equal(t, []int64{1}, proc.processedPages())
}

func TestJobsRetainedForHistory(t *testing.T) {
	proc := &stubProcessor{symbolsPerPage: 1}
	m := newTestManager(t, proc, 1)
	ctx := context.Background()

	first, err := m.Start(ctx, 1, 1, detect.DefaultParams())
	require.NoError(t, err)
	m.Wait()
	second, err := m.Start(ctx, 2, 2, detect.DefaultParams())
	require.NoError(t, err)
	m.Wait()

	jobs, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	ids := []uuid.UUID{jobs[0].ID, jobs[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}

func TestMarkInterrupted(t *testing.T) {
	db, err := storage.OpenMemory()
	require.NoError(t, err)
	defer db.Close()
	store := NewStore(db)
	ctx := context.Background()

	running := &Job{
		ID: uuid.New(), StartPageID: 1, EndPageID: 5,
		Params: detect.DefaultParams(), Status: StatusDetecting,
		StartedAt: time.Now().UTC(),
	}
	done := &Job{
		ID: uuid.New(), StartPageID: 6, EndPageID: 6,
		Params: detect.DefaultParams(), Status: StatusCompleted, Progress: 100,
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Create(ctx, running))
	require.NoError(t, store.Create(ctx, done))

	n, err := store.MarkInterrupted(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	j, err := store.Get(ctx, running.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, j.Status)
	require.NotNil(t, j.ErrorDetail)
	assert.Contains(t, *j.ErrorDetail, "restart")

	j, err = store.Get(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, j.Status)
}
