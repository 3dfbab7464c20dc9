package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"manuscript-symbols/internal/detect"
	"manuscript-symbols/internal/storage"

	"github.com/google/uuid"
)

// Store persists jobs for polling reads and audit history.
type Store struct {
	db storage.DB
}

// NewStore creates a job store.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new job row.
func (s *Store) Create(ctx context.Context, j *Job) error {
	params, err := json.Marshal(j.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO extraction_jobs
		 (id, start_page_id, end_page_id, params, status, progress, symbols_extracted, started_at, completed_at, error_detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID.String(), j.StartPageID, j.EndPageID, string(params), string(j.Status),
		j.Progress, j.SymbolsExtracted, j.StartedAt, j.CompletedAt, j.ErrorDetail)
	return err
}

// Update rewrites a job's mutable fields.
func (s *Store) Update(ctx context.Context, j *Job) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE extraction_jobs
		 SET status = ?, progress = ?, symbols_extracted = ?, completed_at = ?, error_detail = ?
		 WHERE id = ?`,
		string(j.Status), j.Progress, j.SymbolsExtracted, j.CompletedAt, j.ErrorDetail, j.ID.String())
	return err
}

// Get retrieves a job by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, start_page_id, end_page_id, params, status, progress, symbols_extracted,
		        started_at, completed_at, error_detail
		 FROM extraction_jobs WHERE id = ?`, id.String())
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return j, err
}

// List returns all jobs, newest first.
func (s *Store) List(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, start_page_id, end_page_id, params, status, progress, symbols_extracted,
		        started_at, completed_at, error_detail
		 FROM extraction_jobs ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// MarkInterrupted fails every non-terminal job, for startup recovery after
// a crash or restart: their worker goroutines no longer exist, so leaving
// them open would block their pages forever.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE extraction_jobs
		 SET status = ?, completed_at = CURRENT_TIMESTAMP, error_detail = 'interrupted by service restart'
		 WHERE status NOT IN (?, ?, ?)`,
		string(StatusFailed), string(StatusCompleted), string(StatusFailed), string(StatusCancelled))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	j := &Job{}
	var (
		id        string
		params    string
		status    string
		completed sql.NullTime
		detail    sql.NullString
	)
	err := row.Scan(&id, &j.StartPageID, &j.EndPageID, &params, &status,
		&j.Progress, &j.SymbolsExtracted, &j.StartedAt, &completed, &detail)
	if err != nil {
		return nil, err
	}

	if j.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("malformed job id %q: %w", id, err)
	}
	j.Params = detect.DefaultParams()
	if err := json.Unmarshal([]byte(params), &j.Params); err != nil {
		return nil, fmt.Errorf("decode params for job %s: %w", id, err)
	}
	j.Status = Status(status)
	if completed.Valid {
		t := completed.Time
		j.CompletedAt = &t
	}
	if detail.Valid {
		d := detail.String
		j.ErrorDetail = &d
	}
	return j, nil
}
