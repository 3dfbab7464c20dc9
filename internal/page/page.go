// Package page provides the manuscript page contract consumed from the
// upload subsystem: page records and their scanned images.
package page

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"manuscript-symbols/internal/storage"
	"manuscript-symbols/pkg/geometry"
)

// ErrNotFound is returned when a page id does not exist.
var ErrNotFound = errors.New("page not found")

// Page is a manuscript page record. Pages are immutable after upload and
// owned by the upload subsystem; this service only reads them.
type Page struct {
	ID        int64  `json:"id"`
	Folio     string `json:"folio"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Section   string `json:"section"`
	ImagePath string `json:"imagePath"`
}

// Bounds returns the page extent as a rectangle at the origin.
func (p *Page) Bounds() geometry.RectInt {
	return geometry.RectInt{Width: p.Width, Height: p.Height}
}

// ImageReadError marks a page whose image could not be loaded. It is
// page-scoped: an extraction job records it without discarding work done
// on other pages.
type ImageReadError struct {
	PageID int64
	Err    error
}

func (e *ImageReadError) Error() string {
	return fmt.Sprintf("page %d: read image: %v", e.PageID, e.Err)
}

func (e *ImageReadError) Unwrap() error { return e.Err }

// Store reads page records from the shared database.
type Store struct {
	db storage.DB
}

// NewStore creates a page store.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// Get retrieves a page by id.
func (s *Store) Get(ctx context.Context, id int64) (*Page, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, folio, width, height, section, image_path FROM pages WHERE id = ?`, id)

	p := &Page{}
	err := row.Scan(&p.ID, &p.Folio, &p.Width, &p.Height, &p.Section, &p.ImagePath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List returns pages ordered by id with offset/limit pagination.
func (s *Store) List(ctx context.Context, offset, limit int) ([]*Page, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, folio, width, height, section, image_path
		 FROM pages ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*Page
	for rows.Next() {
		p := &Page{}
		if err := rows.Scan(&p.ID, &p.Folio, &p.Width, &p.Height, &p.Section, &p.ImagePath); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// Add inserts a page record. The upload subsystem owns page creation; this
// exists for the operator CLI and tests, which stand in for it.
func (s *Store) Add(ctx context.Context, p *Page) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (folio, width, height, section, image_path) VALUES (?, ?, ?, ?, ?)`,
		p.Folio, p.Width, p.Height, p.Section, p.ImagePath)
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}
