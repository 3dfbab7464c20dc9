package symbol

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"manuscript-symbols/internal/signature"
	"manuscript-symbols/internal/storage"
	"manuscript-symbols/pkg/geometry"

	"github.com/rs/zerolog"
)

// Repository stores symbols in the shared SQLite database. Writes are
// serialized by a repository-level mutex so frequency counts stay
// consistent when concurrent jobs persist symbols whose signatures
// collide.
type Repository struct {
	db  storage.TxDB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewRepository creates a symbol repository.
func NewRepository(db storage.TxDB, logger zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: logger.With().Str("component", "symbol-repository").Logger(),
	}
}

// selectCols lists symbol columns plus the derived frequency: the size of
// the symbol's signature bucket across the whole manuscript.
const selectCols = `
	s.id, s.page_id, s.x, s.y, s.width, s.height, s.category,
	s.signature, s.mean_intensity, s.metadata, s.extracted_at,
	(SELECT COUNT(*) FROM symbols b WHERE b.signature = s.signature)`

// ReplacePageSymbols atomically replaces the page's symbol set with the
// given records: old symbols are deleted and the new ones inserted in a
// single transaction, so cross-manuscript frequency counts never observe a
// partial replacement. Records must already be in reading order; insert
// order assigns ids, which keeps ids stable across re-extractions.
func (r *Repository) ReplacePageSymbols(ctx context.Context, pageID int64, records []Record) ([]*Symbol, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE page_id = ?`, pageID); err != nil {
		return nil, fmt.Errorf("delete page symbols: %w", err)
	}

	now := time.Now().UTC()
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		meta, err := encodeMetadata(rec.Metadata)
		if err != nil {
			return nil, err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO symbols (page_id, x, y, width, height, signature, mean_intensity, metadata, extracted_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			pageID, rec.Box.X, rec.Box.Y, rec.Box.Width, rec.Box.Height,
			rec.Signature, rec.MeanIntensity, meta, now)
		if err != nil {
			return nil, fmt.Errorf("insert symbol: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace: %w", err)
	}

	r.log.Debug().Int64("page_id", pageID).Int("count", len(ids)).Msg("replaced page symbols")

	symbols := make([]*Symbol, 0, len(ids))
	for _, id := range ids {
		s, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, nil
}

// Insert persists a manually created symbol after validating its bounding
// box against the owning page's pixel dimensions.
func (r *Repository) Insert(ctx context.Context, s *Symbol) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pw, ph int
	err := r.db.QueryRowContext(ctx, `SELECT width, height FROM pages WHERE id = ?`, s.PageID).Scan(&pw, &ph)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("page %d: %w", s.PageID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	pageBounds := geometry.RectInt{Width: pw, Height: ph}
	if s.Width < 1 || s.Height < 1 || !pageBounds.ContainsRect(s.Box()) {
		return fmt.Errorf("bounding box %+v outside page %dx%d", s.Box(), pw, ph)
	}

	meta, err := encodeMetadata(s.Metadata)
	if err != nil {
		return err
	}
	if s.ExtractedAt.IsZero() {
		s.ExtractedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO symbols (page_id, x, y, width, height, category, signature, mean_intensity, metadata, extracted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.PageID, s.X, s.Y, s.Width, s.Height, s.Category,
		s.Signature, s.MeanIntensity, meta, s.ExtractedAt)
	if err != nil {
		return fmt.Errorf("insert symbol: %w", err)
	}
	if s.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	fresh, err := r.getByIDLocked(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *fresh
	return nil
}

// GetByID retrieves a symbol with its current frequency.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Symbol, error) {
	return r.getByIDLocked(ctx, id)
}

func (r *Repository) getByIDLocked(ctx context.Context, id int64) (*Symbol, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectCols+` FROM symbols s WHERE s.id = ?`, id)
	s, err := scanSymbol(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// ListByPage returns a page's symbols in insertion order, which the
// extraction pipeline guarantees is reading order.
func (r *Repository) ListByPage(ctx context.Context, pageID int64) ([]*Symbol, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectCols+` FROM symbols s WHERE s.page_id = ? ORDER BY s.id`, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ListSimilar returns the other symbols in the same signature bucket,
// ranked by mean-intensity distance from the reference symbol.
func (r *Repository) ListSimilar(ctx context.Context, id int64) ([]*Symbol, error) {
	base, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectCols+` FROM symbols s WHERE s.signature = ? AND s.id != ? ORDER BY s.id`,
		base.Signature, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	similar, err := collect(rows)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(similar, func(i, j int) bool {
		di := signature.IntensityDistance(base.MeanIntensity, similar[i].MeanIntensity)
		dj := signature.IntensityDistance(base.MeanIntensity, similar[j].MeanIntensity)
		return di < dj
	})
	return similar, nil
}

// SetCategory updates a symbol's category and returns the updated symbol.
// Setting the current category again is a no-op that still succeeds.
func (r *Repository) SetCategory(ctx context.Context, id int64, category string) (*Symbol, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `UPDATE symbols SET category = ? WHERE id = ?`, category, id)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return r.getByIDLocked(ctx, id)
}

// FrequencyReport returns signature bucket sizes across the manuscript,
// most frequent first.
func (r *Repository) FrequencyReport(ctx context.Context) ([]FrequencyEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT signature, COUNT(*) AS n FROM symbols GROUP BY signature ORDER BY n DESC, signature`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var report []FrequencyEntry
	for rows.Next() {
		var e FrequencyEntry
		if err := rows.Scan(&e.Signature, &e.Count); err != nil {
			return nil, err
		}
		report = append(report, e)
	}
	return report, rows.Err()
}

// DistributionByCategory returns symbol counts per category; unclassified
// symbols appear under the empty category.
func (r *Repository) DistributionByCategory(ctx context.Context) ([]CategoryCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT COALESCE(category, ''), COUNT(*) AS n FROM symbols
		 GROUP BY COALESCE(category, '') ORDER BY n DESC, category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dist []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, err
		}
		dist = append(dist, c)
	}
	return dist, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSymbol(row rowScanner) (*Symbol, error) {
	s := &Symbol{}
	var meta string
	err := row.Scan(&s.ID, &s.PageID, &s.X, &s.Y, &s.Width, &s.Height,
		&s.Category, &s.Signature, &s.MeanIntensity, &meta, &s.ExtractedAt, &s.Frequency)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(meta), &s.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata for symbol %d: %w", s.ID, err)
	}
	if len(s.Metadata) == 0 {
		s.Metadata = nil
	}
	return s, nil
}

func collect(rows *sql.Rows) ([]*Symbol, error) {
	var symbols []*Symbol
	for rows.Next() {
		s, err := scanSymbol(rows)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

func encodeMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(data), nil
}
