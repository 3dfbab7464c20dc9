package classify

import (
	"context"
	"strings"
	"testing"

	"manuscript-symbols/internal/storage"
	"manuscript-symbols/internal/symbol"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Service, *symbol.Repository, []int64) {
	t.Helper()
	db, err := storage.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = db.ExecContext(ctx,
		`INSERT INTO pages (folio, width, height, section, image_path) VALUES ('f1r', 400, 300, '', 'f1r.png')`)
	require.NoError(t, err)

	repo := symbol.NewRepository(db, zerolog.Nop())
	ids := make([]int64, 0, 3)
	for i := 0; i < 3; i++ {
		s := &symbol.Symbol{PageID: 1, X: 10 + i*50, Y: 10, Width: 20, Height: 20, Signature: "00000000000000ff"}
		require.NoError(t, repo.Insert(ctx, s))
		ids = append(ids, s.ID)
	}
	return NewService(repo, zerolog.Nop()), repo, ids
}

func TestCategorize(t *testing.T) {
	svc, repo, ids := setup(t)
	ctx := context.Background()

	s, err := svc.Categorize(ctx, ids[0], "gallows")
	require.NoError(t, err)
	require.NotNil(t, s.Category)
	assert.Equal(t, "gallows", *s.Category)

	// Re-assigning the same category is idempotent.
	s, err = svc.Categorize(ctx, ids[0], "gallows")
	require.NoError(t, err)
	assert.Equal(t, "gallows", *s.Category)

	// Reassignment replaces the category.
	s, err = svc.Categorize(ctx, ids[0], "character")
	require.NoError(t, err)
	assert.Equal(t, "character", *s.Category)

	stored, err := repo.GetByID(ctx, ids[0])
	require.NoError(t, err)
	require.NotNil(t, stored.Category)
	assert.Equal(t, "character", *stored.Category)
}

func TestCategorizeRejectsBadInput(t *testing.T) {
	svc, _, ids := setup(t)
	ctx := context.Background()

	_, err := svc.Categorize(ctx, ids[0], "")
	assert.ErrorIs(t, err, ErrInvalidCategory)

	_, err = svc.Categorize(ctx, ids[0], " padded ")
	assert.ErrorIs(t, err, ErrInvalidCategory)

	_, err = svc.Categorize(ctx, ids[0], strings.Repeat("x", maxCategoryLen+1))
	assert.ErrorIs(t, err, ErrInvalidCategory)

	_, err = svc.Categorize(ctx, 9999, "gallows")
	assert.ErrorIs(t, err, symbol.ErrNotFound)
}

func TestCategorizeBulkNeverAborts(t *testing.T) {
	svc, repo, ids := setup(t)
	ctx := context.Background()

	batch := []int64{ids[0], 9999, ids[2]}
	results, err := svc.CategorizeBulk(ctx, batch, "ligature")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	require.NotNil(t, results[1].Error)
	assert.True(t, results[2].OK)

	// The good assignments landed despite the bad id in the middle.
	for _, id := range []int64{ids[0], ids[2]} {
		s, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, s.Category)
		assert.Equal(t, "ligature", *s.Category)
	}
	s, err := repo.GetByID(ctx, ids[1])
	require.NoError(t, err)
	assert.Nil(t, s.Category)
}

func TestCategorizeBulkValidation(t *testing.T) {
	svc, _, ids := setup(t)
	ctx := context.Background()

	_, err := svc.CategorizeBulk(ctx, nil, "gallows")
	assert.ErrorIs(t, err, ErrInvalidCategory)

	_, err = svc.CategorizeBulk(ctx, ids, "")
	assert.ErrorIs(t, err, ErrInvalidCategory)
}
