package page

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"manuscript-symbols/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: 200})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestStoreRoundTrip(t *testing.T) {
	db, err := storage.OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	ctx := context.Background()

	p := &Page{Folio: "f1r", Width: 400, Height: 300, Section: "herbal", ImagePath: "f1r.png"}
	require.NoError(t, store.Add(ctx, p))
	require.NotZero(t, p.ID)

	got, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = store.Get(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreListPagination(t *testing.T) {
	db, err := storage.OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Add(ctx, &Page{Folio: "f", Width: 10, Height: 10, ImagePath: "x.png"}))
	}

	first, err := store.List(ctx, 0, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)

	rest, err := store.List(ctx, 3, 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Greater(t, rest[0].ID, first[2].ID)
}

func TestLoadImage(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "f1r.png"), 40, 30)

	p := &Page{ID: 1, Folio: "f1r", Width: 40, Height: 30, ImagePath: "f1r.png"}
	img, err := LoadImage(root, p)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())

	var imgErr *ImageReadError

	// Missing file.
	missing := &Page{ID: 2, Width: 40, Height: 30, ImagePath: "absent.png"}
	_, err = LoadImage(root, missing)
	require.ErrorAs(t, err, &imgErr)
	assert.EqualValues(t, 2, imgErr.PageID)

	// Not an image.
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.png"), []byte("not a png"), 0o600))
	bad := &Page{ID: 3, Width: 40, Height: 30, ImagePath: "bad.png"}
	_, err = LoadImage(root, bad)
	assert.ErrorAs(t, err, &imgErr)

	// Recorded dimensions disagree with the file.
	stale := &Page{ID: 4, Width: 99, Height: 30, ImagePath: "f1r.png"}
	_, err = LoadImage(root, stale)
	assert.ErrorAs(t, err, &imgErr)
}
