package page

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/tiff"
)

// LoadImage decodes the page's scan from disk. Relative image paths are
// resolved against root. Failures are wrapped in ImageReadError so callers
// can treat them as page-scoped.
func LoadImage(root string, p *Page) (image.Image, error) {
	path := p.ImagePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &ImageReadError{PageID: p.ID, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &ImageReadError{PageID: p.ID, Err: fmt.Errorf("decode: %w", err)}
	}

	b := img.Bounds()
	if b.Dx() != p.Width || b.Dy() != p.Height {
		return nil, &ImageReadError{
			PageID: p.ID,
			Err:    fmt.Errorf("image is %dx%d but page record says %dx%d", b.Dx(), b.Dy(), p.Width, p.Height),
		}
	}
	return img, nil
}
