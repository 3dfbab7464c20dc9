// Package extract runs the per-page extraction pipeline: load the scan,
// normalize it, detect candidate regions, compute similarity descriptors,
// and persist the resulting symbol set.
package extract

import (
	"context"
	"errors"
	"fmt"

	"manuscript-symbols/internal/detect"
	"manuscript-symbols/internal/job"
	"manuscript-symbols/internal/page"
	"manuscript-symbols/internal/preprocess"
	"manuscript-symbols/internal/signature"
	"manuscript-symbols/internal/symbol"

	"github.com/rs/zerolog"
)

// Pipeline processes one page at a time on behalf of the job manager. It
// is stateless between pages; all state lives in the stores.
type Pipeline struct {
	pages     *page.Store
	symbols   *symbol.Repository
	detector  detect.Detector
	imageRoot string
	log       zerolog.Logger
}

// NewPipeline assembles a pipeline around the given detector. Pass
// detect.Simulator for demo installations without manuscript scans.
func NewPipeline(pages *page.Store, symbols *symbol.Repository, detector detect.Detector, imageRoot string, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		pages:     pages,
		symbols:   symbols,
		detector:  detector,
		imageRoot: imageRoot,
		log:       logger.With().Str("component", "pipeline").Logger(),
	}
}

// ProcessPage runs the full pipeline for one page and returns the number
// of symbols persisted. A page that cannot be read (missing record,
// unreadable or mismatched image) yields an ImageReadError so the owning
// job can record it and move on; any other error is a hard failure.
func (p *Pipeline) ProcessPage(ctx context.Context, pageID int64, params detect.Params, observe func(job.Status)) (int, error) {
	pg, err := p.pages.Get(ctx, pageID)
	if errors.Is(err, page.ErrNotFound) {
		return 0, &page.ImageReadError{PageID: pageID, Err: err}
	}
	if err != nil {
		return 0, fmt.Errorf("load page %d: %w", pageID, err)
	}

	observe(job.StatusPreprocessing)

	img, err := page.LoadImage(p.imageRoot, pg)
	if err != nil {
		return 0, err
	}
	src, err := preprocess.ImageToMat(img)
	if err != nil {
		return 0, &page.ImageReadError{PageID: pageID, Err: err}
	}
	defer src.Close()

	pre, err := preprocess.Run(src, params.Enhancement, params.IgnoreMargins)
	if err != nil {
		return 0, fmt.Errorf("preprocess page %d: %w", pageID, err)
	}
	defer pre.Gray.Close()

	observe(job.StatusDetecting)

	candidates, err := p.detector.DetectRegions(pre.Gray, params)
	if err != nil {
		return 0, fmt.Errorf("detect page %d: %w", pageID, err)
	}
	boxes := detect.FilterRegions(candidates, params, pg.Bounds(), pre.Interior)

	p.log.Debug().
		Int64("page_id", pageID).
		Int("candidates", len(candidates)).
		Int("accepted", len(boxes)).
		Msg("detection finished")

	observe(job.StatusFeatureExtraction)

	records := make([]symbol.Record, 0, len(boxes))
	for _, box := range boxes {
		desc, err := signature.Compute(img, box)
		if err != nil {
			return 0, fmt.Errorf("describe region %+v on page %d: %w", box, pageID, err)
		}
		records = append(records, symbol.Record{
			Box:           box,
			Signature:     desc.Signature,
			MeanIntensity: desc.MeanIntensity,
		})
	}

	observe(job.StatusClassifying)

	// Extraction never assigns categories; re-running a page resets its
	// symbols to unclassified. Classification is a separate, manual step.
	symbols, err := p.symbols.ReplacePageSymbols(ctx, pageID, records)
	if err != nil {
		return 0, fmt.Errorf("persist symbols for page %d: %w", pageID, err)
	}
	return len(symbols), nil
}
