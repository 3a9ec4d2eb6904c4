// Package pipeline drives the per-page state machine and the scheduler that
// runs it across a document with bounded concurrency.
//
// Each page moves through Load → Preprocess → Recognize → Graft → Validate
// and terminates in exactly one Outcome: Success (page plus a graft
// Instruction), Skipped (page already carries text and reprocessing was not
// forced), or Failed (a page-local error). Page failures never abort the
// document unless the abort policy says so; the one document-fatal condition
// is a source that cannot be opened at all.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/halldor/pdfgraft/pkg/graft"
	"github.com/halldor/pdfgraft/pkg/hocr"
	"github.com/halldor/pdfgraft/pkg/ocr"
	"github.com/halldor/pdfgraft/pkg/prep"
	"github.com/halldor/pdfgraft/pkg/raster"
)

// runPage runs the full state machine for one page and always returns a
// terminal Outcome. All errors are classified into the taxonomy here so the
// scheduler and assembler deal in data, not control flow.
func runPage(ctx context.Context, src *raster.Source, index int, tagged bool, cfg Config) Outcome {
	start := time.Now()
	pageNum := index + 1
	log := cfg.Log.With().Int("page", pageNum).Logger()

	fail := func(reached State, err error) Outcome {
		log.Debug().Str("state", reached.String()).Err(err).Msg("page failed")
		return Outcome{
			Index:   index,
			Status:  StatusFailed,
			Reached: reached,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}

	// Load
	page, err := src.Load(ctx, index, float64(cfg.DPI))
	if err != nil {
		return fail(StateNone, classify(err, &LoadError{Page: pageNum, Err: err}, pageNum))
	}
	log.Debug().Str("state", StateLoaded.String()).Msg("page loaded")

	// Skipped is only reachable from Loaded: a page that already carries a
	// text layer passes through untouched unless reprocessing is forced.
	if (page.HasText || tagged) && !cfg.Force {
		log.Debug().Msg("page already tagged, skipping")
		return Outcome{
			Index:   index,
			Status:  StatusSkipped,
			Reached: StateSkipped,
			Page:    page,
			Elapsed: time.Since(start),
		}
	}

	// Preprocess: normalization feeds recognition only, the stored page
	// content is never replaced.
	b := page.Image.Bounds()
	rasterW, rasterH := float64(b.Dx()), float64(b.Dy())
	norm := prep.Normalize(page.Image, prep.Config{
		Deskew:      cfg.Deskew,
		Despeckle:   cfg.Despeckle,
		CropMargins: cfg.CropMargins,
		MaxSkew:     cfg.MaxSkew,
	})
	if norm.Angle != 0 {
		log.Debug().Float64("angle", norm.Angle).Msg("deskewed recognition raster")
	}

	// Recognize
	png, err := raster.EncodePNG(norm.Image)
	if err != nil {
		return fail(StatePreprocessed, &RecognitionError{Page: pageNum, Engine: cfg.Engine.Name(), Err: err})
	}
	input := ocr.NewInput(png, "image/png", index,
		ocr.WithLanguages(cfg.Languages...),
		ocr.WithDPI(cfg.DPI),
	)
	recognized, err := cfg.Engine.Recognize(ctx, input)
	if err != nil {
		return fail(StatePreprocessed, classify(err, &RecognitionError{Page: pageNum, Engine: cfg.Engine.Name(), Err: err}, pageNum))
	}
	log.Debug().Int("words", len(hocr.Words(&recognized))).Str("state", StateRecognized.String()).Msg("page recognized")

	// Graft: map recognition-space onto page user-space.
	transform, err := graft.NewTransform(page.WidthPt, page.HeightPt, rasterW, rasterH, graft.Normalization{
		Angle:   norm.Angle,
		PivotX:  norm.PivotX,
		PivotY:  norm.PivotY,
		OffsetX: norm.OffsetX,
		OffsetY: norm.OffsetY,
	})
	if err != nil {
		return fail(StateRecognized, &GraftError{Page: pageNum, Err: err})
	}
	instruction, dropped, err := graft.Build(&recognized, transform, index, page.WidthPt, page.HeightPt)
	if err != nil {
		return fail(StateRecognized, &GraftError{Page: pageNum, Err: err})
	}
	if dropped > 0 {
		log.Warn().Int("dropped", dropped).Msg("words outside page bounds were dropped")
	}

	// Validate: page-level sanity before handing the pair to the assembler.
	if err := validatePage(page, &instruction); err != nil {
		return fail(StateGrafted, &GraftError{Page: pageNum, Err: err})
	}

	log.Debug().Str("state", StateValidated.String()).Dur("elapsed", time.Since(start)).Msg("page done")
	return Outcome{
		Index:       index,
		Status:      StatusSuccess,
		Reached:     StateValidated,
		Page:        page,
		Instruction: &instruction,
		Sidecar:     &recognized,
		Dropped:     dropped,
		Elapsed:     time.Since(start),
	}
}

// validatePage checks that grafting did not disturb page geometry and that
// every placed word sits within the page bounds.
func validatePage(page *raster.Page, inst *graft.Instruction) error {
	if inst.Width != page.WidthPt || inst.Height != page.HeightPt {
		return fmt.Errorf("instruction geometry %gx%g does not match page %gx%g",
			inst.Width, inst.Height, page.WidthPt, page.HeightPt)
	}
	for _, w := range inst.Words {
		if w.X+w.W <= 0 || w.Y+w.H <= 0 || w.X >= inst.Width || w.Y >= inst.Height {
			return fmt.Errorf("placed word %q escaped page bounds", w.Text)
		}
	}
	return nil
}

// classify turns a context deadline hit into a TimeoutError and leaves
// anything else as the given page-local error.
func classify(err error, fallback error, pageNum int) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Page: pageNum, Err: err}
	}
	return fallback
}

// pageLayerRe matches the per-page graft layer suffix.
var pageLayerRe = regexp.MustCompile(`\(Page\s*(\d+)\)`)

// taggedPages scans the source once for existing graft layers and reports
// which 1-based pages already carry one. A bare (un-numbered) layer match
// tags every page.
func taggedPages(data []byte, layerName string, pageCount int) map[int]bool {
	tagged := make(map[int]bool)
	check, err := graft.CheckLayer(data, layerName)
	if err != nil || !check.HasLayer {
		return tagged
	}
	for _, layer := range check.Layers {
		m := pageLayerRe.FindStringSubmatch(layer)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		if n >= 1 && n <= pageCount {
			tagged[n] = true
		}
	}
	if len(tagged) == 0 {
		// Layer present but not page-numbered: treat the whole document as tagged.
		for n := 1; n <= pageCount; n++ {
			tagged[n] = true
		}
	}
	return tagged
}
