// Package ocr defines the recognition adapter boundary: a narrow Engine
// interface that turns one page raster into structured hOCR and the engine
// implementations behind it.
//
// Engines are injectable. The pipeline never talks to a recognition service
// directly, so tests substitute the Fake engine for deterministic runs and
// deployments choose between the local Tesseract engine and the remote
// Document AI engine.
//
// Main Types:
//
// - Engine: one raster in, one hocr.Page out
// - Tesseract: local recognition via gosseract
// - DocAI: remote recognition via Google Document AI
// - Fake: canned results for tests and dry runs
package ocr

import (
	"context"

	"github.com/halldor/pdfgraft/pkg/hocr"
)

// Input encapsulates a single raster image submitted for recognition.
type Input struct {
	// Image is the encoded raster payload.
	Image []byte
	// Format declares the image content type (e.g. "image/png").
	Format string
	// PageIndex links the input back to the zero-based page it came from.
	PageIndex int
	// DPI carries the effective resolution of the raster; engines use it for
	// layout heuristics. Zero means unknown.
	DPI int
	// Languages lists engine language hints (e.g. "eng", "deu").
	Languages []string
	// Metadata passes engine-specific knobs (e.g. "tessedit_pageseg_mode")
	// without hard-coding them into the API surface.
	Metadata map[string]string
}

// Option mutates a recognition input before submission.
type Option func(*Input)

// WithLanguages sets language hints on the input.
func WithLanguages(langs ...string) Option {
	return func(in *Input) { in.Languages = append([]string(nil), langs...) }
}

// WithDPI overrides the resolution hint on the input.
func WithDPI(dpi int) Option {
	return func(in *Input) { in.DPI = dpi }
}

// WithVariable sets an engine-specific variable on the input.
func WithVariable(key, value string) Option {
	return func(in *Input) {
		if in.Metadata == nil {
			in.Metadata = make(map[string]string)
		}
		in.Metadata[key] = value
	}
}

// NewInput builds an input for a page raster with the given options applied.
func NewInput(image []byte, format string, pageIndex int, opts ...Option) Input {
	in := Input{Image: image, Format: format, PageIndex: pageIndex}
	for _, opt := range opts {
		opt(&in)
	}
	return in
}

// Engine is the recognition provider contract: one image in, one page of
// structured recognition out. Recognize honors ctx cancellation and deadline;
// a deadline hit surfaces as ctx.Err so callers can classify it as a timeout.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (hocr.Page, error)
}

// guard runs fn on its own goroutine and returns early when ctx is done.
// Engines whose underlying client has no cancellation hook use it so a page
// deadline is still honored; the abandoned call finishes in the background
// and its result is discarded.
func guard(ctx context.Context, fn func() (hocr.Page, error)) (hocr.Page, error) {
	type outcome struct {
		page hocr.Page
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		page, err := fn()
		ch <- outcome{page, err}
	}()
	select {
	case <-ctx.Done():
		return hocr.Page{}, ctx.Err()
	case out := <-ch:
		return out.page, out.err
	}
}
