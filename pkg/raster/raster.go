// Package raster is the boundary to the page rasterization and document
// structure engine (MuPDF via go-fitz). It opens the source document once,
// renders per-page rasters at the recognition resolution, and probes pages
// for pre-existing text content.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Page is one loaded page: its geometry in page user-space (points) and the
// raster rendered for recognition. The raster never replaces the stored page
// content; it exists only to feed the recognition engine.
type Page struct {
	Index    int         // Zero-based page index
	WidthPt  float64     // Page width in points
	HeightPt float64     // Page height in points
	DPI      float64     // Resolution the raster was rendered at
	Image    image.Image // Recognition raster
	HasText  bool        // Page already exposes extractable text
}

// Source is an opened input document. It owns the underlying engine handle
// and the raw source bytes; Close releases the handle.
type Source struct {
	doc  *fitz.Document
	data []byte
	path string
}

// Open reads and opens a source document from disk.
// An unreadable or structurally broken document is a document-fatal condition
// for the caller to classify.
func Open(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", path, err)
	}
	src, err := OpenBytes(data)
	if err != nil {
		return nil, err
	}
	src.path = path
	return src, nil
}

// OpenBytes opens a source document held in memory.
func OpenBytes(data []byte) (*Source, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("source document is empty")
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	return &Source{doc: doc, data: data}, nil
}

// Close releases the engine handle.
func (s *Source) Close() error {
	if s.doc != nil {
		err := s.doc.Close()
		s.doc = nil
		return err
	}
	return nil
}

// Data returns the raw source bytes. Callers must not mutate them.
func (s *Source) Data() []byte { return s.data }

// Path returns the source path, or "" for in-memory sources.
func (s *Source) Path() string { return s.path }

// PageCount reports the number of pages in the source.
func (s *Source) PageCount() int { return s.doc.NumPage() }

// Load renders page index at the given resolution and probes it for existing
// text. Failures here are page-local: a damaged page must not take the
// document down.
func (s *Source) Load(ctx context.Context, index int, dpi float64) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= s.doc.NumPage() {
		return nil, fmt.Errorf("page index %d out of range (document has %d pages)", index, s.doc.NumPage())
	}
	if dpi <= 0 {
		dpi = 300
	}

	bound, err := s.doc.Bound(index)
	if err != nil {
		return nil, fmt.Errorf("page %d geometry: %w", index+1, err)
	}

	img, err := s.doc.ImageDPI(index, dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", index+1, err)
	}

	text, err := s.doc.Text(index)
	if err != nil {
		// A text extraction failure only means the probe is inconclusive;
		// the page is treated as untagged.
		text = ""
	}

	return &Page{
		Index:    index,
		WidthPt:  float64(bound.Dx()),
		HeightPt: float64(bound.Dy()),
		DPI:      dpi,
		Image:    img,
		HasText:  strings.TrimSpace(text) != "",
	}, nil
}

// Text returns the text content the engine extracts from page index.
func (s *Source) Text(index int) (string, error) {
	if index < 0 || index >= s.doc.NumPage() {
		return "", fmt.Errorf("page index %d out of range (document has %d pages)", index, s.doc.NumPage())
	}
	text, err := s.doc.Text(index)
	if err != nil {
		return "", fmt.Errorf("extract text from page %d: %w", index+1, err)
	}
	return text, nil
}

// EncodePNG encodes an image for submission to a recognition engine.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode raster: %w", err)
	}
	return buf.Bytes(), nil
}
