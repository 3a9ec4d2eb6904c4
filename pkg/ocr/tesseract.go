package ocr

import (
	"context"
	"fmt"
	"strconv"

	"github.com/otiai10/gosseract/v2"

	"github.com/halldor/pdfgraft/pkg/hocr"
)

// Tesseract implements Engine on top of a local Tesseract installation via
// the gosseract client. Each Recognize call owns a fresh client, so the
// engine is safe for concurrent use by multiple pipeline workers.
type Tesseract struct {
	clientFactory func() *gosseract.Client
}

// NewTesseract constructs a Tesseract-backed recognition engine.
func NewTesseract() *Tesseract {
	return &Tesseract{clientFactory: gosseract.NewClient}
}

func (e *Tesseract) Name() string { return "tesseract" }

// Recognize performs recognition on a single raster and returns the page as
// parsed hOCR.
func (e *Tesseract) Recognize(ctx context.Context, in Input) (hocr.Page, error) {
	return guard(ctx, func() (hocr.Page, error) {
		c := e.clientFactory()
		defer c.Close()

		if err := c.SetImageFromBytes(in.Image); err != nil {
			return hocr.Page{}, fmt.Errorf("set image: %w", err)
		}
		if len(in.Languages) > 0 {
			if err := c.SetLanguage(in.Languages...); err != nil {
				return hocr.Page{}, fmt.Errorf("set languages: %w", err)
			}
		}
		if in.DPI > 0 {
			if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(in.DPI)); err != nil {
				return hocr.Page{}, fmt.Errorf("set dpi: %w", err)
			}
		}
		for k, v := range in.Metadata {
			if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
				return hocr.Page{}, fmt.Errorf("set variable %s: %w", k, err)
			}
		}

		raw, err := c.HOCRText()
		if err != nil {
			return hocr.Page{}, fmt.Errorf("recognize text: %w", err)
		}

		doc, err := hocr.Parse([]byte(raw))
		if err != nil {
			return hocr.Page{}, fmt.Errorf("parse engine hOCR: %w", err)
		}

		page := doc.Pages[0]
		page.PageNumber = in.PageIndex + 1
		if page.DPI == 0 && in.DPI > 0 {
			page.DPI = float64(in.DPI)
		}
		return page, nil
	})
}
