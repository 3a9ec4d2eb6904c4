package graft

import (
	"fmt"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

// FontConfig contains font settings for the grafted text
type FontConfig struct {
	Name        string  // Font name (e.g. "Helvetica")
	Style       string  // Font style ("", "B", "I", "BI")
	Size        float64 // Default font size
	AscentRatio float64 // Vertical positioning ratio
}

// DefaultFont sets the default font to Helvetica which is tried and tested
// for invisible text layers
var DefaultFont = FontConfig{
	Name:        "Helvetica",
	Style:       "",
	Size:        10,
	AscentRatio: 0.718,
}

// LayerOptions controls how the text layer is drawn onto a page.
type LayerOptions struct {
	Name    string // Base layer name; the page number is appended
	PageNum int    // 1-based page number used in the layer name
	Debug   bool   // Render the text visibly in red with word boxes
	Font    FontConfig
}

// LayerName formats the per-page optional-content layer name.
func LayerName(base string, pageNum int) string {
	if pageNum > 0 {
		return fmt.Sprintf("%s (Page %d)", base, pageNum)
	}
	return base
}

// Draw renders an instruction's words onto the current PDF page as an
// invisible optional-content layer. Each word's font size is fit to its box
// width so selection and copy-paste align with the underlying glyphs.
func Draw(pdf *fpdf.Fpdf, inst Instruction, opts LayerOptions) error {
	font := opts.Font
	if font.Name == "" {
		font = DefaultFont
	}

	layer := pdf.AddLayer(LayerName(opts.Name, opts.PageNum), true)
	pdf.BeginLayer(layer)
	pdf.SetFont(font.Name, font.Style, font.Size)

	if opts.Debug {
		pdf.SetTextColor(255, 0, 0)
	} else {
		pdf.SetAlpha(0.0, "Normal") // hide text from normal view
	}

	encodingErrors := 0
	for _, word := range inst.Words {
		drawWord(pdf, word, font, opts.Debug, &encodingErrors)
	}

	pdf.EndLayer()

	// Report encoding errors if more than a threshold
	if n := len(inst.Words); n > 0 && encodingErrors > n/10 {
		return fmt.Errorf("character encoding issues in %d of %d words", encodingErrors, n)
	}
	return nil
}

// drawWord renders a single placed word onto the layer
func drawWord(pdf *fpdf.Fpdf, word PlacedWord, font FontConfig, debug bool, encodingErrors *int) {
	// Convert text to ISO-8859-1 to avoid PDF encoding issues
	latin1, err := charmap.ISO8859_1.NewEncoder().String(word.Text)
	if err != nil {
		// Track encoding errors but continue
		*encodingErrors++
		latin1 = word.Text // fallback to raw text
	}

	strWidth := pdf.GetStringWidth(latin1)
	if strWidth > 0 {
		scale := word.W / strWidth
		pdf.SetFontSize(font.Size * scale)
	}

	fontSize, _ := pdf.GetFontSize()
	y := word.Y + fontSize*font.AscentRatio

	pdf.Text(word.X, y, latin1)
	pdf.SetFontSize(font.Size)

	if debug {
		pdf.Rect(word.X, word.Y, word.W, word.H, "D")
	}
}
