// Package graft turns recognition results into an invisible text layer on a
// PDF page: it maps recognition-space pixel coordinates into page user-space,
// builds placement instructions for every recognized word, and draws them as
// a hidden optional-content layer so the text exactly underlies the glyphs of
// the original raster.
package graft

import (
	"fmt"
	"math"

	"github.com/halldor/pdfgraft/pkg/hocr"
)

// Normalization records the geometry a preprocessor applied to the
// recognition raster: the skew angle removed, the rotation pivot, and the
// margin-crop offset. The zero value means the raster was fed to the engine
// untouched.
type Normalization struct {
	Angle   float64 // Degrees removed by deskew
	PivotX  float64 // Rotation pivot in original raster pixels
	PivotY  float64
	OffsetX float64 // Crop offset in deskewed raster pixels
	OffsetY float64
}

// Transform is the affine map from recognition-space pixels to page
// user-space points. It is pure data: identical construction inputs always
// yield an identical transform, and Apply has no state.
type Transform struct {
	Sx, Sy         float64 // Scale from raster pixels to page points
	Theta          float64 // Counter-rotation in radians undoing deskew
	PivotX, PivotY float64
	Dx, Dy         float64 // Crop offset restored before rotation
}

// NewTransform builds the map for a page of pageW x pageH points whose
// recognition raster measured rasterW x rasterH pixels before normalization.
func NewTransform(pageW, pageH, rasterW, rasterH float64, n Normalization) (Transform, error) {
	if pageW <= 0 || pageH <= 0 {
		return Transform{}, fmt.Errorf("degenerate page geometry %gx%g", pageW, pageH)
	}
	if rasterW <= 0 || rasterH <= 0 {
		return Transform{}, fmt.Errorf("degenerate raster geometry %gx%g", rasterW, rasterH)
	}
	return Transform{
		Sx:     pageW / rasterW,
		Sy:     pageH / rasterH,
		Theta:  n.Angle * math.Pi / 180,
		PivotX: n.PivotX,
		PivotY: n.PivotY,
		Dx:     n.OffsetX,
		Dy:     n.OffsetY,
	}, nil
}

// Apply maps a recognition-space point to page user-space: restore the crop
// offset, undo the deskew rotation about the pivot, then scale to points.
// The y axis points down on both sides of the map.
func (t Transform) Apply(x, y float64) (float64, float64) {
	x += t.Dx
	y += t.Dy
	if t.Theta != 0 {
		sin, cos := math.Sin(t.Theta), math.Cos(t.Theta)
		rx := cos*(x-t.PivotX) - sin*(y-t.PivotY) + t.PivotX
		ry := sin*(x-t.PivotX) + cos*(y-t.PivotY) + t.PivotY
		x, y = rx, ry
	}
	return x * t.Sx, y * t.Sy
}

// Instruction is the text layer to inject into one page: every word placed
// in page user-space. Derived deterministically from a recognition result and
// a Transform; consumed exactly once by the assembler.
type Instruction struct {
	PageIndex int
	Width     float64 // Page width in points
	Height    float64 // Page height in points
	Words     []PlacedWord
}

// PlacedWord is one word positioned in page user-space points.
// X,Y is the top-left corner of the word box.
type PlacedWord struct {
	Text string
	X    float64
	Y    float64
	W    float64
	H    float64
}

// Build transforms every recognized word of a page into page user-space.
// Words landing outside the page bounds or collapsing to nothing are dropped
// and counted; that is a warning for the report, not a failure. An error is
// returned only when recognition produced words but the transform placed
// none of them, which means the geometry itself is broken.
func Build(page *hocr.Page, t Transform, pageIndex int, pageW, pageH float64) (Instruction, int, error) {
	inst := Instruction{PageIndex: pageIndex, Width: pageW, Height: pageH}
	dropped := 0

	for _, word := range hocr.Words(page) {
		x1, y1 := t.Apply(word.BBox.X1, word.BBox.Y1)
		x2, y2 := t.Apply(word.BBox.X2, word.BBox.Y2)
		x, y := math.Min(x1, x2), math.Min(y1, y2)
		w, h := math.Abs(x2-x1), math.Abs(y2-y1)

		if w <= 0 || h <= 0 {
			dropped++
			continue
		}
		if x+w <= 0 || y+h <= 0 || x >= pageW || y >= pageH {
			dropped++
			continue
		}
		inst.Words = append(inst.Words, PlacedWord{Text: word.Text, X: x, Y: y, W: w, H: h})
	}

	if len(inst.Words) == 0 && dropped > 0 {
		return inst, dropped, fmt.Errorf("transform dropped all %d recognized words on page %d", dropped, pageIndex+1)
	}
	return inst, dropped, nil
}
