// Package prep normalizes page rasters for recognition: deskew, despeckle,
// and margin cropping. Normalization only ever feeds the recognition engine;
// the stored page content is never replaced by a normalized raster.
//
// Every operation is deterministic: the same input pixels and the same config
// always produce the same output pixels, so pipeline runs are reproducible.
package prep

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// inkThreshold separates ink from background in the 8-bit grayscale.
const inkThreshold = 128

// Config selects which normalization steps run.
type Config struct {
	Deskew      bool    // Estimate and undo page skew
	Despeckle   bool    // Remove isolated noise pixels
	CropMargins bool    // Trim empty borders, recording the offset
	MaxSkew     float64 // Largest correctable skew in degrees (default 5)
}

// Result is the normalized raster plus the geometry needed to map
// recognition-space coordinates back onto the original raster.
type Result struct {
	Image   *image.Gray // Normalized recognition raster
	Angle   float64     // Skew angle removed, in degrees
	PivotX  float64     // Rotation pivot in original raster pixels
	PivotY  float64
	OffsetX float64 // Crop offset in deskewed raster pixels
	OffsetY float64
}

// Normalize runs the configured steps over img. With everything disabled it
// returns the grayscale identity: Angle 0 and zero offsets.
func Normalize(img image.Image, cfg Config) Result {
	gray := toGray(img)
	result := Result{Image: gray}

	if cfg.Despeckle {
		result.Image = despeckle(result.Image)
	}

	if cfg.Deskew {
		maxSkew := cfg.MaxSkew
		if maxSkew <= 0 {
			maxSkew = 5
		}
		angle := EstimateSkew(result.Image, maxSkew)
		// Sub-twentieth-degree skews are below the recognition engine's own
		// tolerance and rotating would only resample the pixels.
		if math.Abs(angle) >= 0.05 {
			b := result.Image.Bounds()
			result.PivotX = float64(b.Dx()) / 2
			result.PivotY = float64(b.Dy()) / 2
			result.Image = rotate(result.Image, -angle)
			result.Angle = angle
		}
	}

	if cfg.CropMargins {
		cropped, ox, oy := cropMargins(result.Image)
		result.Image = cropped
		result.OffsetX = ox
		result.OffsetY = oy
	}

	return result
}

// EstimateSkew finds the text skew angle in degrees within [-maxSkew, maxSkew]
// by maximizing the variance of horizontal ink projections across candidate
// angles. Text rows aligned with the scan axis concentrate ink into few rows,
// which maximizes the squared projection sum.
func EstimateSkew(img *image.Gray, maxSkew float64) float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	// Sample ink pixels on a coarse grid; full resolution adds nothing to the
	// projection statistics.
	step := 1
	if w*h > 1<<20 {
		step = 2
	}
	type pt struct{ x, y int }
	var ink []pt
	for y := 0; y < h; y += step {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x += step {
			if row[x] < inkThreshold {
				ink = append(ink, pt{x, y})
			}
		}
	}
	if len(ink) == 0 {
		return 0
	}

	const stepDeg = 0.25
	bestAngle, bestScore := 0.0, -1.0
	rows := make([]int, h+1)
	for angle := -maxSkew; angle <= maxSkew+1e-9; angle += stepDeg {
		tan := math.Tan(angle * math.Pi / 180)
		for i := range rows {
			rows[i] = 0
		}
		for _, p := range ink {
			r := p.y - int(float64(p.x)*tan)
			if r >= 0 && r < len(rows) {
				rows[r]++
			}
		}
		score := 0.0
		for _, c := range rows {
			score += float64(c) * float64(c)
		}
		if score > bestScore {
			bestScore = score
			bestAngle = angle
		}
	}
	return bestAngle
}

// rotate returns img rotated by angle degrees about its center, keeping the
// original dimensions and filling uncovered corners with background white.
func rotate(img *image.Gray, angle float64) *image.Gray {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for i := range dst.Pix {
		dst.Pix[i] = 255
	}

	rad := angle * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	cx, cy := w/2, h/2
	// Affine that rotates about the image center.
	m := f64.Aff3{
		cos, -sin, cx - cos*cx + sin*cy,
		sin, cos, cy - sin*cx - cos*cy,
	}
	draw.BiLinear.Transform(dst, m, img, b, draw.Src, nil)
	return dst
}

// despeckle clears ink pixels with no ink neighbor and fills background
// pixels fully surrounded by ink. Single-pixel salt and pepper noise is what
// typically confuses engine segmentation on dirty scans.
func despeckle(img *image.Gray) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	copy(dst.Pix, img.Pix)

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			inkNeighbors := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					if img.Pix[(y+dy)*img.Stride+(x+dx)] < inkThreshold {
						inkNeighbors++
					}
				}
			}
			idx := y*dst.Stride + x
			if img.Pix[y*img.Stride+x] < inkThreshold && inkNeighbors == 0 {
				dst.Pix[idx] = 255
			} else if img.Pix[y*img.Stride+x] >= inkThreshold && inkNeighbors == 8 {
				dst.Pix[idx] = 0
			}
		}
	}
	return dst
}

// cropMargins trims empty borders down to the ink bounding box plus a small
// margin, returning the crop offset in pixels. An all-background page is
// returned unchanged.
func cropMargins(img *image.Gray) (*image.Gray, float64, float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	minX, minY, maxX, maxY := w, h, -1, -1
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x := 0; x < w; x++ {
			if row[x] < inkThreshold {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if maxX < 0 {
		return img, 0, 0
	}

	const margin = 8
	minX = max(0, minX-margin)
	minY = max(0, minY-margin)
	maxX = min(w-1, maxX+margin)
	maxY = min(h-1, maxY+margin)

	cw, ch := maxX-minX+1, maxY-minY+1
	dst := image.NewGray(image.Rect(0, 0, cw, ch))
	for y := 0; y < ch; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+cw], img.Pix[(minY+y)*img.Stride+minX:(minY+y)*img.Stride+minX+cw])
	}
	return dst, float64(minX), float64(minY)
}

// toGray converts any image to 8-bit grayscale, copying when already gray so
// callers never alias the source pixels.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		dst := image.NewGray(g.Bounds())
		for y := 0; y < g.Bounds().Dy(); y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+dst.Rect.Dx()],
				g.Pix[y*g.Stride:y*g.Stride+g.Rect.Dx()])
		}
		return dst
	}
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return dst
}
