package graft_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halldor/pdfgraft/pkg/graft"
	"github.com/halldor/pdfgraft/pkg/hocr"
)

func TestNewTransformPure(t *testing.T) {
	n := graft.Normalization{Angle: 1.5, PivotX: 1275, PivotY: 1650, OffsetX: 12, OffsetY: 8}
	a, err := graft.NewTransform(612, 792, 2550, 3300, n)
	require.NoError(t, err)
	b, err := graft.NewTransform(612, 792, 2550, 3300, n)
	require.NoError(t, err)

	// Identical inputs yield an identical affine map.
	assert.Equal(t, a, b)
	for _, p := range [][2]float64{{0, 0}, {100, 50}, {2550, 3300}} {
		ax, ay := a.Apply(p[0], p[1])
		bx, by := b.Apply(p[0], p[1])
		assert.Equal(t, ax, bx)
		assert.Equal(t, ay, by)
	}
}

func TestTransformScale(t *testing.T) {
	// 300 DPI raster of an 8.5x11 inch page: 2550x3300 px onto 612x792 pt.
	tr, err := graft.NewTransform(612, 792, 2550, 3300, graft.Normalization{})
	require.NoError(t, err)

	x, y := tr.Apply(2550, 3300)
	assert.InDelta(t, 612, x, 1e-9)
	assert.InDelta(t, 792, y, 1e-9)

	x, y = tr.Apply(10, 10)
	assert.InDelta(t, 2.4, x, 1e-9)
	assert.InDelta(t, 2.4, y, 1e-9)
}

func TestTransformCropOffset(t *testing.T) {
	tr, err := graft.NewTransform(612, 792, 2550, 3300, graft.Normalization{OffsetX: 100, OffsetY: 50})
	require.NoError(t, err)

	// A point at the cropped raster's origin maps to the crop offset scaled
	// into page space.
	x, y := tr.Apply(0, 0)
	assert.InDelta(t, 100*612.0/2550.0, x, 1e-9)
	assert.InDelta(t, 50*792.0/3300.0, y, 1e-9)
}

func TestTransformCounterRotation(t *testing.T) {
	// Square page so scale does not disturb rotation checks.
	n := graft.Normalization{Angle: 90, PivotX: 50, PivotY: 50}
	tr, err := graft.NewTransform(100, 100, 100, 100, n)
	require.NoError(t, err)

	// The pivot is a fixed point of the rotation.
	x, y := tr.Apply(50, 50)
	assert.InDelta(t, 50, x, 1e-9)
	assert.InDelta(t, 50, y, 1e-9)

	// With y down, a +90 degree rotation about (50,50) sends (60,50) to (50,60).
	x, y = tr.Apply(60, 50)
	assert.InDelta(t, 50, x, 1e-9)
	assert.InDelta(t, 60, y, 1e-9)
}

func TestNewTransformDegenerate(t *testing.T) {
	_, err := graft.NewTransform(0, 792, 2550, 3300, graft.Normalization{})
	assert.Error(t, err)
	_, err = graft.NewTransform(612, 792, 0, 3300, graft.Normalization{})
	assert.Error(t, err)
}

func testPage(words ...hocr.Word) *hocr.Page {
	return &hocr.Page{
		ID:         "page_1",
		PageNumber: 1,
		BBox:       hocr.NewBBox(0, 0, 2550, 3300),
		Lines:      []hocr.Line{{ID: "line_1", Words: words}},
	}
}

func TestBuildPlacesWords(t *testing.T) {
	tr, err := graft.NewTransform(612, 792, 2550, 3300, graft.Normalization{})
	require.NoError(t, err)

	page := testPage(
		hocr.Word{Text: "INVOICE", BBox: hocr.NewBBox(10, 10, 200, 30)},
		hocr.Word{Text: "2024", BBox: hocr.NewBBox(220, 10, 330, 30)},
	)
	inst, dropped, err := graft.Build(page, tr, 0, 612, 792)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, inst.Words, 2)

	first := inst.Words[0]
	assert.Equal(t, "INVOICE", first.Text)
	assert.InDelta(t, 10*612.0/2550.0, first.X, 1e-9)
	assert.InDelta(t, 10*792.0/3300.0, first.Y, 1e-9)
	assert.InDelta(t, 190*612.0/2550.0, first.W, 1e-9)

	// Sub-pixel alignment at the target resolution: mapping back to raster
	// pixels lands within one pixel of the recognized box.
	assert.Less(t, math.Abs(first.X*2550.0/612.0-10), 1.0)
}

func TestBuildDropsOutOfBounds(t *testing.T) {
	tr, err := graft.NewTransform(612, 792, 2550, 3300, graft.Normalization{})
	require.NoError(t, err)

	page := testPage(
		hocr.Word{Text: "keep", BBox: hocr.NewBBox(10, 10, 200, 30)},
		hocr.Word{Text: "gone", BBox: hocr.NewBBox(2600, 10, 2700, 30)},
		hocr.Word{Text: "flat", BBox: hocr.NewBBox(40, 50, 40, 70)},
	)
	inst, dropped, err := graft.Build(page, tr, 0, 612, 792)
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)
	require.Len(t, inst.Words, 1)
	assert.Equal(t, "keep", inst.Words[0].Text)
}

func TestBuildAllDroppedIsError(t *testing.T) {
	tr, err := graft.NewTransform(612, 792, 2550, 3300, graft.Normalization{})
	require.NoError(t, err)

	page := testPage(hocr.Word{Text: "gone", BBox: hocr.NewBBox(3000, 4000, 3100, 4100)})
	_, dropped, err := graft.Build(page, tr, 0, 612, 792)
	assert.Error(t, err)
	assert.Equal(t, 1, dropped)
}

func TestBuildEmptyPage(t *testing.T) {
	tr, err := graft.NewTransform(612, 792, 2550, 3300, graft.Normalization{})
	require.NoError(t, err)

	inst, dropped, err := graft.Build(testPage(), tr, 0, 612, 792)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Empty(t, inst.Words)
}
