package ocr_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halldor/pdfgraft/pkg/hocr"
	"github.com/halldor/pdfgraft/pkg/ocr"
)

func TestNewInput(t *testing.T) {
	in := ocr.NewInput([]byte{1, 2, 3}, "image/png", 4,
		ocr.WithLanguages("eng", "isl"),
		ocr.WithDPI(300),
		ocr.WithVariable("tessedit_pageseg_mode", "3"),
	)

	assert.Equal(t, []byte{1, 2, 3}, in.Image)
	assert.Equal(t, "image/png", in.Format)
	assert.Equal(t, 4, in.PageIndex)
	assert.Equal(t, []string{"eng", "isl"}, in.Languages)
	assert.Equal(t, 300, in.DPI)
	assert.Equal(t, "3", in.Metadata["tessedit_pageseg_mode"])
}

func TestFakeReturnsRegisteredPage(t *testing.T) {
	want := hocr.Page{
		PageNumber: 1,
		Lines: []hocr.Line{{
			Words: []hocr.Word{{Text: "hello", BBox: hocr.NewBBox(0, 0, 50, 20)}},
		}},
	}
	fake := ocr.NewFake().SetPage(0, want)

	got, err := fake.Recognize(context.Background(), ocr.NewInput(nil, "image/png", 0))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []int{0}, fake.Calls())
}

func TestFakeUnregisteredIndexIsEmptyPage(t *testing.T) {
	fake := ocr.NewFake()
	got, err := fake.Recognize(context.Background(), ocr.NewInput(nil, "image/png", 6))
	require.NoError(t, err)
	assert.Equal(t, 7, got.PageNumber)
	assert.Empty(t, got.Lines)
}

func TestFakeFailOn(t *testing.T) {
	boom := errors.New("boom")
	fake := ocr.NewFake().FailOn(1, boom)

	_, err := fake.Recognize(context.Background(), ocr.NewInput(nil, "image/png", 1))
	assert.ErrorIs(t, err, boom)

	// A nil registered error still fails, with a synthesized message.
	fake.FailOn(2, nil)
	_, err = fake.Recognize(context.Background(), ocr.NewInput(nil, "image/png", 2))
	assert.ErrorContains(t, err, "page 3")
}

func TestFakeHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := ocr.NewFake()
	_, err := fake.Recognize(ctx, ocr.NewInput(nil, "image/png", 0))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.Calls())
}
