package pdfgraft_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halldor/pdfgraft/pkg/hocr"
	"github.com/halldor/pdfgraft/pkg/ocr"
	"github.com/halldor/pdfgraft/pkg/pdfgraft"
	"github.com/halldor/pdfgraft/pkg/pipeline"
	"github.com/halldor/pdfgraft/pkg/raster"
)

// scannedPDF mimics a scan: pages with visible marks but no text content.
func scannedPDF(t *testing.T, pages int) []byte {
	t.Helper()
	pdf := fpdf.New("P", "pt", "Letter", "")
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.SetFillColor(40, 40, 40)
		pdf.Rect(72, 72, 200, 20, "F")
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

// invoicePage is a recognition result in the 612x792 pixel space a Letter
// page renders to at 72 dpi.
func invoicePage(pageNum int) hocr.Page {
	return hocr.Page{
		PageNumber: pageNum,
		BBox:       hocr.NewBBox(0, 0, 612, 792),
		Lines: []hocr.Line{{
			BBox: hocr.NewBBox(72, 72, 280, 92),
			Words: []hocr.Word{
				{Text: "INVOICE", BBox: hocr.NewBBox(72, 72, 180, 92), Confidence: 96},
				{Text: "2024", BBox: hocr.NewBBox(190, 72, 250, 92), Confidence: 93},
			},
		}},
	}
}

func e2eConfig(engine ocr.Engine) pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Engine = engine
	cfg.DPI = 72
	cfg.Workers = 2
	return cfg
}

func TestProcessEndToEnd(t *testing.T) {
	input := scannedPDF(t, 2)
	fake := ocr.NewFake()
	fake.SetPage(0, invoicePage(1))
	fake.SetPage(1, invoicePage(2))

	result, err := pdfgraft.Process(context.Background(), input, e2eConfig(fake))
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.PDF)
	assert.False(t, result.Failed())

	require.NotNil(t, result.Check)
	assert.True(t, result.Check.WellFormed)
	assert.Equal(t, 2, result.Check.PageCount)

	assert.Equal(t, 2, result.Report.Succeeded)
	assert.Zero(t, result.Report.Failed)

	// The grafted text is extractable from the output.
	out, err := raster.OpenBytes(result.PDF)
	require.NoError(t, err)
	defer out.Close()
	for i := 0; i < 2; i++ {
		text, err := out.Text(i)
		require.NoError(t, err)
		assert.Contains(t, text, "INVOICE")
		assert.Contains(t, text, "2024")
	}
}

func TestProcessSecondRunSkips(t *testing.T) {
	input := scannedPDF(t, 1)
	fake := ocr.NewFake()
	fake.SetPage(0, invoicePage(1))

	first, err := pdfgraft.Process(context.Background(), input, e2eConfig(fake))
	require.NoError(t, err)
	require.Equal(t, 1, first.Report.Succeeded)

	// The output now carries text, so a second pass touches nothing and
	// returns the document byte-identical.
	again := ocr.NewFake()
	second, err := pdfgraft.Process(context.Background(), first.PDF, e2eConfig(again))
	require.NoError(t, err)
	assert.Equal(t, 1, second.Report.Skipped)
	assert.Zero(t, second.Report.Succeeded)
	assert.Empty(t, again.Calls())
	assert.True(t, bytes.Equal(first.PDF, second.PDF),
		"reprocessing an already-processed document must not rewrite it")
}

func TestProcessDeterministic(t *testing.T) {
	t.Setenv("SOURCE_DATE_EPOCH", "0")
	input := scannedPDF(t, 1)

	run := func() []byte {
		fake := ocr.NewFake()
		fake.SetPage(0, invoicePage(1))
		cfg := e2eConfig(fake)
		cfg.Workers = 1
		result, err := pdfgraft.Process(context.Background(), input, cfg)
		require.NoError(t, err)
		return result.PDF
	}

	assert.True(t, bytes.Equal(run(), run()), "same input and config must yield byte-identical output")
}

func TestProcessPartialFailure(t *testing.T) {
	input := scannedPDF(t, 3)
	fake := ocr.NewFake()
	fake.SetPage(0, invoicePage(1))
	fake.FailOn(1, errors.New("engine crashed"))
	fake.SetPage(2, invoicePage(3))

	result, err := pdfgraft.Process(context.Background(), input, e2eConfig(fake))
	require.NoError(t, err, "one failed page must not abort the document")
	assert.True(t, result.Failed())
	assert.Equal(t, 2, result.Report.Succeeded)
	assert.Equal(t, 1, result.Report.Failed)

	// All three original pages survive in the output.
	require.NotNil(t, result.Check)
	assert.Equal(t, 3, result.Check.PageCount)
}

func TestProcessInvalidConfig(t *testing.T) {
	_, err := pdfgraft.Process(context.Background(), scannedPDF(t, 1), pipeline.Config{})
	assert.Error(t, err)
}

func TestProcessUnreadableSource(t *testing.T) {
	_, err := pdfgraft.Process(context.Background(), []byte("garbage"), e2eConfig(ocr.NewFake()))
	require.Error(t, err)
	var structural *pipeline.StructuralError
	assert.ErrorAs(t, err, &structural)
}

func TestProcessAbortKeepsReport(t *testing.T) {
	input := scannedPDF(t, 4)
	fake := ocr.NewFake()
	fake.FailOn(0, fmt.Errorf("engine crashed"))

	cfg := e2eConfig(fake)
	cfg.Workers = 1
	cfg.AbortOnFailure = true

	result, err := pdfgraft.Process(context.Background(), input, cfg)
	require.Error(t, err)
	require.NotNil(t, result, "a fatal run still reports per-page outcomes")
	assert.Nil(t, result.PDF)
	assert.Len(t, result.Outcomes, 4)
	assert.Equal(t, 4, result.Report.Failed)
}
