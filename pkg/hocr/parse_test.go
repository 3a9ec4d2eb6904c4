package hocr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halldor/pdfgraft/pkg/hocr"
)

const sampleHOCR = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" lang="en">
 <head>
  <title>Scan</title>
  <meta http-equiv="Content-Type" content="text/html;charset=utf-8"/>
  <meta name="ocr-system" content="tesseract 5.3.0"/>
 </head>
 <body>
  <div class="ocr_page" id="page_1" title="image &quot;scan.png&quot;; bbox 0 0 2550 3300; ppageno 0; scan_res 300 300">
   <div class="ocr_carea" id="block_1_1" title="bbox 30 30 2520 200">
    <p class="ocr_par" id="par_1_1" title="bbox 30 30 2520 200">
     <span class="ocr_line" id="line_1_1" title="bbox 30 30 600 90; baseline 0.01 -12">
      <span class="ocrx_word" id="word_1_1" title="bbox 30 30 260 90; x_wconf 96">INVOICE</span>
      <span class="ocrx_word" id="word_1_2" title="bbox 280 30 440 90; x_wconf 91">2024</span>
     </span>
     <span class="ocr_line" id="line_1_2" title="bbox 30 120 500 180">
      <span class="ocrx_word" id="word_1_3" title="bbox 30 120 210 180; x_wconf 88">Total</span>
     </span>
    </p>
   </div>
  </div>
 </body>
</html>`

func TestParse(t *testing.T) {
	doc, err := hocr.Parse([]byte(sampleHOCR))
	require.NoError(t, err)

	assert.Equal(t, "Scan", doc.Title)
	assert.Equal(t, "en", doc.Language)
	assert.Equal(t, "tesseract 5.3.0", doc.System)
	require.Len(t, doc.Pages, 1)

	page := doc.Pages[0]
	assert.Equal(t, "page_1", page.ID)
	assert.Equal(t, 1, page.PageNumber)
	assert.Equal(t, "scan.png", page.Image)
	assert.Equal(t, hocr.NewBBox(0, 0, 2550, 3300), page.BBox)
	assert.Equal(t, 300.0, page.DPI)

	// Lines nested under carea/par are flattened onto the page.
	require.Len(t, page.Lines, 2)
	line := page.Lines[0]
	assert.Equal(t, hocr.NewBBox(30, 30, 600, 90), line.BBox)
	assert.Equal(t, 0.01, line.Baseline.Slope)
	assert.Equal(t, -12.0, line.Baseline.Offset)

	require.Len(t, line.Words, 2)
	assert.Equal(t, "INVOICE", line.Words[0].Text)
	assert.Equal(t, 96.0, line.Words[0].Confidence)
	assert.Equal(t, hocr.NewBBox(30, 30, 260, 90), line.Words[0].BBox)
}

func TestParseReadingOrder(t *testing.T) {
	doc, err := hocr.Parse([]byte(sampleHOCR))
	require.NoError(t, err)

	words := hocr.Words(&doc.Pages[0])
	require.Len(t, words, 3)
	for i, word := range words {
		assert.Equal(t, i, word.Order, "word %q", word.Text)
	}
}

func TestParseNoPages(t *testing.T) {
	_, err := hocr.Parse([]byte(`<html><body><p>plain html</p></body></html>`))
	assert.Error(t, err)
}

func TestParseTitle(t *testing.T) {
	props := hocr.ParseTitle("bbox 100 200 300 400; x_wconf 95")
	assert.Equal(t, []string{"100", "200", "300", "400"}, props["bbox"])
	assert.Equal(t, []string{"95"}, props["x_wconf"])
}

func TestText(t *testing.T) {
	doc, err := hocr.Parse([]byte(sampleHOCR))
	require.NoError(t, err)
	assert.Equal(t, "INVOICE 2024\nTotal", hocr.Text(&doc))
}

func TestGenerateRoundTrip(t *testing.T) {
	doc, err := hocr.Parse([]byte(sampleHOCR))
	require.NoError(t, err)

	html, err := hocr.Generate(&doc)
	require.NoError(t, err)

	again, err := hocr.Parse([]byte(html))
	require.NoError(t, err)

	require.Len(t, again.Pages, 1)
	assert.Equal(t, doc.Pages[0].BBox, again.Pages[0].BBox)
	assert.Equal(t, doc.Pages[0].PageNumber, again.Pages[0].PageNumber)
	assert.Equal(t, hocr.Text(&doc), hocr.Text(&again))

	wantWords := hocr.Words(&doc.Pages[0])
	gotWords := hocr.Words(&again.Pages[0])
	require.Len(t, gotWords, len(wantWords))
	for i := range wantWords {
		assert.Equal(t, wantWords[i].Text, gotWords[i].Text)
		assert.Equal(t, wantWords[i].BBox, gotWords[i].BBox)
	}
}

func TestGenerateEscapesMarkup(t *testing.T) {
	doc := &hocr.Doc{
		Pages: []hocr.Page{{
			ID:         "page_1",
			PageNumber: 1,
			BBox:       hocr.NewBBox(0, 0, 100, 100),
			Lines: []hocr.Line{{
				ID:    "line_1",
				BBox:  hocr.NewBBox(0, 0, 100, 20),
				Words: []hocr.Word{{ID: "w1", Text: "a<b&c", BBox: hocr.NewBBox(0, 0, 50, 20)}},
			}},
		}},
	}
	html, err := hocr.Generate(doc)
	require.NoError(t, err)

	again, err := hocr.Parse([]byte(html))
	require.NoError(t, err)
	words := hocr.Words(&again.Pages[0])
	require.Len(t, words, 1)
	assert.Equal(t, "a<b&c", words[0].Text)
}
