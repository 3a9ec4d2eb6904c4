package graft_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halldor/pdfgraft/pkg/graft"
)

func TestDetectLayers(t *testing.T) {
	pdf := []byte(`%PDF-1.6
12 0 obj
<< /Type /OCG /Name (OCR Text \(Page 1\)) >>
endobj
13 0 obj
<< /Type /OCG /Name (Watermark) >>
endobj
%%EOF`)

	layers, err := graft.DetectLayers(pdf)
	require.NoError(t, err)
	assert.Contains(t, layers, "OCR Text (Page 1)")
	assert.Contains(t, layers, "Watermark")
}

func TestDetectLayersEmpty(t *testing.T) {
	_, err := graft.DetectLayers(nil)
	assert.Error(t, err)
}

func TestCheckLayerPageForm(t *testing.T) {
	pdf := []byte(`%PDF-1.6 << /Type /OCG /Name (OCR Text \(Page 3\)) >> %%EOF`)

	check, err := graft.CheckLayer(pdf, "OCR Text")
	require.NoError(t, err)
	assert.True(t, check.HasLayer)
	assert.Equal(t, "OCR Text (Page 3)", check.LayerName)
}

func TestCheckLayerForeignOCRWarns(t *testing.T) {
	pdf := []byte(`%PDF-1.6 << /Type /OCG /Name (ocr by scanner) >> %%EOF`)

	check, err := graft.CheckLayer(pdf, "OCR Text")
	require.NoError(t, err)
	assert.False(t, check.HasLayer)
	assert.NotEmpty(t, check.Warnings)
}

func TestCheckLayerAbsent(t *testing.T) {
	check, err := graft.CheckLayer([]byte("%PDF-1.6 no layers here %%EOF"), "OCR Text")
	require.NoError(t, err)
	assert.False(t, check.HasLayer)
	assert.Empty(t, check.Layers)
}

func TestLayerName(t *testing.T) {
	assert.Equal(t, "OCR Text (Page 4)", graft.LayerName("OCR Text", 4))
	assert.Equal(t, "OCR Text", graft.LayerName("OCR Text", 0))
}
