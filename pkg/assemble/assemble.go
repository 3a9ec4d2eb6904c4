// Package assemble folds an ordered sequence of page outcomes back into one
// output document. Original page content is imported untouched, never
// re-encoded or re-rasterized, and successful pages get exactly one new
// content layer holding the invisible text. The package also carries the
// document-level report and the output validator.
package assemble

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"

	"github.com/halldor/pdfgraft/pkg/graft"
	"github.com/halldor/pdfgraft/pkg/pipeline"
)

// Assemble merges the outcomes into the output PDF. Outcomes must be in page
// order, one per input page; Success pages receive their text layer, Skipped
// and Failed pages pass through unchanged.
func Assemble(input []byte, outcomes []pipeline.Outcome, cfg pipeline.Config) (out []byte, err error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("input PDF data is empty")
	}
	if len(outcomes) == 0 {
		return nil, fmt.Errorf("no page outcomes to assemble")
	}

	// The page importer reports malformed structures by panicking.
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("importing original pages: %v", r)
		}
	}()

	pdf := fpdf.New("P", "pt", "", "")
	// Honor SOURCE_DATE_EPOCH so identical inputs produce byte-identical
	// output documents.
	if epoch := os.Getenv("SOURCE_DATE_EPOCH"); epoch != "" {
		if sec, err := strconv.ParseInt(epoch, 10, 64); err == nil {
			ts := time.Unix(sec, 0).UTC()
			pdf.SetCreationDate(ts)
			pdf.SetModificationDate(ts)
		}
	}
	importer := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(input))

	for _, outcome := range outcomes {
		pageNo := outcome.Index + 1
		tpl := importer.ImportPageFromStream(pdf, &rs, pageNo, "/MediaBox")

		w, h := 0.0, 0.0
		if outcome.Page != nil {
			w, h = outcome.Page.WidthPt, outcome.Page.HeightPt
		}
		if w <= 0 || h <= 0 {
			w, h = importedSize(importer, pageNo)
		}
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("cannot determine geometry of page %d", pageNo)
		}

		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		importer.UseImportedTemplate(pdf, tpl, 0, 0, w, 0)

		if outcome.Status == pipeline.StatusSuccess && outcome.Instruction != nil {
			opts := graft.LayerOptions{
				Name:    cfg.LayerName,
				PageNum: pageNo,
				Debug:   cfg.Debug,
				Font:    cfg.Font,
			}
			if err := graft.Draw(pdf, *outcome.Instruction, opts); err != nil {
				return nil, fmt.Errorf("draw text layer for page %d: %w", pageNo, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write output PDF: %w", err)
	}
	return canonicalizeResources(buf.Bytes()), nil
}

// importedSize reads the MediaBox size gofpdi recorded for a page.
func importedSize(importer *gofpdi.Importer, pageNo int) (float64, float64) {
	sizes := importer.GetPageSizes()
	if box, ok := sizes[pageNo]["/MediaBox"]; ok {
		return box["w"], box["h"]
	}
	return 0, 0
}
