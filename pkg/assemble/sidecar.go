package assemble

import (
	"fmt"
	"os"
	"strings"

	"github.com/halldor/pdfgraft/pkg/hocr"
	"github.com/halldor/pdfgraft/pkg/pipeline"
)

// SidecarText linearizes the recognition results of a run into plain text,
// one block per page in input order. Pages without a recognition result
// (skipped or failed) contribute an empty block so page numbering survives.
func SidecarText(outcomes []pipeline.Outcome) string {
	blocks := make([]string, len(outcomes))
	for i, outcome := range outcomes {
		if outcome.Sidecar != nil {
			blocks[i] = hocr.PageText(outcome.Sidecar)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// WriteSidecarText writes the run's linearized text next to the output.
func WriteSidecarText(path string, outcomes []pipeline.Outcome) error {
	if err := os.WriteFile(path, []byte(SidecarText(outcomes)), 0o644); err != nil {
		return fmt.Errorf("write sidecar %s: %w", path, err)
	}
	return nil
}

// SidecarHOCR collects the run's recognition results into one hOCR document
// for interoperability with other OCR tooling.
func SidecarHOCR(outcomes []pipeline.Outcome, engine string) *hocr.Doc {
	doc := &hocr.Doc{
		Title:    "Recognition output",
		System:   engine,
		Metadata: map[string]string{"ocr-system": engine},
	}
	for _, outcome := range outcomes {
		if outcome.Sidecar != nil {
			doc.Pages = append(doc.Pages, *outcome.Sidecar)
		}
	}
	return doc
}

// WriteSidecarHOCR renders and writes the hOCR sidecar.
func WriteSidecarHOCR(path string, outcomes []pipeline.Outcome, engine string) error {
	doc := SidecarHOCR(outcomes, engine)
	if len(doc.Pages) == 0 {
		return fmt.Errorf("no recognition results to write")
	}
	html, err := hocr.Generate(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write hOCR sidecar %s: %w", path, err)
	}
	return nil
}
