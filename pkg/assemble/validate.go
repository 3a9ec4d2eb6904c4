package assemble

import (
	"bytes"
	"fmt"

	"github.com/halldor/pdfgraft/pkg/pipeline"
	"github.com/halldor/pdfgraft/pkg/raster"
)

// CheckReport is the output validator's finding over an assembled document.
type CheckReport struct {
	WellFormed bool
	PageCount  int
	Violations []string
}

// Validate runs the structural check over the assembled document: format
// markers, a full reparse through the rasterization engine, and page-count
// preservation. When the document is non-conformant the returned error is a
// *pipeline.ValidationError carrying every violation; the caller decides
// between aborting and emitting per the configured policy.
func Validate(output []byte, wantPages int) (*CheckReport, error) {
	report := &CheckReport{}

	if !bytes.HasPrefix(output, []byte("%PDF-")) {
		report.Violations = append(report.Violations, "missing %PDF header")
	}
	tail := output
	if len(tail) > 1024 {
		tail = tail[len(tail)-1024:]
	}
	if !bytes.Contains(tail, []byte("%%EOF")) {
		report.Violations = append(report.Violations, "missing %%EOF trailer")
	}
	if !bytes.Contains(output, []byte("xref")) && !bytes.Contains(output, []byte("/XRef")) {
		report.Violations = append(report.Violations, "no cross-reference table found")
	}

	// Reparse through the same engine that read the input; a document the
	// engine rejects is not worth shipping regardless of marker checks.
	src, err := raster.OpenBytes(output)
	if err != nil {
		report.Violations = append(report.Violations, fmt.Sprintf("document does not reparse: %v", err))
	} else {
		report.PageCount = src.PageCount()
		src.Close()
		if wantPages > 0 && report.PageCount != wantPages {
			report.Violations = append(report.Violations,
				fmt.Sprintf("page count changed: input had %d pages, output has %d", wantPages, report.PageCount))
		}
	}

	report.WellFormed = len(report.Violations) == 0
	if !report.WellFormed {
		return report, &pipeline.ValidationError{Violations: report.Violations}
	}
	return report, nil
}
