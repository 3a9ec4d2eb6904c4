// Package pdfgraft is the high-level entry point: it runs the whole
// source-to-searchable flow (open, schedule the page pipelines, assemble,
// validate) and returns the output document with its report.
//
// The heavy lifting lives in the subpackages; this package only sequences
// them and applies document-level policy:
//
// - raster: opens the source and renders page rasters
// - pipeline: drives per-page state machines under a bounded worker pool
// - assemble: folds outcomes into the output and validates it
package pdfgraft

import (
	"context"
	"fmt"
	"time"

	"github.com/halldor/pdfgraft/pkg/assemble"
	"github.com/halldor/pdfgraft/pkg/pipeline"
	"github.com/halldor/pdfgraft/pkg/raster"
)

// Result carries everything a run produces.
type Result struct {
	PDF      []byte                // Assembled output document
	Outcomes []pipeline.Outcome    // One per input page, input order
	Report   *assemble.Report      // Document-level summary
	Check    *assemble.CheckReport // Output validator finding, nil on abort
}

// Failed reports whether any page ended in a Failed outcome.
func (r *Result) Failed() bool {
	return r.Report != nil && r.Report.Failed > 0
}

// Process converts a scanned document into a searchable one. A returned
// error is document-fatal; page-local failures are visible in the result's
// outcomes and report instead.
func Process(ctx context.Context, input []byte, cfg pipeline.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	src, err := raster.OpenBytes(input)
	if err != nil {
		return nil, &pipeline.StructuralError{Err: err}
	}
	defer src.Close()
	pageCount := src.PageCount()

	outcomes, err := pipeline.Run(ctx, src, cfg)
	if err != nil {
		// Document-fatal: no partial document is emitted, but the report
		// still tells the caller what happened per page.
		result := &Result{
			Outcomes: outcomes,
			Report:   assemble.NewReport(outcomes, cfg.Engine.Name(), time.Since(start)),
		}
		return result, err
	}

	grafted := false
	for _, outcome := range outcomes {
		if outcome.Status == pipeline.StatusSuccess {
			grafted = true
			break
		}
	}

	// With nothing to graft the document passes through byte-identical.
	// Reprocessing an already-processed file must not rewrite it.
	output := input
	if grafted {
		output, err = assemble.Assemble(input, outcomes, cfg)
		if err != nil {
			return nil, fmt.Errorf("assemble output: %w", err)
		}
	}

	report := assemble.NewReport(outcomes, cfg.Engine.Name(), time.Since(start))
	result := &Result{PDF: output, Outcomes: outcomes, Report: report}

	check, err := assemble.Validate(output, pageCount)
	result.Check = check
	if err != nil {
		switch cfg.OnInvalid {
		case pipeline.InvalidEmit:
			report.Warn("output failed validation, emitting best-effort document: %v", err)
			cfg.Log.Warn().Err(err).Msg("emitting non-conformant output per policy")
		default:
			result.PDF = nil
			return result, err
		}
	}

	return result, nil
}
