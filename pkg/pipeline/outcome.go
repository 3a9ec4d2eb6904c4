package pipeline

import (
	"time"

	"github.com/halldor/pdfgraft/pkg/graft"
	"github.com/halldor/pdfgraft/pkg/hocr"
	"github.com/halldor/pdfgraft/pkg/raster"
)

// State names a station in the per-page state machine. Pages advance
// Loaded → Preprocessed → Recognized → Grafted → Validated; Failed is
// terminal from any non-terminal state, Skipped is terminal from Loaded only.
type State int

const (
	StateNone State = iota
	StateLoaded
	StatePreprocessed
	StateRecognized
	StateGrafted
	StateValidated
	StateSkipped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StatePreprocessed:
		return "preprocessed"
	case StateRecognized:
		return "recognized"
	case StateGrafted:
		return "grafted"
	case StateValidated:
		return "validated"
	case StateSkipped:
		return "skipped"
	case StateFailed:
		return "failed"
	default:
		return "none"
	}
}

// Status tags the terminal result of one page run.
type Status int

const (
	StatusUnknown Status = iota
	StatusSuccess
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one page pipeline run. Exactly one Outcome
// exists per input page regardless of how far the page got.
//
// Success carries the loaded page and its graft Instruction; Skipped and
// Failed carry the page untouched (Failed additionally records the page-local
// error). Reached is the last state the page completed before terminating.
type Outcome struct {
	Index       int                // Zero-based page index
	Status      Status             // Success, Skipped, or Failed
	Reached     State              // Last completed state
	Page        *raster.Page       // Loaded page, nil if loading itself failed
	Instruction *graft.Instruction // Text layer to inject; Success only
	Sidecar     *hocr.Page         // Recognition result for sidecar output
	Dropped     int                // Words dropped as out-of-bounds (warning)
	Err         error              // Page-local failure; Failed only
	Elapsed     time.Duration      // Wall time spent on this page
}
