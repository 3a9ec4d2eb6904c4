package assemble

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/halldor/pdfgraft/pkg/pipeline"
)

// Report is the document-level summary emitted alongside the output: one
// entry per page plus run totals, for observability and scripting.
type Report struct {
	RunID        string       `json:"run_id"`
	Input        string       `json:"input,omitempty"`
	Output       string       `json:"output,omitempty"`
	Engine       string       `json:"engine"`
	Pages        []PageReport `json:"pages"`
	Succeeded    int          `json:"succeeded"`
	Skipped      int          `json:"skipped"`
	Failed       int          `json:"failed"`
	DroppedWords int          `json:"dropped_words"`
	ElapsedMS    int64        `json:"elapsed_ms"`
	Warnings     []string     `json:"warnings,omitempty"`
}

// PageReport records the outcome of one page.
type PageReport struct {
	Page      int    `json:"page"` // 1-based
	Status    string `json:"status"`
	Reached   string `json:"reached"`
	Words     int    `json:"words"`
	Dropped   int    `json:"dropped,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Error     string `json:"error,omitempty"`
}

// NewReport summarizes a run's outcomes.
func NewReport(outcomes []pipeline.Outcome, engine string, elapsed time.Duration) *Report {
	r := &Report{
		RunID:     uuid.NewString(),
		Engine:    engine,
		ElapsedMS: elapsed.Milliseconds(),
	}
	for _, outcome := range outcomes {
		pr := PageReport{
			Page:      outcome.Index + 1,
			Status:    outcome.Status.String(),
			Reached:   outcome.Reached.String(),
			Dropped:   outcome.Dropped,
			ElapsedMS: outcome.Elapsed.Milliseconds(),
		}
		if outcome.Instruction != nil {
			pr.Words = len(outcome.Instruction.Words)
		}
		if outcome.Err != nil {
			pr.Error = outcome.Err.Error()
		}
		switch outcome.Status {
		case pipeline.StatusSuccess:
			r.Succeeded++
		case pipeline.StatusSkipped:
			r.Skipped++
		default:
			r.Failed++
		}
		if outcome.Dropped > 0 {
			r.DroppedWords += outcome.Dropped
			r.Warnings = append(r.Warnings,
				fmt.Sprintf("page %d: %d words fell outside the page bounds", outcome.Index+1, outcome.Dropped))
		}
		r.Pages = append(r.Pages, pr)
	}
	return r
}

// Warn appends a document-level warning.
func (r *Report) Warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// WriteJSON writes the report to path as indented JSON.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
