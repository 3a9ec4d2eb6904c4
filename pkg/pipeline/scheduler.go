package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/halldor/pdfgraft/pkg/raster"
)

// Run processes every page of the source through the page pipeline with a
// bounded worker pool and returns one Outcome per page, always in input page
// order.
//
// Ordering is guaranteed by pre-allocated result slots indexed by page
// position: workers claim pages through a shared atomic counter and each
// writes exactly one slot, so out-of-order completion can never reorder the
// output. Run blocks until every slot is filled or an abort drains the
// in-flight pages.
//
// A returned error is document-fatal. Page-local failures live inside the
// outcomes; callers inspect them to distinguish a clean run from a
// completed-with-failures run.
func Run(ctx context.Context, src *raster.Source, cfg Config) ([]Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pageCount := src.PageCount()
	if pageCount == 0 {
		return nil, &StructuralError{Err: fmt.Errorf("document has no pages")}
	}

	tagged := taggedPages(src.Data(), cfg.LayerName, pageCount)

	outcomes := make([]Outcome, pageCount)
	var next atomic.Int64
	var aborted atomic.Bool
	var abortCause atomic.Pointer[Outcome]

	workers := cfg.Workers
	if workers > pageCount {
		workers = pageCount
	}

	cfg.Log.Info().
		Int("pages", pageCount).
		Int("workers", workers).
		Str("engine", cfg.Engine.Name()).
		Msg("scheduling document")

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				// Abort stops dispatch of new pages; pages already claimed
				// run to completion or their own timeout.
				if aborted.Load() || ctx.Err() != nil {
					return
				}
				index := int(next.Add(1)) - 1
				if index >= pageCount {
					return
				}

				pageCtx := ctx
				cancel := context.CancelFunc(func() {})
				if cfg.PageTimeout > 0 {
					pageCtx, cancel = context.WithTimeout(ctx, cfg.PageTimeout)
				}
				outcome := runPage(pageCtx, src, index, tagged[index+1], cfg)
				cancel()

				outcomes[index] = outcome
				if cfg.OnPage != nil {
					cfg.OnPage(outcome)
				}
				if outcome.Status == StatusFailed && cfg.AbortOnFailure {
					if aborted.CompareAndSwap(false, true) {
						abortCause.Store(&outcome)
					}
				}
			}
		}()
	}
	wg.Wait()

	// Pages never dispatched still get their outcome slot filled so the
	// one-outcome-per-page invariant holds.
	for i := range outcomes {
		if outcomes[i].Status == StatusUnknown {
			outcomes[i] = Outcome{
				Index:   i,
				Status:  StatusFailed,
				Reached: StateNone,
				Err:     fmt.Errorf("page %d not processed: run aborted", i+1),
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return outcomes, fmt.Errorf("run canceled: %w", err)
	}
	if cause := abortCause.Load(); cause != nil {
		return outcomes, fmt.Errorf("aborted on page failure: %w", cause.Err)
	}
	return outcomes, nil
}
