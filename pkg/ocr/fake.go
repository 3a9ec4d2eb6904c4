package ocr

import (
	"context"
	"fmt"
	"sync"

	"github.com/halldor/pdfgraft/pkg/hocr"
)

// Fake is a deterministic in-memory Engine for tests and dry runs.
// Pages are keyed by the input's PageIndex; indexes listed in FailOn return a
// synthetic recognition error instead.
type Fake struct {
	mu     sync.Mutex
	pages  map[int]hocr.Page
	failOn map[int]error
	calls  []int
}

// NewFake constructs an empty fake engine.
func NewFake() *Fake {
	return &Fake{
		pages:  make(map[int]hocr.Page),
		failOn: make(map[int]error),
	}
}

func (e *Fake) Name() string { return "fake" }

// SetPage registers the page returned for a given zero-based page index.
func (e *Fake) SetPage(index int, page hocr.Page) *Fake {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pages[index] = page
	return e
}

// FailOn makes recognition of the given page index return err.
func (e *Fake) FailOn(index int, err error) *Fake {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failOn[index] = err
	return e
}

// Calls returns the page indexes recognized so far, in call order.
func (e *Fake) Calls() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.calls...)
}

// Recognize returns the canned page for in.PageIndex. Unregistered indexes
// yield an empty page rather than an error, mirroring an engine that finds no
// text.
func (e *Fake) Recognize(ctx context.Context, in Input) (hocr.Page, error) {
	if err := ctx.Err(); err != nil {
		return hocr.Page{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, in.PageIndex)

	if err, ok := e.failOn[in.PageIndex]; ok {
		if err == nil {
			err = fmt.Errorf("recognition failed for page %d", in.PageIndex+1)
		}
		return hocr.Page{}, err
	}
	if page, ok := e.pages[in.PageIndex]; ok {
		return page, nil
	}
	return hocr.Page{PageNumber: in.PageIndex + 1}, nil
}
