package pipeline

import "fmt"

// The error taxonomy. LoadError, RecognitionError, GraftError, and
// TimeoutError are page-local: they are captured into a page's Outcome and
// never propagate past the pipeline. StructuralError is document-fatal.
// ValidationError is raised by the output validator over the assembled
// document; its severity depends on the configured invalid-output policy.

// LoadError means one page's raster or geometry could not be read.
type LoadError struct {
	Page int // 1-based page number
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load page %d: %v", e.Page, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// RecognitionError means the recognition engine failed on a page: engine
// crash, unsupported language, or a malformed response.
type RecognitionError struct {
	Page   int
	Engine string
	Err    error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognize page %d (%s): %v", e.Page, e.Engine, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// GraftError means the coordinate transform produced out-of-bounds or
// degenerate geometry for an entire page.
type GraftError struct {
	Page int
	Err  error
}

func (e *GraftError) Error() string {
	return fmt.Sprintf("graft page %d: %v", e.Page, e.Err)
}

func (e *GraftError) Unwrap() error { return e.Err }

// TimeoutError means a page exceeded its configured processing deadline.
// Never document-fatal.
type TimeoutError struct {
	Page int
	Err  error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("page %d exceeded its processing deadline: %v", e.Page, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ValidationError means the assembled document failed the structural check.
type ValidationError struct {
	Violations []string
	Err        error
}

func (e *ValidationError) Error() string {
	if len(e.Violations) > 0 {
		return fmt.Sprintf("output validation failed: %s", e.Violations[0])
	}
	return fmt.Sprintf("output validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StructuralError means the source document itself is unreadable, encrypted,
// or corrupt. Document-fatal: no pages are dispatched.
type StructuralError struct {
	Err error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("source document is unusable: %v", e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }
