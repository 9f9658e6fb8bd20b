package core

import (
	"errors"
	"fmt"
)

// Failure records why one source file or archive entry was not processed.
type Failure struct {
	Name string
	Err  error
}

func (f Failure) Error() string { return fmt.Sprintf("%s: %v", f.Name, f.Err) }

func (f Failure) Unwrap() error { return f.Err }

// Result is the outcome of a create, extract or verify call.
type Result struct {
	Requested int       // Items the call attempted
	Succeeded int       // Items fully processed
	Failures  []Failure // One per item that was skipped
}

// Complete reports whether every requested item succeeded.
func (r Result) Complete() bool { return len(r.Failures) == 0 && r.Succeeded == r.Requested }

// Partial reports whether some, but not all, items succeeded.
func (r Result) Partial() bool { return r.Succeeded > 0 && !r.Complete() }

// Failed reports whether items were requested and none succeeded.
func (r Result) Failed() bool { return r.Requested > 0 && r.Succeeded == 0 }

// Err joins every per-item failure into one error, or returns nil.
func (r Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

func (r *Result) fail(name string, err error) {
	r.Failures = append(r.Failures, Failure{Name: name, Err: err})
}
