package events

import (
	"errors"
	"fmt"
)

// DispatchError records the failure of a single callback during a publish
type DispatchError struct {
	Key   Key
	Owner Identity
	Err   error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s to %s: %v", e.Key, e.Owner, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Result is the aggregate outcome of one publish
type Result struct {
	Key  Key
	Kind PayloadKind

	// Invoked counts callbacks that were called, including ones that failed
	Invoked int

	// Skipped counts registered callbacks whose declared kinds did not accept the payload
	Skipped int

	Errors []*DispatchError
}

// OK reports whether every invoked callback succeeded
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Err joins the per-callback errors, or returns nil
func (r Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

func (r Result) String() string {
	return fmt.Sprintf("key=%s kind=%s invoked=%d skipped=%d errors=%d",
		r.Key, r.Kind, r.Invoked, r.Skipped, len(r.Errors))
}
