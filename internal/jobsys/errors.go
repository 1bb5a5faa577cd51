package jobsys

import (
	"errors"
	"fmt"
)

// Sentinel errors for scheduling misuse. These indicate programmer errors in
// the calling code, not recoverable runtime conditions.
var (
	// ErrAlreadySubmitted is returned when a job is submitted twice, or when
	// a dependency is added after either endpoint has been submitted.
	ErrAlreadySubmitted = errors.New("job already submitted")

	// ErrInvalidHandle is returned when a handle does not name a live job:
	// the zero handle, a handle from another scheduler, or a handle whose
	// slot has been recycled by Reset.
	ErrInvalidHandle = errors.New("invalid job handle")

	// ErrCycle is returned by ValidateAcyclic when the dependency edges form
	// a cycle. The scheduler itself never detects cycles at runtime; a cyclic
	// graph deadlocks WaitAll.
	ErrCycle = errors.New("dependency cycle")

	// ErrBusy is returned when an operation requires a convergence point
	// (outstanding counter at zero) and work is still pending or running.
	ErrBusy = errors.New("jobs still outstanding")
)

// PayloadError records a failure inside a job payload. The job still counts
// as completed for scheduling purposes: its dependents run and WaitAll
// returns. The error is retrievable through JobErr after convergence.
type PayloadError struct {
	Handle Handle
	Err    error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("job %s: %v", e.Handle, e.Err)
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}
