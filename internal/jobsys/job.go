package jobsys

import (
	"fmt"
	"sync/atomic"
)

// JobFunc is a job payload. It runs exactly once, on whichever worker
// dequeues the job. A returned error (or a panic, which is recovered) is
// recorded on the handle as a PayloadError; it does not stop the worker or
// the rest of the graph.
type JobFunc func() error

// Handle names a job in the scheduler's arena. Handles are small values,
// cheap to copy across goroutines, and become invalid when the arena slot
// is recycled by Reset.
type Handle struct {
	index int32
	gen   uint32
}

func (h Handle) String() string {
	return fmt.Sprintf("job[%d.%d]", h.index, h.gen)
}

// job is an arena entry. The graph-building fields (fn, dependents) are
// written only before submission, under Scheduler.mu; the scalar state is
// atomic because it is the hot path shared between workers.
type job struct {
	fn     JobFunc
	handle Handle

	// pending counts unfinished prerequisites. The job becomes runnable
	// when it reaches zero, provided it has been submitted.
	pending atomic.Int32

	// submitted flips once on Submit. Registration, not necessarily
	// enqueueing: a job with prerequisites is enqueued later by the
	// completion cascade.
	submitted atomic.Bool

	// enqueued guards against the Submit/cascade race double-dispatching
	// the job. Whoever wins the CAS pushes.
	enqueued atomic.Bool

	// done flips once, after the payload has returned and err is recorded.
	done atomic.Bool

	// err is written by the single executing worker before done is set,
	// and read only after done is observed true.
	err error

	dependents []*job
}
