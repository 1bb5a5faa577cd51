// Package jobsys implements a cooperative work-stealing job scheduler for
// per-frame data-parallel workloads. Client code builds a dependency graph
// of jobs, submits the graph, and converges at WaitAll; workers run a
// pop-or-steal loop over per-worker deques, and a completing worker pushes
// newly runnable dependents onto its own deque to preserve locality.
//
// The scheduler knows nothing about the work it runs: a payload is an
// opaque callable, and data-parallel iteration (ParallelFor) consumes only
// a length and an indexed accessor.
package jobsys

import (
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
)

// Config holds scheduler configuration.
type Config struct {
	// Workers is the number of worker goroutines. Defaults to
	// runtime.NumCPU().
	Workers int

	// SpinBudget is how many empty pop-or-steal rounds an idle worker
	// performs before yielding the processor with runtime.Gosched. New work
	// typically appears within microseconds during a frame, so idling
	// workers spin rather than block; the budget bounds the burn.
	SpinBudget int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:    runtime.NumCPU(),
		SpinBudget: 64,
	}
}

// Stats is a point-in-time snapshot of scheduler counters.
type Stats struct {
	Workers     int   `json:"workers"`
	Outstanding int64 `json:"outstanding"`
	Completed   int64 `json:"completed"`
	Failed      int64 `json:"failed"`
	Pushes      int64 `json:"pushes"`
	Pops        int64 `json:"pops"`
	Steals      int64 `json:"steals"`
	StealMisses int64 `json:"steal_misses"`
}

// Scheduler owns a fixed pool of workers, the job arena, and the global
// outstanding-job counter. Construct with New, release with Close.
//
// Queue slot 0 belongs to client goroutines: explicit Submits land there,
// and WaitAll pops from it while participating in the loop. Workers own
// slots 1..Workers.
type Scheduler struct {
	cfg    Config
	logger *slog.Logger
	queues []*deque

	// mu guards the arena and graph building (CreateJob, AddDependency,
	// Reset, handle lookup). The execution hot path never takes it.
	mu    sync.Mutex
	slots []*job
	gens  []uint32
	free  []int32

	outstanding atomic.Int64
	completed   atomic.Int64
	failed      atomic.Int64

	quit   chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool
}

// New creates a scheduler and spawns its worker pool. The caller must Close
// it to join the workers.
func New(cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.SpinBudget <= 0 {
		cfg.SpinBudget = 64
	}

	s := &Scheduler{
		cfg:    cfg,
		logger: logger.With("component", "jobsys"),
		queues: make([]*deque, cfg.Workers+1),
		quit:   make(chan struct{}),
	}
	for i := range s.queues {
		s.queues[i] = newDeque()
	}

	s.wg.Add(cfg.Workers)
	for i := 1; i <= cfg.Workers; i++ {
		go s.runWorker(i)
	}

	s.logger.Info("scheduler started", "workers", cfg.Workers)
	return s
}

// Workers returns the worker pool size (excluding the client slot).
func (s *Scheduler) Workers() int {
	return s.cfg.Workers
}

// Close signals termination and joins the worker pool. Jobs still queued at
// shutdown are dropped; call WaitAll first for a clean drain.
func (s *Scheduler) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.quit)
	s.wg.Wait()

	remaining := 0
	for _, q := range s.queues {
		remaining += q.remaining()
	}
	s.logger.Info("scheduler stopped", "remaining", remaining)
}

// CreateJob allocates a job with the given payload. The job has no
// prerequisites, no dependents, and is not runnable until submitted.
func (s *Scheduler) CreateJob(fn JobFunc) (Handle, error) {
	if fn == nil {
		return Handle{}, fmt.Errorf("create job: nil payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var idx int32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
		s.gens[idx]++
	} else {
		idx = int32(len(s.slots))
		s.slots = append(s.slots, nil)
		s.gens = append(s.gens, 1)
	}

	j := &job{fn: fn, handle: Handle{index: idx, gen: s.gens[idx]}}
	s.slots[idx] = j
	return j.handle, nil
}

// AddDependency records that dependent must not start before prerequisite
// completes. Both jobs must still be unsubmitted; linking into a live graph
// is a misuse error, reported with ErrAlreadySubmitted.
//
// No cycle check is performed here. A cyclic graph deadlocks WaitAll; use
// ValidateAcyclic in tests or debug paths when that risk exists.
func (s *Scheduler) AddDependency(dependent, prerequisite Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookupLocked(dependent)
	if err != nil {
		return fmt.Errorf("add dependency: dependent %s: %w", dependent, err)
	}
	p, err := s.lookupLocked(prerequisite)
	if err != nil {
		return fmt.Errorf("add dependency: prerequisite %s: %w", prerequisite, err)
	}
	if d.submitted.Load() {
		return fmt.Errorf("add dependency: dependent %s: %w", dependent, ErrAlreadySubmitted)
	}
	if p.submitted.Load() {
		return fmt.Errorf("add dependency: prerequisite %s: %w", prerequisite, ErrAlreadySubmitted)
	}

	d.pending.Add(1)
	p.dependents = append(p.dependents, d)
	return nil
}

// Submit registers a job with the scheduler, incrementing the outstanding
// counter so WaitAll accounts for it. A job with no unfinished
// prerequisites is enqueued immediately on the client queue; otherwise it
// becomes runnable automatically when its last prerequisite completes.
// Submitting the same handle twice is a misuse error.
func (s *Scheduler) Submit(h Handle) error {
	j, err := s.lookup(h)
	if err != nil {
		return fmt.Errorf("submit %s: %w", h, err)
	}

	// Count the job before it can possibly run, so the outstanding counter
	// never transiently reads zero while work exists.
	s.outstanding.Add(1)
	if !j.submitted.CompareAndSwap(false, true) {
		s.outstanding.Add(-1)
		return fmt.Errorf("submit %s: %w", h, ErrAlreadySubmitted)
	}

	if j.pending.Load() == 0 {
		s.tryEnqueue(j, 0)
	}
	return nil
}

// WaitAll blocks until every submitted job, including jobs made runnable
// through dependency resolution, has completed. The calling goroutine does
// not sleep: it runs the same pop-or-steal loop as the workers, using the
// client queue slot, so it contributes throughput while waiting.
func (s *Scheduler) WaitAll() {
	spins := 0
	for s.outstanding.Load() > 0 {
		if j := s.queues[0].pop(); j != nil {
			s.execute(j, 0)
			spins = 0
			continue
		}
		if j := s.stealFor(0); j != nil {
			s.execute(j, 0)
			spins = 0
			continue
		}
		spins++
		if spins >= s.cfg.SpinBudget {
			runtime.Gosched()
			spins = 0
		}
	}
}

// Done reports whether the job has completed.
func (s *Scheduler) Done(h Handle) (bool, error) {
	j, err := s.lookup(h)
	if err != nil {
		return false, fmt.Errorf("done %s: %w", h, err)
	}
	return j.done.Load(), nil
}

// JobErr returns the execution failure recorded for a completed job, or nil
// if the payload succeeded. Calling it before the job has completed returns
// ErrBusy: failures are surfaced after convergence, never mid-flight.
func (s *Scheduler) JobErr(h Handle) (error, error) {
	j, err := s.lookup(h)
	if err != nil {
		return nil, fmt.Errorf("job err %s: %w", h, err)
	}
	if !j.done.Load() {
		return nil, fmt.Errorf("job err %s: %w", h, ErrBusy)
	}
	return j.err, nil
}

// Reset recycles the whole arena for the next frame, invalidating every
// outstanding handle. It is a misuse error while work is outstanding.
func (s *Scheduler) Reset() error {
	if s.outstanding.Load() != 0 {
		return fmt.Errorf("reset: %w", ErrBusy)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.free = s.free[:0]
	for i := range s.slots {
		if s.slots[i] == nil {
			continue
		}
		s.slots[i] = nil
		s.free = append(s.free, int32(i))
	}
	return nil
}

// Stats returns a snapshot of the scheduler counters, aggregated over all
// queues. Counters may be mid-update; the snapshot is advisory.
func (s *Scheduler) Stats() Stats {
	st := Stats{
		Workers:     s.cfg.Workers,
		Outstanding: s.outstanding.Load(),
		Completed:   s.completed.Load(),
		Failed:      s.failed.Load(),
	}
	for _, q := range s.queues {
		st.Pushes += q.pushes.Load()
		st.Pops += q.pops.Load()
		st.Steals += q.steals.Load()
		st.StealMisses += q.misses.Load()
	}
	return st
}

// runWorker is the pop-or-steal loop for worker self (queue slots 1..N).
func (s *Scheduler) runWorker(self int) {
	defer s.wg.Done()
	s.logger.Debug("worker started", "worker", self)

	spins := 0
	for {
		if j := s.queues[self].pop(); j != nil {
			s.execute(j, self)
			spins = 0
			continue
		}
		if j := s.stealFor(self); j != nil {
			s.execute(j, self)
			spins = 0
			continue
		}

		select {
		case <-s.quit:
			s.logger.Debug("worker stopped", "worker", self)
			return
		default:
		}

		spins++
		if spins >= s.cfg.SpinBudget {
			runtime.Gosched()
			spins = 0
		}
	}
}

// stealFor attempts one steal on behalf of queue self, from a victim chosen
// uniformly at random among the other queues. A nil result means the victim
// was empty or the race was lost; the caller backs off and retries.
func (s *Scheduler) stealFor(self int) *job {
	victim := rand.Intn(len(s.queues))
	if victim == self {
		victim = (victim + 1) % len(s.queues)
	}
	return s.queues[victim].steal()
}

// execute runs a dequeued job on queue self and cascades completion: record
// the payload outcome, mark done, unblock dependents, and finally give back
// the outstanding count. A dependent whose counter reaches zero is pushed
// onto this queue: the completing worker likely has warm cache state for it,
// and the push avoids a cross-worker handoff.
func (s *Scheduler) execute(j *job, self int) {
	err := s.runPayload(j)

	j.err = err
	j.done.Store(true)
	if err != nil {
		s.failed.Add(1)
		s.logger.Debug("job failed", "job", j.handle.String(), "error", err)
	} else {
		s.completed.Add(1)
	}

	for _, d := range j.dependents {
		if d.pending.Add(-1) == 0 && d.submitted.Load() {
			s.tryEnqueue(d, self)
		}
	}

	s.outstanding.Add(-1)
}

// tryEnqueue pushes the job onto queue self exactly once. Both Submit and
// the completion cascade can observe a job as runnable; the CAS decides the
// single pusher.
func (s *Scheduler) tryEnqueue(j *job, self int) {
	if j.enqueued.CompareAndSwap(false, true) {
		s.queues[self].push(j)
	}
}

// runPayload invokes the payload, converting an error return or a panic
// into a PayloadError. The job must complete either way, or WaitAll would
// deadlock on the outstanding counter.
func (s *Scheduler) runPayload(j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PayloadError{Handle: j.handle, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if perr := j.fn(); perr != nil {
		return &PayloadError{Handle: j.handle, Err: perr}
	}
	return nil
}

func (s *Scheduler) lookup(h Handle) (*job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(h)
}

func (s *Scheduler) lookupLocked(h Handle) (*job, error) {
	if h.index < 0 || int(h.index) >= len(s.slots) {
		return nil, ErrInvalidHandle
	}
	j := s.slots[h.index]
	if j == nil || s.gens[h.index] != h.gen {
		return nil, ErrInvalidHandle
	}
	return j, nil
}
