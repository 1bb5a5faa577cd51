// Package script runs a JavaScript program as a per-item workload for the
// scheduler's data-parallel iteration. The program is compiled once; each
// evaluation sees the globals `index` and `value` and its final expression
// value is the item result.
//
// goja runtimes are not safe for concurrent use, so the workload keeps one
// runtime per execution slot in a channel pool: workers plus the client
// goroutine that participates in WaitAll.
package script

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"

	"github.com/me/stride/internal/jobsys"
)

// Workload is a compiled per-item script with a pool of runtimes.
type Workload struct {
	prog *goja.Program
	pool chan *goja.Runtime
}

// Compile compiles src and allocates slots runtimes. slots should be the
// scheduler's worker count plus one for the converging client goroutine.
func Compile(name, src string, slots int) (*Workload, error) {
	if slots < 1 {
		slots = 1
	}
	prog, err := goja.Compile(name, src, true)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}

	w := &Workload{
		prog: prog,
		pool: make(chan *goja.Runtime, slots),
	}
	for i := 0; i < slots; i++ {
		w.pool <- goja.New()
	}
	return w, nil
}

// Apply evaluates the script for every item of view through the scheduler
// and returns the sum of the integer results. Script failures are collected
// per item and joined after convergence.
func (w *Workload) Apply(sched *jobsys.Scheduler, view jobsys.View[float64]) (int64, error) {
	var sum atomic.Int64
	var mu sync.Mutex
	var itemErrs []error

	err := jobsys.ParallelFor(sched, view, func(v jobsys.View[float64], i int) {
		n, err := w.eval(i, v.At(i))
		if err != nil {
			mu.Lock()
			itemErrs = append(itemErrs, fmt.Errorf("item %d: %w", i, err))
			mu.Unlock()
			return
		}
		sum.Add(n)
	})
	if err != nil {
		return 0, fmt.Errorf("apply script: %w", err)
	}
	if len(itemErrs) > 0 {
		return 0, errors.Join(itemErrs...)
	}
	return sum.Load(), nil
}

// eval runs the program on a pooled runtime with the item bound to globals.
func (w *Workload) eval(index int, value float64) (int64, error) {
	rt := <-w.pool
	defer func() { w.pool <- rt }()

	if err := rt.Set("index", index); err != nil {
		return 0, fmt.Errorf("set index: %w", err)
	}
	if err := rt.Set("value", value); err != nil {
		return 0, fmt.Errorf("set value: %w", err)
	}
	res, err := rt.RunProgram(w.prog)
	if err != nil {
		return 0, err
	}
	return res.ToInteger(), nil
}
