package jobsys

import (
	"sync"
	"sync/atomic"
)

// deque is a per-worker double-ended job queue. The owning worker pushes and
// pops at the tail (LIFO, keeping cache-hot work local); thieves take from
// the head (FIFO, taking the oldest and likely largest remaining unit).
//
// All mutation happens inside a short per-deque critical section. The owner
// is alone on its deque almost all the time, so the lock is uncontended on
// the hot path; thieves probe the atomic length first and skip empty victims
// without touching the lock at all.
type deque struct {
	mu   sync.Mutex
	buf  []*job
	head int // steal end: index of the oldest job
	tail int // owner end: index one past the newest job
	n    int

	size   atomic.Int32
	pushes atomic.Int64
	pops   atomic.Int64
	steals atomic.Int64
	misses atomic.Int64
}

const dequeInitialCap = 64

func newDeque() *deque {
	return &deque{buf: make([]*job, dequeInitialCap)}
}

// push appends a job at the owner end. It always succeeds; the ring grows
// when full.
func (d *deque) push(j *job) {
	d.mu.Lock()
	if d.n == len(d.buf) {
		d.grow()
	}
	d.buf[d.tail] = j
	d.tail = (d.tail + 1) % len(d.buf)
	d.n++
	d.mu.Unlock()

	d.size.Add(1)
	d.pushes.Add(1)
}

// pop removes and returns the newest job, or nil when the deque is empty.
// Owner-only.
func (d *deque) pop() *job {
	d.mu.Lock()
	if d.n == 0 {
		d.mu.Unlock()
		return nil
	}
	d.tail = (d.tail - 1 + len(d.buf)) % len(d.buf)
	j := d.buf[d.tail]
	d.buf[d.tail] = nil
	d.n--
	d.mu.Unlock()

	d.size.Add(-1)
	d.pops.Add(1)
	return j
}

// steal removes and returns the oldest job, or nil when the deque is empty
// or the race is lost. A nil result is not an error; the thief retries
// elsewhere.
func (d *deque) steal() *job {
	// Lock-free emptiness probe: most steal attempts land on empty victims
	// and should not serialize against the owner.
	if d.size.Load() == 0 {
		d.misses.Add(1)
		return nil
	}

	d.mu.Lock()
	if d.n == 0 {
		d.mu.Unlock()
		d.misses.Add(1)
		return nil
	}
	j := d.buf[d.head]
	d.buf[d.head] = nil
	d.head = (d.head + 1) % len(d.buf)
	d.n--
	d.mu.Unlock()

	d.size.Add(-1)
	d.steals.Add(1)
	return j
}

// grow doubles the ring, relinearizing from head. Caller holds mu.
func (d *deque) grow() {
	next := make([]*job, len(d.buf)*2)
	for i := 0; i < d.n; i++ {
		next[i] = d.buf[(d.head+i)%len(d.buf)]
	}
	d.buf = next
	d.head = 0
	d.tail = d.n
}

// remaining reports how many jobs are still queued. Used for the
// conservation accounting at shutdown.
func (d *deque) remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.n
}
