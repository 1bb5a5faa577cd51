package jobsys

import (
	"sync/atomic"
	"testing"
)

// intsView adapts a slice to the View contract.
type intsView []int

func (v intsView) Len() int     { return len(v) }
func (v intsView) At(i int) int { return v[i] }

func TestChunkSpans(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		workers  int
		wantLen  int
		wantSize int // size of every span except possibly the last
	}{
		{name: "empty", n: 0, workers: 4, wantLen: 0},
		{name: "single item", n: 1, workers: 4, wantLen: 1, wantSize: 1},
		{name: "fewer items than chunks", n: 10, workers: 4, wantLen: 10, wantSize: 1},
		{name: "1000 items 4 workers", n: 1000, workers: 4, wantLen: 8, wantSize: 125},
		{name: "uneven tail", n: 17, workers: 2, wantLen: 5, wantSize: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := chunkSpans(tt.n, tt.workers)
			if len(spans) != tt.wantLen {
				t.Fatalf("len(spans) = %d, want %d", len(spans), tt.wantLen)
			}

			// Spans must tile [0, n) exactly.
			next := 0
			for i, sp := range spans {
				if sp.begin != next {
					t.Errorf("span %d begins at %d, want %d", i, sp.begin, next)
				}
				if sp.end <= sp.begin {
					t.Errorf("span %d is empty: [%d, %d)", i, sp.begin, sp.end)
				}
				if i < len(spans)-1 && sp.end-sp.begin != tt.wantSize {
					t.Errorf("span %d size = %d, want %d", i, sp.end-sp.begin, tt.wantSize)
				}
				next = sp.end
			}
			if next != tt.n {
				t.Errorf("spans end at %d, want %d", next, tt.n)
			}
		})
	}
}

func TestParallelForVisitsEveryIndexOnce(t *testing.T) {
	const n = 1000
	s := newTestScheduler(t, 4)

	view := make(intsView, n)
	for i := range view {
		view[i] = i
	}

	visits := make([]atomic.Int32, n)
	err := ParallelFor(s, view, func(v View[int], i int) {
		visits[v.At(i)].Add(1)
	})
	if err != nil {
		t.Fatalf("ParallelFor: %v", err)
	}

	for i := range visits {
		if got := visits[i].Load(); got != 1 {
			t.Errorf("index %d visited %d times, want 1", i, got)
		}
	}
}

func TestParallelForEmptyView(t *testing.T) {
	s := newTestScheduler(t, 4)

	var calls atomic.Int32
	err := ParallelFor(s, intsView(nil), func(v View[int], i int) {
		calls.Add(1)
	})
	if err != nil {
		t.Fatalf("ParallelFor: %v", err)
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("perItem called %d times on empty view, want 0", got)
	}
}

func TestParallelForSingleItem(t *testing.T) {
	s := newTestScheduler(t, 4)

	var calls atomic.Int32
	err := ParallelFor(s, intsView{42}, func(v View[int], i int) {
		calls.Add(1)
	})
	if err != nil {
		t.Fatalf("ParallelFor: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("perItem called %d times, want 1", got)
	}
}

func TestParallelForSurfacesChunkFailures(t *testing.T) {
	s := newTestScheduler(t, 2)

	view := make(intsView, 100)
	err := ParallelFor(s, view, func(v View[int], i int) {
		if i == 7 {
			panic("bad item")
		}
	})
	if err == nil {
		t.Fatal("ParallelFor = nil, want chunk failure")
	}

	// A failed chunk must not leave work outstanding.
	if st := s.Stats(); st.Outstanding != 0 {
		t.Errorf("Outstanding = %d after ParallelFor, want 0", st.Outstanding)
	}
}
