package sim

import (
	"io"
	"log/slog"
	"testing"

	"github.com/me/stride/internal/jobsys"
)

func newTestWorld(t *testing.T, agents int) *World {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sched := jobsys.New(jobsys.Config{Workers: 4}, logger)
	t.Cleanup(sched.Close)
	return NewWorld(sched, DefaultParams(), agents, 42, logger)
}

func TestStepAdvancesFrame(t *testing.T) {
	w := newTestWorld(t, 100)

	before := make([]Vec2, w.Count())
	view := w.Agents()
	for i := 0; i < view.Len(); i++ {
		before[i] = view.At(i).Pos
	}

	if err := w.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if w.Frames() != 1 {
		t.Errorf("Frames = %d, want 1", w.Frames())
	}

	moved := 0
	for i := 0; i < view.Len(); i++ {
		if view.At(i).Pos != before[i] {
			moved++
		}
	}
	if moved == 0 {
		t.Error("no agent moved after a step")
	}
}

func TestStepKeepsAgentsInBounds(t *testing.T) {
	w := newTestWorld(t, 200)
	bounds := DefaultParams().Bounds

	for f := 0; f < 20; f++ {
		if err := w.Step(); err != nil {
			t.Fatalf("Step %d: %v", f, err)
		}
	}

	view := w.Agents()
	for i := 0; i < view.Len(); i++ {
		p := view.At(i).Pos
		if p.X < 0 || p.X >= bounds || p.Y < 0 || p.Y >= bounds {
			t.Errorf("agent %d out of bounds: %+v", i, p)
		}
	}
}

func TestStepWithNoAgents(t *testing.T) {
	w := newTestWorld(t, 0)
	if err := w.Step(); err != nil {
		t.Fatalf("Step on empty world: %v", err)
	}
}

func TestFrameMatchesStepSemantics(t *testing.T) {
	// The explicit job graph and the ParallelFor driver must produce the
	// same trajectory from the same seed.
	a := newTestWorld(t, 80)
	b := newTestWorld(t, 80)

	for f := 0; f < 5; f++ {
		if err := a.Step(); err != nil {
			t.Fatalf("Step %d: %v", f, err)
		}
		if err := b.Frame(3); err != nil {
			t.Fatalf("Frame %d: %v", f, err)
		}
	}

	av, bv := a.Agents(), b.Agents()
	if av.Len() != bv.Len() {
		t.Fatalf("agent counts diverged: %d vs %d", av.Len(), bv.Len())
	}
	for i := 0; i < av.Len(); i++ {
		if av.At(i).Pos != bv.At(i).Pos {
			t.Errorf("agent %d position diverged: %+v vs %+v", i, av.At(i).Pos, bv.At(i).Pos)
		}
	}
}

func TestFrameRecyclesArena(t *testing.T) {
	w := newTestWorld(t, 50)

	for f := 0; f < 10; f++ {
		if err := w.Frame(0); err != nil {
			t.Fatalf("Frame %d: %v", f, err)
		}
	}
	if w.Frames() != 10 {
		t.Errorf("Frames = %d, want 10", w.Frames())
	}
}

func TestVec2Clamp(t *testing.T) {
	tests := []struct {
		name string
		v    Vec2
		max  float64
		want float64 // resulting length
	}{
		{name: "under limit", v: Vec2{X: 3, Y: 4}, max: 10, want: 5},
		{name: "over limit", v: Vec2{X: 30, Y: 40}, max: 10, want: 10},
		{name: "zero vector", v: Vec2{}, max: 10, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.v.Clamp(tt.max).Length()
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Clamp length = %v, want %v", got, tt.want)
			}
		})
	}
}
