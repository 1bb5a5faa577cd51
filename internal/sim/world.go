// Package sim is a flocking simulation driven through the job scheduler: the
// per-frame workload the scheduler exists to parallelize. Each frame computes
// steering for every agent (reads all positions, writes only its own index)
// and then integrates velocities and positions.
package sim

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/me/stride/internal/entity"
	"github.com/me/stride/internal/jobsys"
)

// Params tunes the flocking behavior.
type Params struct {
	Neighborhood float64 // perception radius
	Separation   float64 // weight of short-range repulsion
	Cohesion     float64 // weight of pull toward local centroid
	Alignment    float64 // weight of velocity matching
	MaxSpeed     float64
	Bounds       float64 // wrap-around world size
	Dt           float64 // frame timestep
}

// DefaultParams returns a stable flock.
func DefaultParams() Params {
	return Params{
		Neighborhood: 40,
		Separation:   1.5,
		Cohesion:     0.05,
		Alignment:    0.3,
		MaxSpeed:     60,
		Bounds:       1000,
		Dt:           1.0 / 60,
	}
}

// Agent is one flock member.
type Agent struct {
	Pos Vec2
	Vel Vec2
}

// World owns the agents and drives their per-frame update through the
// scheduler. It assumes exclusive use of the scheduler's job arena between
// convergence points (Frame calls Reset).
type World struct {
	params Params
	sched  *jobsys.Scheduler
	agents *entity.Store[Agent]
	steer  []Vec2
	logger *slog.Logger
	frames int
}

// NewWorld creates a world with n agents placed deterministically from seed.
func NewWorld(sched *jobsys.Scheduler, params Params, n int, seed uint64, logger *slog.Logger) *World {
	w := &World{
		params: params,
		sched:  sched,
		agents: entity.NewStore[Agent](n),
		steer:  make([]Vec2, n),
		logger: logger.With("component", "sim"),
	}

	rng := rand.New(rand.NewSource(int64(seed)))
	for i := 0; i < n; i++ {
		w.agents.Create(Agent{
			Pos: Vec2{X: rng.Float64() * params.Bounds, Y: rng.Float64() * params.Bounds},
			Vel: Vec2{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1}.Scale(params.MaxSpeed / 2),
		})
	}
	return w
}

// Count returns the number of agents.
func (w *World) Count() int {
	return w.agents.Len()
}

// Frames returns how many frames have run.
func (w *World) Frames() int {
	return w.frames
}

// Agents exposes the component view for read-only inspection.
func (w *World) Agents() entity.View[Agent] {
	return w.agents.View()
}

// Step advances one frame using two ParallelFor passes: steering into the
// back buffer, then integration. Steering for index i reads every position
// but writes only steer[i], so chunks never write overlapping data.
func (w *World) Step() error {
	view := w.agents.View()

	if err := jobsys.ParallelFor(w.sched, view, func(v jobsys.View[*Agent], i int) {
		w.steer[i] = w.steerFor(v, i)
	}); err != nil {
		return fmt.Errorf("steer pass: %w", err)
	}

	if err := jobsys.ParallelFor(w.sched, view, func(v jobsys.View[*Agent], i int) {
		w.integrate(v.At(i), w.steer[i])
	}); err != nil {
		return fmt.Errorf("integrate pass: %w", err)
	}

	w.frames++
	return nil
}

// Frame advances one frame through an explicit job graph: one steering job
// per agent band, one integration job per band, and every integration job
// depending on every steering job, since integration moves positions that
// all steering jobs read. The arena is recycled afterwards for the next
// frame.
func (w *World) Frame(bands int) error {
	n := w.agents.Len()
	if n == 0 {
		return nil
	}
	if bands <= 0 {
		bands = w.sched.Workers()
	}
	if bands > n {
		bands = n
	}
	size := (n + bands - 1) / bands
	view := w.agents.View()

	var steerJobs, integrateJobs []jobsys.Handle
	for begin := 0; begin < n; begin += size {
		end := begin + size
		if end > n {
			end = n
		}
		b, e := begin, end

		sh, err := w.sched.CreateJob(func() error {
			for i := b; i < e; i++ {
				w.steer[i] = w.steerFor(view, i)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("create steer job: %w", err)
		}
		steerJobs = append(steerJobs, sh)

		ih, err := w.sched.CreateJob(func() error {
			for i := b; i < e; i++ {
				w.integrate(view.At(i), w.steer[i])
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("create integrate job: %w", err)
		}
		integrateJobs = append(integrateJobs, ih)
	}

	for _, ih := range integrateJobs {
		for _, sh := range steerJobs {
			if err := w.sched.AddDependency(ih, sh); err != nil {
				return fmt.Errorf("link frame graph: %w", err)
			}
		}
	}

	for _, h := range steerJobs {
		if err := w.sched.Submit(h); err != nil {
			return fmt.Errorf("submit steer job: %w", err)
		}
	}
	for _, h := range integrateJobs {
		if err := w.sched.Submit(h); err != nil {
			return fmt.Errorf("submit integrate job: %w", err)
		}
	}
	w.sched.WaitAll()

	for _, h := range append(steerJobs, integrateJobs...) {
		jerr, err := w.sched.JobErr(h)
		if err != nil {
			return fmt.Errorf("inspect frame job: %w", err)
		}
		if jerr != nil {
			return fmt.Errorf("frame job: %w", jerr)
		}
	}

	if err := w.sched.Reset(); err != nil {
		return fmt.Errorf("recycle frame arena: %w", err)
	}
	w.frames++
	return nil
}

// steerFor computes the flocking steering for agent i: separation from close
// neighbors, cohesion toward the local centroid, and velocity alignment.
func (w *World) steerFor(view jobsys.View[*Agent], i int) Vec2 {
	self := view.At(i)
	var sep, centroid, avgVel Vec2
	neighbors := 0

	for j := 0; j < view.Len(); j++ {
		if j == i {
			continue
		}
		other := view.At(j)
		d := other.Pos.Sub(self.Pos)
		dist := d.Length()
		if dist > w.params.Neighborhood {
			continue
		}
		neighbors++
		centroid = centroid.Add(other.Pos)
		avgVel = avgVel.Add(other.Vel)
		if dist > 0 {
			sep = sep.Sub(d.Scale(1 / (dist * dist)))
		}
	}
	if neighbors == 0 {
		return Vec2{}
	}

	inv := 1 / float64(neighbors)
	cohesion := centroid.Scale(inv).Sub(self.Pos).Scale(w.params.Cohesion)
	alignment := avgVel.Scale(inv).Sub(self.Vel).Scale(w.params.Alignment)
	separation := sep.Scale(w.params.Separation)

	return separation.Add(cohesion).Add(alignment)
}

// integrate applies steering and advances position, wrapping at the world
// bounds.
func (w *World) integrate(a *Agent, steer Vec2) {
	a.Vel = a.Vel.Add(steer.Scale(w.params.Dt)).Clamp(w.params.MaxSpeed)
	a.Pos = a.Pos.Add(a.Vel.Scale(w.params.Dt))
	a.Pos.X = wrap(a.Pos.X, w.params.Bounds)
	a.Pos.Y = wrap(a.Pos.Y, w.params.Bounds)
}

func wrap(x, bound float64) float64 {
	switch {
	case x < 0:
		return x + bound
	case x >= bound:
		return x - bound
	default:
		return x
	}
}
