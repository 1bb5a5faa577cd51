package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/stride/internal/benchstore"
	"github.com/me/stride/internal/config"
	"github.com/me/stride/internal/jobsys"
	"github.com/me/stride/internal/script"
	"github.com/me/stride/internal/sim"
)

func newBenchCmd() *cobra.Command {
	var scenarioPath string
	var agents, frames, workers int
	var dbPath string

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark the scheduler and record the result",
		Long: `Runs the scenario workload (the flocking simulation, or a JavaScript
per-item script when the scenario names one) and records timing and
steal counters to the benchmark database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(cmd, scenarioPath, agents, frames, workers)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				sc.DBPath = dbPath
			}

			sched := jobsys.New(jobsys.Config{Workers: sc.Workers}, logger)
			defer sched.Close()

			start := time.Now()
			if sc.Script != "" {
				err = runScriptBench(sched, sc)
			} else {
				err = runSimBench(sched, sc)
			}
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			st := sched.Stats()
			run := &benchstore.Run{
				ID:          benchstore.NewRunID(),
				Scenario:    sc.Name,
				Workers:     sched.Workers(),
				Agents:      sc.Agents,
				Frames:      sc.Frames,
				Jobs:        st.Completed + st.Failed,
				Steals:      st.Steals,
				StealMisses: st.StealMisses,
				Duration:    elapsed,
				CreatedAt:   time.Now().UTC(),
			}

			store, err := benchstore.Open(sc.DBPath, logger)
			if err != nil {
				return fmt.Errorf("open bench db: %w", err)
			}
			defer store.Close()
			ctx := context.Background()
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate bench db: %w", err)
			}
			if err := store.CreateRun(ctx, run); err != nil {
				return fmt.Errorf("record run: %w", err)
			}

			fmt.Printf("%s  %s  workers=%d  jobs=%s  steals=%s  %s  (%s jobs/s)\n",
				run.ID, run.Scenario, run.Workers,
				humanize.Comma(run.Jobs), humanize.Comma(run.Steals),
				run.Duration.Round(time.Millisecond),
				humanize.CommafWithDigits(float64(run.Jobs)/run.Duration.Seconds(), 0))
			return nil
		},
	}

	cmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "", "Scenario YAML file")
	cmd.Flags().IntVar(&agents, "agents", 0, "Agent count (overrides scenario)")
	cmd.Flags().IntVar(&frames, "frames", 0, "Frame count (overrides scenario)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Worker count (0 = all CPUs)")
	cmd.Flags().StringVar(&dbPath, "db", "stride.db", "Benchmark database path")

	return cmd
}

// runSimBench drives the flocking simulation with the ParallelFor path.
func runSimBench(sched *jobsys.Scheduler, sc config.Scenario) error {
	world := sim.NewWorld(sched, sim.DefaultParams(), sc.Agents, sc.Seed, logger)
	for f := 0; f < sc.Frames; f++ {
		if err := world.Step(); err != nil {
			return fmt.Errorf("frame %d: %w", f, err)
		}
	}
	return nil
}

// floatsView adapts a slice for the scripted workload.
type floatsView []float64

func (v floatsView) Len() int         { return len(v) }
func (v floatsView) At(i int) float64 { return v[i] }

// runScriptBench evaluates the scenario's JS program over a synthetic item
// view, once per frame.
func runScriptBench(sched *jobsys.Scheduler, sc config.Scenario) error {
	src, err := os.ReadFile(sc.Script)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	w, err := script.Compile(sc.Script, string(src), sched.Workers()+1)
	if err != nil {
		return err
	}

	view := make(floatsView, sc.Agents)
	for i := range view {
		view[i] = float64(i)
	}
	for f := 0; f < sc.Frames; f++ {
		if _, err := w.Apply(sched, view); err != nil {
			return fmt.Errorf("frame %d: %w", f, err)
		}
	}
	return nil
}
