package jobsys

import "fmt"

// visitState colors for the DFS in ValidateAcyclic.
const (
	unvisited = iota
	visiting
	visited
)

// ValidateAcyclic checks that the dependency edges reachable from the given
// handles form a DAG, returning ErrCycle otherwise. With no handles it
// checks the whole arena.
//
// This is an explicit pre-submission check for tests and debug paths; the
// hot path never pays for it.
func (s *Scheduler) ValidateAcyclic(roots ...Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var start []*job
	if len(roots) == 0 {
		for _, j := range s.slots {
			if j != nil {
				start = append(start, j)
			}
		}
	} else {
		for _, h := range roots {
			j, err := s.lookupLocked(h)
			if err != nil {
				return fmt.Errorf("validate %s: %w", h, err)
			}
			start = append(start, j)
		}
	}

	state := make(map[*job]int, len(start))
	var visit func(j *job) error
	visit = func(j *job) error {
		switch state[j] {
		case visiting:
			return fmt.Errorf("validate: %s: %w", j.handle, ErrCycle)
		case visited:
			return nil
		}
		state[j] = visiting
		for _, d := range j.dependents {
			if err := visit(d); err != nil {
				return err
			}
		}
		state[j] = visited
		return nil
	}

	for _, j := range start {
		if err := visit(j); err != nil {
			return err
		}
	}
	return nil
}
