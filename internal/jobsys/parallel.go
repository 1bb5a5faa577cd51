package jobsys

import "errors"

// View is the contract between the scheduler and an external indexable
// collection: a length and a random-access accessor, nothing else. At must
// be safe to call concurrently from multiple chunk jobs; the scheduler
// assumes, but does not verify, that chunks do not write overlapping items.
type View[T any] interface {
	Len() int
	At(i int) T
}

// span is a contiguous half-open index range processed by one chunk job.
type span struct {
	begin, end int
}

// chunkSpans splits [0, n) into contiguous non-overlapping spans of size
// max(1, n/(workers*2)). The oversubscription factor of 2 creates more
// chunks than workers so idle workers can steal remaining chunks when some
// chunks run cheaper than others.
func chunkSpans(n, workers int) []span {
	if n <= 0 {
		return nil
	}
	size := n / (workers * 2)
	if size < 1 {
		size = 1
	}
	spans := make([]span, 0, n/size+1)
	for begin := 0; begin < n; begin += size {
		end := begin + size
		if end > n {
			end = n
		}
		spans = append(spans, span{begin: begin, end: end})
	}
	return spans
}

// ParallelFor visits every index of view exactly once, splitting the range
// into independent chunk jobs and converging with WaitAll before returning.
// The call is synchronous from the caller's point of view.
//
// A panic inside perItem fails the enclosing chunk; failures from all
// chunks are joined into the returned error after convergence. A view
// of length zero creates no jobs and returns immediately.
func ParallelFor[T any](s *Scheduler, view View[T], perItem func(view View[T], index int)) error {
	n := view.Len()
	if n == 0 {
		return nil
	}

	spans := chunkSpans(n, s.Workers())
	handles := make([]Handle, 0, len(spans))
	for _, sp := range spans {
		sp := sp
		h, err := s.CreateJob(func() error {
			for i := sp.begin; i < sp.end; i++ {
				perItem(view, i)
			}
			return nil
		})
		if err != nil {
			return err
		}
		handles = append(handles, h)
	}

	for _, h := range handles {
		if err := s.Submit(h); err != nil {
			return err
		}
	}
	s.WaitAll()

	var errs []error
	for _, h := range handles {
		jerr, err := s.JobErr(h)
		if err != nil {
			return err
		}
		if jerr != nil {
			errs = append(errs, jerr)
		}
	}
	return errors.Join(errs...)
}
