package engine

import (
	"context"
	"sync"

	"github.com/piwi3910/SlabNest/internal/model"
)

// Run is one nesting job started by a Runner.
type Run struct {
	id     uint64
	cancel context.CancelFunc
	done   chan struct{}
	result model.NestingResult
	err    error
}

// Done is closed when the run has finished.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run has finished and returns its outcome. A
// superseded run reports context.Canceled.
func (r *Run) Wait() (model.NestingResult, error) {
	<-r.done
	return r.result, r.err
}

// Runner keeps at most one nesting job alive. Starting a run cancels the
// previous one, and progress from a superseded run is dropped.
type Runner struct {
	mu      sync.Mutex
	nextID  uint64
	current *Run
}

// Start launches n on parts in the background. progress may be nil.
func (rn *Runner) Start(ctx context.Context, n Nester, parts []model.ImportedPart, progress ProgressFunc) *Run {
	rn.mu.Lock()
	if rn.current != nil {
		rn.current.cancel()
	}
	rn.nextID++
	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{id: rn.nextID, cancel: cancel, done: make(chan struct{})}
	rn.current = run
	rn.mu.Unlock()

	if progress != nil {
		n.Progress = func(p Progress) {
			if rn.isCurrent(run.id) {
				progress(p)
			}
		}
	}

	go func() {
		defer close(run.done)
		defer cancel()
		run.result, run.err = n.Nest(runCtx, parts)
		if run.err == nil && !rn.isCurrent(run.id) {
			run.err = context.Canceled
		}
	}()
	return run
}

// Cancel stops the current run, if any.
func (rn *Runner) Cancel() {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	if rn.current != nil {
		rn.current.cancel()
	}
}

// Current returns the most recently started run.
func (rn *Runner) Current() *Run {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	return rn.current
}

func (rn *Runner) isCurrent(id uint64) bool {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	return rn.current != nil && rn.current.id == id
}
