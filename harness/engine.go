package harness

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/flowtest/errors"
	"github.com/c360/flowtest/lifecycle"
)

// RunConfig controls one run call.
type RunConfig struct {
	// Iterations is the number of independent trigger tasks to submit. Must
	// be at least 1.
	Iterations int
	// StopOnFinish fires the Stopped phase after the trigger loop.
	StopOnFinish bool
	// Initialize fires the Scheduled phase before any trigger attempt.
	Initialize bool
}

// DefaultRunConfig is one iteration with the full schedule/stop lifecycle.
func DefaultRunConfig() RunConfig {
	return RunConfig{Iterations: 1, StopOnFinish: true, Initialize: true}
}

// triggerResult carries one task's outcome. The done channel closes when the
// task completes; the consuming loop awaits results in submission order.
type triggerResult struct {
	done chan struct{}
	err  error
}

// Run drives the component through iterations trigger attempts with the full
// schedule/stop lifecycle.
func (r *Runner) Run(iterations int) error {
	return r.RunWith(RunConfig{Iterations: iterations, StopOnFinish: true, Initialize: true})
}

// RunWith drives one run: fires Scheduled (when configured), submits exactly
// cfg.Iterations trigger tasks to a worker pool of the configured thread
// count, consumes results in submission order, fires Unscheduled once after
// the first consumed attempt, and fires Stopped when configured.
//
// Result consumption order equals task submission order, independent of
// actual completion order; the "first finisher" that triggers Unscheduled is
// the first submitted task. The first trigger error is returned as
// a hard failure; errors from later iterations are drained and logged.
func (r *Runner) RunWith(cfg RunConfig) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	if cfg.Iterations < 1 {
		msg := fmt.Errorf("%w: got %d", errors.ErrInvalidIterations, cfg.Iterations)
		return errors.WrapConfig(msg, "Runner", "RunWith", "iteration validation")
	}

	if r.metrics != nil {
		r.metrics.RunsTotal.Inc()
	}

	if cfg.Initialize {
		if err := r.bindings.Invoke(lifecycle.PhaseScheduled, r.pctx); err != nil {
			r.observeLifecycleFailure(lifecycle.PhaseScheduled)
			return errors.Wrap(err, "Runner", "RunWith", "scheduled phase")
		}
	}

	ctx := context.Background()
	results := make([]*triggerResult, cfg.Iterations)

	// The pool exists for this run only. Tasks already submitted run to
	// completion; there is no cancellation and no timeout.
	pool := new(errgroup.Group)
	pool.SetLimit(r.ThreadCount())
	for i := range results {
		res := &triggerResult{done: make(chan struct{})}
		results[i] = res
		pool.Go(func() error {
			defer close(res.done)
			res.err = r.trigger(ctx)
			return nil
		})
	}

	finished := 0
	unscheduledRun := false
	var unscheduledErr error
	var firstTriggerErr error

	for i, res := range results {
		<-res.done

		finished++
		if finished == 1 {
			unscheduledRun = true
			if err := r.bindings.Invoke(lifecycle.PhaseUnscheduled, r.pctx); err != nil {
				r.observeLifecycleFailure(lifecycle.PhaseUnscheduled)
				unscheduledErr = errors.Wrap(err, "Runner", "RunWith", "unscheduled phase")
			}
		}

		if res.err != nil {
			if firstTriggerErr == nil {
				firstTriggerErr = errors.WrapTrigger(
					res.err, "Runner", "RunWith", fmt.Sprintf("trigger iteration %d", i))
			} else {
				r.logger.Warn("additional trigger failure after first reported error",
					"iteration", i, "error", res.err)
			}
		}
	}
	_ = pool.Wait()

	// No attempt was observed as completed; unschedule anyway so the
	// component is never left in the scheduled state.
	if !unscheduledRun {
		if err := r.bindings.Invoke(lifecycle.PhaseUnscheduled, r.pctx); err != nil {
			r.observeLifecycleFailure(lifecycle.PhaseUnscheduled)
			return errors.Wrap(err, "Runner", "RunWith", "unscheduled phase")
		}
	}

	if unscheduledErr != nil {
		r.logSuppressedTriggerError(firstTriggerErr)
		return unscheduledErr
	}

	if cfg.StopOnFinish {
		if err := r.bindings.Invoke(lifecycle.PhaseStopped); err != nil {
			r.observeLifecycleFailure(lifecycle.PhaseStopped)
			r.logSuppressedTriggerError(firstTriggerErr)
			return errors.Wrap(err, "Runner", "RunWith", "stopped phase")
		}
	}

	return firstTriggerErr
}

// logSuppressedTriggerError records a trigger failure that a lifecycle
// failure on the same run displaces from the return value.
func (r *Runner) logSuppressedTriggerError(err error) {
	if err != nil {
		r.logger.Warn("trigger failure suppressed by lifecycle failure", "error", err)
	}
}

// Shutdown fires the Shutdown phase once. It is never called by Run; the
// caller decides when the component's process lifetime ends.
func (r *Runner) Shutdown() error {
	if err := r.bindings.Invoke(lifecycle.PhaseShutdown); err != nil {
		r.observeLifecycleFailure(lifecycle.PhaseShutdown)
		return errors.Wrap(err, "Runner", "Shutdown", "shutdown phase")
	}
	return nil
}

// trigger executes one trigger attempt: increments the invocation counter,
// calls the component's entry point, and captures errors and panics without
// affecting other tasks.
func (r *Runner) trigger(ctx context.Context) (err error) {
	r.invocations.Add(1)
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("trigger panicked: %v", rec)
		}
		if r.metrics != nil {
			r.metrics.ObserveTrigger(time.Since(start), err != nil)
		}
		r.observeQueueDepth()
	}()

	return r.proc.OnTrigger(ctx, r.pctx, r.sessions)
}
