package ignition

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/veggerby/ignition/internal/classify"
	"github.com/veggerby/ignition/internal/result"
	"github.com/veggerby/ignition/internal/signal"
	"github.com/veggerby/ignition/internal/timeoutstrategy"
)

// invoke runs one signal to completion, enforcing its effective
// per-signal deadline and folding the outcome through the classifier.
// parentCtx is the cancellation scope the signal inherits — the
// coordinator's root scope for a non-staged run, or a stage-scoped
// descendant under Staged.
func (c *Coordinator) invoke(parentCtx context.Context, sig *signal.Signal) result.SignalRecord {
	startedAt := time.Since(c.startTime)

	decision := c.opts.Strategy.Decide(sig, timeoutstrategy.Options{
		CancelIndividualOnTimeout: c.opts.CancelIndividualOnTimeout,
	})

	sigCtx, sigCancel := context.WithCancel(parentCtx)
	defer sigCancel()

	var perSignalFired atomic.Bool
	var timer *time.Timer
	if decision.EffectiveDeadline > 0 {
		timer = time.AfterFunc(decision.EffectiveDeadline, func() {
			perSignalFired.Store(true)
			if decision.CancelOnTimeout {
				sigCancel()
			}
		})
		defer timer.Stop()
	}

	err := sig.Invoke(sigCtx)
	completedAt := time.Since(c.startTime)

	ev := classify.Event{
		Err:        err,
		ContextErr: sigCtx.Err(),
	}
	if perSignalFired.Load() {
		ev.CoordinatorIssuedPerSignalTimeout = true
	} else if c.globalDeadlineElapsed() {
		ev.CoordinatorIssuedGlobalTimeout = true
	}

	cr := classify.Classify(ev)
	rec := result.SignalRecord{
		Name:               sig.Name,
		Status:             cr.Status,
		StartedAt:          startedAt,
		CompletedAt:        completedAt,
		Duration:           completedAt - startedAt,
		CancellationReason: cr.CancellationReason,
		CancelledBySignal:  cr.CancelledBySignal,
	}
	if cr.Cause != nil {
		rec.FailureCause = cr.Cause.Error()
		c.recordCause(sig.Name, cr.Cause)
	}
	return rec
}
