// Package timeoutstrategy decides the effective deadline and
// cancel-on-timeout behavior for a signal, a stateless decision
// consulted once per evaluation, ported from the teacher's retry
// routing helpers.
package timeoutstrategy

import (
	"time"

	"github.com/veggerby/ignition/internal/signal"
)

// Options is the subset of run options a Strategy may consult.
type Options struct {
	CancelIndividualOnTimeout bool
}

// Decision is the outcome of consulting a Strategy for one signal.
type Decision struct {
	EffectiveDeadline time.Duration // zero means "no deadline"
	CancelOnTimeout   bool
}

// Strategy must be pure and deterministic for a given (signal,
// options) pair — the executor may call it exactly once per signal
// evaluation and caches the result for that evaluation's lifetime.
type Strategy interface {
	Decide(sig *signal.Signal, opts Options) Decision
}

// Func adapts a plain function to Strategy.
type Func func(sig *signal.Signal, opts Options) Decision

func (f Func) Decide(sig *signal.Signal, opts Options) Decision { return f(sig, opts) }

// Default returns the signal's own per-signal deadline unchanged and
// defers cancel-on-timeout to the run-wide option.
var Default Strategy = Func(func(sig *signal.Signal, opts Options) Decision {
	return Decision{
		EffectiveDeadline: sig.PerSignalDeadline,
		CancelOnTimeout:   opts.CancelIndividualOnTimeout,
	}
})
