// Package ignition is the coordinator: the scheduler that drives a
// registered signal set (and optional dependency graph or stage plan)
// to completion under a configurable execution model, grounded on the
// teacher's orchestrator/scheduler/worker-pool lifecycle.
package ignition

import (
	"time"

	"github.com/veggerby/ignition/internal/policy"
	"github.com/veggerby/ignition/internal/stage"
	"github.com/veggerby/ignition/internal/timeoutstrategy"
)

// Options configures a single coordinator run.
type Options struct {
	// GlobalDeadline bounds the entire run. Must be positive.
	GlobalDeadline time.Duration

	// CancelOnGlobalDeadline selects hard (true: cancel in-flight
	// signals) vs. soft (false: let them finish) enforcement.
	CancelOnGlobalDeadline bool

	// CancelIndividualOnTimeout is the default cancel-on-timeout
	// behavior a Strategy falls back to when it doesn't override it
	// per signal.
	CancelIndividualOnTimeout bool

	// ExecutionMode selects the top-level algorithm. Staged requires
	// a non-nil stage.Plan to be supplied at construction.
	ExecutionMode stage.ExecutionMode

	// MaxConcurrency bounds in-flight signals; zero means unbounded.
	// Ignored under Sequential.
	MaxConcurrency int

	// Policy decides whether to keep starting new signals after each
	// completion. Defaults to policy.BestEffort.
	Policy policy.Policy

	// StagePolicy governs how a Staged run moves between stages that
	// don't declare their own. Unused outside ExecutionMode == Staged.
	StagePolicy             stage.Policy
	EarlyPromotionThreshold float64

	// CancelDependentsOnFailure governs DependencyAware propagation:
	// true cancels transitive dependents outright, false leaves them
	// Skipped.
	CancelDependentsOnFailure bool

	// Strategy decides effective per-signal deadlines. Defaults to
	// timeoutstrategy.Default.
	Strategy timeoutstrategy.Strategy
}

// withDefaults fills unset optional fields.
func (o Options) withDefaults() Options {
	if o.Policy == nil {
		o.Policy = policy.BestEffort
	}
	if o.Strategy == nil {
		o.Strategy = timeoutstrategy.Default
	}
	return o
}
