// Package policy provides the pluggable continue/stop predicate the
// coordinator consults after every signal completion, generalized
// from the teacher's gate evaluator into a stateless decision object.
package policy

import (
	"time"

	"github.com/veggerby/ignition/internal/stage"
)

// Status mirrors classify.Status without importing classify, so
// policy stays a leaf package the same way the teacher's gate package
// depends on nothing above it in the stack.
type Status string

const (
	Succeeded Status = "succeeded"
	Failed    Status = "failed"
	TimedOut  Status = "timed_out"
	Skipped   Status = "skipped"
	Cancelled Status = "cancelled"
)

// Record is the minimal view of a completed signal a Policy needs.
type Record struct {
	Name   string
	Status Status
}

// Context is the snapshot a Policy evaluates after each completion.
type Context struct {
	Latest               Record
	Completed            []Record
	TotalSignals         int
	Elapsed              time.Duration
	GlobalDeadlineElapsed bool
	Mode                  stage.ExecutionMode
}

// Policy decides whether the executor should start any further
// signals after a completion. Implementations must be pure,
// non-blocking, and deterministic for a given Context.
type Policy interface {
	ShouldContinue(ctx Context) bool
}

// Func adapts a plain function to Policy.
type Func func(ctx Context) bool

func (f Func) ShouldContinue(ctx Context) bool { return f(ctx) }

// failFastPolicy, bestEffortPolicy and continueOnTimeoutPolicy are
// named (rather than bare Func) so the coordinator's §7 propagation
// rule — reraise verbatim under Sequential+FailFast, aggregate under
// Parallel+FailFast, never raise otherwise — can type-assert which
// built-in is in effect instead of comparing func values, which Go
// does not allow through an interface.
type failFastPolicy struct{}

func (failFastPolicy) ShouldContinue(ctx Context) bool {
	return ctx.Latest.Status == Succeeded
}

type bestEffortPolicy struct{}

func (bestEffortPolicy) ShouldContinue(ctx Context) bool { return true }

type continueOnTimeoutPolicy struct{}

func (continueOnTimeoutPolicy) ShouldContinue(ctx Context) bool {
	return ctx.Latest.Status != Failed
}

// FailFast continues only while the latest completion succeeded.
var FailFast Policy = failFastPolicy{}

// BestEffort never stops early.
var BestEffort Policy = bestEffortPolicy{}

// ContinueOnTimeout tolerates timeouts but stops on an outright
// failure.
var ContinueOnTimeout Policy = continueOnTimeoutPolicy{}

// IsFailFast reports whether p is the built-in FailFast policy,
// consulted by the coordinator's error-propagation rule (spec §7)
// rather than its ordinary ShouldContinue gating.
func IsFailFast(p Policy) bool {
	_, ok := p.(failFastPolicy)
	return ok
}
