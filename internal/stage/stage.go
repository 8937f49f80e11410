// Package stage defines the ordered stage plan a coordinator executes:
// a sequence of numbered stages, each with its own execution mode and
// signal set, optionally nesting child stages when a stage is itself
// Staged.
package stage

import (
	"github.com/veggerby/ignition/internal/graph"
	"github.com/veggerby/ignition/internal/signal"
)

// ExecutionMode selects the algorithm an executor uses to run a batch
// of signals.
type ExecutionMode string

const (
	Parallel        ExecutionMode = "parallel"
	Sequential      ExecutionMode = "sequential"
	DependencyAware ExecutionMode = "dependency_aware"
	Staged          ExecutionMode = "staged"
)

// Policy selects how a stage decides whether to proceed to the next
// stage once its own signals terminate.
type Policy string

const (
	AllMustSucceed Policy = "all_must_succeed"
	BestEffort     Policy = "best_effort"
	FailFast       Policy = "fail_fast"
	EarlyPromotion Policy = "early_promotion"
)

// Stage is one entry in an ordered stage plan. Number must strictly
// increase across a plan. A plan holds only the signals its stages
// list; nothing in this package assigns unlisted signals to stage 0.
type Stage struct {
	Number                  int
	Name                    string
	Mode                    ExecutionMode
	Signals                 []*signal.Signal
	Edges                   []graph.Edge // DependencyAware edges scoped to this stage
	Children                []*Stage     // non-empty only when Mode == Staged
	StagePolicy             Policy
	EarlyPromotionThreshold float64 // ratio in [0,1], only meaningful under EarlyPromotion
}

// Plan is an ordered, validated list of stages.
type Plan struct {
	Stages []*Stage
}

// NewPlan validates strictly-increasing stage numbers and constructs a
// Plan. Signals with no stage assignment anywhere in the plan should
// be collected into a stage numbered 0 by the caller before calling
// NewPlan — the plan itself only validates what it's given.
func NewPlan(stages []*Stage) (*Plan, error) {
	for i := 1; i < len(stages); i++ {
		if stages[i].Number <= stages[i-1].Number {
			return nil, &InvalidPlan{
				Detail: "stage numbers must strictly increase",
			}
		}
	}
	for _, s := range stages {
		if s.Mode != Staged && len(s.Children) > 0 {
			return nil, &InvalidPlan{Detail: "non-staged stage " + s.Name + " must not declare children"}
		}
		if s.StagePolicy == EarlyPromotion && (s.EarlyPromotionThreshold < 0 || s.EarlyPromotionThreshold > 1) {
			return nil, &InvalidPlan{Detail: "early_promotion_threshold must be in [0,1] for stage " + s.Name}
		}
	}
	return &Plan{Stages: stages}, nil
}

// InvalidPlan reports a stage plan construction failure.
type InvalidPlan struct {
	Detail string
}

func (e *InvalidPlan) Error() string { return "stage plan invalid: " + e.Detail }

// SignalNames returns the names of every signal directly in this
// stage (not recursing into Children).
func (s *Stage) SignalNames() []string {
	names := make([]string, len(s.Signals))
	for i, sig := range s.Signals {
		names[i] = sig.Name
	}
	return names
}
