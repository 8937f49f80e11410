// Package result holds the immutable snapshot of a coordinator run:
// per-signal records, per-stage summaries, and the run-level outcome,
// grounded on the teacher's immutable test-report snapshot shape.
package result

import (
	"time"

	"github.com/veggerby/ignition/internal/classify"
)

// SignalRecord is created exactly once per signal the coordinator
// observes and is immutable thereafter.
type SignalRecord struct {
	// Name is the signal's registered name.
	Name string `json:"name"`

	// Status is the terminal classification.
	Status classify.Status `json:"status"`

	// StartedAt is the duration from coordinator start to this
	// signal's own measured start; zero if the signal never started.
	StartedAt time.Duration `json:"started_at"`

	// CompletedAt is the duration from coordinator start to
	// completion.
	CompletedAt time.Duration `json:"completed_at"`

	// Duration is CompletedAt - StartedAt for signals that ran.
	Duration time.Duration `json:"duration"`

	// FailureCause holds the error message for Failed records.
	FailureCause string `json:"failure_cause,omitempty"`

	// FailedDependencies names the upstream signal responsible for a
	// Skipped record; a dependency-Cancelled record names it in
	// CancelledBySignal instead.
	FailedDependencies []string `json:"failed_dependencies,omitempty"`

	// CancellationReason explains a Cancelled or TimedOut record.
	CancellationReason classify.CancellationReason `json:"cancellation_reason,omitempty"`

	// CancelledBySignal names the upstream failure that triggered
	// dependency-failure cancellation, when applicable.
	CancelledBySignal string `json:"cancelled_by_signal,omitempty"`
}

// StageResult summarizes one stage's outcome.
type StageResult struct {
	// Number is the stage's declared number from the plan.
	Number int `json:"number"`

	// Name is the stage's human-readable name.
	Name string `json:"name"`

	// Duration is how long the stage ran, measured from when the
	// coordinator began the stage to when its signals finished.
	Duration time.Duration `json:"duration"`

	// Records lists every signal belonging to this stage, in
	// registration order.
	Records []SignalRecord `json:"records"`

	// Counts tallies records by status.
	Counts map[classify.Status]int `json:"counts"`

	// Completed is true once every signal in the stage has a
	// terminal record.
	Completed bool `json:"completed"`

	// Promoted is true when the next stage started before this one
	// fully completed, under EarlyPromotion.
	Promoted bool `json:"promoted"`
}

// FinalState is the coordinator's lifecycle state at the moment a
// Result was finalized.
type FinalState string

const (
	NotStarted FinalState = "not_started"
	Running    FinalState = "running"
	Completed  FinalState = "completed"
	Failed     FinalState = "failed"
	TimedOut   FinalState = "timed_out"
)

// Result is the memoized snapshot produced once on the first
// completion (or the global deadline) and returned unchanged for the
// remainder of a coordinator instance's lifetime.
type Result struct {
	// SignalRecords lists every observed signal in registration
	// order.
	SignalRecords []SignalRecord `json:"signal_records"`

	// StageResults is non-empty only when the run used a stage plan.
	StageResults []StageResult `json:"stage_results,omitempty"`

	// TotalDuration is the wall-clock span of the entire run.
	TotalDuration time.Duration `json:"total_duration"`

	// TimedOut is true if the global deadline elapsed or any signal
	// ended TimedOut.
	TimedOut bool `json:"timed_out"`

	// FinalState is the coordinator's terminal lifecycle state.
	FinalState FinalState `json:"final_state"`
}

// AllSucceeded reports whether every observed signal ended Succeeded.
func (r *Result) AllSucceeded() bool {
	for _, rec := range r.SignalRecords {
		if rec.Status != classify.Succeeded {
			return false
		}
	}
	return true
}

// HasFailures reports whether any signal ended Failed.
func (r *Result) HasFailures() bool {
	for _, rec := range r.SignalRecords {
		if rec.Status == classify.Failed {
			return true
		}
	}
	return false
}

// HasTimeouts reports whether any signal ended TimedOut.
func (r *Result) HasTimeouts() bool {
	for _, rec := range r.SignalRecords {
		if rec.Status == classify.TimedOut {
			return true
		}
	}
	return false
}

// ByName returns the record for a given signal, or nil if the
// coordinator never observed that name.
func (r *Result) ByName(name string) *SignalRecord {
	for i := range r.SignalRecords {
		if r.SignalRecords[i].Name == name {
			return &r.SignalRecords[i]
		}
	}
	return nil
}

// CountByStatus tallies signal records by terminal status.
func (r *Result) CountByStatus() map[classify.Status]int {
	counts := make(map[classify.Status]int)
	for _, rec := range r.SignalRecords {
		counts[rec.Status]++
	}
	return counts
}
