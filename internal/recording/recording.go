// Package recording implements the bit-exact JSON snapshot format
// (spec.md §6) a Result serializes to for replay interoperability,
// plus offline "what-if" queries over a loaded snapshot. Grounded on
// the teacher's pervasive encoding/json struct-tag style and its
// gjson-based path-query helper (internal/variable/extract.go).
package recording

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/tidwall/gjson"

	"github.com/veggerby/ignition/internal/classify"
	"github.com/veggerby/ignition/internal/ignitionerrors"
	"github.com/veggerby/ignition/internal/result"
)

// Configuration mirrors the options that shaped a run, self-describing
// so a recording never needs the original Go values to be interpreted.
type Configuration struct {
	ExecutionMode             string  `json:"execution_mode"`
	Policy                    string  `json:"policy"`
	GlobalTimeoutMs           int64   `json:"global_timeout_ms"`
	CancelOnGlobalTimeout     bool    `json:"cancel_on_global_timeout"`
	CancelIndividualOnTimeout bool    `json:"cancel_individual_on_timeout"`
	MaxDegreeOfParallelism    int     `json:"max_degree_of_parallelism"`
	StagePolicy               string  `json:"stage_policy"`
	EarlyPromotionThreshold   float64 `json:"early_promotion_threshold"`
	CancelDependentsOnFailure bool    `json:"cancel_dependents_on_failure"`
}

// SignalSnapshot is one signal's entry in a recording.
type SignalSnapshot struct {
	SignalName         string   `json:"signal_name"`
	Status             string   `json:"status"`
	StartMs            int64    `json:"start_ms"`
	EndMs              int64    `json:"end_ms"`
	DurationMs         int64    `json:"duration_ms"`
	Stage              *int     `json:"stage"`
	Dependencies       []string `json:"dependencies"`
	FailedDependencies []string `json:"failed_dependencies"`
	CancellationReason string   `json:"cancellation_reason"`
	CancelledBySignal  string   `json:"cancelled_by_signal"`
	ExceptionType      string   `json:"exception_type"`
	ExceptionMessage   string   `json:"exception_message"`
}

// StageSnapshot is one stage's entry in a recording.
type StageSnapshot struct {
	StageNumber    int   `json:"stage_number"`
	StartMs        int64 `json:"start_ms"`
	EndMs          int64 `json:"end_ms"`
	DurationMs     int64 `json:"duration_ms"`
	SignalCount    int   `json:"signal_count"`
	SucceededCount int   `json:"succeeded_count"`
	FailedCount    int   `json:"failed_count"`
	TimedOutCount  int   `json:"timed_out_count"`
	EarlyPromoted  bool  `json:"early_promoted"`
}

// Summary aggregates headline numbers over a whole run.
type Summary struct {
	TotalSignals       int     `json:"total_signals"`
	SucceededCount     int     `json:"succeeded_count"`
	FailedCount        int     `json:"failed_count"`
	TimedOutCount      int     `json:"timed_out_count"`
	SkippedCount       int     `json:"skipped_count"`
	CancelledCount     int     `json:"cancelled_count"`
	MaxConcurrency     int     `json:"max_concurrency"`
	SlowestSignalName  string  `json:"slowest_signal_name"`
	SlowestDurationMs  int64   `json:"slowest_duration_ms"`
	FastestSignalName  string  `json:"fastest_signal_name"`
	FastestDurationMs  int64   `json:"fastest_duration_ms"`
	AverageDurationMs  float64 `json:"average_duration_ms"`
}

// Snapshot is the canonical interchange document for a run, matching
// spec.md §6 field-for-field.
type Snapshot struct {
	RecordedAt     string            `json:"recorded_at"`
	TotalDurationMs int64            `json:"total_duration_ms"`
	TimedOut       bool              `json:"timed_out"`
	FinalState     *string           `json:"final_state"`
	Configuration  *Configuration    `json:"configuration"`
	Signals        []SignalSnapshot  `json:"signals"`
	Stages         []StageSnapshot   `json:"stages"`
	Summary        Summary           `json:"summary"`
	Metadata       map[string]string `json:"metadata"`
}

// FromResult converts a Result into its recording Snapshot, stamping
// recordedAt (the only wall-clock value anywhere in this package —
// cosmetic, never consulted during classification) and the observed
// peak concurrency the caller measured (or 0 if untracked).
func FromResult(r *result.Result, recordedAt string, cfg *Configuration, observedMaxConcurrency int, metadata map[string]string) *Snapshot {
	signals := make([]SignalSnapshot, len(r.SignalRecords))
	for i, rec := range r.SignalRecords {
		signals[i] = signalSnapshotFrom(rec)
	}

	var stages []StageSnapshot
	for _, sr := range r.StageResults {
		stages = append(stages, stageSnapshotFrom(sr))
	}

	var finalState *string
	if r.FinalState != "" {
		fs := string(r.FinalState)
		finalState = &fs
	}

	return &Snapshot{
		RecordedAt:      recordedAt,
		TotalDurationMs: durationMs(r.TotalDuration),
		TimedOut:        r.TimedOut,
		FinalState:      finalState,
		Configuration:   cfg,
		Signals:         signals,
		Stages:          stages,
		Summary:         summarize(signals, observedMaxConcurrency),
		Metadata:        metadata,
	}
}

func signalSnapshotFrom(rec result.SignalRecord) SignalSnapshot {
	s := SignalSnapshot{
		SignalName:         rec.Name,
		Status:             string(rec.Status),
		StartMs:            durationMs(rec.StartedAt),
		EndMs:              durationMs(rec.CompletedAt),
		DurationMs:         durationMs(rec.Duration),
		FailedDependencies: rec.FailedDependencies,
	}
	if rec.CancellationReason != "" {
		s.CancellationReason = string(rec.CancellationReason)
	}
	s.CancelledBySignal = rec.CancelledBySignal
	if rec.FailureCause != "" {
		s.ExceptionType = "SignalFailure"
		s.ExceptionMessage = rec.FailureCause
	}
	return s
}

func stageSnapshotFrom(sr result.StageResult) StageSnapshot {
	var start, end int64
	if len(sr.Records) > 0 {
		start = sr.Records[0].StartedAt.Milliseconds()
		for _, rec := range sr.Records {
			if ms := rec.StartedAt.Milliseconds(); start == 0 || (ms > 0 && ms < start) {
				start = ms
			}
			if ms := rec.CompletedAt.Milliseconds(); ms > end {
				end = ms
			}
		}
	}
	return StageSnapshot{
		StageNumber:    sr.Number,
		StartMs:        start,
		EndMs:          end,
		DurationMs:     durationMs(sr.Duration),
		SignalCount:    len(sr.Records),
		SucceededCount: sr.Counts[classify.Succeeded],
		FailedCount:    sr.Counts[classify.Failed],
		TimedOutCount:  sr.Counts[classify.TimedOut],
		EarlyPromoted:  sr.Promoted,
	}
}

// summarize computes the §6 summary block, including the observed
// peak concurrency sweep: a timeline of +1 at every start_ms and -1 at
// every end_ms, ordered first by time then by delta (so a signal
// ending exactly when another starts is counted as non-overlapping).
func summarize(signals []SignalSnapshot, observedMaxConcurrency int) Summary {
	sum := Summary{TotalSignals: len(signals), MaxConcurrency: observedMaxConcurrency}
	if len(signals) == 0 {
		return sum
	}

	var events []concurrencyEvent
	var totalDuration int64
	var slowestName, fastestName string
	var slowestMs, fastestMs int64 = -1, -1

	for _, s := range signals {
		switch classify.Status(s.Status) {
		case classify.Succeeded:
			sum.SucceededCount++
		case classify.Failed:
			sum.FailedCount++
		case classify.TimedOut:
			sum.TimedOutCount++
		case classify.Skipped:
			sum.SkippedCount++
		case classify.Cancelled:
			sum.CancelledCount++
		}

		if s.Status == string(classify.Skipped) {
			continue
		}
		events = append(events, concurrencyEvent{at: s.StartMs, delta: 1}, concurrencyEvent{at: s.EndMs, delta: -1})
		totalDuration += s.DurationMs
		if slowestMs < 0 || s.DurationMs > slowestMs {
			slowestMs, slowestName = s.DurationMs, s.SignalName
		}
		if fastestMs < 0 || s.DurationMs < fastestMs {
			fastestMs, fastestName = s.DurationMs, s.SignalName
		}
	}

	sum.SlowestSignalName, sum.SlowestDurationMs = slowestName, maxInt64(slowestMs, 0)
	sum.FastestSignalName, sum.FastestDurationMs = fastestName, maxInt64(fastestMs, 0)
	if n := sum.SucceededCount + sum.FailedCount + sum.TimedOutCount + sum.CancelledCount; n > 0 {
		sum.AverageDurationMs = float64(totalDuration) / float64(n)
	}

	if observedMaxConcurrency == 0 {
		sum.MaxConcurrency = sweepPeakConcurrency(events)
	}
	return sum
}

// concurrencyEvent is one entry in the §6 max-concurrency timeline
// sweep: +1 at a signal's start_ms, -1 at its end_ms.
type concurrencyEvent struct {
	at    int64
	delta int
}

func sweepPeakConcurrency(events []concurrencyEvent) int {
	sort.Slice(events, func(i, j int) bool {
		if events[i].at != events[j].at {
			return events[i].at < events[j].at
		}
		return events[i].delta < events[j].delta
	})
	var cur, peak int
	for _, e := range events {
		cur += e.delta
		if cur > peak {
			peak = cur
		}
	}
	return peak
}

func durationMs(d time.Duration) int64 {
	return d.Milliseconds()
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// Marshal serializes a Snapshot to its canonical JSON form.
func Marshal(s *Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Load parses and validates a recording for replay.
func Load(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, ignitionerrors.ErrRecordingCorrupt(err.Error())
	}
	if s.RecordedAt == "" {
		return nil, ignitionerrors.ErrRecordingCorrupt("missing recorded_at")
	}
	return &s, nil
}

// Query runs a gjson path query against a marshaled Snapshot, e.g.
// `signals.#(signal_name=="db").status`, supporting offline
// "what-if"/comparison tooling without re-running any signal.
func Query(s *Snapshot, path string) (gjson.Result, error) {
	data, err := Marshal(s)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.GetBytes(data, path), nil
}

// Comparison is the result of diffing two recordings, e.g. a canary
// run against a baseline.
type Comparison struct {
	StatusChanges   []StatusChange   `json:"status_changes"`
	DurationDeltas  []DurationDelta  `json:"duration_deltas"`
	OnlyInA         []string         `json:"only_in_a"`
	OnlyInB         []string         `json:"only_in_b"`
}

// StatusChange records a signal whose classification differs between
// two recordings.
type StatusChange struct {
	SignalName string `json:"signal_name"`
	StatusA    string `json:"status_a"`
	StatusB    string `json:"status_b"`
}

// DurationDelta records how much a signal's duration moved between
// two recordings.
type DurationDelta struct {
	SignalName   string `json:"signal_name"`
	DurationAMs  int64  `json:"duration_a_ms"`
	DurationBMs  int64  `json:"duration_b_ms"`
	DeltaMs      int64  `json:"delta_ms"`
}

// Diff offline-compares two snapshots by signal name.
func Diff(a, b *Snapshot) Comparison {
	byName := func(sigs []SignalSnapshot) map[string]SignalSnapshot {
		m := make(map[string]SignalSnapshot, len(sigs))
		for _, s := range sigs {
			m[s.SignalName] = s
		}
		return m
	}
	am, bm := byName(a.Signals), byName(b.Signals)

	var cmp Comparison
	for name, as := range am {
		bs, ok := bm[name]
		if !ok {
			cmp.OnlyInA = append(cmp.OnlyInA, name)
			continue
		}
		if as.Status != bs.Status {
			cmp.StatusChanges = append(cmp.StatusChanges, StatusChange{SignalName: name, StatusA: as.Status, StatusB: bs.Status})
		}
		if as.DurationMs != bs.DurationMs {
			cmp.DurationDeltas = append(cmp.DurationDeltas, DurationDelta{
				SignalName:  name,
				DurationAMs: as.DurationMs,
				DurationBMs: bs.DurationMs,
				DeltaMs:     bs.DurationMs - as.DurationMs,
			})
		}
	}
	for name := range bm {
		if _, ok := am[name]; !ok {
			cmp.OnlyInB = append(cmp.OnlyInB, name)
		}
	}
	sort.Strings(cmp.OnlyInA)
	sort.Strings(cmp.OnlyInB)
	sort.Slice(cmp.StatusChanges, func(i, j int) bool { return cmp.StatusChanges[i].SignalName < cmp.StatusChanges[j].SignalName })
	sort.Slice(cmp.DurationDeltas, func(i, j int) bool { return cmp.DurationDeltas[i].SignalName < cmp.DurationDeltas[j].SignalName })
	return cmp
}
