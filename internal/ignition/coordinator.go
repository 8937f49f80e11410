package ignition

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/veggerby/ignition/internal/classify"
	"github.com/veggerby/ignition/internal/graph"
	"github.com/veggerby/ignition/internal/ignitionerrors"
	"github.com/veggerby/ignition/internal/policy"
	"github.com/veggerby/ignition/internal/result"
	"github.com/veggerby/ignition/internal/signal"
	"github.com/veggerby/ignition/internal/stage"
)

// Coordinator is the top-level entry point: it composes a registered
// signal set with an optional dependency graph or stage plan,
// enforces the global deadline, and guarantees a single evaluation
// per instance. Grounded on the teacher's Orchestrator lifecycle
// (ctx/cancel scope, mutex-guarded status, start-once semantics).
type Coordinator struct {
	opts    Options
	signals []*signal.Signal
	edges   []graph.Edge
	plan    *stage.Plan

	mu         sync.Mutex
	state      result.FinalState
	startTime  time.Time
	res        *result.Result
	runErr     error
	globalDone int32 // atomic: 1 once the global deadline has elapsed

	startOnce sync.Once
	sf        singleflight.Group

	// stagePending tracks promoted stages still finishing in the
	// background; run() joins it before the Result is assembled so a
	// promotion only advances the plan early, never the overall
	// completion RunAll reports.
	stagePending sync.WaitGroup

	causesMu sync.Mutex
	causes   map[string]error // raw (unwrapped) causes, keyed by signal name, for §7 verbatim reraise

	orderMu         sync.Mutex
	completionOrder []string // signal names, in the order their records were finalized
}

// New constructs a Coordinator. Exactly one of (signals+edges) or
// plan should be meaningful depending on opts.ExecutionMode: Staged
// requires plan; the other three modes run signals/edges directly as
// an implicit stage 0.
func New(opts Options, signals []*signal.Signal, edges []graph.Edge, plan *stage.Plan) (*Coordinator, error) {
	opts = opts.withDefaults()
	if opts.GlobalDeadline <= 0 {
		return nil, &ignitionerrors.IgnitionError{
			Code: ignitionerrors.CodeOptionsInvalid,
			What: "global_deadline must be positive",
		}
	}
	if opts.ExecutionMode == stage.Staged && plan == nil {
		return nil, &ignitionerrors.IgnitionError{
			Code: ignitionerrors.CodeOptionsInvalid,
			What: "staged execution requires a non-nil stage plan",
		}
	}
	if opts.ExecutionMode == stage.DependencyAware {
		if _, err := graph.New(signals, edges); err != nil {
			return nil, err
		}
	}
	return &Coordinator{
		opts:    opts,
		signals: signals,
		edges:   edges,
		plan:    plan,
		state:   result.NotStarted,
		causes:  make(map[string]error),
	}, nil
}

// recordCause retains a signal's raw, unwrapped error so the §7
// propagation rule can reraise it verbatim (Sequential+FailFast)
// rather than only the lossy string captured on the SignalRecord.
func (c *Coordinator) recordCause(name string, err error) {
	if err == nil {
		return
	}
	c.causesMu.Lock()
	c.causes[name] = err
	c.causesMu.Unlock()
}

// trackCompletion appends a signal's name to completionOrder the
// instant its record is finalized, so propagationError can aggregate
// Parallel+FailFast failures in true completion order (spec §7)
// instead of registration order.
func (c *Coordinator) trackCompletion(rec result.SignalRecord) {
	c.orderMu.Lock()
	c.completionOrder = append(c.completionOrder, rec.Name)
	c.orderMu.Unlock()
}

func (c *Coordinator) cause(name string) error {
	c.causesMu.Lock()
	defer c.causesMu.Unlock()
	return c.causes[name]
}

// State returns the coordinator's current lifecycle state.
func (c *Coordinator) State() result.FinalState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) globalDeadlineElapsed() bool {
	return atomic.LoadInt32(&c.globalDone) == 1
}

// RunAll starts execution if it has not already started. Subsequent
// calls on a started or completed instance are no-ops that wait for
// and return the same outcome — run_all never re-executes a signal.
// When externalCancel fires, every signal observes an ExternalCancel
// classification rather than completing normally.
func (c *Coordinator) RunAll(externalCancel context.Context) error {
	_, err, _ := c.sf.Do("run", func() (interface{}, error) {
		c.startOnce.Do(func() {
			c.run(externalCancel)
		})
		c.mu.Lock()
		defer c.mu.Unlock()
		return nil, c.runErr
	})
	return err
}

// GetResult returns the cached Result, triggering RunAll first if the
// coordinator has not yet started. Per the never-throw-from-get-result
// contract, a policy-mandated aggregate failure is reflected in the
// returned Result's FinalState, not as an error here.
func (c *Coordinator) GetResult(ctx context.Context) (*result.Result, error) {
	_ = c.RunAll(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.res, nil
}

func (c *Coordinator) run(externalCancel context.Context) {
	c.mu.Lock()
	c.state = result.Running
	c.startTime = time.Now()
	c.mu.Unlock()

	// The global-deadline flag is stored before the run scope is
	// cancelled, so a signal that observes the hard-deadline
	// cancellation always sees the flag and classifies as a global
	// timeout rather than an external cancel.
	runCtx, cancel := context.WithCancel(externalCancel)
	defer cancel()
	timer := time.AfterFunc(c.opts.GlobalDeadline, func() {
		atomic.StoreInt32(&c.globalDone, 1)
		if c.opts.CancelOnGlobalDeadline {
			cancel()
		}
	})
	defer timer.Stop()

	var records []result.SignalRecord
	var stageResults []result.StageResult

	if c.opts.ExecutionMode == stage.Staged {
		pending := c.runStagePlan(runCtx, c.plan.Stages)
		// A promoted stage's plan-progression wait ends early, but
		// RunAll's own completion never does: join every straggler
		// before the Result is built so a later Succeeded/Failed on a
		// promoted signal still lands in the final snapshot.
		c.stagePending.Wait()
		stageResults = make([]result.StageResult, len(pending))
		for i, box := range pending {
			stageResults[i] = box.snapshot()
			records = append(records, stageResults[i].Records...)
		}
	} else {
		recs, err := c.runBatch(runCtx, c.opts.ExecutionMode, c.signals, c.edges, c.opts.Policy, c.trackCompletion)
		if err != nil {
			c.mu.Lock()
			c.runErr = err
			c.state = result.Failed
			c.mu.Unlock()
			return
		}
		records = recs
	}

	res := &result.Result{
		SignalRecords: records,
		StageResults:  stageResults,
		TotalDuration: time.Since(c.startTime),
	}
	res.TimedOut = c.globalDeadlineElapsed() || res.HasTimeouts()

	switch {
	case res.TimedOut:
		res.FinalState = result.TimedOut
	case res.HasFailures():
		res.FinalState = result.Failed
	default:
		res.FinalState = result.Completed
	}

	c.mu.Lock()
	c.res = res
	c.state = res.FinalState
	c.runErr = c.propagationError(records)
	c.mu.Unlock()
}

// propagationError implements spec §7's propagation policy: a
// SignalFailure/TimeoutEvent is only ever surfaced as an exception
// from RunAll under FailFast, and the shape differs by mode —
// Sequential+FailFast reraises the first stopping failure verbatim
// (its own error, unwrapped); Parallel+FailFast raises an aggregate of
// every captured failure in true completion order (via
// c.completionOrder, populated by trackCompletion as each record
// finalizes). BestEffort and ContinueOnTimeout never raise; their
// failures live only on the signal records.
func (c *Coordinator) propagationError(records []result.SignalRecord) error {
	if !policy.IsFailFast(c.opts.Policy) {
		return nil
	}

	switch c.opts.ExecutionMode {
	case stage.Sequential:
		for _, r := range records {
			if r.Status == classify.Failed || r.Status == classify.TimedOut {
				if raw := c.cause(r.Name); raw != nil {
					return raw
				}
				return &ignitionerrors.IgnitionError{
					Code: ignitionerrors.CodeSignalTimedOut,
					What: r.Name + " timed out",
				}
			}
		}
		return nil
	case stage.Parallel:
		byName := make(map[string]result.SignalRecord, len(records))
		for _, r := range records {
			byName[r.Name] = r
		}

		var causes []error
		for _, name := range c.completionOrder {
			r, ok := byName[name]
			if !ok || r.Status != classify.Failed {
				continue
			}
			if raw := c.cause(r.Name); raw != nil {
				causes = append(causes, raw)
			} else {
				causes = append(causes, &ignitionerrors.IgnitionError{
					Code: ignitionerrors.CodeAggregateFailure,
					What: r.Name + " failed",
					Why:  r.FailureCause,
				})
			}
		}
		if len(causes) == 0 {
			return nil
		}
		if len(causes) == 1 {
			return causes[0]
		}
		return &ignitionerrors.AggregateError{Causes: causes}
	default:
		// DependencyAware and Staged runs are never reraised as an
		// exception under spec §7 — only the two flat batch modes are
		// named there. Their failures are always Result-only.
		return nil
	}
}
