package ignition

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/veggerby/ignition/internal/classify"
	"github.com/veggerby/ignition/internal/graph"
	"github.com/veggerby/ignition/internal/policy"
	"github.com/veggerby/ignition/internal/result"
	"github.com/veggerby/ignition/internal/signal"
	"github.com/veggerby/ignition/internal/stage"
)

// completionFunc observes a signal record the instant it is finalized,
// used by the staged runner to track EarlyPromotion progress without
// coupling batch execution to stage bookkeeping.
type completionFunc func(rec result.SignalRecord)

// runGate is the serial classification/continuation checkpoint shared
// across an entire batch: after every completion it asks the policy
// whether to keep starting signals. Once stopped, no further signal
// in the batch is started; in-flight signals still run to completion
// unless the run's cancellation scope itself is cancelled.
type runGate struct {
	mu        sync.Mutex
	stopped   bool
	completed []policy.Record
	total     int
	start     time.Time
	mode      stage.ExecutionMode
}

func newGate(total int, start time.Time, mode stage.ExecutionMode) *runGate {
	return &runGate{total: total, start: start, mode: mode}
}

func (g *runGate) canStart() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.stopped
}

func (g *runGate) observe(pol policy.Policy, rec result.SignalRecord, globalElapsed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	pr := policy.Record{Name: rec.Name, Status: toPolicyStatus(rec.Status)}
	g.completed = append(g.completed, pr)
	ctx := policy.Context{
		Latest:                pr,
		Completed:             append([]policy.Record(nil), g.completed...),
		TotalSignals:          g.total,
		Elapsed:               time.Since(g.start),
		GlobalDeadlineElapsed: globalElapsed,
		Mode:                  g.mode,
	}
	if !pol.ShouldContinue(ctx) {
		g.stopped = true
	}
}

func toPolicyStatus(s classify.Status) policy.Status {
	switch s {
	case classify.Succeeded:
		return policy.Succeeded
	case classify.Failed:
		return policy.Failed
	case classify.TimedOut:
		return policy.TimedOut
	case classify.Skipped:
		return policy.Skipped
	default:
		return policy.Cancelled
	}
}

// skipRecord builds the record for a signal never started because the
// gate stopped the batch before it was its turn.
func skipRecord(name string) result.SignalRecord {
	return result.SignalRecord{Name: name, Status: classify.Skipped}
}

// runBatch executes signals under one non-staged mode, invoking
// onComplete (if non-nil) the instant each record is finalized.
// Records are returned in registration order regardless of completion
// order, per the ordering contract.
func (c *Coordinator) runBatch(ctx context.Context, mode stage.ExecutionMode, signals []*signal.Signal, edges []graph.Edge, pol policy.Policy, onComplete completionFunc) ([]result.SignalRecord, error) {
	if len(signals) == 0 {
		return nil, nil
	}
	gate := newGate(len(signals), c.startTime, mode)

	switch mode {
	case stage.Sequential:
		return c.runSequential(ctx, signals, gate, pol, onComplete), nil
	case stage.Parallel:
		return c.runParallel(ctx, signals, gate, pol, onComplete), nil
	case stage.DependencyAware:
		g, err := graph.New(signals, edges)
		if err != nil {
			return nil, err
		}
		recs := c.runDependencyAware(ctx, g, gate, pol, onComplete)
		byName := make(map[string]result.SignalRecord, len(recs))
		for _, r := range recs {
			byName[r.Name] = r
		}
		ordered := make([]result.SignalRecord, len(signals))
		for i, sig := range signals {
			ordered[i] = byName[sig.Name]
		}
		return ordered, nil
	default:
		return c.runParallel(ctx, signals, gate, pol, onComplete), nil
	}
}

func (c *Coordinator) runSequential(ctx context.Context, signals []*signal.Signal, gate *runGate, pol policy.Policy, onComplete completionFunc) []result.SignalRecord {
	records := make([]result.SignalRecord, len(signals))
	for i, sig := range signals {
		var rec result.SignalRecord
		if !gate.canStart() {
			rec = skipRecord(sig.Name)
		} else {
			rec = c.invoke(ctx, sig)
			gate.observe(pol, rec, c.globalDeadlineElapsed())
		}
		records[i] = rec
		if onComplete != nil {
			onComplete(rec)
		}
	}
	return records
}

func (c *Coordinator) runParallel(ctx context.Context, signals []*signal.Signal, gate *runGate, pol policy.Policy, onComplete completionFunc) []result.SignalRecord {
	records := make([]result.SignalRecord, len(signals))
	var sem *semaphore.Weighted
	if c.opts.MaxConcurrency > 0 {
		sem = semaphore.NewWeighted(int64(c.opts.MaxConcurrency))
	}

	var eg errgroup.Group
	for i, sig := range signals {
		i, sig := i, sig
		eg.Go(func() error {
			if !gate.canStart() {
				records[i] = skipRecord(sig.Name)
				if onComplete != nil {
					onComplete(records[i])
				}
				return nil
			}
			if sem != nil {
				if err := sem.Acquire(ctx, 1); err != nil {
					records[i] = skipRecord(sig.Name)
					if onComplete != nil {
						onComplete(records[i])
					}
					return nil
				}
				defer sem.Release(1)
			}
			rec := c.invoke(ctx, sig)
			gate.observe(pol, rec, c.globalDeadlineElapsed())
			records[i] = rec
			if onComplete != nil {
				onComplete(rec)
			}
			return nil
		})
	}
	_ = eg.Wait()
	return records
}

// runDependencyAware maintains a ready queue seeded from the graph's
// roots, executing with parallelism bounded by MaxConcurrency. On a
// non-success completion it propagates Cancelled or Skipped to
// transitive dependents per CancelDependentsOnFailure, without ever
// invoking their operations.
func (c *Coordinator) runDependencyAware(ctx context.Context, g *graph.Graph, gate *runGate, pol policy.Policy, onComplete completionFunc) []result.SignalRecord {
	var sem *semaphore.Weighted
	if c.opts.MaxConcurrency > 0 {
		sem = semaphore.NewWeighted(int64(c.opts.MaxConcurrency))
	}

	var mu sync.Mutex
	records := make(map[string]result.SignalRecord, g.Len())
	pending := make(map[string]int, g.Len())
	settled := make(map[string]bool, g.Len())
	for _, name := range g.Names() {
		pending[name] = len(g.Dependencies(name))
	}

	var wg sync.WaitGroup
	var dispatch func(name string)
	var runOne func(name string)

	dispatch = func(name string) {
		wg.Add(1)
		go runOne(name)
	}

	runOne = func(name string) {
		defer wg.Done()
		sig := g.Signal(name)
		var rec result.SignalRecord
		if !gate.canStart() {
			rec = skipRecord(name)
		} else {
			if sem != nil {
				if err := sem.Acquire(ctx, 1); err != nil {
					rec = skipRecord(name)
					goto finalize
				}
				defer sem.Release(1)
			}
			rec = c.invoke(ctx, sig)
			gate.observe(pol, rec, c.globalDeadlineElapsed())
		}
	finalize:
		mu.Lock()
		records[name] = rec
		settled[name] = true
		var toDispatch []string
		var toMarkFailed []string
		if rec.Status == classify.Succeeded {
			for _, dep := range g.Dependents(name) {
				pending[dep]--
				if pending[dep] == 0 && !settled[dep] {
					toDispatch = append(toDispatch, dep)
				}
			}
		} else {
			for _, dep := range g.TransitiveDependents(name) {
				if !settled[dep] {
					settled[dep] = true
					toMarkFailed = append(toMarkFailed, dep)
				}
			}
		}
		mu.Unlock()

		if onComplete != nil {
			onComplete(rec)
		}

		for _, dep := range toMarkFailed {
			var depRec result.SignalRecord
			if c.opts.CancelDependentsOnFailure {
				depRec = result.SignalRecord{
					Name:               dep,
					Status:             classify.Cancelled,
					CancellationReason: classify.ReasonDependencyFailed,
					CancelledBySignal:  name,
				}
			} else {
				depRec = result.SignalRecord{
					Name:               dep,
					Status:             classify.Skipped,
					FailedDependencies: []string{name},
				}
			}
			mu.Lock()
			records[dep] = depRec
			mu.Unlock()
			if onComplete != nil {
				onComplete(depRec)
			}
		}
		for _, dep := range toDispatch {
			dispatch(dep)
		}
	}

	for _, root := range g.Roots() {
		dispatch(root)
	}
	wg.Wait()

	ordered := make([]result.SignalRecord, 0, g.Len())
	for _, name := range g.Names() {
		ordered = append(ordered, records[name])
	}
	return ordered
}
