package ignition

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veggerby/ignition/internal/classify"
	"github.com/veggerby/ignition/internal/graph"
	"github.com/veggerby/ignition/internal/policy"
	"github.com/veggerby/ignition/internal/result"
	"github.com/veggerby/ignition/internal/signal"
	"github.com/veggerby/ignition/internal/stage"
)

func sleepy(d time.Duration, err error) signal.Operation {
	return func(ctx context.Context) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Scenario 1: best-effort parallel, mixed — spec.md §8.
func TestBestEffortParallelMixed(t *testing.T) {
	boom := errors.New("boom")
	a := signal.New("A", sleepy(50*time.Millisecond, nil), 0)
	b := signal.New("B", sleepy(20*time.Millisecond, boom), 0)
	c := signal.New("C", sleepy(15*time.Millisecond, nil), 0)

	coord, err := New(Options{
		GlobalDeadline: 2 * time.Second,
		ExecutionMode:  stage.Parallel,
		Policy:         policy.BestEffort,
	}, []*signal.Signal{a, b, c}, nil, nil)
	require.NoError(t, err)

	runErr := coord.RunAll(context.Background())
	require.NoError(t, runErr)

	res, _ := coord.GetResult(context.Background())
	require.Equal(t, classify.Succeeded, res.ByName("A").Status)
	require.Equal(t, classify.Failed, res.ByName("B").Status)
	require.Equal(t, classify.Succeeded, res.ByName("C").Status)
	require.Equal(t, result.Failed, res.FinalState)
	require.False(t, res.TimedOut)
}

// Scenario 2: fail-fast sequential, early failure — spec.md §8.
func TestFailFastSequentialEarlyFailure(t *testing.T) {
	boom := errors.New("boom")
	var bInvoked int
	a := signal.New("A", func(ctx context.Context) error { return boom }, 0)
	b := signal.New("B", func(ctx context.Context) error {
		bInvoked++
		return nil
	}, 0)

	coord, err := New(Options{
		GlobalDeadline: time.Second,
		ExecutionMode:  stage.Sequential,
		Policy:         policy.FailFast,
	}, []*signal.Signal{a, b}, nil, nil)
	require.NoError(t, err)

	runErr := coord.RunAll(context.Background())
	require.ErrorIs(t, runErr, boom)

	res, _ := coord.GetResult(context.Background())
	require.Equal(t, classify.Failed, res.ByName("A").Status)
	require.Equal(t, classify.Skipped, res.ByName("B").Status)
	require.Equal(t, 0, bInvoked)
}

// Scenario 3: global hard timeout — spec.md §8.
func TestGlobalHardTimeout(t *testing.T) {
	a := signal.New("A", sleepy(800*time.Millisecond, nil), 0)
	b := signal.New("B", sleepy(10*time.Second, nil), 0)

	coord, err := New(Options{
		GlobalDeadline:         300 * time.Millisecond,
		CancelOnGlobalDeadline: true,
		ExecutionMode:          stage.Parallel,
		Policy:                 policy.BestEffort,
	}, []*signal.Signal{a, b}, nil, nil)
	require.NoError(t, err)

	_ = coord.RunAll(context.Background())
	res, _ := coord.GetResult(context.Background())

	require.True(t, res.TimedOut)
	require.Equal(t, result.TimedOut, res.FinalState)
	statusA := res.ByName("A").Status
	require.True(t, statusA == classify.TimedOut || statusA == classify.Cancelled)
	require.Equal(t, classify.TimedOut, res.ByName("B").Status)
}

// Scenario 4: per-signal timeout, soft — spec.md §8.
func TestPerSignalTimeoutSoft(t *testing.T) {
	a := signal.New("A", sleepy(150*time.Millisecond, nil), 50*time.Millisecond)

	coord, err := New(Options{
		GlobalDeadline:            2 * time.Second,
		CancelIndividualOnTimeout: false,
		ExecutionMode:             stage.Parallel,
		Policy:                    policy.BestEffort,
	}, []*signal.Signal{a}, nil, nil)
	require.NoError(t, err)

	_ = coord.RunAll(context.Background())
	res, _ := coord.GetResult(context.Background())

	require.Equal(t, classify.TimedOut, res.ByName("A").Status)
	require.True(t, res.TimedOut)
	// the operation was started (not a never-run Skipped record); with
	// cancel-on-timeout off, the per-signal timer only flags the timeout.
	require.True(t, a.Started())
}

// Scenario 5: dependency graph with propagation — spec.md §8.
func TestDependencyGraphPropagation(t *testing.T) {
	boom := errors.New("boom")
	invoked := map[string]bool{}
	mk := func(name string, fail bool) *signal.Signal {
		return signal.New(name, func(ctx context.Context) error {
			invoked[name] = true
			if fail {
				return boom
			}
			return nil
		}, 0)
	}
	a, b, c, d := mk("A", true), mk("B", false), mk("C", false), mk("D", false)

	coord, err := New(Options{
		GlobalDeadline:            time.Second,
		ExecutionMode:             stage.DependencyAware,
		Policy:                    policy.BestEffort,
		CancelDependentsOnFailure: true,
	}, []*signal.Signal{a, b, c, d}, []graph.Edge{
		{From: "B", To: "A"},
		{From: "C", To: "A"},
		{From: "D", To: "B"},
		{From: "D", To: "C"},
	}, nil)
	require.NoError(t, err)

	_ = coord.RunAll(context.Background())
	res, _ := coord.GetResult(context.Background())

	require.Equal(t, classify.Failed, res.ByName("A").Status)
	for _, name := range []string{"B", "C", "D"} {
		rec := res.ByName(name)
		require.Equal(t, classify.Cancelled, rec.Status)
		require.Equal(t, "A", rec.CancelledBySignal)
		require.False(t, invoked[name])
	}
}

// Scenario 6: staged with early promotion — spec.md §8.
func TestStagedEarlyPromotion(t *testing.T) {
	x := signal.New("X", sleepy(20*time.Millisecond, nil), 0)
	y := signal.New("Y", sleepy(20*time.Millisecond, nil), 0)
	z := signal.New("Z", sleepy(500*time.Millisecond, nil), 0)
	w := signal.New("W", sleepy(5*time.Millisecond, nil), 0)

	plan, err := stage.NewPlan([]*stage.Stage{
		{
			Number:                  0,
			Name:                    "stage0",
			Mode:                    stage.Parallel,
			Signals:                 []*signal.Signal{x, y, z},
			StagePolicy:             stage.EarlyPromotion,
			EarlyPromotionThreshold: 2.0 / 3.0,
		},
		{
			Number:  1,
			Name:    "stage1",
			Mode:    stage.Parallel,
			Signals: []*signal.Signal{w},
		},
	})
	require.NoError(t, err)

	coord, err := New(Options{
		GlobalDeadline: 2 * time.Second,
		ExecutionMode:  stage.Staged,
		Policy:         policy.BestEffort,
	}, nil, nil, plan)
	require.NoError(t, err)

	runErr := coord.RunAll(context.Background())
	require.NoError(t, runErr)

	res, _ := coord.GetResult(context.Background())
	require.Equal(t, result.Completed, res.FinalState)
	require.Len(t, res.StageResults, 2)
	require.True(t, res.StageResults[0].Promoted)
	require.Equal(t, classify.Succeeded, res.ByName("Z").Status)
	require.Equal(t, classify.Succeeded, res.ByName("W").Status)
}

// Idempotence: GetResult called repeatedly returns the same Result
// identity and never re-invokes a signal.
func TestIdempotentGetResult(t *testing.T) {
	var invocations int
	a := signal.New("A", func(ctx context.Context) error {
		invocations++
		return nil
	}, 0)

	coord, err := New(Options{
		GlobalDeadline: time.Second,
		ExecutionMode:  stage.Parallel,
	}, []*signal.Signal{a}, nil, nil)
	require.NoError(t, err)

	first, _ := coord.GetResult(context.Background())
	for i := 0; i < 5; i++ {
		again, _ := coord.GetResult(context.Background())
		require.Same(t, first, again)
	}
	require.Equal(t, 1, invocations)
}

// Universal invariant: signal_records is a permutation of registered
// signals ordered by registration, regardless of completion order.
func TestRecordsOrderedByRegistration(t *testing.T) {
	a := signal.New("A", sleepy(30*time.Millisecond, nil), 0)
	b := signal.New("B", sleepy(5*time.Millisecond, nil), 0)
	c := signal.New("C", sleepy(15*time.Millisecond, nil), 0)

	coord, err := New(Options{
		GlobalDeadline: time.Second,
		ExecutionMode:  stage.Parallel,
	}, []*signal.Signal{a, b, c}, nil, nil)
	require.NoError(t, err)

	_ = coord.RunAll(context.Background())
	res, _ := coord.GetResult(context.Background())
	require.Len(t, res.SignalRecords, 3)
	require.Equal(t, []string{"A", "B", "C"}, []string{
		res.SignalRecords[0].Name, res.SignalRecords[1].Name, res.SignalRecords[2].Name,
	})
}

// Global-deadline soft mode: no timeout observed ⇒ timed_out stays
// false even though options.cancel_on_global_deadline is false.
func TestSoftGlobalDeadlineNeverFires(t *testing.T) {
	a := signal.New("A", sleepy(10*time.Millisecond, nil), 0)
	coord, err := New(Options{
		GlobalDeadline:         2 * time.Second,
		CancelOnGlobalDeadline: false,
		ExecutionMode:          stage.Parallel,
	}, []*signal.Signal{a}, nil, nil)
	require.NoError(t, err)

	_ = coord.RunAll(context.Background())
	res, _ := coord.GetResult(context.Background())
	require.False(t, res.TimedOut)
	require.Equal(t, result.Completed, res.FinalState)
}

func TestMaxConcurrencyBoundsParallelBatch(t *testing.T) {
	var active, peak int32
	mkSlow := func(name string) *signal.Signal {
		return signal.New(name, func(ctx context.Context) error {
			n := atomic.AddInt32(&active, 1)
			for {
				cur := atomic.LoadInt32(&peak)
				if n <= cur || atomic.CompareAndSwapInt32(&peak, cur, n) {
					break
				}
			}
			time.Sleep(30 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return nil
		}, 0)
	}
	signals := []*signal.Signal{mkSlow("A"), mkSlow("B"), mkSlow("C"), mkSlow("D")}

	coord, err := New(Options{
		GlobalDeadline: 2 * time.Second,
		ExecutionMode:  stage.Parallel,
		MaxConcurrency: 2,
	}, signals, nil, nil)
	require.NoError(t, err)

	_ = coord.RunAll(context.Background())
	require.LessOrEqual(t, int(peak), 2)
}
