package ignition

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/veggerby/ignition/internal/classify"
	"github.com/veggerby/ignition/internal/result"
	"github.com/veggerby/ignition/internal/stage"
)

// earlyPromotionPollInterval is how often a Staged run checks whether
// a stage under EarlyPromotion has crossed its threshold. Short
// enough not to meaningfully delay promotion, long enough not to spin.
const earlyPromotionPollInterval = 5 * time.Millisecond

// stageResultBox is a mutex-guarded StageResult under construction.
// For a leaf stage, sr is replaced wholesale each time its signals are
// re-snapshotted (once at promotion/completion, once more in the
// background if promoted) — never read or written without mu. For a
// nested Staged stage, children is non-nil and snapshot() aggregates
// from the live children instead of a fixed sr, so a promoted
// grandchild's late completion is still visible however deep the
// nesting.
type stageResultBox struct {
	mu       sync.Mutex
	sr       result.StageResult
	children []*stageResultBox
}

func (b *stageResultBox) snapshot() result.StageResult {
	b.mu.Lock()
	children := b.children
	b.mu.Unlock()
	if children == nil {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.sr
	}

	var records []result.SignalRecord
	counts := map[classify.Status]int{}
	completed := true
	for _, child := range children {
		csr := child.snapshot()
		records = append(records, csr.Records...)
		for status, n := range csr.Counts {
			counts[status] += n
		}
		completed = completed && csr.Completed
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.sr.Records = records
	b.sr.Counts = counts
	b.sr.Completed = completed
	return b.sr
}

// runStagePlan executes an ordered stage list, applying each stage's
// StagePolicy (or the run-wide default when a stage doesn't declare
// its own) before moving to the next. Recurses into a stage's
// Children when that stage's own mode is Staged. A promoted stage's
// box keeps being written to by a background goroutine tracked on
// c.stagePending after this function returns.
func (c *Coordinator) runStagePlan(ctx context.Context, stages []*stage.Stage) []*stageResultBox {
	results := make([]*stageResultBox, 0, len(stages))
	skipRest := false

	for _, st := range stages {
		if skipRest {
			results = append(results, skippedStageResult(st))
			continue
		}

		box, proceed := c.runOneStage(ctx, st)
		results = append(results, box)
		if !proceed {
			skipRest = true
		}
	}
	return results
}

func skippedStageResult(st *stage.Stage) *stageResultBox {
	recs := make([]result.SignalRecord, len(st.Signals))
	for i, sig := range st.Signals {
		recs[i] = result.SignalRecord{Name: sig.Name, Status: classify.Skipped}
	}
	return &stageResultBox{sr: result.StageResult{
		Number:    st.Number,
		Name:      st.Name,
		Records:   recs,
		Counts:    map[classify.Status]int{classify.Skipped: len(recs)},
		Completed: true,
	}}
}

// runOneStage runs a single stage (recursing for nested Staged
// stages) and reports whether the plan should proceed to the next
// stage. The returned box's contents are final unless the bool return
// (stageProceeds, computed from the promotion-time snapshot) is based
// on a still-running EarlyPromotion stage — the box itself is updated
// in place once that stage's stragglers land.
func (c *Coordinator) runOneStage(ctx context.Context, st *stage.Stage) (*stageResultBox, bool) {
	policyKind := st.StagePolicy
	if policyKind == "" {
		policyKind = c.opts.StagePolicy
	}
	threshold := st.EarlyPromotionThreshold
	if threshold == 0 {
		threshold = c.opts.EarlyPromotionThreshold
	}

	stageStart := time.Now()

	if st.Mode == stage.Staged {
		childBoxes := c.runStagePlan(ctx, st.Children)
		box := aggregateChildStage(st, childBoxes, stageStart)
		return box, stageProceeds(policyKind, box.snapshot())
	}

	total := len(st.Signals)
	nameIdx := make(map[string]int, total)
	for i, sig := range st.Signals {
		nameIdx[sig.Name] = i
	}

	var succeeded int32
	var recMu sync.Mutex
	records := make([]result.SignalRecord, total)
	box := &stageResultBox{sr: result.StageResult{Number: st.Number, Name: st.Name}}
	doneCh := make(chan struct{})

	// onComplete streams each record into its slot as it lands, so a
	// promotion snapshot (or the final one) reflects every signal that
	// has actually finished rather than the whole-batch return value.
	onComplete := func(rec result.SignalRecord) {
		if rec.Status == classify.Succeeded {
			atomic.AddInt32(&succeeded, 1)
		}
		if idx, ok := nameIdx[rec.Name]; ok {
			recMu.Lock()
			records[idx] = rec
			recMu.Unlock()
		}
	}

	go func() {
		defer close(doneCh)
		c.runBatch(ctx, st.Mode, st.Signals, st.Edges, c.opts.Policy, onComplete)
	}()

	promoted := false
	if policyKind == stage.EarlyPromotion && total > 0 {
		ticker := time.NewTicker(earlyPromotionPollInterval)
		defer ticker.Stop()
	waitLoop:
		for {
			select {
			case <-doneCh:
				break waitLoop
			case <-ticker.C:
				if float64(atomic.LoadInt32(&succeeded))/float64(total) >= threshold {
					promoted = true
					break waitLoop
				}
			case <-ctx.Done():
				break waitLoop
			}
		}
	} else {
		<-doneCh
	}

	recMu.Lock()
	snap := append([]result.SignalRecord(nil), records...)
	recMu.Unlock()

	box.mu.Lock()
	box.sr.Duration = time.Since(stageStart)
	box.sr.Records = snap
	box.sr.Counts = countByStatus(snap)
	box.sr.Completed = !promoted
	box.sr.Promoted = promoted
	sr := box.sr
	box.mu.Unlock()

	if promoted {
		// The stage's remaining signals keep running in the
		// background; the next stage in the plan starts immediately,
		// but RunAll's own completion still waits for this goroutine
		// via c.stagePending before the Result is assembled, so the
		// promoted signals' real outcomes always land in it (spec §8
		// scenario 6).
		c.stagePending.Add(1)
		go func() {
			defer c.stagePending.Done()
			<-doneCh
			recMu.Lock()
			final := append([]result.SignalRecord(nil), records...)
			recMu.Unlock()
			box.mu.Lock()
			box.sr.Duration = time.Since(stageStart)
			box.sr.Records = final
			box.sr.Counts = countByStatus(final)
			box.sr.Completed = true
			box.mu.Unlock()
		}()
	}

	return box, stageProceeds(policyKind, sr)
}

func aggregateChildStage(st *stage.Stage, children []*stageResultBox, start time.Time) *stageResultBox {
	return &stageResultBox{
		sr: result.StageResult{
			Number:   st.Number,
			Name:     st.Name,
			Duration: time.Since(start),
		},
		children: children,
	}
}

func countByStatus(records []result.SignalRecord) map[classify.Status]int {
	counts := make(map[classify.Status]int)
	for _, r := range records {
		counts[r.Status]++
	}
	return counts
}

// stageProceeds applies stage_policy to decide whether the plan
// continues to the next stage.
func stageProceeds(policyKind stage.Policy, sr result.StageResult) bool {
	switch policyKind {
	case stage.AllMustSucceed:
		return sr.Counts[classify.Succeeded] == len(sr.Records)
	case stage.FailFast:
		return sr.Counts[classify.Failed] == 0
	case stage.BestEffort, stage.EarlyPromotion:
		return true
	default:
		return true
	}
}
