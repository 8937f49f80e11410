package tui

import (
	"fmt"
	"strings"

	"github.com/veggerby/ignition/internal/recording"
)

// row is the viewer's flattened, renderer-agnostic view of one signal,
// shared by both the plain-text table and the interactive bubbles
// table.
type row struct {
	name     string
	status   string
	duration int64
	stage    string
	detail   string
}

func rowsFromSnapshot(snap *recording.Snapshot) []row {
	rows := make([]row, len(snap.Signals))
	for i, s := range snap.Signals {
		stage := "-"
		if s.Stage != nil {
			stage = fmt.Sprintf("%d", *s.Stage)
		}
		detail := s.ExceptionMessage
		if detail == "" {
			detail = s.CancellationReason
		}
		rows[i] = row{
			name:     s.SignalName,
			status:   s.Status,
			duration: s.DurationMs,
			stage:    stage,
			detail:   detail,
		}
	}
	return rows
}

// PlainText renders a snapshot as a fixed-width text table, used when
// stdout isn't a TTY — grounded on internal/cli/cmd_show.go's
// non-interactive fallback path.
func PlainText(snap *recording.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run recorded at %s — final state: %s\n\n", snap.RecordedAt, finalStateOf(snap))
	fmt.Fprintf(&b, "%-24s %-12s %10s %-7s %s\n", "SIGNAL", "STATUS", "DURATION", "STAGE", "DETAIL")
	for _, r := range rowsFromSnapshot(snap) {
		fmt.Fprintf(&b, "%-24s %-12s %9dms %-7s %s\n", r.name, r.status, r.duration, r.stage, r.detail)
	}
	sum := snap.Summary
	fmt.Fprintf(&b, "\n%d signals — %d succeeded, %d failed, %d timed out, %d skipped, %d cancelled\n",
		sum.TotalSignals, sum.SucceededCount, sum.FailedCount, sum.TimedOutCount, sum.SkippedCount, sum.CancelledCount)
	fmt.Fprintf(&b, "slowest: %s (%dms)   fastest: %s (%dms)   peak concurrency: %d\n",
		sum.SlowestSignalName, sum.SlowestDurationMs, sum.FastestSignalName, sum.FastestDurationMs, sum.MaxConcurrency)
	return b.String()
}

func finalStateOf(snap *recording.Snapshot) string {
	if snap.FinalState == nil {
		return "unknown"
	}
	return *snap.FinalState
}
