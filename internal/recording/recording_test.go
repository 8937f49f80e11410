package recording

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veggerby/ignition/internal/classify"
	"github.com/veggerby/ignition/internal/result"
)

func sampleResult() *result.Result {
	return &result.Result{
		SignalRecords: []result.SignalRecord{
			{Name: "db", Status: classify.Succeeded, StartedAt: 0, CompletedAt: 50 * time.Millisecond, Duration: 50 * time.Millisecond},
			{Name: "cache", Status: classify.Failed, FailureCause: "boom", StartedAt: 0, CompletedAt: 30 * time.Millisecond, Duration: 30 * time.Millisecond},
		},
		TotalDuration: 50 * time.Millisecond,
		TimedOut:      false,
		FinalState:    result.Failed,
	}
}

func TestFromResultRoundTrip(t *testing.T) {
	snap := FromResult(sampleResult(), "2026-07-31T00:00:00Z", &Configuration{ExecutionMode: "parallel"}, 0, map[string]string{"env": "test"})

	data, err := Marshal(snap)
	require.NoError(t, err)

	loaded, err := Load(data)
	require.NoError(t, err)
	require.Equal(t, snap.RecordedAt, loaded.RecordedAt)
	require.Equal(t, snap.TotalDurationMs, loaded.TotalDurationMs)
	require.Equal(t, snap.Signals, loaded.Signals)
	require.Equal(t, snap.Summary, loaded.Summary)
}

func TestSummaryCounts(t *testing.T) {
	snap := FromResult(sampleResult(), "2026-07-31T00:00:00Z", nil, 0, nil)
	require.Equal(t, 2, snap.Summary.TotalSignals)
	require.Equal(t, 1, snap.Summary.SucceededCount)
	require.Equal(t, 1, snap.Summary.FailedCount)
	require.Equal(t, "db", snap.Summary.SlowestSignalName)
	require.Equal(t, "cache", snap.Summary.FastestSignalName)
}

func TestQuery(t *testing.T) {
	snap := FromResult(sampleResult(), "2026-07-31T00:00:00Z", nil, 0, nil)
	res, err := Query(snap, `signals.#(signal_name=="cache").status`)
	require.NoError(t, err)
	require.Equal(t, "failed", res.String())
}

func TestDiff(t *testing.T) {
	a := FromResult(sampleResult(), "2026-07-31T00:00:00Z", nil, 0, nil)
	modified := sampleResult()
	modified.SignalRecords[1].Status = classify.Succeeded
	modified.SignalRecords[1].FailureCause = ""
	b := FromResult(modified, "2026-07-31T00:05:00Z", nil, 0, nil)

	cmp := Diff(a, b)
	require.Len(t, cmp.StatusChanges, 1)
	require.Equal(t, "cache", cmp.StatusChanges[0].SignalName)
	require.Equal(t, "failed", cmp.StatusChanges[0].StatusA)
	require.Equal(t, "succeeded", cmp.StatusChanges[0].StatusB)
}

func TestLoadRejectsCorruptData(t *testing.T) {
	_, err := Load([]byte("not json"))
	require.Error(t, err)
}

func TestLoadRejectsMissingRecordedAt(t *testing.T) {
	_, err := Load([]byte(`{"total_duration_ms": 1}`))
	require.Error(t, err)
}
