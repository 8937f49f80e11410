package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veggerby/ignition/internal/classify"
	"github.com/veggerby/ignition/internal/recording"
	"github.com/veggerby/ignition/internal/result"
)

func sampleSnapshot() *recording.Snapshot {
	r := &result.Result{
		SignalRecords: []result.SignalRecord{
			{Name: "db", Status: classify.Succeeded, Duration: 0},
			{Name: "cache", Status: classify.Failed, FailureCause: "boom"},
		},
		FinalState: result.Failed,
	}
	return recording.FromResult(r, "2026-07-31T00:00:00Z", nil, 0, nil)
}

func TestPlainTextIncludesEverySignal(t *testing.T) {
	out := PlainText(sampleSnapshot())
	require.Contains(t, out, "db")
	require.Contains(t, out, "cache")
	require.Contains(t, out, "boom")
}

func TestShowFallsBackToPlainTextForNonTTY(t *testing.T) {
	var buf bytes.Buffer
	err := Show(&buf, sampleSnapshot())
	require.NoError(t, err)
	require.Contains(t, buf.String(), "db")
}
