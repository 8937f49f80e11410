package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifySuccess(t *testing.T) {
	r := Classify(Event{})
	require.Equal(t, Succeeded, r.Status)
}

func TestClassifyPerSignalTimeout(t *testing.T) {
	r := Classify(Event{ContextErr: context.DeadlineExceeded, CoordinatorIssuedPerSignalTimeout: true})
	require.Equal(t, TimedOut, r.Status)
	require.Equal(t, ReasonPerSignalTimeout, r.CancellationReason)
}

func TestClassifyGlobalTimeout(t *testing.T) {
	r := Classify(Event{ContextErr: context.DeadlineExceeded, CoordinatorIssuedGlobalTimeout: true})
	require.Equal(t, TimedOut, r.Status)
	require.Equal(t, ReasonGlobalTimeout, r.CancellationReason)
}

func TestClassifyDependencyFailure(t *testing.T) {
	r := Classify(Event{
		ContextErr:                         context.Canceled,
		CoordinatorIssuedDependencyFailure: true,
		CancelledBySignal:                  "db",
	})
	require.Equal(t, Cancelled, r.Status)
	require.Equal(t, ReasonDependencyFailed, r.CancellationReason)
	require.Equal(t, "db", r.CancelledBySignal)
}

func TestClassifyPolicyStop(t *testing.T) {
	r := Classify(Event{ContextErr: context.Canceled, CoordinatorIssuedPolicyStop: true})
	require.Equal(t, Cancelled, r.Status)
	require.Equal(t, ReasonPolicyStop, r.CancellationReason)
}

func TestClassifyExternalCancel(t *testing.T) {
	r := Classify(Event{ContextErr: context.Canceled})
	require.Equal(t, Cancelled, r.Status)
	require.Equal(t, ReasonExternalCancel, r.CancellationReason)
}

func TestClassifyFailure(t *testing.T) {
	boom := errors.New("boom")
	r := Classify(Event{Err: boom})
	require.Equal(t, Failed, r.Status)
	require.ErrorIs(t, r.Cause, boom)
}

func TestClassifyPerSignalTimeoutTakesPrecedenceOverGlobal(t *testing.T) {
	// Both flags set: per-signal timeout rule is evaluated first and wins.
	r := Classify(Event{
		ContextErr:                         context.DeadlineExceeded,
		CoordinatorIssuedPerSignalTimeout:  true,
		CoordinatorIssuedGlobalTimeout:     true,
	})
	require.Equal(t, ReasonPerSignalTimeout, r.CancellationReason)
}

func TestSkipProducesSkippedStatus(t *testing.T) {
	require.Equal(t, Skipped, Skip().Status)
}

func TestTerminatesRun(t *testing.T) {
	require.True(t, Failed.TerminatesRun())
	require.True(t, TimedOut.TerminatesRun())
	require.True(t, Cancelled.TerminatesRun())
	require.False(t, Succeeded.TerminatesRun())
	require.False(t, Skipped.TerminatesRun())
}
