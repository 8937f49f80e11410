package ignitionerrors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorFormatsCauseChain(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := ErrGraphCycle([]string{"a", "b"}).WithCause(cause)
	require.Contains(t, err.Error(), "cycle")
	require.Contains(t, err.Error(), "connection refused")
	require.ErrorIs(t, err, cause)
}

func TestCategoryMapsToHTTPStatus(t *testing.T) {
	require.Equal(t, 400, ErrGraphUnknownDependency("x").HTTPStatus())
	require.Equal(t, 409, ErrAlreadyRunning().HTTPStatus())
}

func TestIsMatchesByCode(t *testing.T) {
	a := ErrGraphDuplicateName("x")
	b := ErrGraphDuplicateName("y")
	require.True(t, a.Is(b))
	require.False(t, a.Is(ErrAlreadyRunning()))
}

func TestMarshalJSONIncludesCauseMessage(t *testing.T) {
	err := ErrRecordingCorrupt("bad magic").WithCause(errors.New("boom"))
	out, marshalErr := json.Marshal(err)
	require.NoError(t, marshalErr)
	require.Contains(t, string(out), `"cause":"boom"`)
}

func TestAggregateErrorJoinsCauses(t *testing.T) {
	agg := &AggregateError{Causes: []error{errors.New("a failed"), errors.New("b failed")}}
	require.Contains(t, agg.Error(), "2 signal(s) failed")
	require.Contains(t, agg.Error(), "a failed")
	require.Contains(t, agg.Error(), "b failed")

	var target error = errors.New("a failed")
	_ = target
	unwrapped := agg.Unwrap()
	require.Len(t, unwrapped, 2)
}
