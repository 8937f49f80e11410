package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veggerby/ignition/internal/signal"
	"github.com/veggerby/ignition/internal/stage"
)

const flatYAML = `
global_deadline: 5s
execution_mode: parallel
policy: best_effort
signals:
  - name: db
    probe: postgres
    with:
      dsn: "postgres://localhost/test"
  - name: cache
    probe: sqlite
    depends_on: []
`

const stagedYAML = `
global_deadline: 10s
execution_mode: staged
policy: best_effort
signals:
  - name: db
    probe: postgres
  - name: api
    probe: github
stages:
  - number: 0
    name: core
    mode: parallel
    signals: [db]
  - number: 1
    name: services
    mode: parallel
    signals: [api]
`

func noopResolve(probe string, with map[string]string) (signal.Operation, error) {
	return func(ctx context.Context) error { return nil }, nil
}

func TestLoadParsesFlatFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ignition.yaml")
	require.NoError(t, os.WriteFile(path, []byte(flatYAML), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "5s", f.GlobalDeadline)
	require.Len(t, f.Signals, 2)
	require.Equal(t, "db", f.Signals[0].Name)
}

func TestBuildFlatSignals(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ignition.yaml")
	require.NoError(t, os.WriteFile(path, []byte(flatYAML), 0o644))

	f, err := Load(path)
	require.NoError(t, err)

	opts, sigs, _, plan, err := Build(f, noopResolve)
	require.NoError(t, err)
	require.Nil(t, plan)
	require.Len(t, sigs, 2)
	require.Equal(t, stage.Parallel, opts.ExecutionMode)
}

func TestBuildStagedPlan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ignition.yaml")
	require.NoError(t, os.WriteFile(path, []byte(stagedYAML), 0o644))

	f, err := Load(path)
	require.NoError(t, err)

	opts, sigs, _, plan, err := Build(f, noopResolve)
	require.NoError(t, err)
	require.Nil(t, sigs)
	require.NotNil(t, plan)
	require.Equal(t, stage.Staged, opts.ExecutionMode)
	require.Len(t, plan.Stages, 2)
	require.Equal(t, "core", plan.Stages[0].Name)
	require.Len(t, plan.Stages[0].Signals, 1)
}

func TestBuildRejectsUnknownExecutionMode(t *testing.T) {
	f := &File{GlobalDeadline: "1s", ExecutionMode: "bogus", Policy: "best_effort"}
	_, _, _, _, err := Build(f, noopResolve)
	require.Error(t, err)
}

func TestBuildRejectsMissingGlobalDeadline(t *testing.T) {
	f := &File{ExecutionMode: "parallel", Policy: "best_effort"}
	_, _, _, _, err := Build(f, noopResolve)
	require.Error(t, err)
}

func TestLoadDirMergesFragments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "signals.d"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "signals.d", "a.yaml"), []byte(`
global_deadline: 5s
execution_mode: parallel
policy: best_effort
signals:
  - name: db
    probe: postgres
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "signals.d", "b.yaml"), []byte(`
signals:
  - name: cache
    probe: sqlite
`), 0o644))

	f, err := LoadDir(dir, "signals.d/**/*.yaml")
	require.NoError(t, err)
	require.Equal(t, "5s", f.GlobalDeadline)
	require.Len(t, f.Signals, 2)
}

func TestLoadMissingFileReturnsConfigError(t *testing.T) {
	_, err := Load("/nonexistent/path/ignition.yaml")
	require.Error(t, err)
}
