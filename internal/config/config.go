// Package config loads the declarative YAML registration file that
// drives `cmd/ignition` without writing Go: global options, a stage
// plan, and named probe signals with their dependency edges. Grounded
// on the teacher's internal/config/config.go YAML struct style,
// generalized from orc's task/gate/retry/worktree nesting to the
// coordinator's options/stage/signal shape.
package config

import (
	"io/fs"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/veggerby/ignition/internal/ignitionerrors"
)

// SignalSpec declares one signal: which probe constructs its
// operation, the arguments it's constructed with, and its
// dependencies. Stage is parsed but Build does not read it: stage
// membership comes only from StageSpec.Signals, and a signal no stage
// lists is not part of a staged plan.
type SignalSpec struct {
	Name              string            `yaml:"name"`
	Probe             string            `yaml:"probe"`
	With              map[string]string `yaml:"with,omitempty"`
	PerSignalDeadline string            `yaml:"per_signal_deadline,omitempty"`
	DependsOn         []string          `yaml:"depends_on,omitempty"`
	Stage             *int              `yaml:"stage,omitempty"`
}

// StageSpec declares one stage in the plan. Signals references this
// stage's signals by name; Children nests sub-stages when Mode is
// "staged".
type StageSpec struct {
	Number                  int         `yaml:"number"`
	Name                    string      `yaml:"name"`
	Mode                    string      `yaml:"mode"`
	StagePolicy             string      `yaml:"stage_policy,omitempty"`
	EarlyPromotionThreshold float64     `yaml:"early_promotion_threshold,omitempty"`
	Signals                 []string    `yaml:"signals,omitempty"`
	Children                []StageSpec `yaml:"children,omitempty"`
}

// File is the top-level registration document: run options plus the
// signal set and (optional) stage plan.
type File struct {
	GlobalDeadline            string       `yaml:"global_deadline"`
	CancelOnGlobalDeadline    bool         `yaml:"cancel_on_global_deadline"`
	CancelIndividualOnTimeout bool         `yaml:"cancel_individual_on_timeout"`
	ExecutionMode             string       `yaml:"execution_mode"`
	MaxConcurrency            int          `yaml:"max_concurrency,omitempty"`
	Policy                    string       `yaml:"policy"`
	StagePolicy               string       `yaml:"stage_policy,omitempty"`
	EarlyPromotionThreshold   float64      `yaml:"early_promotion_threshold,omitempty"`
	CancelDependentsOnFailure bool         `yaml:"cancel_dependents_on_failure,omitempty"`
	Signals                   []SignalSpec `yaml:"signals"`
	Stages                    []StageSpec  `yaml:"stages,omitempty"`
}

// Load reads and parses a single YAML registration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ignitionerrors.ErrConfigMissing(path).WithCause(err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, ignitionerrors.ErrConfigInvalid(path).WithCause(err)
	}
	return &f, nil
}

// LoadDir discovers fragment files under dir matching pattern (e.g.
// "signals.d/**/*.yaml") and merges them into a single File: Signals
// and Stages accumulate across fragments (declaration order, sorted
// by path for determinism), while non-empty string and number options
// are last-wins in path order — the same override direction the
// teacher's layered config sources use (project overrides user
// overrides system). A boolean option is true if any fragment sets it.
func LoadDir(dir string, pattern string) (*File, error) {
	fsys := os.DirFS(dir)
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, ignitionerrors.ErrConfigInvalid(pattern).WithCause(err)
	}
	sort.Strings(matches)

	merged := &File{}
	for _, rel := range matches {
		frag, err := loadFragment(fsys, rel)
		if err != nil {
			return nil, err
		}
		merge(merged, frag)
	}
	return merged, nil
}

func loadFragment(fsys fs.FS, rel string) (*File, error) {
	data, err := fs.ReadFile(fsys, rel)
	if err != nil {
		return nil, ignitionerrors.ErrConfigMissing(rel).WithCause(err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, ignitionerrors.ErrConfigInvalid(rel).WithCause(err)
	}
	return &f, nil
}

// merge folds frag into into: non-empty string and number options are
// last-wins, boolean options are OR-ed, lists accumulate.
func merge(into, frag *File) {
	if frag.GlobalDeadline != "" {
		into.GlobalDeadline = frag.GlobalDeadline
	}
	if frag.ExecutionMode != "" {
		into.ExecutionMode = frag.ExecutionMode
	}
	if frag.Policy != "" {
		into.Policy = frag.Policy
	}
	if frag.StagePolicy != "" {
		into.StagePolicy = frag.StagePolicy
	}
	if frag.EarlyPromotionThreshold != 0 {
		into.EarlyPromotionThreshold = frag.EarlyPromotionThreshold
	}
	if frag.MaxConcurrency != 0 {
		into.MaxConcurrency = frag.MaxConcurrency
	}
	into.CancelOnGlobalDeadline = into.CancelOnGlobalDeadline || frag.CancelOnGlobalDeadline
	into.CancelIndividualOnTimeout = into.CancelIndividualOnTimeout || frag.CancelIndividualOnTimeout
	into.CancelDependentsOnFailure = into.CancelDependentsOnFailure || frag.CancelDependentsOnFailure
	into.Signals = append(into.Signals, frag.Signals...)
	into.Stages = append(into.Stages, frag.Stages...)
}
