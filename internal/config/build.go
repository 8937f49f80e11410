package config

import (
	"time"

	"github.com/veggerby/ignition/internal/graph"
	"github.com/veggerby/ignition/internal/ignition"
	"github.com/veggerby/ignition/internal/ignitionerrors"
	"github.com/veggerby/ignition/internal/policy"
	"github.com/veggerby/ignition/internal/signal"
	"github.com/veggerby/ignition/internal/stage"
)

// ProbeResolver constructs the signal.Operation for a declared probe
// name, given its "with" arguments. cmd/ignition supplies one backed
// by the probes registry; config itself never imports probes, keeping
// the declarative-file reader independent of any concrete dependency.
type ProbeResolver func(probe string, with map[string]string) (signal.Operation, error)

// Build translates a parsed File into the types New expects: Options,
// the flat signal set (with edges), and, if the file declares stages,
// a stage.Plan. Exactly one of (signals, plan) is populated depending
// on whether the file declares stages.
func Build(f *File, resolve ProbeResolver) (ignition.Options, []*signal.Signal, []graph.Edge, *stage.Plan, error) {
	opts, err := buildOptions(f)
	if err != nil {
		return ignition.Options{}, nil, nil, nil, err
	}

	if len(f.Stages) > 0 {
		plan, err := buildPlan(f, resolve)
		if err != nil {
			return ignition.Options{}, nil, nil, nil, err
		}
		return opts, nil, nil, plan, nil
	}

	sigs, edges, err := buildSignals(f.Signals, resolve)
	if err != nil {
		return ignition.Options{}, nil, nil, nil, err
	}
	return opts, sigs, edges, nil, nil
}

func buildOptions(f *File) (ignition.Options, error) {
	deadline, err := parseDuration(f.GlobalDeadline, "global_deadline")
	if err != nil {
		return ignition.Options{}, err
	}
	mode, err := parseExecutionMode(f.ExecutionMode)
	if err != nil {
		return ignition.Options{}, err
	}
	pol, err := parsePolicy(f.Policy)
	if err != nil {
		return ignition.Options{}, err
	}
	var stagePolicy stage.Policy
	if f.StagePolicy != "" {
		stagePolicy, err = parseStagePolicy(f.StagePolicy)
		if err != nil {
			return ignition.Options{}, err
		}
	}
	return ignition.Options{
		GlobalDeadline:            deadline,
		CancelOnGlobalDeadline:    f.CancelOnGlobalDeadline,
		CancelIndividualOnTimeout: f.CancelIndividualOnTimeout,
		ExecutionMode:             mode,
		MaxConcurrency:            f.MaxConcurrency,
		Policy:                    pol,
		StagePolicy:               stagePolicy,
		EarlyPromotionThreshold:   f.EarlyPromotionThreshold,
		CancelDependentsOnFailure: f.CancelDependentsOnFailure,
	}, nil
}

func buildSignals(specs []SignalSpec, resolve ProbeResolver) ([]*signal.Signal, []graph.Edge, error) {
	sigs := make([]*signal.Signal, 0, len(specs))
	var edges []graph.Edge
	for _, s := range specs {
		if s.Name == "" {
			return nil, nil, ignitionerrors.ErrConfigInvalid("signals").WithCause(
				&ignitionerrors.IgnitionError{Code: ignitionerrors.CodeConfigInvalid, What: "signal name must not be empty"})
		}
		op, err := resolve(s.Probe, s.With)
		if err != nil {
			return nil, nil, ignitionerrors.ErrConfigInvalid(s.Name).WithCause(err)
		}
		deadline, err := parseOptionalDuration(s.PerSignalDeadline, s.Name+".per_signal_deadline")
		if err != nil {
			return nil, nil, err
		}
		if deadline < 0 {
			return nil, nil, ignitionerrors.ErrConfigInvalid(s.Name + ".per_signal_deadline").WithCause(
				&ignitionerrors.IgnitionError{Code: ignitionerrors.CodeConfigInvalid, What: "per_signal_deadline must not be negative"})
		}
		sigs = append(sigs, signal.New(s.Name, op, deadline))
		for _, dep := range s.DependsOn {
			edges = append(edges, graph.Edge{From: s.Name, To: dep})
		}
	}
	return sigs, edges, nil
}

func buildPlan(f *File, resolve ProbeResolver) (*stage.Plan, error) {
	byName := make(map[string]SignalSpec, len(f.Signals))
	for _, s := range f.Signals {
		byName[s.Name] = s
	}

	stages := make([]*stage.Stage, 0, len(f.Stages))
	for _, ss := range f.Stages {
		st, err := buildStage(ss, byName, resolve)
		if err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	return stage.NewPlan(stages)
}

func buildStage(ss StageSpec, byName map[string]SignalSpec, resolve ProbeResolver) (*stage.Stage, error) {
	mode, err := parseExecutionMode(ss.Mode)
	if err != nil {
		return nil, err
	}
	var stagePolicy stage.Policy
	if ss.StagePolicy != "" {
		stagePolicy, err = parseStagePolicy(ss.StagePolicy)
		if err != nil {
			return nil, err
		}
	}

	st := &stage.Stage{
		Number:                  ss.Number,
		Name:                    ss.Name,
		Mode:                    mode,
		StagePolicy:             stagePolicy,
		EarlyPromotionThreshold: ss.EarlyPromotionThreshold,
	}

	if mode == stage.Staged {
		for _, child := range ss.Children {
			childStage, err := buildStage(child, byName, resolve)
			if err != nil {
				return nil, err
			}
			st.Children = append(st.Children, childStage)
		}
		return st, nil
	}

	specs := make([]SignalSpec, 0, len(ss.Signals))
	for _, name := range ss.Signals {
		spec, ok := byName[name]
		if !ok {
			return nil, ignitionerrors.ErrConfigInvalid(ss.Name).WithCause(
				&ignitionerrors.IgnitionError{
					Code: ignitionerrors.CodeConfigInvalid,
					What: "stage " + ss.Name + " references unknown signal " + name,
				})
		}
		specs = append(specs, spec)
	}
	sigs, edges, err := buildSignals(specs, resolve)
	if err != nil {
		return nil, err
	}
	st.Signals = sigs
	st.Edges = edges
	return st, nil
}

func parseDuration(raw, field string) (time.Duration, error) {
	if raw == "" {
		return 0, ignitionerrors.ErrConfigInvalid(field).WithCause(
			&ignitionerrors.IgnitionError{Code: ignitionerrors.CodeConfigInvalid, What: field + " is required"})
	}
	return parseOptionalDuration(raw, field)
}

func parseOptionalDuration(raw, field string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, ignitionerrors.ErrConfigInvalid(field).WithCause(err)
	}
	return d, nil
}

func parseExecutionMode(raw string) (stage.ExecutionMode, error) {
	switch stage.ExecutionMode(raw) {
	case stage.Parallel, stage.Sequential, stage.DependencyAware, stage.Staged:
		return stage.ExecutionMode(raw), nil
	default:
		return "", ignitionerrors.ErrConfigInvalid("execution_mode").WithCause(
			&ignitionerrors.IgnitionError{Code: ignitionerrors.CodeConfigInvalid, What: "unknown execution_mode " + raw})
	}
}

func parseStagePolicy(raw string) (stage.Policy, error) {
	switch stage.Policy(raw) {
	case stage.AllMustSucceed, stage.BestEffort, stage.FailFast, stage.EarlyPromotion:
		return stage.Policy(raw), nil
	default:
		return "", ignitionerrors.ErrConfigInvalid("stage_policy").WithCause(
			&ignitionerrors.IgnitionError{Code: ignitionerrors.CodeConfigInvalid, What: "unknown stage_policy " + raw})
	}
}

func parsePolicy(raw string) (policy.Policy, error) {
	switch raw {
	case "fail_fast":
		return policy.FailFast, nil
	case "best_effort", "":
		return policy.BestEffort, nil
	case "continue_on_timeout":
		return policy.ContinueOnTimeout, nil
	default:
		return nil, ignitionerrors.ErrConfigInvalid("policy").WithCause(
			&ignitionerrors.IgnitionError{Code: ignitionerrors.CodeConfigInvalid, What: "unknown policy " + raw})
	}
}
