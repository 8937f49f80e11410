// Package probes hosts constructors for concrete readiness probes —
// databases, VCS hosts, issue trackers, message feeds — each returning
// a plain signal.Operation. It is never imported by the coordinator
// core; only cmd/ignition and config.Build (via a ProbeResolver) see
// it. Grounded on the teacher's internal/hosting provider-registry
// pattern: a constructor map populated by each probe file's own
// init(), avoiding an import cycle between the registry and its
// concrete implementations.
package probes

import (
	"fmt"
	"sort"

	"github.com/veggerby/ignition/internal/signal"
)

// Constructor builds a signal.Operation from the "with" arguments a
// config.SignalSpec declares for this probe.
type Constructor func(with map[string]string) (signal.Operation, error)

var constructors = map[string]Constructor{}

// Register adds a probe constructor under name. Called from init() in
// each probe's own file, mirroring hosting.RegisterProvider.
func Register(name string, ctor Constructor) {
	constructors[name] = ctor
}

// Resolve builds the Operation for a declared probe name. It satisfies
// config.ProbeResolver's signature, so cmd/ignition can pass
// probes.Resolve directly to config.Build.
func Resolve(name string, with map[string]string) (signal.Operation, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("no probe registered for %q (registered: %v)", name, registered())
	}
	return ctor(with)
}

func registered() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// arg returns with[key], erroring if it's empty — every probe needs at
// least a DSN/URL/token, so this is shared validation rather than each
// constructor repeating the same nil-map/missing-key check.
func arg(with map[string]string, key string) (string, error) {
	v := with[key]
	if v == "" {
		return "", fmt.Errorf("probe argument %q is required", key)
	}
	return v, nil
}
