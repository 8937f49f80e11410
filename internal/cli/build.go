package cli

import (
	"fmt"

	"github.com/veggerby/ignition/internal/config"
	"github.com/veggerby/ignition/internal/ignition"
	"github.com/veggerby/ignition/internal/probes"
)

// loadCoordinator reads a single registration file and builds a
// ready-to-run Coordinator, resolving each signal's probe through the
// probes registry. A directory of fragments is not accepted here.
func loadCoordinator(path string) (*ignition.Coordinator, error) {
	f, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	opts, signals, edges, plan, err := config.Build(f, probes.Resolve)
	if err != nil {
		return nil, fmt.Errorf("building coordinator from %s: %w", path, err)
	}
	return ignition.New(opts, signals, edges, plan)
}
