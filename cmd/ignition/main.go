// Command ignition runs a configured coordinator from a declarative
// YAML registration file: a one-shot run, a replay viewer over a
// saved recording, or a run followed by serving the result over HTTP.
package main

import (
	"os"

	"github.com/veggerby/ignition/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
