package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veggerby/ignition/internal/recording"
	"github.com/veggerby/ignition/internal/tui"
)

func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <recording.json>",
		Short: "Replay a previously recorded snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading recording %s: %w", args[0], err)
			}
			snap, err := recording.Load(data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				_, err := out.Write(append(data, '\n'))
				return err
			}
			return tui.Show(out, snap)
		},
	}
}
