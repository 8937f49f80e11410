package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/veggerby/ignition/internal/recording"
	"github.com/veggerby/ignition/internal/tui"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <config.yaml>",
		Short: "Run the configured signals once and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := loadCoordinator(args[0])
			if err != nil {
				return err
			}
			if err := coord.RunAll(cmd.Context()); err != nil {
				return err
			}
			res, err := coord.GetResult(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				snap := recording.FromResult(res, time.Now().UTC().Format(time.RFC3339), nil, 0, nil)
				data, err := recording.Marshal(snap)
				if err != nil {
					return err
				}
				_, err = out.Write(append(data, '\n'))
				return err
			}
			return tui.ShowResult(out, res, time.Now().UTC().Format(time.RFC3339))
		},
	}
}
