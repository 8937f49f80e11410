package tui

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/veggerby/ignition/internal/recording"
	"github.com/veggerby/ignition/internal/result"
)

// ShowResult renders a coordinator Result, converting it to a snapshot
// first since the viewer only knows the recording shape. The snapshot
// does not carry stage names, per-stage record lists, or each signal's
// stage number.
func ShowResult(out io.Writer, r *result.Result, recordedAt string) error {
	snap := recording.FromResult(r, recordedAt, nil, 0, nil)
	return Show(out, snap)
}

// Show renders snap interactively when stdout is a TTY, otherwise
// falls back to a plain-text table — grounded on internal/cli's
// isatty-based mode switch in cmd_show.go/cmd_log.go.
func Show(out io.Writer, snap *recording.Snapshot) error {
	if !isInteractive(out) {
		_, err := fmt.Fprint(out, PlainText(snap))
		return err
	}

	p := tea.NewProgram(newModel(snap), tea.WithOutput(out))
	_, err := p.Run()
	return err
}

func isInteractive(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) && term.IsTerminal(int(fd))
}
