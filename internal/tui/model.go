package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/veggerby/ignition/internal/recording"
)

// model is the read-only Bubbletea viewer, grounded on
// internal/wizard/wizard.go's tea.Model implementation — here there is
// a single "step" (the rendered snapshot), no StepCompleteMsg
// transitions, and the model quits on ctrl+c, esc or q instead of
// collecting input; other keys move the table selection.
type model struct {
	snap   *recording.Snapshot
	table  table.Model
	styles Styles
}

func newModel(snap *recording.Snapshot) model {
	styles := DefaultStyles()
	columns := []table.Column{
		{Title: "SIGNAL", Width: 24},
		{Title: "STATUS", Width: 12},
		{Title: "DURATION", Width: 10},
		{Title: "STAGE", Width: 6},
		{Title: "DETAIL", Width: 40},
	}
	rows := make([]table.Row, 0, len(snap.Signals))
	for _, r := range rowsFromSnapshot(snap) {
		rows = append(rows, table.Row{r.name, r.status, fmt.Sprintf("%dms", r.duration), r.stage, r.detail})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(len(rows)+1),
	)
	tStyles := table.DefaultStyles()
	tStyles.Header = tStyles.Header.Bold(true).Foreground(lipgloss.Color("205"))
	tStyles.Selected = tStyles.Selected.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("205"))
	t.SetStyles(tStyles)

	return model{snap: snap, table: t, styles: styles}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) View() string {
	sum := m.snap.Summary
	header := m.styles.Title.Render(fmt.Sprintf("ignition run — %s", finalStateOf(m.snap)))
	footer := m.styles.Subtle.Render(fmt.Sprintf(
		"%d signals · slowest %s (%dms) · fastest %s (%dms) · peak concurrency %d · press q to quit",
		sum.TotalSignals, sum.SlowestSignalName, sum.SlowestDurationMs, sum.FastestSignalName, sum.FastestDurationMs, sum.MaxConcurrency))
	return header + "\n" + m.table.View() + "\n" + footer + "\n"
}
