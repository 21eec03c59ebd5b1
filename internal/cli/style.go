package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/imkarma/tasktree/internal/store"
)

// lipgloss drops the colours itself when stdout is not a terminal.
var (
	styleBold = lipgloss.NewStyle().Bold(true)
	styleDim  = lipgloss.NewStyle().Faint(true)
	styleCmd  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	statusStyles = map[store.TaskStatus]lipgloss.Style{
		store.StatusNotStarted: lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		store.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		store.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Faint(true),
	}
)

func statusStyle(st store.TaskStatus) lipgloss.Style {
	if s, ok := statusStyles[st]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// decorate colours a tree line by the task's status.
func decorate(t store.Task, label string) string {
	return statusStyle(t.Status).Render(label)
}
