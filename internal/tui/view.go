package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/imkarma/tasktree/internal/outline"
	"github.com/imkarma/tasktree/internal/store"
)

// --- Color palette ---
var (
	clrSubtle    = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#666666"}
	clrHighlight = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	clrGreen     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	clrYellow    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	clrRed       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrBlue      = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	clrWhite     = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}
	clrDim       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
)

// --- Styles ---
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	dimStyle    = lipgloss.NewStyle().Foreground(clrDim)
	subtleStyle = lipgloss.NewStyle().Foreground(clrSubtle)
	labelStyle  = lipgloss.NewStyle().Bold(true)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrSubtle).
			Padding(0, 1)

	selectedRowStyle = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrHighlight).
			Padding(1, 2).
			Width(60)

	statusStyle = lipgloss.NewStyle().Foreground(clrGreen).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(clrRed).Bold(true)

	footerKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	footerDescStyle = lipgloss.NewStyle().Foreground(clrSubtle)
)

func taskStatusColor(st store.TaskStatus) lipgloss.AdaptiveColor {
	switch st {
	case store.StatusInProgress:
		return clrBlue
	case store.StatusCompleted:
		return clrGreen
	default:
		return clrWhite
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.screen {
	case screenTree:
		content = m.viewTree()
	case screenEdit:
		content = m.viewEditor()
	}

	if m.popup != popupNone {
		content = m.overlayPopup(content)
	}
	return content
}

func (m Model) header() string {
	name := m.path
	if name == "" {
		name = "untitled"
	}
	h := titleStyle.Render("tasktree") + dimStyle.Render(" — "+name)
	if m.Dirty() {
		h += lipgloss.NewStyle().Foreground(clrYellow).Render(" [modified]")
	}
	return h
}

// ════════════════════════════════════════════════
// TREE VIEW
// ════════════════════════════════════════════════

func (m Model) viewTree() string {
	var b strings.Builder
	b.WriteString(m.header() + "\n\n")

	treeW, detailW := 40, 40
	if m.width > 0 {
		treeW = m.width/2 - 4
		detailW = m.width - treeW - 8
	}
	bodyH := 0
	if m.height > 0 {
		bodyH = m.height - 7
	}

	left := paneStyle.Width(treeW).Height(bodyH).Render(m.renderTreePane(treeW, bodyH))
	right := paneStyle.Width(detailW).Height(bodyH).Render(m.renderDetailPane(detailW))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right) + "\n")

	b.WriteString(m.statusLine() + "\n")
	b.WriteString(renderFooter([]struct{ key, desc string }{
		{"↑↓", "move"},
		{"a", "add"},
		{"c", "add child"},
		{"e", "edit"},
		{"s", "status"},
		{"d", "delete"},
		{"w/W", "save/as"},
		{"o", "open"},
		{"n", "new"},
		{"q", "quit"},
	}))
	return b.String()
}

func (m Model) renderTreePane(width, height int) string {
	if len(m.rows) == 0 {
		return dimStyle.Render("No tasks yet. Press a to add one.")
	}

	// Keep the cursor on screen.
	start := 0
	if height > 0 && m.cursor >= height {
		start = m.cursor - height + 1
	}

	var lines []string
	orphanHeader := false
	for i := start; i < len(m.rows); i++ {
		if height > 0 && len(lines) >= height {
			break
		}
		r := m.rows[i]
		if r.orphan && !orphanHeader {
			lines = append(lines, subtleStyle.Render("── unreachable ──"))
			orphanHeader = true
		}
		lines = append(lines, m.renderRow(r, i == m.cursor, width))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(r row, selected bool, width int) string {
	connector := ""
	if r.depth > 0 {
		connector = "├── "
		if r.last {
			connector = "└── "
		}
	}
	dot := lipgloss.NewStyle().Foreground(taskStatusColor(r.task.Status)).Render(outline.Glyph(r.task.Status))
	name := truncate(r.task.Name, width-lipgloss.Width(r.prefix+connector)-4)

	cursor := "  "
	if selected {
		cursor = selectedRowStyle.Render("▸ ")
		name = selectedRowStyle.Render(name)
	} else if r.task.Status == store.StatusCompleted {
		name = dimStyle.Render(name)
	}
	return cursor + subtleStyle.Render(r.prefix+connector) + dot + " " + name
}

func (m Model) renderDetailPane(width int) string {
	t := m.selectedTask()
	if t == nil {
		return dimStyle.Render("Nothing selected.")
	}

	var b strings.Builder
	b.WriteString(labelStyle.Render(truncate(t.Name, width)) + "\n\n")

	st := lipgloss.NewStyle().Foreground(taskStatusColor(t.Status)).Render(outline.Glyph(t.Status) + " " + t.Status.Label())
	b.WriteString(fmt.Sprintf("%s %s\n", subtleStyle.Render("Status: "), st))
	if path, err := m.store.Path(t.ID); err == nil && len(path) > 1 {
		names := make([]string, 0, len(path)-1)
		for _, p := range path[:len(path)-1] {
			names = append(names, p.Name)
		}
		b.WriteString(fmt.Sprintf("%s %s\n", subtleStyle.Render("Under:  "), truncate(strings.Join(names, " › "), width-9)))
	}
	if kids, err := m.store.ListChildren(t.ID); err == nil && len(kids) > 0 {
		b.WriteString(fmt.Sprintf("%s %d\n", subtleStyle.Render("Tasks:  "), len(kids)))
	}
	b.WriteString(fmt.Sprintf("%s %s\n", subtleStyle.Render("Created:"), t.CreatedAt.Local().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("%s %s\n", subtleStyle.Render("Updated:"), t.UpdatedAt.Local().Format("2006-01-02 15:04")))
	b.WriteString(subtleStyle.Render("ID:     ") + " " + dimStyle.Render(t.ID) + "\n")

	if memo := strings.TrimRight(t.Memo, "\n"); memo != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Width(width).Render(memo) + "\n")
	}
	return b.String()
}

func (m Model) statusLine() string {
	if m.statusMsg == "" {
		return ""
	}
	if m.statusErr {
		return "  " + errorStyle.Render(m.statusMsg)
	}
	return "  " + statusStyle.Render(m.statusMsg)
}

// ════════════════════════════════════════════════
// EDITOR VIEW
// ════════════════════════════════════════════════

func (m Model) viewEditor() string {
	var b strings.Builder
	b.WriteString(m.header() + "\n\n")

	b.WriteString(labelStyle.Render("  Name:") + "\n")
	b.WriteString("  " + m.nameInput.View() + "\n\n")

	st := lipgloss.NewStyle().Bold(true).Foreground(taskStatusColor(m.editStatus)).
		Render(outline.Glyph(m.editStatus) + " " + m.editStatus.Label())
	b.WriteString(labelStyle.Render("  Status: ") + st + "\n\n")

	b.WriteString(labelStyle.Render("  Memo:") + "\n")
	b.WriteString(m.memoInput.View() + "\n\n")

	b.WriteString(m.statusLine() + "\n")
	b.WriteString(renderFooter([]struct{ key, desc string }{
		{"tab", "name/memo"},
		{"ctrl+s", "cycle status"},
		{"enter", "save (name)"},
		{"ctrl+d", "save"},
		{"esc", "cancel"},
	}))
	return b.String()
}

// ════════════════════════════════════════════════
// POPUPS
// ════════════════════════════════════════════════

func (m Model) overlayPopup(bg string) string {
	var popup string

	switch m.popup {
	case popupConfirmDelete:
		popup = m.viewConfirmDeletePopup()
	case popupSaveFirst:
		popup = m.viewSaveFirstPopup()
	case popupPath:
		popup = m.viewPathPopup()
	default:
		return bg
	}

	// Place popup in center of screen.
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height,
			lipgloss.Center, lipgloss.Center,
			popup,
			lipgloss.WithWhitespaceChars(" "),
		)
	}
	return popup
}

func (m Model) viewConfirmDeletePopup() string {
	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true).Foreground(clrRed).Render("Delete Task")
	b.WriteString(title + "\n\n")

	t, err := m.store.GetTask(m.deleteID)
	if err == nil {
		b.WriteString(fmt.Sprintf("Delete %q?\n", t.Name))
		if n := m.descendants(t.ID); n > 0 {
			b.WriteString(lipgloss.NewStyle().Foreground(clrYellow).
				Render(fmt.Sprintf("Its %d subtask(s) will be deleted too.", n)) + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(footerKeyStyle.Render("y") + footerDescStyle.Render(" delete  ") +
		footerKeyStyle.Render("n") + footerDescStyle.Render(" cancel"))
	return m.popupBoxStyle().Render(b.String())
}

func (m Model) viewSaveFirstPopup() string {
	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true).Foreground(clrYellow).Render("Unsaved Changes")
	b.WriteString(title + "\n\n")

	name := m.path
	if name == "" {
		name = "This document"
	} else {
		name = filepath.Base(name)
	}
	b.WriteString(name + " has unsaved changes. Save first?\n\n")

	b.WriteString(footerKeyStyle.Render("y") + footerDescStyle.Render(" save  ") +
		footerKeyStyle.Render("n") + footerDescStyle.Render(" discard  ") +
		footerKeyStyle.Render("esc") + footerDescStyle.Render(" cancel"))
	return m.popupBoxStyle().Render(b.String())
}

func (m Model) viewPathPopup() string {
	var b strings.Builder

	label := "Save As"
	if m.pathFor == pathOpen {
		label = "Open"
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(clrHighlight).Render(label) + "\n\n")
	b.WriteString("File (.json or .yaml):\n")
	b.WriteString(m.pathInput.View() + "\n\n")
	b.WriteString(footerDescStyle.Render("enter confirm • esc cancel"))
	return m.popupBoxStyle().Render(b.String())
}

func (m Model) popupBoxStyle() lipgloss.Style {
	w := 60
	if m.width > 0 {
		w = m.width - 12
		if w < 42 {
			w = 42
		}
		if w > 84 {
			w = 84
		}
	}
	return popupStyle.Width(w)
}

// ════════════════════════════════════════════════
// SHARED HELPERS
// ════════════════════════════════════════════════

func (m Model) descendants(id string) int {
	n := 0
	if err := outline.WalkFrom(m.store, id, func(outline.Node) { n++ }); err != nil {
		return 0
	}
	return n - 1
}

func renderFooter(keys []struct{ key, desc string }) string {
	var parts []string
	for _, k := range keys {
		key := footerKeyStyle.Render(k.key)
		desc := footerDescStyle.Render(k.desc)
		parts = append(parts, key+" "+desc)
	}
	return "  " + strings.Join(parts, "  ")
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 {
		return ""
	}
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
