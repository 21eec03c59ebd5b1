package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/imkarma/tasktree/internal/store"
	"go.uber.org/zap"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// If popup is active, handle popup keys first.
		if m.popup != popupNone {
			return m.handlePopupKey(msg)
		}
		if m.screen == screenEdit {
			return m.handleEditKey(msg)
		}
		return m.handleTreeKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w := m.width - 8
		if w < 30 {
			w = 30
		}
		if w > 100 {
			w = 100
		}
		m.nameInput.Width = w
		m.memoInput.SetWidth(w)
		m.pathInput.Width = w - 10
		return m, nil

	case savedMsg:
		if msg.err != nil {
			// A failed save cancels whatever was waiting on it.
			m.pending = actionNone
			m.setError(msg.err)
			return m, nil
		}
		m.path = msg.path
		m.savedRev = msg.rev
		m.log.Info("document saved", zap.String("path", msg.path))
		m.setStatus("Saved " + msg.path)
		if msg.then != actionNone {
			m.pending = actionNone
			return m.perform(msg.then)
		}
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.replaceStore(msg.store, msg.path)
		m.log.Info("document opened", zap.String("path", msg.path), zap.Int("tasks", msg.store.Len()))
		m.setStatus(fmt.Sprintf("Opened %s (%d tasks)", msg.path, msg.store.Len()))
		if n := len(msg.store.Orphans()); n > 0 {
			m.setStatus(fmt.Sprintf("Opened %s: %d task(s) unreachable, listed at the bottom", msg.path, n))
		}
		return m, nil
	}

	if m.screen == screenEdit {
		return m.forwardToEditor(msg)
	}
	return m, nil
}

// --- Tree screen keys ---

func (m Model) handleTreeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m.guard(actionQuit)
	case "n":
		return m.guard(actionNew)
	case "o":
		return m.guard(actionOpen)

	// Navigation.
	case "j", "down":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		return m, nil
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "g", "home":
		m.cursor = 0
		return m, nil
	case "G", "end":
		m.cursor = len(m.rows) - 1
		m.clampCursor()
		return m, nil

	case "a":
		return m.addTask(nil)
	case "c":
		t := m.selectedTask()
		if t == nil {
			m.setStatus("Select a task first")
			return m, nil
		}
		id := t.ID
		return m.addTask(&id)

	case "e", "enter":
		t := m.selectedTask()
		if t == nil {
			return m, nil
		}
		return m.openEditor(*t)

	case "s":
		t := m.selectedTask()
		if t == nil {
			return m, nil
		}
		next := t.Status.Next()
		if _, err := m.store.UpdateTask(t.ID, store.Update{Status: &next}); err != nil {
			m.setError(err)
			return m, nil
		}
		m.rebuildRows()
		m.setStatus(t.Name + " → " + next.Label())
		return m, nil

	case "d":
		t := m.selectedTask()
		if t == nil {
			return m, nil
		}
		m.deleteID = t.ID
		m.popup = popupConfirmDelete
		return m, nil

	case "w":
		if m.path == "" {
			return m.askPath(pathSaveAs, actionNone)
		}
		return m, m.saveCmd(m.path, actionNone)
	case "W":
		return m.askPath(pathSaveAs, actionNone)
	}

	return m, nil
}

func (m Model) addTask(parentID *string) (tea.Model, tea.Cmd) {
	t, err := m.store.CreateTask(parentID, "")
	if err != nil {
		m.setError(err)
		return m, nil
	}
	m.rebuildRows()
	m.selectID(t.ID)
	return m.openEditor(t)
}

// guard runs a, unless the document has unsaved changes, in which case the
// save-first prompt comes up and a waits for the answer.
func (m Model) guard(a action) (tea.Model, tea.Cmd) {
	if !m.Dirty() {
		return m.perform(a)
	}
	m.pending = a
	m.popup = popupSaveFirst
	return m, nil
}

func (m Model) perform(a action) (tea.Model, tea.Cmd) {
	switch a {
	case actionQuit:
		m.quitting = true
		return m, tea.Quit
	case actionNew:
		m.replaceStore(store.New(m.storeOpts...), "")
		m.setStatus("New document")
		return m, nil
	case actionOpen:
		return m.askPath(pathOpen, actionNone)
	}
	return m, nil
}

func (m Model) askPath(purpose pathPurpose, then action) (tea.Model, tea.Cmd) {
	m.pathFor = purpose
	m.pending = then
	m.pathInput.SetValue(m.path)
	m.pathInput.CursorEnd()
	m.pathInput.Focus()
	m.popup = popupPath
	return m, textinput.Blink
}

// --- Editor screen keys ---

func (m Model) openEditor(t store.Task) (tea.Model, tea.Cmd) {
	m.screen = screenEdit
	m.editID = t.ID
	m.editStatus = t.Status
	m.editFocus = 0
	m.nameInput.SetValue(t.Name)
	m.nameInput.CursorEnd()
	m.nameInput.Focus()
	m.memoInput.SetValue(t.Memo)
	m.memoInput.Blur()
	return m, textinput.Blink
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.screen = screenTree
		m.nameInput.Blur()
		m.memoInput.Blur()
		return m, nil
	case "tab", "shift+tab":
		if m.editFocus == 0 {
			m.nameInput.Blur()
			m.memoInput.Focus()
			m.editFocus = 1
		} else {
			m.memoInput.Blur()
			m.nameInput.Focus()
			m.editFocus = 0
		}
		return m, textinput.Blink
	case "ctrl+s":
		m.editStatus = m.editStatus.Next()
		return m, nil
	case "ctrl+d":
		return m.applyEdit()
	case "enter":
		if m.editFocus == 0 {
			return m.applyEdit()
		}
	}
	return m.forwardToEditor(msg)
}

func (m Model) forwardToEditor(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.editFocus == 0 {
		m.nameInput, cmd = m.nameInput.Update(msg)
	} else {
		m.memoInput, cmd = m.memoInput.Update(msg)
	}
	return m, cmd
}

// applyEdit writes only the fields that actually changed, so closing the
// editor without edits leaves the document clean.
func (m Model) applyEdit() (tea.Model, tea.Cmd) {
	cur, err := m.store.GetTask(m.editID)
	if err != nil {
		m.screen = screenTree
		m.setError(err)
		return m, nil
	}

	var upd store.Update
	if name := m.nameInput.Value(); strings.TrimSpace(name) != cur.Name {
		upd.Name = &name
	}
	if m.editStatus != cur.Status {
		st := m.editStatus
		upd.Status = &st
	}
	if memo := m.memoInput.Value(); memo != cur.Memo {
		upd.Memo = &memo
	}

	if upd.Name != nil || upd.Status != nil || upd.Memo != nil {
		if _, err := m.store.UpdateTask(m.editID, upd); err != nil {
			if errors.Is(err, store.ErrValidation) {
				m.setStatus("Name cannot be empty")
				return m, nil
			}
			m.setError(err)
			return m, nil
		}
	}

	m.screen = screenTree
	m.nameInput.Blur()
	m.memoInput.Blur()
	m.rebuildRows()
	m.selectID(m.editID)
	return m, nil
}

// --- Popups ---

func (m Model) handlePopupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.popup {
	case popupConfirmDelete:
		return m.handleConfirmDeletePopup(msg)
	case popupSaveFirst:
		return m.handleSaveFirstPopup(msg)
	case popupPath:
		return m.handlePathPopup(msg)
	}
	return m, nil
}

func (m Model) handleConfirmDeletePopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.popup = popupNone
		removed, err := m.store.DeleteTask(m.deleteID)
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.rebuildRows()
		m.setStatus(fmt.Sprintf("Deleted %d task(s)", len(removed)))
		return m, nil
	case "n", "esc":
		m.popup = popupNone
		return m, nil
	}
	return m, nil
}

func (m Model) handleSaveFirstPopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.popup = popupNone
		if m.path == "" {
			return m.askPath(pathSaveAs, m.pending)
		}
		then := m.pending
		m.pending = actionNone
		return m, m.saveCmd(m.path, then)
	case "n":
		m.popup = popupNone
		a := m.pending
		m.pending = actionNone
		return m.perform(a)
	case "c", "esc":
		m.popup = popupNone
		m.pending = actionNone
		return m, nil
	}
	return m, nil
}

func (m Model) handlePathPopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.popup = popupNone
		m.pending = actionNone
		m.pathInput.Blur()
		return m, nil
	case "enter":
		path := strings.TrimSpace(m.pathInput.Value())
		if path == "" {
			m.setStatus("Path cannot be empty")
			return m, nil
		}
		m.popup = popupNone
		m.pathInput.Blur()
		then := m.pending
		m.pending = actionNone
		if m.pathFor == pathOpen {
			return m, m.openCmd(path)
		}
		return m, m.saveCmd(path, then)
	}

	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}
