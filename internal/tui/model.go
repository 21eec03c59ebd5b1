package tui

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/imkarma/tasktree/internal/document"
	"github.com/imkarma/tasktree/internal/outline"
	"github.com/imkarma/tasktree/internal/store"
	"go.uber.org/zap"
)

// screen represents which full-screen mode the TUI is in.
type screen int

const (
	screenTree screen = iota // Tree + detail panes (main)
	screenEdit               // Name/memo/status editor
)

// popup is a modal dialog drawn over the current screen.
type popup int

const (
	popupNone          popup = iota
	popupConfirmDelete       // y/n before a cascade delete
	popupSaveFirst           // unsaved changes: yes/no/cancel
	popupPath                // file path input for save-as or open
)

// action is something that would throw away the current document. It is
// parked while the user answers the save-first prompt.
type action int

const (
	actionNone action = iota
	actionNew
	actionOpen
	actionQuit
)

// pathPurpose says what the path popup is for.
type pathPurpose int

const (
	pathSaveAs pathPurpose = iota
	pathOpen
)

// row is one line of the flattened tree pane.
type row struct {
	task   store.Task
	prefix string
	depth  int
	last   bool
	orphan bool
}

// Options configures a Model.
type Options struct {
	// Path is the document to open. A missing file starts an empty document
	// bound to that path.
	Path string
	Log  *zap.Logger
	// StoreOptions are applied to every store the TUI creates or loads.
	StoreOptions []store.Option
}

// Model is the top-level bubbletea model.
type Model struct {
	store     *store.Store
	storeOpts []store.Option
	path      string
	savedRev  uint64
	log       *zap.Logger

	width  int
	height int

	screen screen
	popup  popup

	rows   []row
	cursor int

	// Editor state.
	nameInput  textinput.Model
	memoInput  textarea.Model
	editFocus  int // 0 = name, 1 = memo
	editID     string
	editStatus store.TaskStatus

	// Popup state.
	pathInput textinput.Model
	pathFor   pathPurpose
	pending   action
	deleteID  string

	statusMsg  string
	statusErr  bool
	statusTime time.Time

	quitting bool
}

// New creates the TUI model and loads opts.Path when it exists.
func New(opts Options) (Model, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	ni := textinput.New()
	ni.Placeholder = "Task name..."
	ni.CharLimit = 200
	ni.Width = 50

	mi := textarea.New()
	mi.Placeholder = "Memo (optional)..."
	mi.ShowLineNumbers = false
	mi.SetWidth(60)
	mi.SetHeight(8)

	pi := textinput.New()
	pi.Placeholder = "path/to/tasks.json"
	pi.CharLimit = 500
	pi.Width = 50

	m := Model{
		storeOpts: opts.StoreOptions,
		path:      opts.Path,
		log:       log,
		screen:    screenTree,
		nameInput: ni,
		memoInput: mi,
		pathInput: pi,
	}

	s := store.New(m.storeOpts...)
	if opts.Path != "" {
		loaded, err := document.Load(opts.Path, m.storeOpts...)
		switch {
		case err == nil:
			s = loaded
		case errors.Is(err, os.ErrNotExist):
			m.setStatus("New document " + opts.Path)
		default:
			return Model{}, err
		}
	}
	m.replaceStore(s, opts.Path)
	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Dirty reports whether the document has changes that were not saved.
func (m Model) Dirty() bool {
	return m.store.Revision() != m.savedRev
}

type savedMsg struct {
	path string
	rev  uint64
	then action
	err  error
}

type loadedMsg struct {
	path  string
	store *store.Store
	err   error
}

// saveCmd writes the document in the background. The revision is taken
// now, so edits made while the write runs still count as unsaved.
func (m Model) saveCmd(path string, then action) tea.Cmd {
	s, rev := m.store, m.store.Revision()
	return func() tea.Msg {
		err := document.Save(path, s)
		return savedMsg{path: path, rev: rev, then: then, err: err}
	}
}

func (m Model) openCmd(path string) tea.Cmd {
	opts := m.storeOpts
	return func() tea.Msg {
		s, err := document.Load(path, opts...)
		return loadedMsg{path: path, store: s, err: err}
	}
}

// replaceStore swaps in a new document and treats it as saved.
func (m *Model) replaceStore(s *store.Store, path string) {
	m.store = s
	m.path = path
	m.savedRev = s.Revision()
	m.cursor = 0
	m.rebuildRows()
}

// rebuildRows flattens the tree for display, keeping the cursor on the same
// task when it still exists.
func (m *Model) rebuildRows() {
	selected := ""
	if t := m.selectedTask(); t != nil {
		selected = t.ID
	}

	m.rows = nil
	outline.Walk(m.store, func(n outline.Node) {
		m.rows = append(m.rows, row{task: n.Task, prefix: n.Prefix, depth: n.Depth, last: n.Last})
	})
	for _, t := range m.store.Orphans() {
		m.rows = append(m.rows, row{task: t, orphan: true})
	}

	if selected != "" {
		m.selectID(selected)
	}
	m.clampCursor()
}

func (m *Model) selectID(id string) {
	for i, r := range m.rows {
		if r.task.ID == id {
			m.cursor = i
			return
		}
	}
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selectedTask() *store.Task {
	if m.cursor < len(m.rows) {
		t := m.rows[m.cursor].task
		return &t
	}
	return nil
}

func (m *Model) setStatus(msg string) {
	m.statusMsg = msg
	m.statusErr = false
	m.statusTime = time.Now()
}

func (m *Model) setError(err error) {
	m.statusMsg = fmt.Sprintf("Error: %v", err)
	m.statusErr = true
	m.statusTime = time.Now()
	m.log.Warn("tui action failed", zap.Error(err))
}
