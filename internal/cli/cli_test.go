package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/imkarma/tasktree/internal/document"
	"github.com/imkarma/tasktree/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// env is a scratch config + document pair in a temporary directory.
type env struct {
	dir string
	cfg string
	doc string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	return env{
		dir: dir,
		cfg: filepath.Join(dir, "config.yaml"),
		doc: filepath.Join(dir, "tasks.json"),
	}
}

// resetFlags puts every flag back to its default, since the command tree is
// shared between runs.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes the CLI with the env's config and document.
func (e env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", e.cfg, "-f", e.doc}, args...))

	err := rootCmd.Execute()
	return out.String(), err
}

func (e env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, "", args...)
	require.NoError(t, err, out)
	return out
}

var createdRe = regexp.MustCompile(`Created task (\S+): `)

func (e env) add(t *testing.T, args ...string) string {
	t.Helper()
	out := e.mustRun(t, append([]string{"add"}, args...)...)
	m := createdRe.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	return m[1]
}

func (e env) load(t *testing.T) *store.Store {
	t.Helper()
	s, err := document.Load(e.doc)
	require.NoError(t, err)
	return s
}

func TestNew_CreatesEmptyDocument(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "new")
	assert.Contains(t, out, "Created empty document")
	assert.Equal(t, 0, e.load(t).Len())

	_, err := e.run(t, "", "new")
	assert.ErrorContains(t, err, "already exists")

	e.mustRun(t, "new", "--force")
}

func TestNew_AddsConfiguredExtension(t *testing.T) {
	e := newEnv(t)
	e.doc = filepath.Join(e.dir, "plans")
	require.NoError(t, os.WriteFile(e.cfg, []byte("format: yaml\n"), 0644))

	e.mustRun(t, "new")
	_, err := os.Stat(filepath.Join(e.dir, "plans.yaml"))
	assert.NoError(t, err)
}

func TestMissingDocument(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "tree")
	assert.ErrorContains(t, err, "tasktree new")
}

func TestCorruptDocument(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.WriteFile(e.doc, []byte("{not json"), 0644))

	_, err := e.run(t, "", "tree")
	assert.ErrorIs(t, err, document.ErrCorruptDocument)
}

func TestAdd_TreeAndPrefixParent(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "new")

	report := e.add(t, "Write", "report")
	e.add(t, "--parent", report[:8], "Draft outline")
	e.add(t, "Chores")

	out := e.mustRun(t, "tree")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3, out)
	assert.Contains(t, lines[0], "○ Write report")
	assert.Contains(t, lines[1], "└── ")
	assert.Contains(t, lines[1], "○ Draft outline")
	assert.Contains(t, lines[2], "○ Chores")

	out = e.mustRun(t, "tree", report)
	assert.Contains(t, out, "Draft outline")
	assert.NotContains(t, out, "Chores")
}

func TestAdd_DefaultNameStatusAndMemo(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "new")

	id := e.add(t, "--status", "in-progress", "--memo", "call first")
	task, err := e.load(t).GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultTaskName, task.Name)
	assert.Equal(t, store.StatusInProgress, task.Status)
	assert.Equal(t, "call first", task.Memo)
}

func TestAdd_UnknownParent(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "new")

	_, err := e.run(t, "", "add", "--parent", "nope", "Orphan")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 0, e.load(t).Len())
}

func TestEditShowAndDone(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "new")
	root := e.add(t, "Move house")
	id := e.add(t, "--parent", root, "Buy boxes")

	e.mustRun(t, "edit", id, "--status", "in_progress", "--memo", "20 large\n10 small")

	out := e.mustRun(t, "show", id)
	assert.Contains(t, out, "Buy boxes")
	assert.Contains(t, out, "in progress")
	assert.Contains(t, out, "Move house › Buy boxes")
	assert.Contains(t, out, "    20 large\n    10 small\n")

	e.mustRun(t, "done", id[:6])
	task, err := e.load(t).GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, task.Status)
	assert.Equal(t, "20 large\n10 small", task.Memo)
}

func TestEdit_Rejections(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "new")
	id := e.add(t, "Keep me")

	_, err := e.run(t, "", "edit", id)
	assert.ErrorContains(t, err, "nothing to change")

	_, err = e.run(t, "", "edit", id, "--name", "   ", "--memo", "lost")
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = e.run(t, "", "edit", id, "--status", "archived")
	assert.ErrorIs(t, err, store.ErrInvalidStatus)

	task, err := e.load(t).GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, "Keep me", task.Name)
	assert.Empty(t, task.Memo)
}

func TestRm_ConfirmsCascade(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "new")
	root := e.add(t, "Parent")
	e.add(t, "--parent", root, "Child")
	e.add(t, "Other")

	out, err := e.run(t, "n\n", "rm", root)
	require.NoError(t, err)
	assert.Contains(t, out, `Delete "Parent" and its 1 subtasks? [y/N]`)
	assert.Contains(t, out, "Cancelled.")
	assert.Equal(t, 3, e.load(t).Len())

	out, err = e.run(t, "y\n", "rm", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 2 task(s)")

	s := e.load(t)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "Other", s.ListRoots()[0].Name)
}

func TestRm_Yes(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "new")
	id := e.add(t, "Gone")

	out := e.mustRun(t, "rm", "--yes", id)
	assert.NotContains(t, out, "[y/N]")
	assert.Equal(t, 0, e.load(t).Len())
}

func TestStatus(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "new")
	a := e.add(t, "A")
	e.add(t, "--parent", a, "B")
	e.add(t, "--status", "completed", "C")

	out := e.mustRun(t, "status")
	assert.Contains(t, out, "Tasks: 3 total")
	assert.Regexp(t, `completed:\s+1`, out)
	assert.Regexp(t, `not started:\s+2`, out)
	assert.Contains(t, out, "33% complete")
	assert.NotContains(t, out, "unreachable")
}

func TestOrphans(t *testing.T) {
	e := newEnv(t)
	doc := `{
  "root": {"name": "Root"},
  "stray": {"name": "Stray", "parent_id": "ghost"}
}`
	require.NoError(t, os.WriteFile(e.doc, []byte(doc), 0644))

	out := e.mustRun(t, "orphans")
	assert.Contains(t, out, "Unreachable tasks (1)")
	assert.Contains(t, out, "Stray")
	assert.Contains(t, out, "parent ghost missing")

	out = e.mustRun(t, "status")
	assert.Contains(t, out, "1 task(s) unreachable")

	out = e.mustRun(t, "tree")
	assert.Contains(t, out, "unreachable (1):")
}

func TestExportImport(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "new")
	root := e.add(t, "Trip")
	e.add(t, "--parent", root, "--status", "completed", "Book flights")

	db := filepath.Join(e.dir, "snap.db")
	md := filepath.Join(e.dir, "plan.md")
	out := e.mustRun(t, "export", "--sqlite", db, "--markdown", md)
	assert.Contains(t, out, "Exported 2 task(s)")

	data, err := os.ReadFile(md)
	require.NoError(t, err)
	assert.Equal(t, "# tasks\n\n- [ ] Trip\n  - [x] Book flights\n", string(data))

	other := env{dir: e.dir, cfg: e.cfg, doc: filepath.Join(e.dir, "copy.yaml")}
	out = other.mustRun(t, "import", "--sqlite", db)
	assert.Contains(t, out, "Imported 2 task(s)")

	s := other.load(t)
	require.Len(t, s.ListRoots(), 1)
	kids, err := s.ListChildren(root)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, "Book flights", kids[0].Name)

	_, err = other.run(t, "", "import", "--sqlite", db)
	assert.ErrorContains(t, err, "already exists")
}

func TestExport_NeedsTarget(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "new")
	_, err := e.run(t, "", "export")
	assert.ErrorContains(t, err, "nothing to export")
}

func TestResolveID(t *testing.T) {
	s, err := store.Restore([]store.Task{
		{ID: "abc1", Name: "one", Status: store.StatusNotStarted},
		{ID: "abc2", Name: "two", Status: store.StatusNotStarted},
		{ID: "xyz", Name: "three", Status: store.StatusNotStarted},
	})
	require.NoError(t, err)

	id, err := resolveID(s, "abc1")
	require.NoError(t, err)
	assert.Equal(t, "abc1", id)

	id, err = resolveID(s, "xy")
	require.NoError(t, err)
	assert.Equal(t, "xyz", id)

	_, err = resolveID(s, "abc")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = resolveID(s, "q")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = resolveID(s, " ")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestInit_WritesConfig(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "init")
	assert.Contains(t, out, "Wrote config to "+e.cfg)

	_, err := os.Stat(e.cfg)
	require.NoError(t, err)

	_, err = e.run(t, "", "init")
	assert.ErrorContains(t, err, "already exists")
}

func TestRm_ParentCycle(t *testing.T) {
	e := newEnv(t)
	doc := `{
  "root": {"name": "Root"},
  "a": {"name": "A", "parent_id": "b"},
  "b": {"name": "B", "parent_id": "a"}
}`
	require.NoError(t, os.WriteFile(e.doc, []byte(doc), 0644))

	out := e.mustRun(t, "tree", "a")
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "B")

	out = e.mustRun(t, "orphans")
	assert.Contains(t, out, "parent cycle through b")

	out, err := e.run(t, "y\n", "rm", "a")
	require.NoError(t, err)
	assert.Contains(t, out, `Delete "A" and its 1 subtasks? [y/N]`)
	assert.Contains(t, out, "Deleted 2 task(s)")

	s := e.load(t)
	assert.Equal(t, 1, s.Len())
	assert.Empty(t, s.Orphans())
}

func TestImport_ForeignDatabaseKeepsDocument(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "new")
	e.add(t, "Keep me")

	db := filepath.Join(e.dir, "notes.db")
	require.NoError(t, os.WriteFile(db, []byte("not a snapshot"), 0644))

	_, err := e.run(t, "", "import", "--force", "--sqlite", db)
	assert.ErrorIs(t, err, document.ErrCorruptDocument)
	assert.Equal(t, 1, e.load(t).Len())
}
