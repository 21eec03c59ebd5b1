package document

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/imkarma/tasktree/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tuple is the observable state of a task; times are rendered in UTC so
// equal instants compare equal regardless of location.
type tuple struct {
	ID, Name, Status, Memo, Parent string
	Created, Updated               string
}

func tuples(s *store.Store) []tuple {
	var out []tuple
	for _, t := range s.All() {
		out = append(out, tuple{
			ID:      t.ID,
			Name:    t.Name,
			Status:  string(t.Status),
			Memo:    t.Memo,
			Parent:  t.Parent(),
			Created: t.CreatedAt.UTC().Format(time.RFC3339Nano),
			Updated: t.UpdatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	slices.SortFunc(out, func(a, b tuple) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func newTestStore() *store.Store {
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	n := 0
	return store.New(
		store.WithClock(func() time.Time {
			now = now.Add(1500 * time.Millisecond)
			return now
		}),
		store.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%02d", n)
		}),
	)
}

// buildStore runs a mixed sequence of creates, updates and deletes.
func buildStore(t *testing.T) *store.Store {
	t.Helper()
	s := newTestStore()

	report, err := s.CreateTask(nil, "Write report")
	require.NoError(t, err)
	outline, err := s.CreateTask(store.StringPtr(report.ID), "Draft outline")
	require.NoError(t, err)
	_, err = s.CreateTask(store.StringPtr(outline.ID), "Collect sources")
	require.NoError(t, err)
	scratch, err := s.CreateTask(store.StringPtr(report.ID), "Scratch")
	require.NoError(t, err)
	_, err = s.CreateTask(store.StringPtr(scratch.ID), "Scratch child")
	require.NoError(t, err)
	home, err := s.CreateTask(nil, "家の掃除 & <chores>")
	require.NoError(t, err)

	_, err = s.UpdateTask(outline.ID, store.Update{Status: store.StatusPtr(store.StatusInProgress)})
	require.NoError(t, err)
	_, err = s.UpdateTask(home.ID, store.Update{
		Memo:   store.StringPtr("kitchen\nbathroom \"first\""),
		Status: store.StatusPtr(store.StatusCompleted),
	})
	require.NoError(t, err)
	_, err = s.DeleteTask(scratch.ID)
	require.NoError(t, err)

	return s
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			s := buildStore(t)
			codec := NewCodec(format)

			data, err := codec.Serialize(s)
			require.NoError(t, err)

			back, err := codec.Deserialize(data)
			require.NoError(t, err)

			assert.Equal(t, tuples(s), tuples(back))
			assert.Equal(t, s.Len(), back.Len())
		})
	}
}

func TestSerialize_Deterministic(t *testing.T) {
	s := buildStore(t)
	codec := NewCodec(FormatJSON)

	first, err := codec.Serialize(s)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := codec.Serialize(s)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestSerialize_JSONLayout(t *testing.T) {
	s := buildStore(t)

	data, err := NewCodec(FormatJSON).Serialize(s)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, `"parent_id": null`)
	assert.Contains(t, text, `"parent_id": "id-01"`)
	assert.Contains(t, text, `"status": "in_progress"`)
	assert.Contains(t, text, "家の掃除 & <chores>", "non-ASCII and HTML characters are written verbatim")
	assert.Contains(t, text, `"created_at": "2026-03-04T08:00:01.5Z"`)
}

func TestScenario_WriteReport(t *testing.T) {
	s := newTestStore()
	root, err := s.CreateTask(nil, "Write report")
	require.NoError(t, err)
	assert.Equal(t, store.StatusNotStarted, root.Status)

	child, err := s.CreateTask(store.StringPtr(root.ID), "Draft outline")
	require.NoError(t, err)
	_, err = s.UpdateTask(child.ID, store.Update{Status: store.StatusPtr(store.StatusInProgress)})
	require.NoError(t, err)

	codec := NewCodec(FormatJSON)
	data, err := codec.Serialize(s)
	require.NoError(t, err)
	fresh, err := codec.Deserialize(data)
	require.NoError(t, err)

	roots := fresh.ListRoots()
	require.Len(t, roots, 1)
	assert.Equal(t, "Write report", roots[0].Name)

	kids, err := fresh.ListChildren(roots[0].ID)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, "Draft outline", kids[0].Name)
	assert.Equal(t, store.StatusInProgress, kids[0].Status)
}

func TestDeserialize_OrphanTolerance(t *testing.T) {
	doc := `{
  "root": {"name": "Root", "status": "not_started", "memo": "", "parent_id": null,
           "created_at": "2026-01-01T00:00:00Z", "updated_at": "2026-01-01T00:00:00Z"},
  "stray": {"name": "Stray", "status": "completed", "memo": "left behind", "parent_id": "deleted-long-ago",
            "created_at": "2026-01-02T00:00:00Z", "updated_at": "2026-01-02T00:00:00Z"}
}`
	s, err := NewCodec(FormatJSON).Deserialize([]byte(doc))
	require.NoError(t, err)

	roots := s.ListRoots()
	require.Len(t, roots, 1)
	assert.Equal(t, "root", roots[0].ID)

	_, err = s.ListChildren("deleted-long-ago")
	assert.ErrorIs(t, err, store.ErrNotFound)

	stray, err := s.GetTask("stray")
	require.NoError(t, err)
	assert.Equal(t, "Stray", stray.Name)
	assert.Equal(t, "deleted-long-ago", stray.Parent())

	// The dangling reference survives another save.
	data, err := NewCodec(FormatJSON).Serialize(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"parent_id": "deleted-long-ago"`)
}

func TestDeserialize_Defaults(t *testing.T) {
	doc := `{"a": {"name": "Only a name"}, "b": {"parent_id": "a", "created_at": "2026-02-01T12:00:00Z"}}`

	s, err := NewCodec(FormatJSON).Deserialize([]byte(doc))
	require.NoError(t, err)

	a, err := s.GetTask("a")
	require.NoError(t, err)
	assert.Equal(t, "Only a name", a.Name)
	assert.Equal(t, store.StatusNotStarted, a.Status)
	assert.Empty(t, a.Memo)
	assert.True(t, a.IsRoot())
	assert.True(t, a.CreatedAt.IsZero())

	b, err := s.GetTask("b")
	require.NoError(t, err)
	assert.Equal(t, UntitledName, b.Name)
	assert.Equal(t, "a", b.Parent())
	assert.True(t, b.UpdatedAt.Equal(b.CreatedAt), "missing updated_at falls back to created_at")

	kids, err := s.ListChildren("a")
	require.NoError(t, err)
	assert.Len(t, kids, 1)
}

func TestDeserialize_LenientValues(t *testing.T) {
	doc := `{
  "x": {"name": "  Legacy  ", "status": "IN-PROGRESS", "parent_id": "",
        "created_at": "2024-05-01T09:30:00.123456", "updated_at": "2024-05-01 10:00:00",
        "colour": "ignored"}
}`
	s, err := NewCodec(FormatJSON).Deserialize([]byte(doc))
	require.NoError(t, err)

	x, err := s.GetTask("x")
	require.NoError(t, err)
	assert.Equal(t, "Legacy", x.Name)
	assert.Equal(t, store.StatusInProgress, x.Status)
	assert.True(t, x.IsRoot(), "empty parent_id means root")

	wantCreated := time.Date(2024, 5, 1, 9, 30, 0, 123456000, time.Local)
	assert.True(t, x.CreatedAt.Equal(wantCreated), "got %s", x.CreatedAt)
	wantUpdated := time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)
	assert.True(t, x.UpdatedAt.Equal(wantUpdated), "got %s", x.UpdatedAt)
}

func TestDeserialize_LegacyDesktopDocument(t *testing.T) {
	doc := `{
  "3f2a": {
    "name": "報告書",
    "status": "実行中",
    "memo": "",
    "parent_id": null,
    "created_at": "2024-05-01T10:00:00.123456",
    "updated_at": "2024-05-01T10:05:00.654321"
  },
  "9b1c": {
    "name": "下書き",
    "status": "完了",
    "memo": "メモ",
    "parent_id": "3f2a",
    "created_at": "2024-05-01T10:01:00",
    "updated_at": "2024-05-01T10:01:00"
  },
  "c7d0": {
    "name": "清書",
    "status": "未着手",
    "memo": "",
    "parent_id": "3f2a",
    "created_at": "2024-05-01T10:02:00",
    "updated_at": "2024-05-01T10:02:00"
  }
}`
	s, err := NewCodec(FormatJSON).Deserialize([]byte(doc))
	require.NoError(t, err)

	roots := s.ListRoots()
	require.Len(t, roots, 1)
	assert.Equal(t, store.StatusInProgress, roots[0].Status)

	kids, err := s.ListChildren("3f2a")
	require.NoError(t, err)
	require.Len(t, kids, 2)
	assert.Equal(t, store.StatusCompleted, kids[0].Status)
	assert.Equal(t, store.StatusNotStarted, kids[1].Status)

	out, err := NewCodec(FormatJSON).Serialize(s)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"status": "in_progress"`)
	assert.NotContains(t, string(out), "実行中")
}

func TestDeserialize_YAML(t *testing.T) {
	doc := `
root:
  name: Garden
  status: in_progress
  memo: |
    water plants
    mow lawn
  parent_id: null
  created_at: "2026-04-01T07:00:00Z"
kid:
  name: Buy seeds
  parent_id: root
  created_at: "2026-04-01T07:05:00Z"
`
	s, err := NewCodec(FormatYAML).Deserialize([]byte(doc))
	require.NoError(t, err)

	roots := s.ListRoots()
	require.Len(t, roots, 1)
	assert.Equal(t, "Garden", roots[0].Name)
	assert.Equal(t, "water plants\nmow lawn\n", roots[0].Memo)

	kids, err := s.ListChildren("root")
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, "Buy seeds", kids[0].Name)
}

func TestDeserialize_Corrupt(t *testing.T) {
	cases := []struct {
		name   string
		format Format
		doc    string
	}{
		{"empty", FormatJSON, ""},
		{"whitespace", FormatJSON, "  \n\t"},
		{"not json", FormatJSON, "this is not json"},
		{"truncated", FormatJSON, `{"a": {"name": "x"`},
		{"top level array", FormatJSON, `[{"name": "x"}]`},
		{"top level null", FormatJSON, `null`},
		{"record is string", FormatJSON, `{"a": "x"}`},
		{"record is null", FormatJSON, `{"a": null}`},
		{"name wrong type", FormatJSON, `{"a": {"name": 5}}`},
		{"unknown status", FormatJSON, `{"a": {"name": "x", "status": "archived"}}`},
		{"bad timestamp", FormatJSON, `{"a": {"name": "x", "created_at": "yesterday"}}`},
		{"empty id", FormatJSON, `{"": {"name": "x"}}`},
		{"yaml empty", FormatYAML, ""},
		{"yaml sequence", FormatYAML, "- a\n- b\n"},
		{"yaml scalar", FormatYAML, "hello"},
		{"yaml null", FormatYAML, "~"},
		{"yaml record scalar", FormatYAML, "a: just text\n"},
		{"yaml unclosed flow", FormatYAML, "a: [unclosed\n"},
		{"yaml unknown status", FormatYAML, "a:\n  status: maybe\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCodec(tc.format).Deserialize([]byte(tc.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorruptDocument)
		})
	}
}

func TestDeserialize_InvalidStatusKeepsCause(t *testing.T) {
	_, err := NewCodec(FormatJSON).Deserialize([]byte(`{"a": {"status": "archived"}}`))
	assert.ErrorIs(t, err, ErrCorruptDocument)
	assert.ErrorIs(t, err, store.ErrInvalidStatus)
}

func TestDeserialize_EmptyObject(t *testing.T) {
	s, err := NewCodec(FormatJSON).Deserialize([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	s, err = NewCodec(FormatYAML).Deserialize([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestDeserialize_AppliesStoreOptions(t *testing.T) {
	codec := NewCodec(FormatJSON, store.WithIDGenerator(func() string { return "fixed-id" }))

	s, err := codec.Deserialize([]byte(`{"a": {"name": "x"}}`))
	require.NoError(t, err)

	task, err := s.CreateTask(nil, "new")
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", task.ID)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("tasks.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("dir/Tasks.YML"))
	assert.Equal(t, FormatJSON, FormatFromPath("tasks.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("tasks"))

	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	_, err = ParseFormat("toml")
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	for _, name := range []string{"tasks.json", "tasks.yaml"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "nested", name)
			s := buildStore(t)

			require.NoError(t, Save(path, s))

			back, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, tuples(s), tuples(back))

			entries, err := os.ReadDir(filepath.Dir(path))
			require.NoError(t, err)
			require.Len(t, entries, 1, "temporary files must not be left behind")
			assert.Equal(t, name, entries[0].Name())
		})
	}
}

func TestSave_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")

	require.NoError(t, Save(path, buildStore(t)))
	require.NoError(t, Save(path, store.New()))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, back.Len())
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{oops"), 0644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrCorruptDocument)
}
