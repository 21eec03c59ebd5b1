// Package outline renders the reachable task tree as plain text or as a
// Markdown checklist. Tasks that cannot be reached from a root are listed
// separately at the end so nothing in the document is hidden.
package outline

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/imkarma/tasktree/internal/store"
)

// ShortIDLen is how many leading characters of an id are shown.
const ShortIDLen = 8

// Options tweaks Tree output.
type Options struct {
	ShowIDs bool
	// Root limits output to the subtree under this task id.
	Root string
	// Decorate, when set, styles each rendered line (e.g. colours in a
	// terminal). It receives the task and the undecorated label.
	Decorate func(t store.Task, label string) string
}

// Glyph returns the status marker used in text trees.
func Glyph(st store.TaskStatus) string {
	switch st {
	case store.StatusInProgress:
		return "◉"
	case store.StatusCompleted:
		return "●"
	default:
		return "○"
	}
}

// Checkbox returns the Markdown task-list box for st.
func Checkbox(st store.TaskStatus) string {
	switch st {
	case store.StatusInProgress:
		return "[~]"
	case store.StatusCompleted:
		return "[x]"
	default:
		return "[ ]"
	}
}

// ShortID trims id to ShortIDLen characters.
func ShortID(id string) string {
	if len(id) <= ShortIDLen {
		return id
	}
	return id[:ShortIDLen]
}

// UnreachableReason says why t cannot be reached from a root: its parent is
// either missing from the document or part of a parent cycle.
func UnreachableReason(s *store.Store, t store.Task) string {
	if _, err := s.GetTask(t.Parent()); err == nil {
		return "parent cycle through " + ShortID(t.Parent())
	}
	return "parent " + ShortID(t.Parent()) + " missing"
}

// Node is one visited task with its depth below the root and the connector
// prefix drawn before it.
type Node struct {
	Task   store.Task
	Depth  int
	Prefix string
	Last   bool
}

// Walk visits every task reachable from the roots, depth first and in
// sibling order, using an explicit stack.
func Walk(s *store.Store, visit func(Node)) {
	walk(s, s.ListRoots(), visit)
}

// WalkFrom visits the subtree rooted at id.
func WalkFrom(s *store.Store, id string, visit func(Node)) error {
	t, err := s.GetTask(id)
	if err != nil {
		return err
	}
	walk(s, []store.Task{t}, visit)
	return nil
}

func walk(s *store.Store, roots []store.Task, visit func(Node)) {
	// seen stops the walk from going round a parent cycle.
	seen := make(map[string]bool, len(roots))
	stack := make([]Node, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		seen[roots[i].ID] = true
		stack = append(stack, Node{Task: roots[i], Last: i == len(roots)-1})
	}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(n)

		kids, err := s.ListChildren(n.Task.ID)
		if err != nil {
			continue
		}
		childPrefix := ""
		if n.Depth > 0 {
			childPrefix = n.Prefix
			if n.Last {
				childPrefix += "    "
			} else {
				childPrefix += "│   "
			}
		}
		kids = slices.DeleteFunc(kids, func(t store.Task) bool { return seen[t.ID] })
		for i := len(kids) - 1; i >= 0; i-- {
			seen[kids[i].ID] = true
			stack = append(stack, Node{
				Task:   kids[i],
				Depth:  n.Depth + 1,
				Prefix: childPrefix,
				Last:   i == len(kids)-1,
			})
		}
	}
}

// Tree writes an indented tree with box-drawing connectors.
func Tree(w io.Writer, s *store.Store, opts Options) error {
	bw := bufio.NewWriter(w)

	label := func(t store.Task) string {
		l := Glyph(t.Status) + " " + t.Name
		if opts.ShowIDs {
			l += "  " + ShortID(t.ID)
		}
		if opts.Decorate != nil {
			l = opts.Decorate(t, l)
		}
		return l
	}

	line := func(n Node) {
		connector := ""
		if n.Depth > 0 {
			connector = "├── "
			if n.Last {
				connector = "└── "
			}
		}
		fmt.Fprintf(bw, "%s%s%s\n", n.Prefix, connector, label(n.Task))
	}

	if opts.Root != "" {
		if err := WalkFrom(s, opts.Root, line); err != nil {
			return err
		}
		return bw.Flush()
	}

	Walk(s, line)
	if orphans := s.Orphans(); len(orphans) > 0 {
		fmt.Fprintf(bw, "\nunreachable (%d):\n", len(orphans))
		for _, t := range orphans {
			fmt.Fprintf(bw, "  %s  (%s)\n", label(t), UnreachableReason(s, t))
		}
	}
	return bw.Flush()
}

// Markdown writes the tree as a nested checklist. Memos become blockquotes
// under their task.
func Markdown(w io.Writer, s *store.Store, title string) error {
	bw := bufio.NewWriter(w)

	if title != "" {
		fmt.Fprintf(bw, "# %s\n\n", title)
	}

	item := func(t store.Task, depth int) {
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(bw, "%s- %s %s\n", indent, Checkbox(t.Status), t.Name)
		memo := strings.TrimRight(t.Memo, "\n")
		if memo == "" {
			return
		}
		for _, line := range strings.Split(memo, "\n") {
			fmt.Fprintf(bw, "%s  > %s\n", indent, line)
		}
	}

	Walk(s, func(n Node) { item(n.Task, n.Depth) })

	if orphans := s.Orphans(); len(orphans) > 0 {
		fmt.Fprintf(bw, "\n## Unreachable\n\n")
		for _, t := range orphans {
			item(t, 0)
		}
	}
	return bw.Flush()
}
