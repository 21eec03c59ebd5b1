// Package store holds the in-memory task forest of one document.
//
// Tasks are kept in a flat id-keyed map. The parent_id back-reference is the
// only source of truth for the tree shape; the parent -> children index is a
// cache rebuilt after every structural change.
package store

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// maxIDAttempts bounds how often CreateTask redraws an id that was already
// issued by this store.
const maxIDAttempts = 16

// Store provides access to the tasks of one document.
type Store struct {
	mu sync.RWMutex

	tasks map[string]*Task
	// used remembers every id this store has held, so deleted ids are never
	// handed out again.
	used map[string]struct{}
	// children maps a parent id to its children in sibling order. Roots are
	// filed under "".
	children map[string][]string

	seq uint64
	rev uint64

	now         func() time.Time
	newID       func() string
	log         *zap.Logger
	defaultName string
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		tasks:       make(map[string]*Task),
		used:        make(map[string]struct{}),
		children:    make(map[string][]string),
		now:         defaultClock,
		newID:       defaultID,
		log:         zap.NewNop(),
		defaultName: DefaultTaskName,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore builds a store from records read back from a document or
// snapshot. Parent ids are not checked: a task whose parent is missing is
// kept but is unreachable from the roots. Insertion sequence is reassigned in
// (created_at, id) order so sibling order stays deterministic.
func Restore(tasks []Task, opts ...Option) (*Store, error) {
	s := New(opts...)

	ordered := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		t := t
		if strings.TrimSpace(t.ID) == "" {
			return nil, fmt.Errorf("%w: task id is empty", ErrValidation)
		}
		if _, dup := s.tasks[t.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, t.ID)
		}
		if strings.TrimSpace(t.Name) == "" {
			return nil, fmt.Errorf("task %s: %w: name is blank", t.ID, ErrValidation)
		}
		if !t.Status.Valid() {
			return nil, fmt.Errorf("task %s: %w: %q", t.ID, ErrInvalidStatus, t.Status)
		}

		t = t.clone()
		if t.ParentID != nil && *t.ParentID == "" {
			t.ParentID = nil
		}
		s.tasks[t.ID] = &t
		s.used[t.ID] = struct{}{}
		ordered = append(ordered, t)
	}

	slices.SortFunc(ordered, func(a, b Task) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	for _, t := range ordered {
		s.seq++
		s.tasks[t.ID].Seq = s.seq
	}
	s.reindex()

	s.log.Debug("store restored", zap.Int("tasks", len(s.tasks)))
	return s, nil
}

// CreateTask adds a task under parentID, or as a root when parentID is nil.
// A blank name is replaced with the store's default name.
func (s *Store) CreateTask(parentID *string, name string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if parentID != nil {
		if _, ok := s.tasks[*parentID]; !ok {
			return Task{}, fmt.Errorf("%w: %s", ErrInvalidParent, *parentID)
		}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = s.defaultName
	}

	id, err := s.nextID()
	if err != nil {
		return Task{}, err
	}

	now := s.now()
	s.seq++
	t := &Task{
		ID:        id,
		Name:      name,
		Status:    StatusNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
		Seq:       s.seq,
	}
	if parentID != nil {
		p := *parentID
		t.ParentID = &p
	}

	s.tasks[id] = t
	s.used[id] = struct{}{}
	s.rev++
	s.reindex()

	s.log.Debug("task created",
		zap.String("task_id", id),
		zap.String("parent_id", t.Parent()),
		zap.String("name", name),
	)
	return t.clone(), nil
}

// UpdateTask applies the non-nil fields of f to the task and stamps
// UpdatedAt. Nothing is changed if any field is rejected.
func (s *Store) UpdateTask(id string, f Update) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("update task: %w: %s", ErrNotFound, id)
	}

	var name string
	if f.Name != nil {
		name = strings.TrimSpace(*f.Name)
		if name == "" {
			return Task{}, fmt.Errorf("update task %s: %w: name must not be blank", id, ErrValidation)
		}
	}
	if f.Status != nil && !f.Status.Valid() {
		return Task{}, fmt.Errorf("update task %s: %w: %q", id, ErrInvalidStatus, *f.Status)
	}

	if f.Name != nil {
		t.Name = name
	}
	if f.Status != nil {
		t.Status = *f.Status
	}
	if f.Memo != nil {
		t.Memo = *f.Memo
	}
	t.UpdatedAt = s.now()
	s.rev++

	s.log.Debug("task updated",
		zap.String("task_id", id),
		zap.String("status", string(t.Status)),
	)
	return t.clone(), nil
}

// DeleteTask removes the task and its whole subtree. The returned ids are in
// removal order: every task appears after all of its descendants.
func (s *Store) DeleteTask(id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return nil, fmt.Errorf("delete task: %w: %s", ErrNotFound, id)
	}

	// Post-order walk on an explicit stack; visited guards against cycles
	// in hand-edited documents.
	type frame struct {
		id       string
		expanded bool
	}
	visited := map[string]bool{id: true}
	stack := []frame{{id: id}}
	var removed []string

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.expanded {
			removed = append(removed, top.id)
			stack = stack[:len(stack)-1]
			continue
		}
		top.expanded = true

		kids := s.children[top.id]
		for i := len(kids) - 1; i >= 0; i-- {
			if visited[kids[i]] {
				continue
			}
			visited[kids[i]] = true
			stack = append(stack, frame{id: kids[i]})
		}
	}

	for _, rid := range removed {
		delete(s.tasks, rid)
	}
	s.rev++
	s.reindex()

	s.log.Debug("task deleted",
		zap.String("task_id", id),
		zap.Int("removed", len(removed)),
	)
	return removed, nil
}

// GetTask returns a single task by id.
func (s *Store) GetTask(id string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("get task: %w: %s", ErrNotFound, id)
	}
	return t.clone(), nil
}

// ListRoots returns the tasks without a parent in sibling order.
func (s *Store) ListRoots() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(s.children[""])
}

// ListChildren returns the direct children of id in sibling order.
func (s *Store) ListChildren(id string) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.tasks[id]; !ok {
		return nil, fmt.Errorf("list children: %w: %s", ErrNotFound, id)
	}
	return s.collect(s.children[id]), nil
}

// HasChildren reports whether any task names id as its parent.
func (s *Store) HasChildren(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.children[id]) > 0
}

// All returns every task ordered by creation time and insertion sequence.
func (s *Store) All() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.clone())
	}
	sortTasks(out)
	return out
}

// Len returns the number of tasks held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.tasks)
}

// Revision increases with every successful mutation. Shells compare it with
// the revision they last saved to detect unsaved changes.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.rev
}

// Orphans returns the tasks that cannot be reached by walking down from the
// roots: their parent is missing, or they sit inside a parent cycle.
func (s *Store) Orphans() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reachable := make(map[string]bool, len(s.tasks))
	queue := slices.Clone(s.children[""])
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if reachable[id] {
			continue
		}
		reachable[id] = true
		queue = append(queue, s.children[id]...)
	}

	var out []Task
	for id, t := range s.tasks {
		if !reachable[id] {
			out = append(out, t.clone())
		}
	}
	sortTasks(out)
	return out
}

// Path returns the ancestry of id from the topmost known ancestor down to
// the task itself. The walk stops at a missing parent or a cycle.
func (s *Store) Path(id string) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("path: %w: %s", ErrNotFound, id)
	}

	seen := map[string]bool{id: true}
	path := []Task{t.clone()}
	for t.ParentID != nil {
		parent, ok := s.tasks[*t.ParentID]
		if !ok || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		path = append(path, parent.clone())
		t = parent
	}
	slices.Reverse(path)
	return path, nil
}

func (s *Store) nextID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.newID()
		if id == "" {
			continue
		}
		if _, taken := s.used[id]; !taken {
			return id, nil
		}
	}
	return "", errIDExhausted
}

// reindex rebuilds the parent -> children cache from the task map. Callers
// hold the write lock.
func (s *Store) reindex() {
	all := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		all = append(all, *t)
	}
	sortTasks(all)

	idx := make(map[string][]string, len(all))
	for _, t := range all {
		idx[t.Parent()] = append(idx[t.Parent()], t.ID)
	}
	s.children = idx
}

func (s *Store) collect(ids []string) []Task {
	out := make([]Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.tasks[id].clone())
	}
	return out
}

func sortTasks(tasks []Task) {
	slices.SortFunc(tasks, func(a, b Task) int {
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		}
		return 0
	})
}
