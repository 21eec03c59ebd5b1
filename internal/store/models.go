package store

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus represents how far along a task is.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not_started"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

// Statuses lists every valid status in display order.
var Statuses = []TaskStatus{StatusNotStarted, StatusInProgress, StatusCompleted}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Next returns the status that follows s in display order, wrapping around.
func (s TaskStatus) Next() TaskStatus {
	for i, st := range Statuses {
		if st == s {
			return Statuses[(i+1)%len(Statuses)]
		}
	}
	return StatusNotStarted
}

// Label returns the human-readable form, e.g. "in progress".
func (s TaskStatus) Label() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

// legacyStatuses are the labels the earlier desktop tool stored in place of
// the wire values. They are read, never written.
var legacyStatuses = map[string]TaskStatus{
	"未着手": StatusNotStarted,
	"実行中": StatusInProgress,
	"完了":  StatusCompleted,
}

// ParseStatus accepts the wire value in any case, with "-", "_" or " " as
// the word separator ("IN_PROGRESS", "in-progress", "Not Started"), and the
// legacy labels in legacyStatuses.
func ParseStatus(raw string) (TaskStatus, error) {
	if st, ok := legacyStatuses[strings.TrimSpace(raw)]; ok {
		return st, nil
	}
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	st := TaskStatus(norm)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return st, nil
}

// Task is a single labeled node in the tree.
//
// ParentID is nil for root tasks. Seq is a store-local insertion counter used
// to break created_at ties; it is not persisted.
type Task struct {
	ID        string     `json:"id"`
	ParentID  *string    `json:"parent_id,omitempty"`
	Name      string     `json:"name"`
	Status    TaskStatus `json:"status"`
	Memo      string     `json:"memo"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Seq       uint64     `json:"-"`
}

// IsRoot reports whether the task has no parent.
func (t Task) IsRoot() bool {
	return t.ParentID == nil
}

// Parent returns the parent id, or "" for a root task.
func (t Task) Parent() string {
	if t.ParentID == nil {
		return ""
	}
	return *t.ParentID
}

// clone returns a copy that shares no pointers with t.
func (t Task) clone() Task {
	if t.ParentID != nil {
		p := *t.ParentID
		t.ParentID = &p
	}
	return t
}

// Update carries the fields UpdateTask should change. Nil fields are left
// as they are.
type Update struct {
	Name   *string
	Status *TaskStatus
	Memo   *string
}

// StringPtr is a small helper for building Update values and parent ids.
func StringPtr(s string) *string {
	return &s
}

// StatusPtr returns a pointer to st.
func StatusPtr(st TaskStatus) *TaskStatus {
	return &st
}

// less orders siblings by creation time, then insertion sequence.
func less(a, b Task) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	if a.Seq != b.Seq {
		return a.Seq < b.Seq
	}
	return a.ID < b.ID
}
