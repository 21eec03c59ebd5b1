// Package document converts a task store to and from its on-disk text form.
//
// A document is a single mapping from task id to a flat record. The tree
// shape lives only in each record's parent_id, so the output never depends
// on how the store happens to enumerate its tasks.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/imkarma/tasktree/internal/store"
	"gopkg.in/yaml.v3"
)

// ErrCorruptDocument is returned when text does not parse into the expected
// record structure.
var ErrCorruptDocument = errors.New("corrupt document")

// UntitledName replaces a missing or blank name when reading a document.
const UntitledName = "Untitled"

// Format selects the text encoding of a document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name from config or flags.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown document format %q (want json or yaml)", s)
}

// FormatFromPath picks YAML for .yaml/.yml files and JSON for everything
// else.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Extension returns the file extension, with dot, for f.
func (f Format) Extension() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// record is one task as it appears in a document. Pointer fields tell a
// missing field apart from an empty one.
type record struct {
	Name      *string `json:"name" yaml:"name"`
	Status    *string `json:"status" yaml:"status"`
	Memo      *string `json:"memo" yaml:"memo"`
	ParentID  *string `json:"parent_id" yaml:"parent_id"`
	CreatedAt *string `json:"created_at" yaml:"created_at"`
	UpdatedAt *string `json:"updated_at" yaml:"updated_at"`
}

// Codec serializes stores in one format. Store options are applied to every
// store it deserializes.
type Codec struct {
	format    Format
	storeOpts []store.Option
}

// NewCodec returns a codec for format.
func NewCodec(format Format, opts ...store.Option) *Codec {
	if format == "" {
		format = FormatJSON
	}
	return &Codec{format: format, storeOpts: opts}
}

// Format returns the codec's format.
func (c *Codec) Format() Format {
	return c.format
}

// Serialize renders every task in s, keyed by id. Map keys are written in
// sorted order by both encoders.
func (c *Codec) Serialize(s *store.Store) ([]byte, error) {
	doc := make(map[string]record, s.Len())
	for _, t := range s.All() {
		doc[t.ID] = toRecord(t)
	}

	var buf bytes.Buffer
	switch c.format {
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode yaml document: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml document: %w", err)
		}
	default:
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode json document: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// Deserialize parses data into a new store. Missing optional fields take
// their defaults; a parent_id naming no task in the document is kept as is.
func (c *Codec) Deserialize(data []byte) (*store.Store, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrCorruptDocument)
	}

	var (
		records map[string]record
		err     error
	)
	switch c.format {
	case FormatYAML:
		records, err = decodeYAML(data)
	default:
		records, err = decodeJSON(data)
	}
	if err != nil {
		return nil, err
	}

	tasks := make([]store.Task, 0, len(records))
	for id, rec := range records {
		t, err := rec.task(id)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	s, err := store.Restore(tasks, c.storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptDocument, err)
	}
	return s, nil
}

func decodeJSON(data []byte) (map[string]record, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptDocument, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: top level is not an object", ErrCorruptDocument)
	}

	out := make(map[string]record, len(raw))
	for id, msg := range raw {
		trimmed := bytes.TrimSpace(msg)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, fmt.Errorf("%w: task %s: record is not an object", ErrCorruptDocument, id)
		}
		var rec record
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return nil, fmt.Errorf("%w: task %s: %w", ErrCorruptDocument, id, err)
		}
		out[id] = rec
	}
	return out, nil
}

func decodeYAML(data []byte) (map[string]record, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptDocument, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: top level is not a mapping", ErrCorruptDocument)
	}

	out := make(map[string]record, len(raw))
	for id, node := range raw {
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: task %s: record is not a mapping", ErrCorruptDocument, id)
		}
		var rec record
		if err := node.Decode(&rec); err != nil {
			return nil, fmt.Errorf("%w: task %s: %w", ErrCorruptDocument, id, err)
		}
		out[id] = rec
	}
	return out, nil
}

func toRecord(t store.Task) record {
	name := t.Name
	status := string(t.Status)
	memo := t.Memo
	created := formatTime(t.CreatedAt)
	updated := formatTime(t.UpdatedAt)
	return record{
		Name:      &name,
		Status:    &status,
		Memo:      &memo,
		ParentID:  t.ParentID,
		CreatedAt: &created,
		UpdatedAt: &updated,
	}
}

// task validates r and fills in defaults for missing fields.
func (r record) task(id string) (store.Task, error) {
	t := store.Task{
		ID:     id,
		Name:   UntitledName,
		Status: store.StatusNotStarted,
	}
	if strings.TrimSpace(id) == "" {
		return t, fmt.Errorf("%w: record with empty id", ErrCorruptDocument)
	}

	if r.Name != nil {
		if name := strings.TrimSpace(*r.Name); name != "" {
			t.Name = name
		}
	}
	if r.Status != nil && strings.TrimSpace(*r.Status) != "" {
		st, err := store.ParseStatus(*r.Status)
		if err != nil {
			return t, fmt.Errorf("%w: task %s: %w", ErrCorruptDocument, id, err)
		}
		t.Status = st
	}
	if r.Memo != nil {
		t.Memo = *r.Memo
	}
	if r.ParentID != nil && *r.ParentID != "" {
		t.ParentID = store.StringPtr(*r.ParentID)
	}

	var err error
	if r.CreatedAt != nil {
		if t.CreatedAt, err = parseTime(*r.CreatedAt); err != nil {
			return t, fmt.Errorf("%w: task %s: created_at: %w", ErrCorruptDocument, id, err)
		}
	}
	t.UpdatedAt = t.CreatedAt
	if r.UpdatedAt != nil {
		if t.UpdatedAt, err = parseTime(*r.UpdatedAt); err != nil {
			return t, fmt.Errorf("%w: task %s: updated_at: %w", ErrCorruptDocument, id, err)
		}
	}
	return t, nil
}

// localLayouts are accepted for timestamps written without a zone offset.
// Fractional seconds are optional when parsing with any of them.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
