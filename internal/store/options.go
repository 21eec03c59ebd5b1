package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTaskName is used when a task is created without a name.
const DefaultTaskName = "New task"

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source. Tests pass a fake to get deterministic
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the id source. The default draws random UUIDs.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger routes mutation logs to log.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithDefaultName changes the name given to tasks created without one.
func WithDefaultName(name string) Option {
	return func(s *Store) {
		if name = strings.TrimSpace(name); name != "" {
			s.defaultName = name
		}
	}
}

func defaultClock() time.Time {
	return time.Now().UTC()
}

func defaultID() string {
	return uuid.NewString()
}
