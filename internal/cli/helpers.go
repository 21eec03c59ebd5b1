package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/imkarma/tasktree/internal/document"
	"github.com/imkarma/tasktree/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// documentPath resolves --file against the config. A name without an
// extension gets the configured format's one.
func documentPath() string {
	path := appCfg.ResolvePath(flagFile)
	if filepath.Ext(path) == "" {
		format, err := document.ParseFormat(appCfg.Format)
		if err != nil {
			format = document.FormatJSON
		}
		path += format.Extension()
	}
	return path
}

// storeOptions are the options every store opened by the CLI gets.
func storeOptions() []store.Option {
	return []store.Option{
		store.WithLogger(appLog),
		store.WithDefaultName(appCfg.DefaultTaskName),
	}
}

// openDocument loads the current document, returning an error if it does not
// exist yet.
func openDocument() (*store.Store, string, error) {
	path := documentPath()
	s, err := document.Load(path, storeOptions()...)
	if errors.Is(err, os.ErrNotExist) {
		return nil, path, fmt.Errorf("no document at %s. Run: tasktree new", path)
	}
	if err != nil {
		return nil, path, err
	}
	appLog.Debug("document loaded", zap.String("path", path), zap.Int("tasks", s.Len()))
	return s, path, nil
}

// saveDocument writes s back to path.
func saveDocument(path string, s *store.Store) error {
	if err := document.Save(path, s); err != nil {
		return err
	}
	appLog.Debug("document saved", zap.String("path", path), zap.Int("tasks", s.Len()))
	return nil
}

// resolveID accepts a full task id or any unique prefix of one.
func resolveID(s *store.Store, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty task id", store.ErrNotFound)
	}
	if _, err := s.GetTask(ref); err == nil {
		return ref, nil
	}

	var matches []string
	for _, t := range s.All() {
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("task %s: %w", ref, store.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("task id %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// confirm asks a yes/no question on the command's input. Anything but y or
// yes counts as no.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
