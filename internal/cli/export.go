package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/imkarma/tasktree/internal/outline"
	"github.com/imkarma/tasktree/internal/snapshot"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	exportSQLite   string
	exportMarkdown string
	exportTitle    string

	importSQLite string
	importForce  bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the document to SQLite or Markdown",
	Long:  "Writes a SQLite snapshot of every task (--sqlite) and/or a Markdown checklist (--markdown, \"-\" for stdout).",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace the document with a SQLite snapshot",
	Args:  cobra.NoArgs,
	RunE:  runImport,
}

func init() {
	exportCmd.Flags().StringVar(&exportSQLite, "sqlite", "", "SQLite snapshot path")
	exportCmd.Flags().StringVar(&exportMarkdown, "markdown", "", "Markdown output path, or - for stdout")
	exportCmd.Flags().StringVar(&exportTitle, "title", "", "Markdown heading (default: document name)")

	importCmd.Flags().StringVar(&importSQLite, "sqlite", "", "SQLite snapshot path")
	importCmd.Flags().BoolVar(&importForce, "force", false, "Overwrite an existing document")
	_ = importCmd.MarkFlagRequired("sqlite")
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportSQLite == "" && exportMarkdown == "" {
		return fmt.Errorf("nothing to export: pass --sqlite or --markdown")
	}

	s, path, err := openDocument()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if exportSQLite != "" {
		if err := snapshot.Export(cmd.Context(), exportSQLite, s); err != nil {
			return fmt.Errorf("export snapshot: %w", err)
		}
		appLog.Debug("snapshot exported", zap.String("path", exportSQLite), zap.Int("tasks", s.Len()))
		fmt.Fprintf(out, "Exported %d task(s) to %s\n", s.Len(), exportSQLite)
	}

	if exportMarkdown != "" {
		title := exportTitle
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}

		if exportMarkdown == "-" {
			return outline.Markdown(out, s, title)
		}

		f, err := os.Create(exportMarkdown)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportMarkdown, err)
		}
		if err := outline.Markdown(f, s, title); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", exportMarkdown, err)
		}
		fmt.Fprintf(out, "Wrote Markdown outline to %s\n", exportMarkdown)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	path := documentPath()
	if _, err := os.Stat(path); err == nil && !importForce {
		return fmt.Errorf("%s already exists (use --force to replace it)", path)
	}

	s, err := snapshot.Import(cmd.Context(), importSQLite, storeOptions()...)
	if err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	if err := saveDocument(path, s); err != nil {
		return err
	}

	appLog.Debug("snapshot imported", zap.String("from", importSQLite), zap.String("to", path), zap.Int("tasks", s.Len()))
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d task(s) into %s\n", s.Len(), path)
	return nil
}
