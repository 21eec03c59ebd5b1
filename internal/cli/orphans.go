package cli

import (
	"fmt"

	"github.com/imkarma/tasktree/internal/outline"
	"github.com/spf13/cobra"
)

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List tasks that cannot be reached from the top level",
	Long:  "Lists tasks whose parent is missing from the document or that sit inside a parent cycle. They are kept as-is and can be edited or deleted by ID.",
	Args:  cobra.NoArgs,
	RunE:  runOrphans,
}

func runOrphans(cmd *cobra.Command, args []string) error {
	s, _, err := openDocument()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	orphans := s.Orphans()
	if len(orphans) == 0 {
		fmt.Fprintln(out, "Every task is reachable.")
		return nil
	}

	fmt.Fprintf(out, "Unreachable tasks (%d):\n\n", len(orphans))
	for _, t := range orphans {
		reason := outline.UnreachableReason(s, t)
		fmt.Fprintf(out, "  %s  %-30s %s\n", outline.ShortID(t.ID), truncate(t.Name, 30), styleDim.Render("("+reason+")"))
	}
	return nil
}
