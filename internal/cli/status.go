package cli

import (
	"fmt"

	"github.com/imkarma/tasktree/internal/store"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Quick status overview",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, path, err := openDocument()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tasks := s.All()
	if len(tasks) == 0 {
		fmt.Fprintf(out, "No tasks in %s. Run: %s\n", path, styleCmd.Render(`tasktree add "description"`))
		return nil
	}

	counts := map[store.TaskStatus]int{}
	for _, t := range tasks {
		counts[t.Status]++
	}

	fmt.Fprintf(out, "%s\n", styleBold.Render(fmt.Sprintf("Tasks: %d total", len(tasks))))
	for _, st := range store.Statuses {
		fmt.Fprintf(out, "  %-14s %s\n", st.Label()+":", statusStyle(st).Render(fmt.Sprint(counts[st])))
	}
	fmt.Fprintf(out, "  %-14s %d\n", "top level:", len(s.ListRoots()))

	done := counts[store.StatusCompleted] * 100 / len(tasks)
	fmt.Fprintf(out, "\n%d%% complete\n", done)

	if orphans := s.Orphans(); len(orphans) > 0 {
		fmt.Fprintf(out, "\n%s Run: %s\n",
			styleWarn.Render(fmt.Sprintf("⚠  %d task(s) unreachable from the top level.", len(orphans))),
			styleCmd.Render("tasktree orphans"))
	}
	return nil
}
