package cli

import (
	"fmt"

	"github.com/imkarma/tasktree/internal/outline"
	"github.com/spf13/cobra"
)

var treeIDs bool

var treeCmd = &cobra.Command{
	Use:   "tree [id]",
	Short: "Print the task tree",
	Long:  "Prints every task as an indented tree, or only the subtree under the given task.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTree,
}

func init() {
	treeCmd.Flags().BoolVar(&treeIDs, "ids", false, "Show short task IDs")
}

func runTree(cmd *cobra.Command, args []string) error {
	s, _, err := openDocument()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if s.Len() == 0 {
		fmt.Fprintf(out, "%s Add one: %s\n", styleDim.Render("No tasks yet."), styleCmd.Render(`tasktree add "description"`))
		return nil
	}

	opts := outline.Options{ShowIDs: treeIDs, Decorate: decorate}
	if len(args) == 1 {
		if opts.Root, err = resolveID(s, args[0]); err != nil {
			return err
		}
	}
	return outline.Tree(out, s, opts)
}
