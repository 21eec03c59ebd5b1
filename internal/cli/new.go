package cli

import (
	"fmt"
	"os"

	"github.com/imkarma/tasktree/internal/store"
	"github.com/spf13/cobra"
)

var newForce bool

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create an empty task document",
	Args:  cobra.NoArgs,
	RunE:  runNew,
}

func init() {
	newCmd.Flags().BoolVar(&newForce, "force", false, "Replace an existing document")
}

func runNew(cmd *cobra.Command, args []string) error {
	path := documentPath()
	if _, err := os.Stat(path); err == nil && !newForce {
		return fmt.Errorf("%s already exists (use --force to replace it)", path)
	}

	if err := saveDocument(path, store.New(storeOptions()...)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created empty document %s\n", path)
	return nil
}
