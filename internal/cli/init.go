package cli

import (
	"fmt"
	"os"

	"github.com/imkarma/tasktree/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long:  "Writes the default configuration to the config path so it can be edited.",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := configPath()

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	if err := config.Save(path, appCfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Fprintf(out, "Wrote config to %s\n", path)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  1. Run: %s\n", styleCmd.Render("tasktree new"))
	fmt.Fprintf(out, "  2. Run: %s\n", styleCmd.Render(`tasktree add "your first task"`))
	fmt.Fprintf(out, "  3. Run: %s\n", styleCmd.Render("tasktree ui"))
	return nil
}
