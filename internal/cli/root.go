package cli

import (
	"github.com/imkarma/tasktree/internal/config"
	"github.com/imkarma/tasktree/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagFile   string
	flagConfig string

	appCfg *config.Config
	appLog = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "tasktree",
	Short: "A tree of tasks in a single file",
	Long: "tasktree keeps a personal task list as a tree: every task can have subtasks,\n" +
		"a status and a free-form memo. The whole tree lives in one JSON or YAML document.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) { logger.Sync(appLog) },
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagFile, "file", "f", "", "Task document (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default "+config.DefaultPath()+")")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(orphansCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

// setup loads the config and builds the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadOrDefault(configPath())
	if err != nil {
		return err
	}

	out := logger.ToStderr
	if cmd == uiCmd {
		out = logger.Discard
	}
	log, err := logger.New(cfg.Log, out)
	if err != nil {
		return err
	}

	appCfg, appLog = cfg, log
	appLog.Debug("config loaded", zap.String("path", configPath()), zap.String("data_dir", cfg.DataDir))
	return nil
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.DefaultPath()
}
