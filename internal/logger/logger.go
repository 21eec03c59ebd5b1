// Package logger builds the zap logger shared by the CLI and the TUI.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/imkarma/tasktree/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006/01/02 15:04:05"

// Output says where log lines go when the config names no file.
type Output int

const (
	// ToStderr is for commands that finish and return to the shell.
	ToStderr Output = iota
	// Discard is for the TUI, which owns the terminal.
	Discard
)

// New builds a logger from cfg. A configured log file always wins over
// fallback.
func New(cfg config.Log, fallback Output) (*zap.Logger, error) {
	if cfg.File == "" && fallback == Discard {
		return zap.NewNop(), nil
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		zc.OutputPaths = []string{cfg.File}
		zc.ErrorOutputPaths = []string{cfg.File}
		// Colour codes only make sense on a terminal.
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	log, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}

// Sync flushes log, ignoring the error stderr returns on some platforms.
func Sync(log *zap.Logger) {
	_ = log.Sync()
}
