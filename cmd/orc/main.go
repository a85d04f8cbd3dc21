// Command orc is the task orchestrator CLI: a persistent task-management
// backend for coding agents. `orc serve` speaks newline-delimited JSON over
// stdio; the other commands manage the workspace from a shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/untoldecay/TaskOrchestrator/internal/config"
	"github.com/untoldecay/TaskOrchestrator/internal/storage/sqlite"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "orc",
	Short: "Persistent task orchestration for coding agents",
	Long: `orc manages projects, features, and tasks in a local SQLite database
and exposes them to AI coding agents as a stdio tool server. Status changes
go through a config-driven state machine with prerequisite validation,
dependency-aware blocking, and automatic completion cascades.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "machine-readable output")
}

func main() {
	config.InitSettings()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openStore opens the workspace database, applying pending migrations.
func openStore(ctx context.Context) (*sqlite.Store, error) {
	return sqlite.New(ctx, config.DatabasePath())
}

// loadWorkflowConfig loads the discovered config.yaml merged over defaults.
func loadWorkflowConfig() (*config.Config, error) {
	return config.LoadFromDir(config.WorkingDir())
}

// newLogger builds the process logger. With TASKORC_LOG set, logs rotate
// through that file; otherwise they go to stderr. stdout stays reserved for
// protocol responses.
func newLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(config.GetString("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if path := config.LogPath(); path != "" {
		return slog.New(slog.NewJSONHandler(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    20, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
