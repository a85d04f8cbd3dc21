// Package taskorchestrator provides a minimal public API for embedding the
// orchestrator's storage and workflow engine in other Go programs.
//
// Most integrations should talk to `orc serve` over stdio instead. This
// package exports only what a Go extension needs to read and mutate the
// same database programmatically.
package taskorchestrator

import (
	"context"

	"github.com/untoldecay/TaskOrchestrator/internal/config"
	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/storage/sqlite"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
	"github.com/untoldecay/TaskOrchestrator/internal/workflow"
)

// Storage is the repository interface over the orchestrator database.
type Storage = storage.Storage

// Core entity types.
type (
	Project        = types.Project
	Feature        = types.Feature
	Task           = types.Task
	Section        = types.Section
	Dependency     = types.Dependency
	RoleTransition = types.RoleTransition
)

// Config is the workflow configuration driving the status machine.
type Config = config.Config

// Executor runs validated status transitions with cascade handling.
type Executor = workflow.Executor

// Open opens (creating if necessary) the database at path and applies any
// pending migrations.
func Open(ctx context.Context, path string) (Storage, error) {
	return sqlite.New(ctx, path)
}

// LoadConfig discovers and loads the workspace config starting at dir,
// falling back to the shipped defaults.
func LoadConfig(dir string) (*Config, error) {
	return config.LoadFromDir(dir)
}

// NewExecutor builds a transition executor over an open store. A nil logger
// uses slog.Default.
func NewExecutor(cfg *Config, store Storage) *Executor {
	return workflow.NewExecutor(cfg, store, nil)
}
