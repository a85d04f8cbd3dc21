// Package storage defines the persistence interface consumed by the
// workflow engine and the rpc handlers. The sqlite subpackage is the only
// implementation and the only code in the repo that issues SQL.
package storage

import (
	"context"

	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// Direction selects which side of a task's dependency edges to enumerate.
type Direction string

const (
	DirIncoming Direction = "incoming"
	DirOutgoing Direction = "outgoing"
	DirBoth     Direction = "both"
)

// Transaction exposes the subset of Storage used inside an atomic unit:
// the transition commit (status + audit row) and the completion-cleanup
// deletes. All operations share one database transaction; an error from
// the callback rolls everything back.
type Transaction interface {
	// SetStatus updates an entity's status and refreshes modified_at.
	SetStatus(ctx context.Context, kind types.EntityKind, id, status string) error
	// AddRoleTransition appends one audit row. Append-only; rows are never
	// mutated afterwards.
	AddRoleTransition(ctx context.Context, rt *types.RoleTransition) error
	// DeleteTaskCascade removes a task plus its sections and every
	// dependency edge referencing it. Returns deleted section and
	// dependency counts.
	DeleteTaskCascade(ctx context.Context, id string) (sections, dependencies int, err error)
}

// Storage is the repository surface over the local SQLite file.
type Storage interface {
	// Projects
	CreateProject(ctx context.Context, p *types.Project) error
	GetProject(ctx context.Context, id string) (*types.Project, error)
	UpdateProject(ctx context.Context, id string, updates map[string]any) (*types.Project, error)
	DeleteProject(ctx context.Context, id string) error
	FindProjects(ctx context.Context, filter types.ContainerFilter) ([]*types.Project, error)

	// Features
	CreateFeature(ctx context.Context, f *types.Feature) error
	GetFeature(ctx context.Context, id string) (*types.Feature, error)
	UpdateFeature(ctx context.Context, id string, updates map[string]any) (*types.Feature, error)
	DeleteFeature(ctx context.Context, id string) error
	FindFeatures(ctx context.Context, filter types.ContainerFilter) ([]*types.Feature, error)

	// Tasks
	CreateTask(ctx context.Context, t *types.Task) error
	GetTask(ctx context.Context, id string) (*types.Task, error)
	UpdateTask(ctx context.Context, id string, updates map[string]any) (*types.Task, error)
	DeleteTask(ctx context.Context, id string) error
	FindTasks(ctx context.Context, filter types.ContainerFilter) ([]*types.Task, error)

	// Analytics
	CountByStatus(ctx context.Context, kind types.EntityKind, parentID string) (map[string]int, error)
	ListTags(ctx context.Context) ([]types.TagCount, error)

	// Sections
	CreateSection(ctx context.Context, s *types.Section) error
	CreateSections(ctx context.Context, ss []*types.Section) error
	GetSection(ctx context.Context, id string) (*types.Section, error)
	UpdateSection(ctx context.Context, id string, updates map[string]any, expectedVersion int64) (*types.Section, error)
	DeleteSection(ctx context.Context, id string) error
	FindSections(ctx context.Context, filter types.SectionFilter) ([]*types.Section, error)
	MaxOrdinal(ctx context.Context, entityType types.EntityKind, entityID string) (int, error)
	// ListTemplates returns the distinct ids owning TEMPLATE sections.
	ListTemplates(ctx context.Context) ([]string, error)

	// Dependencies
	AddDependency(ctx context.Context, d *types.Dependency) error
	DeleteDependency(ctx context.Context, id string) error
	GetDependency(ctx context.Context, id string) (*types.Dependency, error)
	FindDependencies(ctx context.Context, taskID string, dir Direction, typeFilter types.DependencyType) ([]*types.Dependency, error)
	// BlockersOf returns every incoming blocking edge of the task together
	// with the blocker's current state. RELATES_TO edges are excluded.
	BlockersOf(ctx context.Context, taskID string) ([]*types.Blocker, error)
	// BlockedBy returns the tasks on the blocked side of every blocking
	// edge whose blocker is the given task.
	BlockedBy(ctx context.Context, blockerID string) ([]*types.Task, error)

	// Role transitions
	AddRoleTransition(ctx context.Context, rt *types.RoleTransition) error
	FindRoleTransitions(ctx context.Context, filter types.TransitionFilter) ([]*types.RoleTransition, error)
	// HasReachedRole reports whether the entity ever recorded a transition
	// into the given role.
	HasReachedRole(ctx context.Context, entityID string, role types.Role) (bool, error)

	// Transactions
	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error

	// Lifecycle
	Close() error
	Path() string
}
