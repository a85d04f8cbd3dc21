package workflow

import (
	"context"

	"github.com/untoldecay/TaskOrchestrator/internal/config"
	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// CleanupResult records what the completion-cleanup hook did for one
// terminal feature. TasksRetained counts only the feature's own children;
// standalone tasks are outside the sweep and never counted.
type CleanupResult struct {
	Performed           bool     `json:"performed"`
	TasksDeleted        int      `json:"tasksDeleted"`
	TasksRetained       int      `json:"tasksRetained"`
	RetainedTaskIDs     []string `json:"retainedTaskIds,omitempty"`
	SectionsDeleted     int      `json:"sectionsDeleted"`
	DependenciesDeleted int      `json:"dependenciesDeleted"`
	Reason              string   `json:"reason,omitempty"`
}

// Cleaner deletes a terminal feature's child tasks except those whose tags
// intersect the retain set. The feature and its own sections stay: the
// feature is the durable record.
type Cleaner struct {
	cfg   *config.Config
	store storage.Storage
}

func NewCleaner(cfg *config.Config, store storage.Storage) *Cleaner {
	return &Cleaner{cfg: cfg, store: store}
}

// Run executes the hook for one feature. All deletions happen in a single
// transaction; standalone tasks are never enumerated and never touched.
func (c *Cleaner) Run(ctx context.Context, featureID string) (*CleanupResult, error) {
	if !c.cfg.Cleanup.Enabled {
		return &CleanupResult{Reason: "completion cleanup disabled"}, nil
	}
	tasks, err := c.store.FindTasks(ctx, types.ContainerFilter{ParentID: featureID})
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{Performed: true, Reason: "feature reached terminal status"}
	var doomed []string
	for _, t := range tasks {
		if c.retained(t) {
			result.TasksRetained++
			result.RetainedTaskIDs = append(result.RetainedTaskIDs, t.ID)
			continue
		}
		doomed = append(doomed, t.ID)
	}
	if len(doomed) == 0 {
		return result, nil
	}

	err = c.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		for _, id := range doomed {
			sections, deps, err := tx.DeleteTaskCascade(ctx, id)
			if err != nil {
				return err
			}
			result.TasksDeleted++
			result.SectionsDeleted += sections
			result.DependenciesDeleted += deps
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Cleaner) retained(t *types.Task) bool {
	if t.FeatureID == "" {
		return true
	}
	for _, tag := range c.cfg.Cleanup.RetainTags {
		if types.HasTag(t.Tags, tag) {
			return true
		}
	}
	return false
}
