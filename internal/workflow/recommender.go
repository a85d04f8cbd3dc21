package workflow

import (
	"context"
	"sort"

	"github.com/untoldecay/TaskOrchestrator/internal/config"
	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// BlockedTaskInfo pairs a blocked task with its unsatisfied blockers.
type BlockedTaskInfo struct {
	Task     *types.Task      `json:"task"`
	Blockers []*types.Blocker `json:"blockers"`
}

// Recommender answers get_next_task and get_blocked_tasks.
type Recommender struct {
	cfg   *config.Config
	store storage.Storage
}

func NewRecommender(cfg *config.Config, store storage.Storage) *Recommender {
	return &Recommender{cfg: cfg, store: store}
}

// unsatisfiedBlockers returns the blocking edges the task is still waiting
// on. Missing blocker rows count as unsatisfied.
func (r *Recommender) unsatisfiedBlockers(ctx context.Context, taskID string) ([]*types.Blocker, error) {
	blockers, err := r.store.BlockersOf(ctx, taskID)
	if err != nil {
		return nil, err
	}
	prog := r.cfg.For(types.KindTask)
	var open []*types.Blocker
	for _, b := range blockers {
		if b.Missing || !IsAtOrBeyond(prog.RoleOf(b.Status), b.Edge.EffectiveUnblockAt()) {
			open = append(open, b)
		}
	}
	return open, nil
}

// BlockedTasks enumerates every non-terminal task with at least one
// unsatisfied incoming blocking edge.
func (r *Recommender) BlockedTasks(ctx context.Context, featureID string) ([]*BlockedTaskInfo, error) {
	tasks, err := r.store.FindTasks(ctx, types.ContainerFilter{ParentID: featureID})
	if err != nil {
		return nil, err
	}
	prog := r.cfg.For(types.KindTask)

	var out []*BlockedTaskInfo
	for _, t := range tasks {
		if prog.RoleOf(t.Status) == types.RoleTerminal {
			continue
		}
		open, err := r.unsatisfiedBlockers(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		if len(open) > 0 {
			out = append(out, &BlockedTaskInfo{Task: t, Blockers: open})
		}
	}
	return out, nil
}

// NextTask recommends the task to pick up next: queue-role, unblocked,
// ranked by priority (high first), then lower complexity, then age.
// featureID narrows the search; empty searches everywhere.
func (r *Recommender) NextTask(ctx context.Context, featureID string) (*types.Task, error) {
	tasks, err := r.store.FindTasks(ctx, types.ContainerFilter{ParentID: featureID})
	if err != nil {
		return nil, err
	}
	prog := r.cfg.For(types.KindTask)

	var candidates []*types.Task
	for _, t := range tasks {
		if prog.RoleOf(t.Status) != types.RoleQueue {
			continue
		}
		open, err := r.unsatisfiedBlockers(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		if len(open) == 0 {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if pa, pb := priorityRank(a.Priority), priorityRank(b.Priority); pa != pb {
			return pa > pb
		}
		if a.Complexity != b.Complexity {
			return a.Complexity < b.Complexity
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return candidates[0], nil
}

func priorityRank(p types.Priority) int {
	switch p {
	case types.PriorityHigh:
		return 2
	case types.PriorityMedium:
		return 1
	}
	return 0
}
