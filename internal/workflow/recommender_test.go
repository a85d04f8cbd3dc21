package workflow

import (
	"context"
	"testing"

	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

func TestNextTaskRanking(t *testing.T) {
	s := newTestStore(t)
	r := NewRecommender(testConfig(), s)
	ctx := context.Background()

	createTask(t, s, &types.Task{Name: "low", Priority: types.PriorityLow})
	hard := createTask(t, s, &types.Task{Name: "hard", Priority: types.PriorityHigh, Complexity: 8})
	easy := createTask(t, s, &types.Task{Name: "easy", Priority: types.PriorityHigh, Complexity: 2})
	createTask(t, s, &types.Task{Name: "busy", Priority: types.PriorityHigh, Status: "in-progress"})

	got, err := r.NextTask(ctx, "")
	if err != nil {
		t.Fatalf("NextTask: %v", err)
	}
	if got == nil || got.ID != easy.ID {
		t.Fatalf("expected easy high-priority task, got %+v", got)
	}

	// Blocked candidates are skipped even at higher rank.
	blocker := createTask(t, s, &types.Task{Name: "blocker"})
	if err := s.AddDependency(ctx, &types.Dependency{
		FromTaskID: blocker.ID, ToTaskID: easy.ID, Type: types.DepBlocks}); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	got, err = r.NextTask(ctx, "")
	if err != nil {
		t.Fatalf("NextTask: %v", err)
	}
	if got == nil || got.ID != hard.ID {
		t.Fatalf("expected hard task after easy got blocked, got %+v", got)
	}
}

func TestNextTaskFeatureScope(t *testing.T) {
	s := newTestStore(t)
	r := NewRecommender(testConfig(), s)
	ctx := context.Background()

	f := createFeature(t, s, &types.Feature{Name: "F"})
	inside := createTask(t, s, &types.Task{Name: "inside", FeatureID: f.ID})
	createTask(t, s, &types.Task{Name: "outside", Priority: types.PriorityHigh})

	got, err := r.NextTask(ctx, f.ID)
	if err != nil {
		t.Fatalf("NextTask: %v", err)
	}
	if got == nil || got.ID != inside.ID {
		t.Fatalf("feature scope ignored: %+v", got)
	}
}

func TestBlockedTasks(t *testing.T) {
	s := newTestStore(t)
	r := NewRecommender(testConfig(), s)
	ctx := context.Background()

	blocker := createTask(t, s, &types.Task{Name: "up"})
	blocked := createTask(t, s, &types.Task{Name: "down"})
	free := createTask(t, s, &types.Task{Name: "free"})
	doneBlocked := createTask(t, s, &types.Task{Name: "done", Status: "completed"})
	for _, to := range []string{blocked.ID, doneBlocked.ID} {
		if err := s.AddDependency(ctx, &types.Dependency{
			FromTaskID: blocker.ID, ToTaskID: to, Type: types.DepBlocks}); err != nil {
			t.Fatalf("AddDependency: %v", err)
		}
	}

	infos, err := r.BlockedTasks(ctx, "")
	if err != nil {
		t.Fatalf("BlockedTasks: %v", err)
	}
	// Terminal tasks are not reported even with open blockers; free has none.
	if len(infos) != 1 || infos[0].Task.ID != blocked.ID {
		t.Fatalf("expected only %q blocked, got %+v", blocked.Name, infos)
	}
	if len(infos[0].Blockers) != 1 || infos[0].Blockers[0].TaskID != blocker.ID {
		t.Fatalf("blocker detail wrong: %+v", infos[0].Blockers)
	}
	_ = free
}
