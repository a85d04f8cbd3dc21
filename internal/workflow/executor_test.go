package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

func TestSequentialTaskCompletionCascade(t *testing.T) {
	s := newTestStore(t)
	e := NewExecutor(testConfig(), s, nil)
	ctx := context.Background()

	f := createFeature(t, s, &types.Feature{Name: "F", Status: "in-development"})
	var tasks []*types.Task
	for _, name := range []string{"T1", "T2", "T3"} {
		tasks = append(tasks, createTask(t, s, &types.Task{
			Name: name, FeatureID: f.ID, Summary: validSummary}))
	}

	for i, task := range tasks {
		if _, err := e.Execute(ctx, TransitionRequest{
			Kind: types.KindTask, ID: task.ID, Trigger: TriggerStart}); err != nil {
			t.Fatalf("start %s: %v", task.Name, err)
		}
		// Complete straight from in-progress; the review stop is optional.
		res, err := e.Execute(ctx, TransitionRequest{
			Kind: types.KindTask, ID: task.ID, Trigger: TriggerComplete})
		if err != nil {
			t.Fatalf("complete %s: %v", task.Name, err)
		}
		if res.NewStatus != "completed" || res.NewRole != types.RoleTerminal {
			t.Fatalf("complete %s: status=%q role=%s", task.Name, res.NewStatus, res.NewRole)
		}
		if i < len(tasks)-1 {
			if len(res.CascadeEvents) != 0 {
				t.Fatalf("%s: no cascade expected yet, got %d", task.Name, len(res.CascadeEvents))
			}
			continue
		}
		// Last completion rolls the feature up.
		if len(res.CascadeEvents) != 1 {
			t.Fatalf("expected 1 cascade event, got %d", len(res.CascadeEvents))
		}
		ev := res.CascadeEvents[0]
		if ev.TargetID != f.ID || ev.NewStatus != "completed" {
			t.Fatalf("unexpected cascade event: %+v", ev)
		}
		if len(res.AppliedCascades) != 1 || !res.AppliedCascades[0].Applied {
			t.Fatalf("cascade should apply: %+v", res.AppliedCascades)
		}
		cleanup := res.AppliedCascades[0].Result.Cleanup
		if cleanup == nil || !cleanup.Performed {
			t.Fatal("feature completion should run cleanup")
		}
		// Default config retains only tagged tasks; these have none left.
		if cleanup.TasksDeleted != 3 || cleanup.TasksRetained != 0 {
			t.Fatalf("cleanup deleted=%d retained=%d, want 3/0",
				cleanup.TasksDeleted, cleanup.TasksRetained)
		}
	}

	got, err := s.GetFeature(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetFeature: %v", err)
	}
	if got.Status != "completed" {
		t.Fatalf("feature status = %q, want completed", got.Status)
	}
}

func TestBlockingDependencyLifecycle(t *testing.T) {
	s := newTestStore(t)
	e := NewExecutor(testConfig(), s, nil)
	ctx := context.Background()

	a := createTask(t, s, &types.Task{Name: "A", Summary: validSummary})
	b := createTask(t, s, &types.Task{Name: "B"})
	if err := s.AddDependency(ctx, &types.Dependency{
		FromTaskID: a.ID, ToTaskID: b.ID, Type: types.DepBlocks}); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}

	_, err := e.Execute(ctx, TransitionRequest{Kind: types.KindTask, ID: b.ID, Trigger: TriggerStart})
	if !storage.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "A") {
		t.Fatalf("error should name blocker A: %v", err)
	}

	// Complete A; the response reports B unblocked.
	if _, err := e.Execute(ctx, TransitionRequest{Kind: types.KindTask, ID: a.ID, Trigger: TriggerStart}); err != nil {
		t.Fatalf("start A: %v", err)
	}
	res, err := e.Execute(ctx, TransitionRequest{Kind: types.KindTask, ID: a.ID, Trigger: TriggerComplete})
	if err != nil {
		t.Fatalf("complete A: %v", err)
	}
	if len(res.UnblockedTasks) != 1 || res.UnblockedTasks[0].TaskID != b.ID {
		t.Fatalf("expected B unblocked, got %+v", res.UnblockedTasks)
	}

	if _, err := e.Execute(ctx, TransitionRequest{Kind: types.KindTask, ID: b.ID, Trigger: TriggerStart}); err != nil {
		t.Fatalf("start B after unblock: %v", err)
	}
}

func TestCustomUnblockThreshold(t *testing.T) {
	s := newTestStore(t)
	e := NewExecutor(testConfig(), s, nil)
	ctx := context.Background()

	p := createTask(t, s, &types.Task{Name: "P"})
	c := createTask(t, s, &types.Task{Name: "C"})
	if err := s.AddDependency(ctx, &types.Dependency{
		FromTaskID: p.ID, ToTaskID: c.ID, Type: types.DepBlocks,
		UnblockAt: types.RoleWork}); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}

	if _, err := e.Execute(ctx, TransitionRequest{Kind: types.KindTask, ID: c.ID, Trigger: TriggerStart}); !storage.IsValidation(err) {
		t.Fatalf("C should be blocked while P queued, got %v", err)
	}
	if _, err := e.Execute(ctx, TransitionRequest{Kind: types.KindTask, ID: p.ID, Trigger: TriggerStart}); err != nil {
		t.Fatalf("start P: %v", err)
	}
	if _, err := e.Execute(ctx, TransitionRequest{Kind: types.KindTask, ID: c.ID, Trigger: TriggerStart}); err != nil {
		t.Fatalf("C should start once P is in work: %v", err)
	}
}

func TestSkipRejectedEmergencyAllowed(t *testing.T) {
	s := newTestStore(t)
	e := NewExecutor(testConfig(), s, nil)
	ctx := context.Background()

	task := createTask(t, s, &types.Task{Name: "T"})
	_, err := e.Execute(ctx, TransitionRequest{Kind: types.KindTask, ID: task.ID, Trigger: TriggerComplete})
	if !storage.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Must transition through: in-progress") {
		t.Fatalf("error should name the skipped status: %v", err)
	}

	res, err := e.Execute(ctx, TransitionRequest{Kind: types.KindTask, ID: task.ID, Trigger: TriggerCancel})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.NewStatus != "cancelled" || res.NewRole != types.RoleTerminal {
		t.Fatalf("cancel result: %+v", res)
	}
}

func TestRoleTransitionWrittenOnlyOnRoleChange(t *testing.T) {
	s := newTestStore(t)
	e := NewExecutor(testConfig(), s, nil)
	ctx := context.Background()

	task := createTask(t, s, &types.Task{Name: "T"})
	// pending -> in-progress crosses queue -> work.
	if _, err := e.Execute(ctx, TransitionRequest{Kind: types.KindTask, ID: task.ID, Trigger: TriggerStart, Summary: "kick off"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	rows, err := s.FindRoleTransitions(ctx, types.TransitionFilter{EntityID: task.ID})
	if err != nil {
		t.Fatalf("FindRoleTransitions: %v", err)
	}
	if len(rows) != 1 || rows[0].Trigger != "start" || rows[0].Summary != "kick off" {
		t.Fatalf("expected one audited row, got %+v", rows)
	}

	// investigating stays in role work; no audit row.
	setStatus(t, s, types.KindTask, task.ID, "investigating")
	res, err := e.Execute(ctx, TransitionRequest{Kind: types.KindTask, ID: task.ID, Trigger: TriggerBlock})
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if res.NewRole != types.RoleBlocked {
		t.Fatalf("block role = %s", res.NewRole)
	}
	rows, _ = s.FindRoleTransitions(ctx, types.TransitionFilter{EntityID: task.ID})
	if len(rows) != 2 {
		t.Fatalf("blocked crossing should audit, got %d rows", len(rows))
	}
}

func TestTransitionNoOpAndTerminalLock(t *testing.T) {
	s := newTestStore(t)
	e := NewExecutor(testConfig(), s, nil)
	ctx := context.Background()

	task := createTask(t, s, &types.Task{Name: "T", Status: "blocked"})
	res, err := e.Execute(ctx, TransitionRequest{Kind: types.KindTask, ID: task.ID, Trigger: TriggerBlock})
	if err != nil {
		t.Fatalf("re-block: %v", err)
	}
	if !res.NoOp || res.PreviousStatus != res.NewStatus {
		t.Fatalf("re-issuing current status should be a no-op: %+v", res)
	}

	done := createTask(t, s, &types.Task{Name: "D", Status: "completed"})
	if _, err := e.Execute(ctx, TransitionRequest{Kind: types.KindTask, ID: done.ID, Trigger: TriggerComplete}); !storage.IsValidation(err) {
		t.Fatalf("terminal re-complete should fail terminal-lock, got %v", err)
	}
}

func TestCleanupRetention(t *testing.T) {
	s := newTestStore(t)
	e := NewExecutor(testConfig(), s, nil)
	ctx := context.Background()

	f := createFeature(t, s, &types.Feature{Name: "F", Status: "in-development"})
	t1 := createTask(t, s, &types.Task{Name: "T1", FeatureID: f.ID,
		Status: "completed", Tags: []string{"bug"}})
	t2 := createTask(t, s, &types.Task{Name: "T2", FeatureID: f.ID, Status: "completed"})
	t3 := createTask(t, s, &types.Task{Name: "T3", Status: "completed"}) // standalone

	res, err := e.Execute(ctx, TransitionRequest{Kind: types.KindFeature, ID: f.ID, Trigger: TriggerComplete})
	if err != nil {
		t.Fatalf("complete feature: %v", err)
	}
	cleanup := res.Cleanup
	if cleanup == nil || !cleanup.Performed {
		t.Fatal("cleanup should run")
	}
	if cleanup.TasksDeleted != 1 || cleanup.TasksRetained != 1 {
		t.Fatalf("deleted=%d retained=%d, want 1/1", cleanup.TasksDeleted, cleanup.TasksRetained)
	}
	if len(cleanup.RetainedTaskIDs) != 1 || cleanup.RetainedTaskIDs[0] != t1.ID {
		t.Fatalf("retained ids = %v, want [%s]", cleanup.RetainedTaskIDs, t1.ID)
	}

	if _, err := s.GetTask(ctx, t1.ID); err != nil {
		t.Fatalf("tagged task should survive: %v", err)
	}
	if _, err := s.GetTask(ctx, t2.ID); !storage.IsNotFound(err) {
		t.Fatalf("untagged child should be deleted, got %v", err)
	}
	if _, err := s.GetTask(ctx, t3.ID); err != nil {
		t.Fatalf("standalone task must never be cleaned: %v", err)
	}
	if _, err := s.GetFeature(ctx, f.ID); err != nil {
		t.Fatalf("feature is the durable record: %v", err)
	}
}

func TestCascadeChainTaskFeatureProject(t *testing.T) {
	s := newTestStore(t)
	e := NewExecutor(testConfig(), s, nil)
	ctx := context.Background()

	p := createProject(t, s, &types.Project{Name: "P", Status: "in-development"})
	f := createFeature(t, s, &types.Feature{Name: "F", ProjectID: p.ID, Status: "in-development"})
	task := createTask(t, s, &types.Task{Name: "T", FeatureID: f.ID,
		Status: "testing", Summary: validSummary})

	res, err := e.Execute(ctx, TransitionRequest{Kind: types.KindTask, ID: task.ID, Trigger: TriggerComplete})
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}
	// Flat list, closest parent first, at most 3 entries.
	if len(res.CascadeEvents) != 2 {
		t.Fatalf("expected feature+project events, got %d", len(res.CascadeEvents))
	}
	if res.CascadeEvents[0].TargetID != f.ID || res.CascadeEvents[1].TargetID != p.ID {
		t.Fatalf("events out of order: %+v", res.CascadeEvents)
	}

	// The applied chain nests: feature apply carries the project apply.
	if len(res.AppliedCascades) != 1 || !res.AppliedCascades[0].Applied {
		t.Fatalf("feature cascade should apply: %+v", res.AppliedCascades)
	}
	nested := res.AppliedCascades[0].Result
	if len(nested.AppliedCascades) != 1 || !nested.AppliedCascades[0].Applied {
		t.Fatalf("project cascade should apply: %+v", nested.AppliedCascades)
	}

	proj, _ := s.GetProject(ctx, p.ID)
	if proj.Status != "completed" {
		t.Fatalf("project status = %q, want completed", proj.Status)
	}
}

func TestAutoCascadeDisabledStillReportsEvents(t *testing.T) {
	cfg := testConfig()
	cfg.Cascade.Enabled = false
	s := newTestStore(t)
	e := NewExecutor(cfg, s, nil)
	ctx := context.Background()

	f := createFeature(t, s, &types.Feature{Name: "F", Status: "in-development"})
	task := createTask(t, s, &types.Task{Name: "T", FeatureID: f.ID,
		Status: "testing", Summary: validSummary})

	res, err := e.Execute(ctx, TransitionRequest{Kind: types.KindTask, ID: task.ID, Trigger: TriggerComplete})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(res.CascadeEvents) != 1 {
		t.Fatalf("event should still be detected, got %d", len(res.CascadeEvents))
	}
	if len(res.AppliedCascades) != 0 {
		t.Fatalf("nothing should apply with auto_cascade off: %+v", res.AppliedCascades)
	}
	got, _ := s.GetFeature(ctx, f.ID)
	if got.Status != "in-development" {
		t.Fatalf("feature should not move, got %q", got.Status)
	}
}

func TestExecuteBatchIndependent(t *testing.T) {
	s := newTestStore(t)
	e := NewExecutor(testConfig(), s, nil)
	ctx := context.Background()

	ok := createTask(t, s, &types.Task{Name: "ok"})
	outcomes := e.ExecuteBatch(ctx, []TransitionRequest{
		{Kind: types.KindTask, ID: ok.ID, Trigger: TriggerStart},
		{Kind: types.KindTask, ID: "missing", Trigger: TriggerStart},
		{Kind: types.KindTask, ID: ok.ID, Trigger: TriggerStart},
	})
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Err != nil {
		t.Fatalf("first entry should succeed: %v", outcomes[0].Err)
	}
	if !storage.IsNotFound(outcomes[1].Err) {
		t.Fatalf("second entry should fail not-found: %v", outcomes[1].Err)
	}
	if outcomes[2].Err != nil || outcomes[2].Result.NewStatus != "testing" {
		t.Fatalf("third entry should advance independently: %+v", outcomes[2])
	}
}
