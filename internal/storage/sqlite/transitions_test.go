package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

func TestRoleTransitionAudit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := mustCreateTask(t, s, "t")
	rt := &types.RoleTransition{
		EntityType: types.KindTask, EntityID: task.ID,
		FromRole: types.RoleQueue, ToRole: types.RoleWork,
		FromStatus: "pending", ToStatus: "in-progress",
		Trigger: "start",
	}
	if err := s.AddRoleTransition(ctx, rt); err != nil {
		t.Fatalf("AddRoleTransition: %v", err)
	}
	if rt.ID == 0 {
		t.Fatal("expected assigned row id")
	}
	if err := s.AddRoleTransition(ctx, &types.RoleTransition{
		EntityType: types.KindTask, EntityID: task.ID,
		FromRole: types.RoleWork, ToRole: types.RoleReview,
		FromStatus: "in-progress", ToStatus: "in-review",
	}); err != nil {
		t.Fatalf("AddRoleTransition: %v", err)
	}

	all, err := s.FindRoleTransitions(ctx, types.TransitionFilter{EntityID: task.ID})
	if err != nil {
		t.Fatalf("FindRoleTransitions: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(all))
	}
	// Newest first.
	if all[0].ToRole != types.RoleReview {
		t.Fatalf("expected newest-first ordering, got %s", all[0].ToRole)
	}

	narrowed, err := s.FindRoleTransitions(ctx, types.TransitionFilter{
		EntityID: task.ID, ToRole: types.RoleWork, Limit: 10})
	if err != nil {
		t.Fatalf("FindRoleTransitions narrowed: %v", err)
	}
	if len(narrowed) != 1 || narrowed[0].Trigger != "start" {
		t.Fatalf("role filter returned %d rows", len(narrowed))
	}

	reached, err := s.HasReachedRole(ctx, task.ID, types.RoleReview)
	if err != nil {
		t.Fatalf("HasReachedRole: %v", err)
	}
	if !reached {
		t.Fatal("expected review role recorded")
	}
	reached, err = s.HasReachedRole(ctx, task.ID, types.RoleTerminal)
	if err != nil {
		t.Fatalf("HasReachedRole: %v", err)
	}
	if reached {
		t.Fatal("terminal role never recorded")
	}
}

func TestRunInTransactionRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := mustCreateTask(t, s, "t")
	boom := errors.New("boom")
	err := s.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if err := tx.SetStatus(ctx, types.KindTask, task.ID, "in-progress"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != "pending" {
		t.Fatalf("status should roll back, got %q", got.Status)
	}
}

func TestTransactionCommitsStatusAndAudit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := mustCreateTask(t, s, "t")
	err := s.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if err := tx.SetStatus(ctx, types.KindTask, task.ID, "in-progress"); err != nil {
			return err
		}
		return tx.AddRoleTransition(ctx, &types.RoleTransition{
			EntityType: types.KindTask, EntityID: task.ID,
			FromRole: types.RoleQueue, ToRole: types.RoleWork,
			FromStatus: "pending", ToStatus: "in-progress",
		})
	})
	if err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}

	got, _ := s.GetTask(ctx, task.ID)
	if got.Status != "in-progress" {
		t.Fatalf("status = %q, want in-progress", got.Status)
	}
	rows, err := s.FindRoleTransitions(ctx, types.TransitionFilter{EntityID: task.ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("audit rows = %d (err %v), want 1", len(rows), err)
	}
}
