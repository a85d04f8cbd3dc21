package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// newTestStore opens a fresh migrated store under t.TempDir.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustCreateTask(t *testing.T, s *Store, name string) *types.Task {
	t.Helper()
	task := &types.Task{Name: name, Status: "pending"}
	if err := s.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("CreateTask(%s): %v", name, err)
	}
	return task
}

func mustCreateFeature(t *testing.T, s *Store, name string) *types.Feature {
	t.Helper()
	f := &types.Feature{Name: name, Status: "draft"}
	if err := s.CreateFeature(context.Background(), f); err != nil {
		t.Fatalf("CreateFeature(%s): %v", name, err)
	}
	return f
}

func mustCreateProject(t *testing.T, s *Store, name string) *types.Project {
	t.Helper()
	p := &types.Project{Name: name, Status: "planning"}
	if err := s.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("CreateProject(%s): %v", name, err)
	}
	return p
}
