package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// AddDependency validates and inserts one edge. Both endpoints must exist,
// self-loops and duplicate (from, to, type) triples are rejected, and a
// blocking edge that would close a cycle fails with the cycle path named.
func (s *Store) AddDependency(ctx context.Context, d *types.Dependency) error {
	if !types.ValidDependencyType(d.Type) {
		return storage.Validationf("invalid dependency type %q", string(d.Type))
	}
	if d.FromTaskID == d.ToTaskID {
		return storage.Validationf("task cannot depend on itself")
	}
	if d.UnblockAt != "" {
		if d.Type == types.DepRelatesTo {
			return storage.Validationf("unblockAt is not allowed on relates-to edges")
		}
		if !types.ValidRole(d.UnblockAt) {
			return storage.Validationf("invalid unblockAt role %q", string(d.UnblockAt))
		}
	}
	if _, err := s.GetTask(ctx, d.FromTaskID); err != nil {
		return err
	}
	if _, err := s.GetTask(ctx, d.ToTaskID); err != nil {
		return err
	}
	if d.Type.Blocking() {
		if err := s.checkCycle(ctx, d); err != nil {
			return err
		}
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.CreatedAt = now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dependencies (id, from_task_id, to_task_id, type, unblock_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.FromTaskID, d.ToTaskID, string(d.Type),
		nullable(string(d.UnblockAt)), d.CreatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.Conflictf("dependency %s -> %s (%s) already exists",
				d.FromTaskID, d.ToTaskID, types.WireName(d.Type))
		}
		return &storage.DatabaseError{Op: "add dependency", Err: err}
	}
	return nil
}

// checkCycle runs a DFS over the existing blocking edges, normalized to
// blocker -> blocked direction, starting from the new edge's blocked side.
// Reaching the new edge's blocker means the edge would close a cycle.
func (s *Store) checkCycle(ctx context.Context, d *types.Dependency) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_task_id, to_task_id, type FROM dependencies
		WHERE type IN ('BLOCKS', 'IS_BLOCKED_BY')`)
	if err != nil {
		return &storage.DatabaseError{Op: "load dependency graph", Err: err}
	}
	defer func() { _ = rows.Close() }()

	next := make(map[string][]string)
	for rows.Next() {
		var edge types.Dependency
		var depType string
		if err := rows.Scan(&edge.FromTaskID, &edge.ToTaskID, &depType); err != nil {
			return &storage.DatabaseError{Op: "scan dependency", Err: err}
		}
		edge.Type = types.DependencyType(depType)
		blocker, blocked := edge.BlockerEndpoints()
		next[blocker] = append(next[blocker], blocked)
	}
	if err := rows.Err(); err != nil {
		return &storage.DatabaseError{Op: "load dependency graph", Err: err}
	}

	blocker, blocked := d.BlockerEndpoints()
	if path := findPath(next, blocked, blocker); path != nil {
		cycle := append(path, blocked)
		return storage.Conflictf("dependency would create a cycle: %s",
			strings.Join(cycle, " -> "))
	}
	return nil
}

// findPath returns the node path from start to target along next edges, or
// nil when target is unreachable.
func findPath(next map[string][]string, start, target string) []string {
	type frame struct {
		node string
		path []string
	}
	seen := map[string]bool{start: true}
	stack := []frame{{node: start, path: []string{start}}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.node == target {
			return top.path
		}
		for _, n := range next[top.node] {
			if seen[n] {
				continue
			}
			seen[n] = true
			path := make([]string, len(top.path), len(top.path)+1)
			copy(path, top.path)
			stack = append(stack, frame{node: n, path: append(path, n)})
		}
	}
	return nil
}

// DeleteDependency removes one edge by id.
func (s *Store) DeleteDependency(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dependencies WHERE id = ?`, id)
	if err != nil {
		return &storage.DatabaseError{Op: "delete dependency", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &storage.NotFoundError{Kind: "dependency", ID: id}
	}
	return nil
}

// GetDependency fetches one edge by id.
func (s *Store) GetDependency(ctx context.Context, id string) (*types.Dependency, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, from_task_id, to_task_id, type, unblock_at, created_at
		FROM dependencies WHERE id = ?`, id)
	d, err := scanDependency(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &storage.NotFoundError{Kind: "dependency", ID: id}
		}
		return nil, &storage.DatabaseError{Op: "get dependency", Err: err}
	}
	return d, nil
}

// FindDependencies lists a task's edges by direction, optionally narrowed to
// one type.
func (s *Store) FindDependencies(ctx context.Context, taskID string, dir storage.Direction, typeFilter types.DependencyType) ([]*types.Dependency, error) {
	var where string
	args := []any{}
	switch dir {
	case storage.DirOutgoing:
		where = "from_task_id = ?"
		args = append(args, taskID)
	case storage.DirIncoming:
		where = "to_task_id = ?"
		args = append(args, taskID)
	case storage.DirBoth, "":
		where = "(from_task_id = ? OR to_task_id = ?)"
		args = append(args, taskID, taskID)
	default:
		return nil, storage.Validationf("invalid dependency direction %q", string(dir))
	}
	if typeFilter != "" {
		if !types.ValidDependencyType(typeFilter) {
			return nil, storage.Validationf("invalid dependency type %q", string(typeFilter))
		}
		where += " AND type = ?"
		args = append(args, string(typeFilter))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_task_id, to_task_id, type, unblock_at, created_at
		FROM dependencies WHERE `+where+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, &storage.DatabaseError{Op: "find dependencies", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Dependency
	for rows.Next() {
		d, err := scanDependency(rows)
		if err != nil {
			return nil, &storage.DatabaseError{Op: "scan dependency", Err: err}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// BlockersOf returns every blocking edge whose blocked side is the task,
// joined with the blocker's current state. A dangling edge comes back with
// Missing set and still counts as blocking.
func (s *Store) BlockersOf(ctx context.Context, taskID string) ([]*types.Blocker, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.from_task_id, d.to_task_id, d.type, d.unblock_at, d.created_at,
			t.id, t.name, t.status
		FROM dependencies d
		LEFT JOIN tasks t ON t.id = CASE
			WHEN d.type = 'IS_BLOCKED_BY' THEN d.to_task_id
			ELSE d.from_task_id
		END
		WHERE (d.type = 'BLOCKS' AND d.to_task_id = ?)
			OR (d.type = 'IS_BLOCKED_BY' AND d.from_task_id = ?)
		ORDER BY d.created_at`, taskID, taskID)
	if err != nil {
		return nil, &storage.DatabaseError{Op: "blockers of task", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Blocker
	for rows.Next() {
		var d types.Dependency
		var depType string
		var unblockAt, blockerID, name, status sql.NullString
		if err := rows.Scan(&d.ID, &d.FromTaskID, &d.ToTaskID, &depType,
			&unblockAt, &d.CreatedAt, &blockerID, &name, &status); err != nil {
			return nil, &storage.DatabaseError{Op: "scan blocker", Err: err}
		}
		d.Type = types.DependencyType(depType)
		d.UnblockAt = types.Role(unblockAt.String)
		b := &types.Blocker{Edge: &d, TaskID: blockerID.String,
			Name: name.String, Status: status.String}
		if !blockerID.Valid {
			blocker, _ := d.BlockerEndpoints()
			b.TaskID = blocker
			b.Missing = true
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BlockedBy returns the tasks sitting on the blocked side of every blocking
// edge whose blocker is the given task.
func (s *Store) BlockedBy(ctx context.Context, blockerID string) ([]*types.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.feature_id, t.name, t.description, t.summary, t.status,
			t.priority, t.complexity, t.created_at, t.modified_at
		FROM dependencies d
		JOIN tasks t ON t.id = CASE
			WHEN d.type = 'IS_BLOCKED_BY' THEN d.from_task_id
			ELSE d.to_task_id
		END
		WHERE (d.type = 'BLOCKS' AND d.from_task_id = ?)
			OR (d.type = 'IS_BLOCKED_BY' AND d.to_task_id = ?)
		ORDER BY d.created_at`, blockerID, blockerID)
	if err != nil {
		return nil, &storage.DatabaseError{Op: "blocked by task", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, &storage.DatabaseError{Op: "scan blocked task", Err: err}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.DatabaseError{Op: "blocked by task", Err: err}
	}
	for _, t := range out {
		if t.Tags, err = getTags(ctx, s.db, string(types.KindTask), t.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanDependency(r rowScanner) (*types.Dependency, error) {
	var d types.Dependency
	var depType string
	var unblockAt sql.NullString
	if err := r.Scan(&d.ID, &d.FromTaskID, &d.ToTaskID, &depType,
		&unblockAt, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Type = types.DependencyType(depType)
	d.UnblockAt = types.Role(unblockAt.String)
	return &d, nil
}
