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

// CreateTask inserts a new task. A non-empty FeatureID must reference an
// existing feature.
func (s *Store) CreateTask(ctx context.Context, t *types.Task) error {
	if strings.TrimSpace(t.Name) == "" {
		return storage.Validationf("task name is required")
	}
	if t.Status == "" {
		return storage.Validationf("task status is required")
	}
	if t.FeatureID != "" {
		if _, err := s.GetFeature(ctx, t.FeatureID); err != nil {
			return err
		}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Priority == "" {
		t.Priority = types.PriorityMedium
	}
	if !types.ValidPriority(t.Priority) {
		return storage.Validationf("invalid priority %q", types.WireName(t.Priority))
	}
	if t.Complexity == 0 {
		t.Complexity = 5
	}
	if t.Complexity < 1 || t.Complexity > 10 {
		return storage.Validationf("complexity must be between 1 and 10, got %d", t.Complexity)
	}
	ts := now()
	t.CreatedAt, t.ModifiedAt = ts, ts
	t.Status = types.NormalizeStatus(t.Status)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, feature_id, name, description, summary, status,
			priority, complexity, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, nullable(t.FeatureID), t.Name, t.Description, t.Summary, t.Status,
		string(t.Priority), t.Complexity, t.CreatedAt, t.ModifiedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.Conflictf("task %s already exists", t.ID)
		}
		return &storage.DatabaseError{Op: "create task", Err: err}
	}
	return setTags(ctx, s.db, string(types.KindTask), t.ID, t.Tags)
}

// GetTask fetches one task by id.
func (s *Store) GetTask(ctx context.Context, id string) (*types.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, feature_id, name, description, summary, status, priority,
			complexity, created_at, modified_at
		FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &storage.NotFoundError{Kind: "task", ID: id}
		}
		return nil, &storage.DatabaseError{Op: "get task", Err: err}
	}
	if t.Tags, err = getTags(ctx, s.db, string(types.KindTask), id); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTask applies a partial update. Recognized keys: name, description,
// summary, status, priority, complexity, tags, featureId. Setting featureId
// to "" detaches the task.
func (s *Store) UpdateTask(ctx context.Context, id string, updates map[string]any) (*types.Task, error) {
	set := []string{"modified_at = ?"}
	args := []any{now()}
	for key, val := range updates {
		switch key {
		case "name":
			name, _ := val.(string)
			if strings.TrimSpace(name) == "" {
				return nil, storage.Validationf("task name cannot be blank")
			}
			set = append(set, "name = ?")
			args = append(args, name)
		case "description":
			set = append(set, "description = ?")
			args = append(args, val)
		case "summary":
			set = append(set, "summary = ?")
			args = append(args, val)
		case "status":
			set = append(set, "status = ?")
			args = append(args, types.NormalizeStatus(toString(val)))
		case "priority":
			pr := types.Priority(types.EnumName(toString(val)))
			if !types.ValidPriority(pr) {
				return nil, storage.Validationf("invalid priority %q", toString(val))
			}
			set = append(set, "priority = ?")
			args = append(args, string(pr))
		case "complexity":
			c, ok := toInt(val)
			if !ok || c < 1 || c > 10 {
				return nil, storage.Validationf("complexity must be between 1 and 10")
			}
			set = append(set, "complexity = ?")
			args = append(args, c)
		case "featureId":
			featureID := toString(val)
			if featureID != "" {
				if _, err := s.GetFeature(ctx, featureID); err != nil {
					return nil, err
				}
			}
			set = append(set, "feature_id = ?")
			args = append(args, nullable(featureID))
		case "tags":
			// handled below
		default:
			return nil, storage.Validationf("unknown task field %q", key)
		}
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, &storage.DatabaseError{Op: "update task", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, &storage.NotFoundError{Kind: "task", ID: id}
	}
	if tags, ok := updates["tags"]; ok {
		if err := setTags(ctx, s.db, string(types.KindTask), id, toStringSlice(tags)); err != nil {
			return nil, err
		}
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes a task plus its sections and every dependency edge
// touching it, in one transaction.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.GetTask(ctx, id); err != nil {
		return err
	}
	return s.RunInTransaction(ctx, func(t storage.Transaction) error {
		_, _, err := t.DeleteTaskCascade(ctx, id)
		return err
	})
}

// deleteTaskCascade is the shared delete used by DeleteTask and the
// completion-cleanup transaction. Returns deleted section and dependency
// counts.
func deleteTaskCascade(ctx context.Context, e execer, id string) (int, int, error) {
	res, err := e.ExecContext(ctx,
		`DELETE FROM sections WHERE entity_type = 'TASK' AND entity_id = ?`, id)
	if err != nil {
		return 0, 0, &storage.DatabaseError{Op: "delete task sections", Err: err}
	}
	sections64, _ := res.RowsAffected()

	res, err = e.ExecContext(ctx,
		`DELETE FROM dependencies WHERE from_task_id = ? OR to_task_id = ?`, id, id)
	if err != nil {
		return 0, 0, &storage.DatabaseError{Op: "delete task dependencies", Err: err}
	}
	deps64, _ := res.RowsAffected()

	if err := deleteTags(ctx, e, string(types.KindTask), id); err != nil {
		return 0, 0, err
	}
	res, err = e.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return 0, 0, &storage.DatabaseError{Op: "delete task", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, 0, &storage.NotFoundError{Kind: "task", ID: id}
	}
	return int(sections64), int(deps64), nil
}

// FindTasks lists tasks matching the filter.
func (s *Store) FindTasks(ctx context.Context, filter types.ContainerFilter) ([]*types.Task, error) {
	where, args := containerWhere("tasks", string(types.KindTask), filter)
	query := `SELECT id, feature_id, name, description, summary, status,
		priority, complexity, created_at, modified_at FROM tasks` +
		where + ` ORDER BY created_at`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &storage.DatabaseError{Op: "find tasks", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, &storage.DatabaseError{Op: "scan task", Err: err}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.DatabaseError{Op: "find tasks", Err: err}
	}
	for _, t := range out {
		if t.Tags, err = getTags(ctx, s.db, string(types.KindTask), t.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanTask(r rowScanner) (*types.Task, error) {
	var t types.Task
	var featureID sql.NullString
	var priority string
	if err := r.Scan(&t.ID, &featureID, &t.Name, &t.Description, &t.Summary,
		&t.Status, &priority, &t.Complexity, &t.CreatedAt, &t.ModifiedAt); err != nil {
		return nil, err
	}
	t.FeatureID = featureID.String
	t.Priority = types.Priority(priority)
	return &t, nil
}

// toInt accepts the numeric shapes that arrive through encoding/json.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
