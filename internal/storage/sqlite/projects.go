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

// CreateProject inserts a new project. ID and timestamps are assigned here
// when unset; status must already be resolved by the caller (first status
// of the kind's default flow for fresh creates).
func (s *Store) CreateProject(ctx context.Context, p *types.Project) error {
	if strings.TrimSpace(p.Name) == "" {
		return storage.Validationf("project name is required")
	}
	if p.Status == "" {
		return storage.Validationf("project status is required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Priority == "" {
		p.Priority = types.PriorityMedium
	}
	if !types.ValidPriority(p.Priority) {
		return storage.Validationf("invalid priority %q", types.WireName(p.Priority))
	}
	ts := now()
	p.CreatedAt, p.ModifiedAt = ts, ts
	p.Status = types.NormalizeStatus(p.Status)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, summary, status, priority, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Summary, p.Status, string(p.Priority), p.CreatedAt, p.ModifiedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.Conflictf("project %s already exists", p.ID)
		}
		return &storage.DatabaseError{Op: "create project", Err: err}
	}
	return setTags(ctx, s.db, string(types.KindProject), p.ID, p.Tags)
}

// GetProject fetches one project by id.
func (s *Store) GetProject(ctx context.Context, id string) (*types.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, summary, status, priority, created_at, modified_at
		FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &storage.NotFoundError{Kind: "project", ID: id}
		}
		return nil, &storage.DatabaseError{Op: "get project", Err: err}
	}
	if p.Tags, err = getTags(ctx, s.db, string(types.KindProject), id); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProject applies a partial update. Recognized keys: name, summary,
// status, priority, tags. modified_at refreshes on every call.
func (s *Store) UpdateProject(ctx context.Context, id string, updates map[string]any) (*types.Project, error) {
	set := []string{"modified_at = ?"}
	args := []any{now()}
	for key, val := range updates {
		switch key {
		case "name":
			name, _ := val.(string)
			if strings.TrimSpace(name) == "" {
				return nil, storage.Validationf("project name cannot be blank")
			}
			set = append(set, "name = ?")
			args = append(args, name)
		case "summary":
			set = append(set, "summary = ?")
			args = append(args, val)
		case "status":
			status, _ := val.(string)
			set = append(set, "status = ?")
			args = append(args, types.NormalizeStatus(status))
		case "priority":
			pr := types.Priority(types.EnumName(toString(val)))
			if !types.ValidPriority(pr) {
				return nil, storage.Validationf("invalid priority %q", toString(val))
			}
			set = append(set, "priority = ?")
			args = append(args, string(pr))
		case "tags":
			// handled below
		default:
			return nil, storage.Validationf("unknown project field %q", key)
		}
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE projects SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, &storage.DatabaseError{Op: "update project", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, &storage.NotFoundError{Kind: "project", ID: id}
	}
	if tags, ok := updates["tags"]; ok {
		if err := setTags(ctx, s.db, string(types.KindProject), id, toStringSlice(tags)); err != nil {
			return nil, err
		}
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project and its sections. Child features are
// orphaned (project_id cleared), not deleted.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &storage.DatabaseError{Op: "begin delete project", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if _, err := sqlTx.ExecContext(ctx,
		`UPDATE features SET project_id = NULL, modified_at = ? WHERE project_id = ?`, now(), id); err != nil {
		return &storage.DatabaseError{Op: "orphan features", Err: err}
	}
	if _, err := sqlTx.ExecContext(ctx,
		`DELETE FROM sections WHERE entity_type = 'PROJECT' AND entity_id = ?`, id); err != nil {
		return &storage.DatabaseError{Op: "delete project sections", Err: err}
	}
	if err := deleteTags(ctx, sqlTx, string(types.KindProject), id); err != nil {
		return err
	}
	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return &storage.DatabaseError{Op: "delete project", Err: err}
	}
	if err := sqlTx.Commit(); err != nil {
		return &storage.DatabaseError{Op: "commit delete project", Err: err}
	}
	committed = true
	return nil
}

// FindProjects lists projects matching the filter (AND of the provided
// fields; tags are OR within the list).
func (s *Store) FindProjects(ctx context.Context, filter types.ContainerFilter) ([]*types.Project, error) {
	where, args := containerWhere("projects", string(types.KindProject), filter)
	query := `SELECT id, name, summary, status, priority, created_at, modified_at FROM projects` +
		where + ` ORDER BY created_at`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &storage.DatabaseError{Op: "find projects", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, &storage.DatabaseError{Op: "scan project", Err: err}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.DatabaseError{Op: "find projects", Err: err}
	}
	for _, p := range out {
		if p.Tags, err = getTags(ctx, s.db, string(types.KindProject), p.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(r rowScanner) (*types.Project, error) {
	var p types.Project
	var priority string
	if err := r.Scan(&p.ID, &p.Name, &p.Summary, &p.Status, &priority,
		&p.CreatedAt, &p.ModifiedAt); err != nil {
		return nil, err
	}
	p.Priority = types.Priority(priority)
	return &p, nil
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
