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

// CreateFeature inserts a new feature. A non-empty ProjectID must reference
// an existing project.
func (s *Store) CreateFeature(ctx context.Context, f *types.Feature) error {
	if strings.TrimSpace(f.Name) == "" {
		return storage.Validationf("feature name is required")
	}
	if f.Status == "" {
		return storage.Validationf("feature status is required")
	}
	if f.ProjectID != "" {
		if _, err := s.GetProject(ctx, f.ProjectID); err != nil {
			return err
		}
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Priority == "" {
		f.Priority = types.PriorityMedium
	}
	if !types.ValidPriority(f.Priority) {
		return storage.Validationf("invalid priority %q", types.WireName(f.Priority))
	}
	ts := now()
	f.CreatedAt, f.ModifiedAt = ts, ts
	f.Status = types.NormalizeStatus(f.Status)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO features (id, project_id, name, summary, status, priority,
			requires_verification, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, nullable(f.ProjectID), f.Name, f.Summary, f.Status, string(f.Priority),
		boolInt(f.RequiresVerification), f.CreatedAt, f.ModifiedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.Conflictf("feature %s already exists", f.ID)
		}
		return &storage.DatabaseError{Op: "create feature", Err: err}
	}
	return setTags(ctx, s.db, string(types.KindFeature), f.ID, f.Tags)
}

// GetFeature fetches one feature by id.
func (s *Store) GetFeature(ctx context.Context, id string) (*types.Feature, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, name, summary, status, priority,
			requires_verification, created_at, modified_at
		FROM features WHERE id = ?`, id)
	f, err := scanFeature(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &storage.NotFoundError{Kind: "feature", ID: id}
		}
		return nil, &storage.DatabaseError{Op: "get feature", Err: err}
	}
	if f.Tags, err = getTags(ctx, s.db, string(types.KindFeature), id); err != nil {
		return nil, err
	}
	return f, nil
}

// UpdateFeature applies a partial update. Recognized keys: name, summary,
// status, priority, tags, projectId, requiresVerification. Setting projectId
// to "" detaches the feature.
func (s *Store) UpdateFeature(ctx context.Context, id string, updates map[string]any) (*types.Feature, error) {
	set := []string{"modified_at = ?"}
	args := []any{now()}
	for key, val := range updates {
		switch key {
		case "name":
			name, _ := val.(string)
			if strings.TrimSpace(name) == "" {
				return nil, storage.Validationf("feature name cannot be blank")
			}
			set = append(set, "name = ?")
			args = append(args, name)
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
		case "projectId":
			projectID := toString(val)
			if projectID != "" {
				if _, err := s.GetProject(ctx, projectID); err != nil {
					return nil, err
				}
			}
			set = append(set, "project_id = ?")
			args = append(args, nullable(projectID))
		case "requiresVerification":
			b, ok := val.(bool)
			if !ok {
				return nil, storage.Validationf("requiresVerification must be a boolean")
			}
			set = append(set, "requires_verification = ?")
			args = append(args, boolInt(b))
		case "tags":
			// handled below
		default:
			return nil, storage.Validationf("unknown feature field %q", key)
		}
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE features SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, &storage.DatabaseError{Op: "update feature", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, &storage.NotFoundError{Kind: "feature", ID: id}
	}
	if tags, ok := updates["tags"]; ok {
		if err := setTags(ctx, s.db, string(types.KindFeature), id, toStringSlice(tags)); err != nil {
			return nil, err
		}
	}
	return s.GetFeature(ctx, id)
}

// DeleteFeature removes a feature and its sections. Remaining child tasks
// are orphaned (feature_id cleared); for a terminal feature the workflow
// layer deletes non-retained children first.
func (s *Store) DeleteFeature(ctx context.Context, id string) error {
	if _, err := s.GetFeature(ctx, id); err != nil {
		return err
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &storage.DatabaseError{Op: "begin delete feature", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if _, err := sqlTx.ExecContext(ctx,
		`UPDATE tasks SET feature_id = NULL, modified_at = ? WHERE feature_id = ?`, now(), id); err != nil {
		return &storage.DatabaseError{Op: "orphan tasks", Err: err}
	}
	if _, err := sqlTx.ExecContext(ctx,
		`DELETE FROM sections WHERE entity_type = 'FEATURE' AND entity_id = ?`, id); err != nil {
		return &storage.DatabaseError{Op: "delete feature sections", Err: err}
	}
	if err := deleteTags(ctx, sqlTx, string(types.KindFeature), id); err != nil {
		return err
	}
	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM features WHERE id = ?`, id); err != nil {
		return &storage.DatabaseError{Op: "delete feature", Err: err}
	}
	if err := sqlTx.Commit(); err != nil {
		return &storage.DatabaseError{Op: "commit delete feature", Err: err}
	}
	committed = true
	return nil
}

// FindFeatures lists features matching the filter.
func (s *Store) FindFeatures(ctx context.Context, filter types.ContainerFilter) ([]*types.Feature, error) {
	where, args := containerWhere("features", string(types.KindFeature), filter)
	query := `SELECT id, project_id, name, summary, status, priority,
		requires_verification, created_at, modified_at FROM features` +
		where + ` ORDER BY created_at`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &storage.DatabaseError{Op: "find features", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Feature
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, &storage.DatabaseError{Op: "scan feature", Err: err}
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.DatabaseError{Op: "find features", Err: err}
	}
	for _, f := range out {
		if f.Tags, err = getTags(ctx, s.db, string(types.KindFeature), f.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanFeature(r rowScanner) (*types.Feature, error) {
	var f types.Feature
	var projectID sql.NullString
	var priority string
	var requiresVerification int
	if err := r.Scan(&f.ID, &projectID, &f.Name, &f.Summary, &f.Status, &priority,
		&requiresVerification, &f.CreatedAt, &f.ModifiedAt); err != nil {
		return nil, err
	}
	f.ProjectID = projectID.String
	f.Priority = types.Priority(priority)
	f.RequiresVerification = requiresVerification != 0
	return &f, nil
}

// nullable maps "" to NULL for optional foreign keys.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
