package sqlite

import (
	"context"

	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

func insertRoleTransition(ctx context.Context, e execer, rt *types.RoleTransition) error {
	if !types.ValidEntityKind(rt.EntityType) || rt.EntityType == types.KindTemplate {
		return storage.Validationf("invalid transition entity type %q", string(rt.EntityType))
	}
	if rt.EntityID == "" {
		return storage.Validationf("transition entity id is required")
	}
	if !types.ValidRole(rt.FromRole) || !types.ValidRole(rt.ToRole) {
		return storage.Validationf("transition roles must be valid")
	}
	if rt.TransitionedAt.IsZero() {
		rt.TransitionedAt = now()
	}
	res, err := e.ExecContext(ctx, `
		INSERT INTO role_transitions (entity_type, entity_id, from_role, to_role,
			from_status, to_status, transitioned_at, trigger_name, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rt.EntityType), rt.EntityID, string(rt.FromRole), string(rt.ToRole),
		rt.FromStatus, rt.ToStatus, rt.TransitionedAt, rt.Trigger, rt.Summary)
	if err != nil {
		return &storage.DatabaseError{Op: "add role transition", Err: err}
	}
	rt.ID, _ = res.LastInsertId()
	return nil
}

// AddRoleTransition appends one audit row outside any caller transaction.
func (s *Store) AddRoleTransition(ctx context.Context, rt *types.RoleTransition) error {
	return insertRoleTransition(ctx, s.db, rt)
}

// FindRoleTransitions lists audit rows newest-first, narrowed by whichever
// filter fields are set.
func (s *Store) FindRoleTransitions(ctx context.Context, filter types.TransitionFilter) ([]*types.RoleTransition, error) {
	query := `SELECT id, entity_type, entity_id, from_role, to_role,
		from_status, to_status, transitioned_at, trigger_name, summary
		FROM role_transitions WHERE 1=1`
	var args []any
	if filter.EntityType != "" {
		query += " AND entity_type = ?"
		args = append(args, string(filter.EntityType))
	}
	if filter.EntityID != "" {
		query += " AND entity_id = ?"
		args = append(args, filter.EntityID)
	}
	if filter.ToRole != "" {
		query += " AND to_role = ?"
		args = append(args, string(filter.ToRole))
	}
	query += " ORDER BY transitioned_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &storage.DatabaseError{Op: "find role transitions", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []*types.RoleTransition
	for rows.Next() {
		var rt types.RoleTransition
		var entityType, fromRole, toRole string
		if err := rows.Scan(&rt.ID, &entityType, &rt.EntityID, &fromRole, &toRole,
			&rt.FromStatus, &rt.ToStatus, &rt.TransitionedAt, &rt.Trigger, &rt.Summary); err != nil {
			return nil, &storage.DatabaseError{Op: "scan role transition", Err: err}
		}
		rt.EntityType = types.EntityKind(entityType)
		rt.FromRole = types.Role(fromRole)
		rt.ToRole = types.Role(toRole)
		out = append(out, &rt)
	}
	return out, rows.Err()
}

// HasReachedRole reports whether the entity ever recorded a transition into
// the role. Used by the verification gate on feature completion.
func (s *Store) HasReachedRole(ctx context.Context, entityID string, role types.Role) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM role_transitions WHERE entity_id = ? AND to_role = ?`,
		entityID, string(role)).Scan(&n)
	if err != nil {
		return false, &storage.DatabaseError{Op: "has reached role", Err: err}
	}
	return n > 0, nil
}
