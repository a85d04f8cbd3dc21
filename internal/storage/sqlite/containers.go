package sqlite

import (
	"context"
	"strings"

	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// containerWhere builds the AND-of-optional-filters clause shared by the
// three container repositories.
func containerWhere(table, entityType string, filter types.ContainerFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		if table == "tasks" {
			clauses = append(clauses, "(name LIKE ? OR summary LIKE ? OR description LIKE ?)")
			args = append(args, pattern, pattern, pattern)
		} else {
			clauses = append(clauses, "(name LIKE ? OR summary LIKE ?)")
			args = append(args, pattern, pattern)
		}
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, types.NormalizeStatus(filter.Status))
	}
	if filter.Priority != "" {
		clauses = append(clauses, "priority = ?")
		args = append(args, string(filter.Priority))
	}
	if len(filter.Tags) > 0 {
		clauses = append(clauses, tagMatchClause(entityType, table+".id", filter.Tags, &args))
	}

	parentColumn := ""
	switch table {
	case "features":
		parentColumn = "project_id"
	case "tasks":
		parentColumn = "feature_id"
	}
	if parentColumn != "" {
		if filter.ParentID != "" {
			clauses = append(clauses, parentColumn+" = ?")
			args = append(args, filter.ParentID)
		} else if filter.Standalone {
			clauses = append(clauses, parentColumn+" IS NULL")
		}
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// CountByStatus groups direct children (or, with empty parentID, all rows
// of the kind) by status label.
func (s *Store) CountByStatus(ctx context.Context, kind types.EntityKind, parentID string) (map[string]int, error) {
	var query string
	var args []any
	switch kind {
	case types.KindProject:
		query = `SELECT status, COUNT(*) FROM projects GROUP BY status`
	case types.KindFeature:
		if parentID != "" {
			query = `SELECT status, COUNT(*) FROM features WHERE project_id = ? GROUP BY status`
			args = append(args, parentID)
		} else {
			query = `SELECT status, COUNT(*) FROM features GROUP BY status`
		}
	case types.KindTask:
		if parentID != "" {
			query = `SELECT status, COUNT(*) FROM tasks WHERE feature_id = ? GROUP BY status`
			args = append(args, parentID)
		} else {
			query = `SELECT status, COUNT(*) FROM tasks GROUP BY status`
		}
	default:
		return nil, storage.Validationf("cannot count by status for kind %s", types.WireName(kind))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &storage.DatabaseError{Op: "count by status", Err: err}
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, &storage.DatabaseError{Op: "scan status count", Err: err}
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
