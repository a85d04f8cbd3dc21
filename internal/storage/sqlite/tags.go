package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// Tag rows live in one shared table keyed by (entity_type, entity_id, tag).
// Retrieval orders by rowid so an entity's tag order survives round-trips;
// flow resolution depends on it.

func setTags(ctx context.Context, e execer, entityType, entityID string, tags []string) error {
	if _, err := e.ExecContext(ctx,
		`DELETE FROM tags WHERE entity_type = ? AND entity_id = ?`, entityType, entityID); err != nil {
		return &storage.DatabaseError{Op: "clear tags", Err: err}
	}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, err := e.ExecContext(ctx,
			`INSERT OR IGNORE INTO tags (entity_type, entity_id, tag) VALUES (?, ?, ?)`,
			entityType, entityID, tag); err != nil {
			return &storage.DatabaseError{Op: "insert tag", Err: err}
		}
	}
	return nil
}

func getTags(ctx context.Context, e execer, entityType, entityID string) ([]string, error) {
	rows, err := e.QueryContext(ctx,
		`SELECT tag FROM tags WHERE entity_type = ? AND entity_id = ? ORDER BY rowid`,
		entityType, entityID)
	if err != nil {
		return nil, &storage.DatabaseError{Op: "get tags", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, &storage.DatabaseError{Op: "scan tag", Err: err}
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func deleteTags(ctx context.Context, e execer, entityType, entityID string) error {
	if _, err := e.ExecContext(ctx,
		`DELETE FROM tags WHERE entity_type = ? AND entity_id = ?`, entityType, entityID); err != nil {
		return &storage.DatabaseError{Op: "delete tags", Err: err}
	}
	return nil
}

// tagMatchClause builds an EXISTS predicate matching any of the given tags
// (OR semantics) for the aliased entity table.
func tagMatchClause(entityType, idColumn string, tags []string, args *[]any) string {
	placeholders := make([]string, len(tags))
	for i, tag := range tags {
		placeholders[i] = "?"
		*args = append(*args, tag)
	}
	*args = append(*args, entityType)
	return fmt.Sprintf(
		`EXISTS (SELECT 1 FROM tags WHERE tags.entity_id = %s AND tags.tag IN (%s) AND tags.entity_type = ?)`,
		idColumn, strings.Join(placeholders, ", "))
}

// ListTags aggregates tag usage counts across projects, features, and
// tasks. Section role-tags are excluded from the aggregate.
func (s *Store) ListTags(ctx context.Context) ([]types.TagCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag,
			SUM(CASE WHEN entity_type = 'PROJECT' THEN 1 ELSE 0 END),
			SUM(CASE WHEN entity_type = 'FEATURE' THEN 1 ELSE 0 END),
			SUM(CASE WHEN entity_type = 'TASK' THEN 1 ELSE 0 END)
		FROM tags
		WHERE entity_type IN ('PROJECT', 'FEATURE', 'TASK')
		GROUP BY tag
		ORDER BY tag`)
	if err != nil {
		return nil, &storage.DatabaseError{Op: "list tags", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var counts []types.TagCount
	for rows.Next() {
		var tc types.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Projects, &tc.Features, &tc.Tasks); err != nil {
			return nil, &storage.DatabaseError{Op: "scan tag count", Err: err}
		}
		counts = append(counts, tc)
	}
	return counts, rows.Err()
}
