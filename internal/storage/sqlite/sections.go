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

// sectionTagType keeps section tags apart from container tags in the shared
// table, so list_tags aggregation and flow resolution never see them.
const sectionTagType = "SECTION"

// CreateSection inserts one section. The (entityType, entityId, ordinal)
// slot must be free; Version starts at 1.
func (s *Store) CreateSection(ctx context.Context, sec *types.Section) error {
	return s.createSection(ctx, s.db, sec)
}

// CreateSections inserts a batch atomically: one duplicate ordinal rolls
// back the whole batch.
func (s *Store) CreateSections(ctx context.Context, ss []*types.Section) error {
	if len(ss) == 0 {
		return nil
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &storage.DatabaseError{Op: "begin create sections", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	for _, sec := range ss {
		if err := s.createSection(ctx, sqlTx, sec); err != nil {
			return err
		}
	}
	if err := sqlTx.Commit(); err != nil {
		return &storage.DatabaseError{Op: "commit create sections", Err: err}
	}
	committed = true
	return nil
}

func (s *Store) createSection(ctx context.Context, e execer, sec *types.Section) error {
	if strings.TrimSpace(sec.Title) == "" {
		return storage.Validationf("section title is required")
	}
	if !types.ValidEntityKind(sec.EntityType) {
		return storage.Validationf("invalid section entity type %q", string(sec.EntityType))
	}
	if sec.EntityID == "" {
		return storage.Validationf("section entity id is required")
	}
	if sec.Ordinal < 0 {
		return storage.Validationf("section ordinal cannot be negative")
	}
	if sec.ID == "" {
		sec.ID = uuid.NewString()
	}
	ts := now()
	sec.CreatedAt, sec.ModifiedAt = ts, ts
	sec.Version = 1

	_, err := e.ExecContext(ctx, `
		INSERT INTO sections (id, entity_type, entity_id, title,
			usage_description, content, ordinal, version, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sec.ID, string(sec.EntityType), sec.EntityID, sec.Title,
		sec.UsageDescription, sec.Content, sec.Ordinal, sec.Version,
		sec.CreatedAt, sec.ModifiedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.Conflictf("ordinal %d already used on %s %s",
				sec.Ordinal, types.WireName(sec.EntityType), sec.EntityID)
		}
		return &storage.DatabaseError{Op: "create section", Err: err}
	}
	return setTags(ctx, e, sectionTagType, sec.ID, sec.Tags)
}

// GetSection fetches one section by id.
func (s *Store) GetSection(ctx context.Context, id string) (*types.Section, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, entity_type, entity_id, title, usage_description, content,
			ordinal, version, created_at, modified_at
		FROM sections WHERE id = ?`, id)
	sec, err := scanSection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &storage.NotFoundError{Kind: "section", ID: id}
		}
		return nil, &storage.DatabaseError{Op: "get section", Err: err}
	}
	if sec.Tags, err = getTags(ctx, s.db, sectionTagType, id); err != nil {
		return nil, err
	}
	return sec, nil
}

// UpdateSection applies a partial update guarded by optimistic concurrency:
// when expectedVersion is non-zero it must match the stored version or the
// update fails with a conflict. Version increments on every successful
// write. Recognized keys: title, usageDescription, content, ordinal, tags.
func (s *Store) UpdateSection(ctx context.Context, id string, updates map[string]any, expectedVersion int64) (*types.Section, error) {
	current, err := s.GetSection(ctx, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion != 0 && expectedVersion != current.Version {
		return nil, storage.Conflictf(
			"section %s version mismatch: expected %d, stored %d",
			id, expectedVersion, current.Version)
	}

	set := []string{"modified_at = ?", "version = version + 1"}
	args := []any{now()}
	for key, val := range updates {
		switch key {
		case "title":
			title, _ := val.(string)
			if strings.TrimSpace(title) == "" {
				return nil, storage.Validationf("section title cannot be blank")
			}
			set = append(set, "title = ?")
			args = append(args, title)
		case "usageDescription":
			set = append(set, "usage_description = ?")
			args = append(args, val)
		case "content":
			set = append(set, "content = ?")
			args = append(args, val)
		case "ordinal":
			ord, ok := toInt(val)
			if !ok || ord < 0 {
				return nil, storage.Validationf("section ordinal cannot be negative")
			}
			set = append(set, "ordinal = ?")
			args = append(args, ord)
		case "tags":
			// handled below
		default:
			return nil, storage.Validationf("unknown section field %q", key)
		}
	}
	args = append(args, id, current.Version)

	res, err := s.db.ExecContext(ctx,
		"UPDATE sections SET "+strings.Join(set, ", ")+" WHERE id = ? AND version = ?",
		args...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, storage.Conflictf("ordinal already used on %s %s",
				types.WireName(current.EntityType), current.EntityID)
		}
		return nil, &storage.DatabaseError{Op: "update section", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Row existed moments ago, so a concurrent writer bumped the version.
		return nil, storage.Conflictf("section %s modified concurrently", id)
	}
	if tags, ok := updates["tags"]; ok {
		if err := setTags(ctx, s.db, sectionTagType, id, toStringSlice(tags)); err != nil {
			return nil, err
		}
	}
	return s.GetSection(ctx, id)
}

// DeleteSection removes one section and its tags.
func (s *Store) DeleteSection(ctx context.Context, id string) error {
	if err := deleteTags(ctx, s.db, sectionTagType, id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM sections WHERE id = ?`, id)
	if err != nil {
		return &storage.DatabaseError{Op: "delete section", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &storage.NotFoundError{Kind: "section", ID: id}
	}
	return nil
}

// FindSections lists an entity's sections in ordinal order, optionally
// narrowed to those carrying any of the filter tags.
func (s *Store) FindSections(ctx context.Context, filter types.SectionFilter) ([]*types.Section, error) {
	query := `SELECT id, entity_type, entity_id, title, usage_description,
		content, ordinal, version, created_at, modified_at
		FROM sections WHERE entity_type = ? AND entity_id = ?`
	args := []any{string(filter.EntityType), filter.EntityID}
	if len(filter.Tags) > 0 {
		query += " AND " + tagMatchClause(sectionTagType, "sections.id", filter.Tags, &args)
	}
	query += " ORDER BY ordinal"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &storage.DatabaseError{Op: "find sections", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Section
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, &storage.DatabaseError{Op: "scan section", Err: err}
		}
		out = append(out, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.DatabaseError{Op: "find sections", Err: err}
	}
	for _, sec := range out {
		if sec.Tags, err = getTags(ctx, s.db, sectionTagType, sec.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MaxOrdinal returns the highest ordinal used on the entity, or -1 when the
// entity has no sections, so append callers can use MaxOrdinal+1.
func (s *Store) MaxOrdinal(ctx context.Context, entityType types.EntityKind, entityID string) (int, error) {
	var max int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(ordinal), -1) FROM sections WHERE entity_type = ? AND entity_id = ?`,
		string(entityType), entityID).Scan(&max)
	if err != nil {
		return 0, &storage.DatabaseError{Op: "max ordinal", Err: err}
	}
	return max, nil
}

// ListTemplates returns the distinct template ids present in the sections
// table. A template is an entity that exists only through its TEMPLATE
// sections.
func (s *Store) ListTemplates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT entity_id FROM sections WHERE entity_type = 'TEMPLATE' ORDER BY entity_id`)
	if err != nil {
		return nil, &storage.DatabaseError{Op: "list templates", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &storage.DatabaseError{Op: "scan template id", Err: err}
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanSection(r rowScanner) (*types.Section, error) {
	var sec types.Section
	var entityType string
	if err := r.Scan(&sec.ID, &entityType, &sec.EntityID, &sec.Title,
		&sec.UsageDescription, &sec.Content, &sec.Ordinal, &sec.Version,
		&sec.CreatedAt, &sec.ModifiedAt); err != nil {
		return nil, err
	}
	sec.EntityType = types.EntityKind(entityType)
	return &sec, nil
}
