package sqlite

import (
	"context"
	"fmt"

	"github.com/untoldecay/TaskOrchestrator/internal/storage/sqlite/migrations"
)

// Migrate applies every pending schema step in version order, each inside
// its own transaction, recording version, name, and checksum in
// schema_history. Already-applied steps are never re-run.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_history (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			checksum TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("creating schema_history: %w", err)
	}

	var latest int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_history`).Scan(&latest)
	if err != nil {
		return fmt.Errorf("reading schema_history: %w", err)
	}

	for _, step := range migrations.All() {
		if step.Version <= latest {
			continue
		}
		if err := s.applyStep(ctx, step); err != nil {
			return fmt.Errorf("migration %d_%s failed: %w", step.Version, step.Name, err)
		}
	}
	return nil
}

func (s *Store) applyStep(ctx context.Context, step migrations.Step) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range step.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_history (version, name, checksum, applied_at) VALUES (?, ?, ?, ?)`,
		step.Version, step.Name, step.Checksum(), now()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// AppliedMigration is one schema_history row joined with the shipped step's
// expected checksum.
type AppliedMigration struct {
	Version  int
	Name     string
	Checksum string
	// Drift is set when the recorded checksum does not match the shipped
	// step (a shipped migration was edited after release).
	Drift bool
}

// Repair re-checksums schema_history against the shipped steps without
// re-running any DDL. When fix is true, drifted rows are rewritten with the
// current checksum; otherwise drift is only reported.
func (s *Store) Repair(ctx context.Context, fix bool) ([]AppliedMigration, error) {
	expected := make(map[int]migrations.Step)
	for _, step := range migrations.All() {
		expected[step.Version] = step
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT version, name, checksum FROM schema_history ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("reading schema_history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var applied []AppliedMigration
	for rows.Next() {
		var m AppliedMigration
		if err := rows.Scan(&m.Version, &m.Name, &m.Checksum); err != nil {
			return nil, err
		}
		if step, ok := expected[m.Version]; ok && step.Checksum() != m.Checksum {
			m.Drift = true
		}
		applied = append(applied, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if fix {
		for i, m := range applied {
			if !m.Drift {
				continue
			}
			step := expected[m.Version]
			if _, err := s.db.ExecContext(ctx,
				`UPDATE schema_history SET checksum = ?, name = ? WHERE version = ?`,
				step.Checksum(), step.Name, m.Version); err != nil {
				return nil, fmt.Errorf("repairing version %d: %w", m.Version, err)
			}
			applied[i].Checksum = step.Checksum()
			applied[i].Drift = false
		}
	}
	return applied, nil
}
