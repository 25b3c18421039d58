package store

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	// Additive migrations for databases created before these columns
	// existed. SQLite cannot ALTER conditionally, so probe first.
	migrations := []struct {
		table, column, ddl string
	}{
		{"activity_log", "session_id", "ALTER TABLE activity_log ADD COLUMN session_id TEXT REFERENCES sessions(id)"},
		{"activity_log", "user_feedback", "ALTER TABLE activity_log ADD COLUMN user_feedback TEXT NOT NULL DEFAULT ''"},
		{"activity_log", "is_reviewed", "ALTER TABLE activity_log ADD COLUMN is_reviewed INTEGER NOT NULL DEFAULT 0"},
	}
	for _, m := range migrations {
		if err := s.addColumnIfMissing(ctx, m.table, m.column, m.ddl); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) addColumnIfMissing(ctx context.Context, table, column, ddl string) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("scan table info: %w", err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate table info: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return nil
}
