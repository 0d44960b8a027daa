package postgres

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/ideas/pkg/types"
)

// NotifyChannel is the LISTEN channel the ideas trigger notifies on.
const NotifyChannel = "ideas_changes"

// schemaStatements create the ideas table and its change trigger. Every
// statement is safe to run repeatedly.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ideas (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		title       TEXT NOT NULL,
		description TEXT,
		rating      INTEGER CHECK (rating BETWEEN 0 AND 10),
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL,
		CHECK (updated_at >= created_at)
	)`,
	`CREATE INDEX IF NOT EXISTS ideas_user_created_idx ON ideas (user_id, created_at DESC)`,
	`CREATE OR REPLACE FUNCTION ideas_notify() RETURNS trigger AS $$
	DECLARE
		row_data ideas;
		op TEXT;
	BEGIN
		IF TG_OP = 'DELETE' THEN
			row_data := OLD;
			op := 'delete';
		ELSIF TG_OP = 'UPDATE' THEN
			row_data := NEW;
			op := 'update';
		ELSE
			row_data := NEW;
			op := 'create';
		END IF;
		PERFORM pg_notify('` + NotifyChannel + `', json_build_object(
			'op', op,
			'user_id', row_data.user_id,
			'idea', json_build_object(
				'id', row_data.id,
				'title', row_data.title,
				'description', row_data.description,
				'rating', row_data.rating,
				'created_at', row_data.created_at,
				'updated_at', row_data.updated_at
			)
		)::text);
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS ideas_notify_trigger ON ideas`,
	`CREATE TRIGGER ideas_notify_trigger
		AFTER INSERT OR UPDATE OR DELETE ON ideas
		FOR EACH ROW EXECUTE FUNCTION ideas_notify()`,
}

// EnsureSchema creates the ideas table, its index, and the notify trigger
// if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: ensuring schema: %w", types.ErrNetwork, err)
		}
	}
	return nil
}
