package infrastructure

import (
	"context"
	"database/sql"

	"github.com/driveflow/reservation-system/shared/workflow"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var _ workflow.SnapshotStore = (*PostgresInstanceStore)(nil)

// PostgresInstanceStore persists workflow instance snapshots so the status
// trail and terminal result of a saga survive process restarts.
//
// Schema:
//
//	CREATE TABLE workflow_instances (
//	    instance_id TEXT PRIMARY KEY,
//	    runtime     TEXT NOT NULL,
//	    status_text TEXT NOT NULL DEFAULT '',
//	    result      BOOLEAN,
//	    updated_at  TIMESTAMPTZ NOT NULL
//	);
type PostgresInstanceStore struct {
	db *sqlx.DB
}

// NewPostgresInstanceStore creates a new PostgresInstanceStore
func NewPostgresInstanceStore(db *sqlx.DB) *PostgresInstanceStore {
	return &PostgresInstanceStore{db: db}
}

// Save upserts the snapshot keyed by instance ID. Later checkpoints simply
// overwrite earlier ones; the table holds the latest state only.
func (s *PostgresInstanceStore) Save(ctx context.Context, snapshot workflow.Snapshot) error {
	query := `
		INSERT INTO workflow_instances (
			instance_id, runtime, status_text, result, updated_at
		) VALUES (
			:instance_id, :runtime, :status_text, :result, :updated_at
		)
		ON CONFLICT (instance_id) DO UPDATE SET
			runtime = EXCLUDED.runtime,
			status_text = EXCLUDED.status_text,
			result = EXCLUDED.result,
			updated_at = EXCLUDED.updated_at`

	if _, err := s.db.NamedExecContext(ctx, query, snapshot); err != nil {
		return errors.Wrap(err, "failed to save instance snapshot")
	}

	return nil
}

// Load returns the snapshot for an instance, or nil when none exists.
func (s *PostgresInstanceStore) Load(ctx context.Context, instanceID string) (*workflow.Snapshot, error) {
	var snapshot workflow.Snapshot
	err := s.db.GetContext(ctx, &snapshot,
		"SELECT instance_id, runtime, status_text, result, updated_at FROM workflow_instances WHERE instance_id = $1",
		instanceID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load instance snapshot")
	}

	return &snapshot, nil
}
