package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/GoSim-25-26J-441/ea-backend/internal/inventory/domain"
	"github.com/GoSim-25-26J-441/ea-backend/internal/storage/postgres"
)

// ImportRepository upserts whole documents in a single transaction.
type ImportRepository struct {
	db *sql.DB
}

func NewImportRepository(db *sql.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

func (r *ImportRepository) Import(ctx context.Context, arts []domain.Artefact, rels []domain.Relationship) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	artStmt, err := tx.PrepareContext(ctx, `
INSERT INTO artefacts (id, name, description, type, risk_level, owner, tags)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	description = EXCLUDED.description,
	type = EXCLUDED.type,
	risk_level = EXCLUDED.risk_level,
	owner = EXCLUDED.owner,
	tags = EXCLUDED.tags,
	updated_at = now()
`)
	if err != nil {
		return fmt.Errorf("failed to prepare artefact upsert: %w", err)
	}
	defer artStmt.Close()

	for _, a := range arts {
		if _, err := artStmt.ExecContext(ctx, a.ID, a.Name, a.Description, string(a.Type), string(a.RiskLevel), a.Owner, pq.Array(a.Tags)); err != nil {
			return fmt.Errorf("failed to import artefact %s: %w", a.ID, err)
		}
	}

	relStmt, err := tx.PrepareContext(ctx, `
INSERT INTO relationships (id, source_id, target_id, type, label)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
	source_id = EXCLUDED.source_id,
	target_id = EXCLUDED.target_id,
	type = EXCLUDED.type,
	label = EXCLUDED.label,
	updated_at = now()
`)
	if err != nil {
		return fmt.Errorf("failed to prepare relationship upsert: %w", err)
	}
	defer relStmt.Close()

	for _, rel := range rels {
		if _, err := relStmt.ExecContext(ctx, rel.ID, rel.SourceID, rel.TargetID, string(rel.Type), rel.Label); err != nil {
			if postgres.IsForeignKeyViolation(err) {
				return fmt.Errorf("relationship %s (%s -> %s): %w", rel.ID, rel.SourceID, rel.TargetID, domain.ErrUnknownEndpoint)
			}
			return fmt.Errorf("failed to import relationship %s: %w", rel.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}
