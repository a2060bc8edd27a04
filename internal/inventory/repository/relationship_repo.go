package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	impact "github.com/GoSim-25-26J-441/ea-backend/internal/impact/domain"
	"github.com/GoSim-25-26J-441/ea-backend/internal/inventory/domain"
	"github.com/GoSim-25-26J-441/ea-backend/internal/storage/postgres"
)

const relationshipColumns = `id, source_id, target_id, type, label, created_at, updated_at`

// RelationshipRepository provides persistence operations for relationships
type RelationshipRepository struct {
	db *sql.DB
}

func NewRelationshipRepository(db *sql.DB) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

func (r *RelationshipRepository) Create(ctx context.Context, rel *domain.Relationship) error {
	const q = `
INSERT INTO relationships (id, source_id, target_id, type, label)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at;
`
	err := r.db.QueryRowContext(ctx, q, rel.ID, rel.SourceID, rel.TargetID, string(rel.Type), rel.Label).
		Scan(&rel.CreatedAt, &rel.UpdatedAt)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return domain.ErrUnknownEndpoint
		}
		return fmt.Errorf("failed to create relationship: %w", err)
	}
	return nil
}

func (r *RelationshipRepository) Get(ctx context.Context, id string) (*domain.Relationship, error) {
	q := `SELECT ` + relationshipColumns + ` FROM relationships WHERE id = $1`

	rel, err := scanRelationship(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRelationshipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	return rel, nil
}

// List returns relationships matching the filter. ArtefactID matches either end.
func (r *RelationshipRepository) List(ctx context.Context, f domain.RelationshipFilter) ([]domain.Relationship, error) {
	var (
		where []string
		args  []any
	)
	if f.ArtefactID != "" {
		args = append(args, f.ArtefactID)
		where = append(where, fmt.Sprintf("(source_id = $%d OR target_id = $%d)", len(args), len(args)))
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}

	q := `SELECT ` + relationshipColumns + ` FROM relationships`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Relationship, 0, 16)
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		out = append(out, *rel)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RelationshipRepository) Update(ctx context.Context, rel *domain.Relationship) error {
	const q = `
UPDATE relationships
SET type = $2, label = $3, updated_at = now()
WHERE id = $1
RETURNING source_id, target_id, created_at, updated_at;
`
	err := r.db.QueryRowContext(ctx, q, rel.ID, string(rel.Type), rel.Label).
		Scan(&rel.SourceID, &rel.TargetID, &rel.CreatedAt, &rel.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrRelationshipNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update relationship: %w", err)
	}
	return nil
}

func (r *RelationshipRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM relationships WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrRelationshipNotFound
	}
	return nil
}

// Views loads every relationship as an analyzer edge.
func (r *RelationshipRepository) Views(ctx context.Context) ([]impact.Relationship, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, source_id, target_id, type, label FROM relationships ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load relationships: %w", err)
	}
	defer rows.Close()

	out := make([]impact.Relationship, 0, 128)
	for rows.Next() {
		var (
			e   impact.Relationship
			typ string
		)
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &typ, &e.Label); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		e.Type = impact.RelationType(typ)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanRelationship(s rowScanner) (*domain.Relationship, error) {
	var (
		rel domain.Relationship
		typ string
	)
	if err := s.Scan(&rel.ID, &rel.SourceID, &rel.TargetID, &typ, &rel.Label, &rel.CreatedAt, &rel.UpdatedAt); err != nil {
		return nil, err
	}
	rel.Type = impact.RelationType(typ)
	return &rel, nil
}
