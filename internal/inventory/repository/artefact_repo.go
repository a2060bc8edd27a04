package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	impact "github.com/GoSim-25-26J-441/ea-backend/internal/impact/domain"
	"github.com/GoSim-25-26J-441/ea-backend/internal/inventory/domain"
	"github.com/GoSim-25-26J-441/ea-backend/internal/storage/postgres"
)

const artefactColumns = `id, name, description, type, risk_level, owner, tags, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// ArtefactRepository provides persistence operations for artefacts
type ArtefactRepository struct {
	db *sql.DB
}

func NewArtefactRepository(db *sql.DB) *ArtefactRepository {
	return &ArtefactRepository{db: db}
}

// Create inserts a new artefact. The caller assigns the ID.
func (r *ArtefactRepository) Create(ctx context.Context, a *domain.Artefact) error {
	const q = `
INSERT INTO artefacts (id, name, description, type, risk_level, owner, tags)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at;
`
	err := r.db.QueryRowContext(ctx, q,
		a.ID, a.Name, a.Description, string(a.Type), string(a.RiskLevel), a.Owner, pq.Array(a.Tags),
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return domain.ErrDuplicateArtefact
		}
		return fmt.Errorf("failed to create artefact: %w", err)
	}
	return nil
}

func (r *ArtefactRepository) Get(ctx context.Context, id string) (*domain.Artefact, error) {
	q := `SELECT ` + artefactColumns + ` FROM artefacts WHERE id = $1`

	a, err := scanArtefact(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrArtefactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artefact: %w", err)
	}
	return a, nil
}

// List returns artefacts matching the filter ordered by name.
func (r *ArtefactRepository) List(ctx context.Context, f domain.ArtefactFilter) ([]domain.Artefact, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		args = append(args, string(f.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.RiskLevel != "" {
		args = append(args, string(f.RiskLevel))
		where = append(where, fmt.Sprintf("risk_level = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	q := `SELECT ` + artefactColumns + ` FROM artefacts`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY name, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list artefacts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Artefact, 0, 16)
	for rows.Next() {
		a, err := scanArtefact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artefact: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update persists every mutable field of a.
func (r *ArtefactRepository) Update(ctx context.Context, a *domain.Artefact) error {
	const q = `
UPDATE artefacts
SET name = $2, description = $3, type = $4, risk_level = $5, owner = $6, tags = $7, updated_at = now()
WHERE id = $1
RETURNING created_at, updated_at;
`
	err := r.db.QueryRowContext(ctx, q,
		a.ID, a.Name, a.Description, string(a.Type), string(a.RiskLevel), a.Owner, pq.Array(a.Tags),
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrArtefactNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update artefact: %w", err)
	}
	return nil
}

// Delete removes the artefact and every relationship touching it in one
// transaction. It returns the number of relationships removed.
func (r *ArtefactRepository) Delete(ctx context.Context, id string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM relationships WHERE source_id = $1 OR target_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete relationships: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM artefacts WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete artefact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, domain.ErrArtefactNotFound
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}
	return removed, nil
}

// CountExisting returns how many of ids exist.
func (r *ArtefactRepository) CountExisting(ctx context.Context, ids []string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM artefacts WHERE id = ANY($1)`, pq.Array(ids)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count artefacts: %w", err)
	}
	return n, nil
}

// Views loads the analyzer projection of every artefact.
func (r *ArtefactRepository) Views(ctx context.Context) ([]impact.Artefact, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, type, risk_level FROM artefacts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load artefacts: %w", err)
	}
	defer rows.Close()

	out := make([]impact.Artefact, 0, 64)
	for rows.Next() {
		var (
			a         impact.Artefact
			typ, risk string
		)
		if err := rows.Scan(&a.ID, &a.Name, &typ, &risk); err != nil {
			return nil, fmt.Errorf("failed to scan artefact: %w", err)
		}
		a.Type = impact.ArtefactType(typ)
		a.RiskLevel = impact.RiskLevel(risk)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanArtefact(s rowScanner) (*domain.Artefact, error) {
	var (
		a         domain.Artefact
		typ, risk string
		tags      []string
	)
	if err := s.Scan(&a.ID, &a.Name, &a.Description, &typ, &risk, &a.Owner, pq.Array(&tags), &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Type = impact.ArtefactType(typ)
	a.RiskLevel = impact.RiskLevel(risk)
	if tags == nil {
		tags = []string{}
	}
	a.Tags = tags
	return &a, nil
}
