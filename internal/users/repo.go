package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const userColumns = `id::text, external_id, coalesce(email,''), coalesce(display_name,''), role, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.DisplayName, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = Role(role)
	return &u, nil
}

// EnsureUser creates the user on first sight and refreshes profile fields
// afterwards. The stored role is never overwritten here.
func (r *Repo) EnsureUser(ctx context.Context, u UpsertUser) (*User, error) {
	if u.ExternalID == "" {
		return nil, ErrExternalIDReqd
	}
	role := u.DefaultRole
	if role == "" {
		role = RoleViewer
	}

	q := `
insert into users (external_id, email, display_name, role, updated_at)
values ($1, nullif($2,''), nullif($3,''), $4, now())
on conflict (external_id) do update
set
  email = coalesce(excluded.email, users.email),
  display_name = coalesce(excluded.display_name, users.display_name),
  updated_at = now()
returning ` + userColumns + `;
`
	out, err := scanUser(r.db.QueryRow(ctx, q, u.ExternalID, u.Email, u.DisplayName, string(role)))
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return out, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `select `+userColumns+` from users where id::text = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *Repo) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `select `+userColumns+` from users order by created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *Repo) SetRole(ctx context.Context, id string, role Role) (*User, error) {
	q := `update users set role = $2, updated_at = now() where id::text = $1 returning ` + userColumns
	u, err := scanUser(r.db.QueryRow(ctx, q, id, string(role)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}
	return u, nil
}
