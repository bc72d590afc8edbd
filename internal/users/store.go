package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type Store struct{ DB *pgxpool.Pool }

func (s *Store) Create(ctx context.Context, u *User) error {
	err := s.DB.QueryRow(ctx, `
		INSERT INTO users(id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) ByID(ctx context.Context, id string) (*User, error) {
	return s.scanOne(s.DB.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role, created_at, updated_at
		FROM users WHERE id=$1`, id))
}

func (s *Store) ByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanOne(s.DB.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role, created_at, updated_at
		FROM users WHERE email=$1`, email))
}

func (s *Store) scanOne(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (s *Store) List(ctx context.Context) ([]User, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, name, email, password_hash, role, created_at, updated_at
		FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update overwrites name, email and role. Empty fields keep their stored
// value, matching the partial-update behavior of the admin UI.
func (s *Store) Update(ctx context.Context, id string, name, email string, role Role) (*User, error) {
	row := s.DB.QueryRow(ctx, `
		UPDATE users SET
			name  = COALESCE(NULLIF($2, ''), name),
			email = COALESCE(NULLIF($3, ''), email),
			role  = COALESCE(NULLIF($4, ''), role),
			updated_at = now()
		WHERE id=$1
		RETURNING id, name, email, password_hash, role, created_at, updated_at`,
		id, name, email, string(role))
	return s.scanOne(row)
}

func (s *Store) UpdateRole(ctx context.Context, id string, role Role) (*User, error) {
	row := s.DB.QueryRow(ctx, `
		UPDATE users SET role=$2, updated_at=now() WHERE id=$1
		RETURNING id, name, email, password_hash, role, created_at, updated_at`,
		id, role)
	return s.scanOne(row)
}

func (s *Store) UpdatePassword(ctx context.Context, id, hash string) error {
	ct, err := s.DB.Exec(ctx, `UPDATE users SET password_hash=$2, updated_at=now() WHERE id=$1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
