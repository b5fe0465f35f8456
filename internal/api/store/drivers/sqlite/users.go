package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/kavineksith/user-management-api/internal/api/domain"
	"github.com/kavineksith/user-management-api/internal/api/store"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, username, email, password_hash, role, is_active, created_at,
	password_changed_at, password_reset_token, password_reset_expires`

func (r *usersRepo) Create(ctx context.Context, u domain.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, role, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.IsActive, u.CreatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) List(ctx context.Context, page, limit int) ([]domain.User, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	// ULIDs sort by creation time, so ordering by id is ordering by age.
	// Credential and reset columns are deliberately not selected.
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, username, email, role, is_active, created_at
		FROM users
		ORDER BY id
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) UpdateProfile(ctx context.Context, id, username, email string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET username = ?, email = ? WHERE id = ?`,
		username, email, id,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRowAffected(res)
}

func (r *usersRepo) UpdatePassword(ctx context.Context, id, newHash string, changedAt time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?, password_changed_at = ?
		WHERE id = ?`,
		newHash, changedAt.UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *usersRepo) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET password_reset_token = ?, password_reset_expires = ?
		WHERE id = ?`,
		tokenHash, expires.UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *usersRepo) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (domain.User, error) {
	// Expiry is part of the query, so an expired fingerprint is
	// indistinguishable from one that never existed.
	row := r.q.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE password_reset_token = ? AND password_reset_expires > ?`,
		tokenHash, now.UTC(),
	)
	return scanUser(row)
}

func (r *usersRepo) ResetPassword(ctx context.Context, id, newHash string, changedAt time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?,
		    password_reset_token = NULL,
		    password_reset_expires = NULL,
		    password_changed_at = ?
		WHERE id = ?`,
		newHash, changedAt.UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *usersRepo) SetRole(ctx context.Context, id, role string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *usersRepo) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *usersRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u          domain.User
		changedAt  sql.NullTime
		resetToken sql.NullString
		resetExp   sql.NullTime
	)

	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.CreatedAt, &changedAt, &resetToken, &resetExp,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.PasswordChangedAt = mapNullTimePtr(changedAt)
	u.PasswordResetToken = mapNullStringPtr(resetToken)
	u.PasswordResetExpires = mapNullTimePtr(resetExp)
	return u, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
