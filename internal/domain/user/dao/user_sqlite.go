package dao

import (
	"context"
	"database/sql"
	"errors"
	"time"

	postentity "github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/domain/user/entity"
)

// UserRepository defines data access for bot users
type UserRepository interface {
	// Upsert inserts the user or overwrites the row with the same telegram id
	Upsert(ctx context.Context, u *entity.User) error

	// GetByTelegramID returns nil, nil when the user does not exist
	GetByTelegramID(ctx context.Context, telegramID int64) (*entity.User, error)

	List(ctx context.Context, status *entity.Status) ([]entity.User, error)

	Delete(ctx context.Context, telegramID int64) error
}

const userSchema = `
CREATE TABLE IF NOT EXISTS users (
	telegram_id INTEGER PRIMARY KEY,
	username TEXT NOT NULL DEFAULT '',
	full_name TEXT NOT NULL DEFAULT '',
	position TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'viewer',
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TEXT NOT NULL,
	approved_at TEXT,
	approved_by INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_users_status ON users(status);
`

// UserSQLite implements UserRepository on SQLite
type UserSQLite struct {
	db *sql.DB
}

// NewUserSQLite creates the users table if needed
func NewUserSQLite(ctx context.Context, db *sql.DB) (*UserSQLite, error) {
	if _, err := db.ExecContext(ctx, userSchema); err != nil {
		return nil, err
	}
	return &UserSQLite{db: db}, nil
}

// Upsert inserts or replaces a user
func (r *UserSQLite) Upsert(ctx context.Context, u *entity.User) error {
	var approvedAt sql.NullString
	if u.ApprovedAt != nil {
		approvedAt = sql.NullString{String: u.ApprovedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (telegram_id, username, full_name, position, role, status, created_at, approved_at, approved_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			username = excluded.username,
			full_name = excluded.full_name,
			position = excluded.position,
			role = excluded.role,
			status = excluded.status,
			approved_at = excluded.approved_at,
			approved_by = excluded.approved_by
	`,
		u.TelegramID,
		u.Username,
		u.FullName,
		u.Position,
		string(u.Role),
		string(u.Status),
		u.CreatedAt.UTC().Format(time.RFC3339),
		approvedAt,
		u.ApprovedBy,
	)
	return err
}

// GetByTelegramID retrieves a user
func (r *UserSQLite) GetByTelegramID(ctx context.Context, telegramID int64) (*entity.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT telegram_id, username, full_name, position, role, status, created_at, approved_at, approved_by
		FROM users
		WHERE telegram_id = ?
	`, telegramID)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// List returns users, newest first, optionally filtered by status
func (r *UserSQLite) List(ctx context.Context, status *entity.Status) ([]entity.User, error) {
	query := `
		SELECT telegram_id, username, full_name, position, role, status, created_at, approved_at, approved_by
		FROM users`
	var args []any
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC, telegram_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Delete removes a user
func (r *UserSQLite) Delete(ctx context.Context, telegramID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE telegram_id = ?`, telegramID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entity.ErrUserNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*entity.User, error) {
	var (
		u          entity.User
		role       string
		status     string
		createdAt  string
		approvedAt sql.NullString
	)
	err := s.Scan(
		&u.TelegramID,
		&u.Username,
		&u.FullName,
		&u.Position,
		&role,
		&status,
		&createdAt,
		&approvedAt,
		&u.ApprovedBy,
	)
	if err != nil {
		return nil, err
	}

	u.Role = postentity.Role(role)
	u.Status = entity.Status(status)
	u.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, err
	}
	if approvedAt.Valid {
		t, err := time.Parse(time.RFC3339, approvedAt.String)
		if err != nil {
			return nil, err
		}
		u.ApprovedAt = &t
	}
	return &u, nil
}
