package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/promontolio/promoblog/internal/model"
)

const userColumns = `id, username, email, password_hash, first_name, last_name,
	role, status, email_verified, bio, avatar_url, last_login_at, login_count,
	created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Role, &u.Status, &u.EmailVerified, &u.Bio, &u.AvatarURL, &u.LastLoginAt,
		&u.LoginCount, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// CreateUserParams holds the fields for creating a user.
type CreateUserParams struct {
	Username      string
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	Role          string
	Status        string
	EmailVerified bool
	Bio           string
	AvatarURL     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CreateUser inserts a new user and returns the stored row.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, first_name, last_name,
			role, status, email_verified, bio, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+userColumns,
		arg.Username, arg.Email, arg.PasswordHash, arg.FirstName, arg.LastName,
		arg.Role, arg.Status, arg.EmailVerified, arg.Bio, arg.AvatarURL,
		arg.CreatedAt, arg.UpdatedAt,
	)
	return scanUser(row)
}

// GetUserByID fetches a user by primary key.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail fetches a user by email (case-insensitive).
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetUserByUsername fetches a user by username (case-insensitive).
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// ListUsersParams filters and pages the user list.
type ListUsersParams struct {
	Search string // matches username, email, first or last name
	Role   string
	Status string
	Limit  int64
	Offset int64
}

func (p ListUsersParams) where() (string, []any) {
	var conds []string
	var args []any
	if p.Search != "" {
		like := "%" + p.Search + "%"
		conds = append(conds,
			"(username LIKE ? OR email LIKE ? OR first_name LIKE ? OR last_name LIKE ?)")
		args = append(args, like, like, like, like)
	}
	if p.Role != "" {
		conds = append(conds, "role = ?")
		args = append(args, p.Role)
	}
	if p.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, p.Status)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListUsers returns a filtered, paginated slice of users ordered by creation
// time descending.
func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]model.User, error) {
	where, args := arg.where()
	args = append(args, arg.Limit, arg.Offset)
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+where+
			` ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of users matching the filter.
func (q *Queries) CountUsers(ctx context.Context, arg ListUsersParams) (int64, error) {
	where, args := arg.where()
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users`+where, args...).Scan(&n)
	return n, err
}

// UpdateUserParams holds the mutable profile fields of a user.
type UpdateUserParams struct {
	ID            int64
	Username      string
	Email         string
	FirstName     string
	LastName      string
	Role          string
	Status        string
	EmailVerified bool
	Bio           string
	AvatarURL     string
	UpdatedAt     time.Time
}

// UpdateUser updates a user's profile fields and returns the stored row.
func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE users SET username = ?, email = ?, first_name = ?, last_name = ?,
			role = ?, status = ?, email_verified = ?, bio = ?, avatar_url = ?,
			updated_at = ?
		WHERE id = ?
		RETURNING `+userColumns,
		arg.Username, arg.Email, arg.FirstName, arg.LastName,
		arg.Role, arg.Status, arg.EmailVerified, arg.Bio, arg.AvatarURL,
		arg.UpdatedAt, arg.ID,
	)
	return scanUser(row)
}

// UpdateUserPassword replaces a user's password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now(), id)
	return err
}

// UpdateUserStatus sets a user's account status.
func (q *Queries) UpdateUserStatus(ctx context.Context, id int64, status string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id)
	return err
}

// RecordUserLogin stamps last_login_at and increments login_count.
func (q *Queries) RecordUserLogin(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ?, login_count = login_count + 1 WHERE id = ?`,
		time.Now(), id)
	return err
}

// DeleteUser removes a user row. Articles authored by the user are kept.
func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}

// CountActiveAdmins returns the number of active users with the admin or
// super role, excluding the given user ID.
func (q *Queries) CountActiveAdmins(ctx context.Context, excludeID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users
		WHERE status = 'active' AND role IN ('admin', 'super') AND id != ?`,
		excludeID).Scan(&n)
	return n, err
}

// CountAllUsers returns the total number of user rows.
func (q *Queries) CountAllUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// UserStats summarizes the user table for the admin overview.
type UserStats struct {
	Total  int64
	Active int64
	ByRole map[string]int64
	Recent int64 // registered in the last 30 days
}

// GetUserStats aggregates user counts by status and role.
func (q *Queries) GetUserStats(ctx context.Context) (UserStats, error) {
	stats := UserStats{ByRole: make(map[string]int64)}

	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
		FROM users`,
		time.Now().AddDate(0, 0, -30),
	).Scan(&stats.Total, &stats.Active, &stats.Recent)
	if err != nil {
		return stats, fmt.Errorf("counting users: %w", err)
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return stats, fmt.Errorf("counting users by role: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role string
		var n int64
		if err := rows.Scan(&role, &n); err != nil {
			return stats, err
		}
		stats.ByRole[role] = n
	}
	return stats, rows.Err()
}

// IsUniqueConstraintErr reports whether err is a SQLite unique constraint
// violation, used to turn duplicate email/username/slug inserts into
// friendly validation errors.
func IsUniqueConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
