// Package postgres provides the PostgreSQL-backed implementation of the user
// directory.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jrsteele09/go-account-service/users"
	"github.com/pkg/errors"
)

var _ users.UserRepo = (*Repository)(nil)

// Repository implements users.UserRepo over database/sql (pgx stdlib driver).
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository bound to the given database handle.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, email, first_name, last_name, password_hash, auth_provider,
	google_id, status, login_attempts, locked_until, last_login_at, created_at, updated_at`

func (r *Repository) Save(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.UpdatedAt = time.Now()

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			password_hash = EXCLUDED.password_hash,
			auth_provider = EXCLUDED.auth_provider,
			google_id = EXCLUDED.google_id,
			status = EXCLUDED.status,
			login_attempts = EXCLUDED.login_attempts,
			locked_until = EXCLUDED.locked_until,
			last_login_at = EXCLUDED.last_login_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.FirstName, user.LastName, user.PasswordHash,
		string(user.AuthProvider), nullString(user.GoogleID), string(user.Status),
		user.LoginAttempts, user.LockedUntil, nullTime(user.LastLoginAt),
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "[Repository.Save] ExecContext")
	}
	return nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *Repository) FindByID(ctx context.Context, id string) (*users.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "[Repository.ExistsByEmail] Scan")
	}
	return exists, nil
}

func (r *Repository) scanUser(row *sql.Row) (*users.User, error) {
	var (
		user        users.User
		provider    string
		status      string
		googleID    sql.NullString
		lockedUntil sql.NullTime
		lastLoginAt sql.NullTime
	)

	err := row.Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.PasswordHash,
		&provider, &googleID, &status, &user.LoginAttempts, &lockedUntil,
		&lastLoginAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Repository.scanUser] Scan")
	}

	user.AuthProvider = users.AuthProviderType(provider)
	user.Status = users.StatusType(status)
	user.GoogleID = googleID.String
	if lockedUntil.Valid {
		t := lockedUntil.Time
		user.LockedUntil = &t
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = lastLoginAt.Time
	}
	return &user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
