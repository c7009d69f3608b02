package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/partpulse/partpulse/internal/core/domain"
)

const userColumns = `id, email, name, role, password_hash, COALESCE(reset_token_hash, ''), reset_token_expiry, last_login_at, created_at, updated_at`

const (
	insertUserSQL = `INSERT INTO users (id, email, name, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	selectUserByIDSQL         = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	selectUserByEmailSQL      = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	selectUserByResetTokenSQL = `SELECT ` + userColumns + ` FROM users WHERE reset_token_hash = $1 AND reset_token_expiry > $2`
	listUsersSQL              = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	countUsersByRoleSQL       = `SELECT COUNT(*) FROM users WHERE role = $1`
	updateUserPasswordSQL     = `UPDATE users SET password_hash = $2, reset_token_hash = NULL, reset_token_expiry = NULL, updated_at = NOW() WHERE id = $1`
	setResetTokenSQL          = `UPDATE users SET reset_token_hash = $2, reset_token_expiry = $3, updated_at = NOW() WHERE id = $1`
	touchLastLoginSQL         = `UPDATE users SET last_login_at = $2 WHERE id = $1`
)

// UserRepository implements ports.UserRepository.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.ResetTokenHash,
		&u.ResetTokenExpiry, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	_, err := r.pool.Exec(ctx, insertUserSQL, u.ID, u.Email, u.Name, u.Role, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, domain.ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	created := *u
	return &created, nil
}

func (r *UserRepository) findOne(ctx context.Context, sql string, args ...any) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, sql, args...))
	if isNoRows(err) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, selectUserByIDSQL, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, selectUserByEmailSQL, email)
}

func (r *UserRepository) FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*domain.User, error) {
	return r.findOne(ctx, selectUserByResetTokenSQL, hash, now)
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.pool.Query(ctx, listUsersSQL)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, countUsersByRoleSQL, role).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, updateUserPasswordSQL, id, passwordHash)
}

func (r *UserRepository) SetResetToken(ctx context.Context, id, hash string, expiresAt time.Time) error {
	return r.exec(ctx, setResetTokenSQL, id, hash, expiresAt)
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, touchLastLoginSQL, id, at)
}
