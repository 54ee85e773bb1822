package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-analogy-go/pkg/database"
)

var (
	ErrNotFound        = errors.New("user not found")
	ErrDuplicateHandle = errors.New("handle already taken")
)

// Repository is the credential store contract. Implementations must be
// safe for concurrent use.
type Repository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByHandle(ctx context.Context, handle string) (*entity.User, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	UpdatePassword(ctx context.Context, id int64, hash, algo string) error
}

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row; u.ID must already be assigned.
// CreatedAt is filled from the database.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (id, handle, password_hash, password_algo)
		VALUES (:id, :handle, :password_hash, :password_algo) RETURNING created_at`
	rows, err := r.db.NamedQueryContext(ctx, q, u)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateHandle
		}
		return fmt.Errorf("insert user: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrDuplicateHandle
			}
			return fmt.Errorf("insert user: %w", err)
		}
		return errors.New("insert user: no row returned")
	}
	if err := rows.Scan(&u.CreatedAt); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const selectUser = `SELECT id, handle, password_hash, password_algo, password_updated_at, created_at FROM users`

// GetByHandle returns a user matched by handle (case-insensitive due to citext).
func (r *UserRepo) GetByHandle(ctx context.Context, handle string) (*entity.User, error) {
	return r.get(ctx, selectUser+` WHERE handle=$1`, handle)
}

// GetByID fetches a full user row.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.get(ctx, selectUser+` WHERE id=$1`, id)
}

func (r *UserRepo) get(ctx context.Context, q string, arg any) (*entity.User, error) {
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &row, nil
}

// UpdatePassword replaces the password hash and algo.
func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, hash, algo string) error {
	const q = `UPDATE users SET password_hash=$2, password_algo=$3, password_updated_at=NOW() WHERE id=$1`
	res, err := r.db.ExecContext(ctx, q, id, hash, algo)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
