// Package auth_repo provides PostgreSQL implementations for auth repositories.
package auth_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/id"
	"glasserp/internal/domain/auth"
	"glasserp/internal/infrastructure/storage/postgres"
)

const userColumns = `id, email, phone, password_hash, name, role,
	is_active, email_verified, phone_verified, last_login_at,
	failed_login_attempts, locked_until, version, created_at, updated_at`

// UserRepo implements auth.UserRepository.
type UserRepo struct {
	txm *postgres.TxManager
}

// NewUserRepo creates a new user repository.
func NewUserRepo(txm *postgres.TxManager) *UserRepo {
	return &UserRepo{txm: txm}
}

func scanUser(row pgx.Row, user *auth.User) error {
	return row.Scan(
		&user.ID, &user.Email, &user.Phone, &user.PasswordHash, &user.Name, &user.Role,
		&user.IsActive, &user.EmailVerified, &user.PhoneVerified, &user.LastLoginAt,
		&user.FailedLoginAttempts, &user.LockedUntil, &user.Version, &user.CreatedAt, &user.UpdatedAt,
	)
}

// Create creates a new user.
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	q := r.txm.GetQuerier(ctx)

	query := `
		INSERT INTO auth_users (
			id, email, phone, password_hash, name, role,
			is_active, email_verified, phone_verified, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := q.Exec(ctx, query,
		user.ID, user.Email, user.Phone, user.PasswordHash, user.Name, user.Role,
		user.IsActive, user.EmailVerified, user.PhoneVerified, user.Version,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewConflict("email or phone already registered").WithDetail("email", user.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any, key string) (*auth.User, error) {
	q := r.txm.GetQuerier(ctx)

	var user auth.User
	err := scanUser(q.QueryRow(ctx, "SELECT "+userColumns+" FROM auth_users WHERE "+where, arg), &user)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound("user", key)
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// GetByID retrieves user by ID.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	return r.getOne(ctx, "id = $1", userID, userID.String())
}

// GetByEmail retrieves user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getOne(ctx, "email = $1", email, email)
}

// GetByPhone retrieves user by phone.
func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (*auth.User, error) {
	return r.getOne(ctx, "phone = $1", phone, phone)
}

// Update updates user data.
func (r *UserRepo) Update(ctx context.Context, user *auth.User) error {
	q := r.txm.GetQuerier(ctx)

	query := `
		UPDATE auth_users SET
			phone = $2,
			password_hash = $3,
			name = $4,
			role = $5,
			is_active = $6,
			email_verified = $7,
			phone_verified = $8,
			last_login_at = $9,
			failed_login_attempts = $10,
			locked_until = $11,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $12
	`

	result, err := q.Exec(ctx, query,
		user.ID, user.Phone, user.PasswordHash, user.Name, user.Role,
		user.IsActive, user.EmailVerified, user.PhoneVerified,
		user.LastLoginAt, user.FailedLoginAttempts, user.LockedUntil,
		user.Version,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("user", user.ID)
	}

	user.BumpVersion()
	return nil
}

// List retrieves users with filtering.
func (r *UserRepo) List(ctx context.Context, filter auth.UserFilter) ([]auth.User, int, error) {
	q := r.txm.GetQuerier(ctx)

	where := squirrel.And{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		where = append(where, squirrel.Or{
			squirrel.ILike{"email": pattern},
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"phone": pattern},
		})
	}
	if filter.Role != "" {
		where = append(where, squirrel.Eq{"role": filter.Role})
	}
	if filter.IsActive != nil {
		where = append(where, squirrel.Eq{"is_active": *filter.IsActive})
	}

	countSQL, countArgs, err := postgres.Builder().Select("COUNT(*)").From("auth_users").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	listSQL, listArgs, err := postgres.Builder().
		Select(userColumns).
		From("auth_users").
		Where(where).
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)).
		Offset(uint64(max(filter.Offset, 0))).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	rows, err := q.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []auth.User{}
	for rows.Next() {
		var user auth.User
		if err := scanUser(rows, &user); err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}

	return users, total, nil
}

// Exists checks if email or phone is already registered.
func (r *UserRepo) Exists(ctx context.Context, email, phone string) (bool, error) {
	q := r.txm.GetQuerier(ctx)

	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM auth_users
			WHERE email = $1 OR ($2 <> '' AND phone = $2)
		)
	`, email, phone).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}

	return exists, nil
}
