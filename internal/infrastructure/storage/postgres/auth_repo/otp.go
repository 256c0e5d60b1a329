package auth_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"glasserp/internal/core/apperror"
	"glasserp/internal/domain/auth"
	"glasserp/internal/infrastructure/storage/postgres"
)

// OTPRepo implements auth.OTPRepository.
type OTPRepo struct {
	txm *postgres.TxManager
}

// NewOTPRepo creates a new one-time code repository.
func NewOTPRepo(txm *postgres.TxManager) *OTPRepo {
	return &OTPRepo{txm: txm}
}

// Save stores a new code.
func (r *OTPRepo) Save(ctx context.Context, otp *auth.OTP) error {
	q := r.txm.GetQuerier(ctx)

	_, err := q.Exec(ctx, `
		INSERT INTO auth_otps (
			id, identifier, method, purpose, code_hash, expires_at,
			attempts, used_at, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		otp.ID, otp.Identifier, otp.Method, otp.Purpose, otp.CodeHash, otp.ExpiresAt,
		otp.Attempts, otp.UsedAt, otp.Version, otp.CreatedAt, otp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save otp: %w", err)
	}

	return nil
}

// Latest returns the newest unused code.
func (r *OTPRepo) Latest(ctx context.Context, identifier string, purpose auth.OTPPurpose) (*auth.OTP, error) {
	q := r.txm.GetQuerier(ctx)

	var otp auth.OTP
	err := q.QueryRow(ctx, `
		SELECT id, identifier, method, purpose, code_hash, expires_at,
			   attempts, used_at, version, created_at, updated_at
		FROM auth_otps
		WHERE identifier = $1 AND purpose = $2 AND used_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, identifier, purpose).Scan(
		&otp.ID, &otp.Identifier, &otp.Method, &otp.Purpose, &otp.CodeHash, &otp.ExpiresAt,
		&otp.Attempts, &otp.UsedAt, &otp.Version, &otp.CreatedAt, &otp.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound("otp", identifier)
	}
	if err != nil {
		return nil, fmt.Errorf("query otp: %w", err)
	}

	return &otp, nil
}

// Update writes attempts and consumption under the version check.
func (r *OTPRepo) Update(ctx context.Context, otp *auth.OTP) error {
	q := r.txm.GetQuerier(ctx)

	result, err := q.Exec(ctx, `
		UPDATE auth_otps SET
			attempts = $2,
			used_at = $3,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $4
	`, otp.ID, otp.Attempts, otp.UsedAt, otp.Version)
	if err != nil {
		return fmt.Errorf("update otp: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("otp", otp.ID)
	}

	otp.BumpVersion()
	return nil
}

// InvalidateOlder consumes every outstanding code for identifier and purpose.
func (r *OTPRepo) InvalidateOlder(ctx context.Context, identifier string, purpose auth.OTPPurpose, at time.Time) error {
	q := r.txm.GetQuerier(ctx)

	_, err := q.Exec(ctx, `
		UPDATE auth_otps SET used_at = $3, version = version + 1, updated_at = now()
		WHERE identifier = $1 AND purpose = $2 AND used_at IS NULL
	`, identifier, purpose, at)
	if err != nil {
		return fmt.Errorf("invalidate otps: %w", err)
	}

	return nil
}
