package auth_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/id"
	"glasserp/internal/domain/auth"
	"glasserp/internal/infrastructure/storage/postgres"
)

// ResetTokenRepo implements auth.ResetTokenRepository.
type ResetTokenRepo struct {
	txm *postgres.TxManager
}

// NewResetTokenRepo creates a new reset token repository.
func NewResetTokenRepo(txm *postgres.TxManager) *ResetTokenRepo {
	return &ResetTokenRepo{txm: txm}
}

// Save saves a reset token.
func (r *ResetTokenRepo) Save(ctx context.Context, token *auth.ResetToken) error {
	q := r.txm.GetQuerier(ctx)

	_, err := q.Exec(ctx, `
		INSERT INTO auth_reset_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}

	return nil
}

// GetByHash retrieves a reset token by hash. The row is locked when called
// inside a transaction so two resets cannot consume the same token.
func (r *ResetTokenRepo) GetByHash(ctx context.Context, tokenHash string) (*auth.ResetToken, error) {
	q := r.txm.GetQuerier(ctx)

	query := `
		SELECT id, user_id, token_hash, expires_at, used_at, created_at
		FROM auth_reset_tokens WHERE token_hash = $1
	`
	if r.txm.GetTx(ctx) != nil {
		query += " FOR UPDATE"
	}

	var token auth.ResetToken
	err := q.QueryRow(ctx, query, tokenHash).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.UsedAt, &token.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound("reset_token", "")
	}
	if err != nil {
		return nil, fmt.Errorf("query reset token: %w", err)
	}

	return &token, nil
}

// MarkUsed consumes a token.
func (r *ResetTokenRepo) MarkUsed(ctx context.Context, tokenID id.ID, at time.Time) error {
	q := r.txm.GetQuerier(ctx)

	result, err := q.Exec(ctx, `UPDATE auth_reset_tokens SET used_at = $2 WHERE id = $1 AND used_at IS NULL`, tokenID, at)
	if err != nil {
		return fmt.Errorf("mark reset token used: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("reset_token", tokenID)
	}

	return nil
}

// CleanupExpired removes expired reset tokens and one-time codes.
func (r *ResetTokenRepo) CleanupExpired(ctx context.Context, before time.Time) (int, error) {
	q := r.txm.GetQuerier(ctx)

	var removed int
	err := q.QueryRow(ctx, `
		WITH tokens AS (
			DELETE FROM auth_reset_tokens WHERE expires_at < $1 OR used_at IS NOT NULL RETURNING 1
		),
		codes AS (
			DELETE FROM auth_otps WHERE expires_at < $1 RETURNING 1
		)
		SELECT (SELECT COUNT(*) FROM tokens) + (SELECT COUNT(*) FROM codes)
	`, before).Scan(&removed)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired tokens: %w", err)
	}

	return removed, nil
}
