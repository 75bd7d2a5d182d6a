package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/diwakar453t/Vincenzo-sub000/internal/database"
	"github.com/diwakar453t/Vincenzo-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PasswordResetRepository handles password reset token data access
type PasswordResetRepository struct {
	pool *pgxpool.Pool
}

// NewPasswordResetRepository creates a new PasswordResetRepository
func NewPasswordResetRepository(db *database.DB) *PasswordResetRepository {
	return &PasswordResetRepository{pool: db.Pool}
}

func scanResetTokenRow(row rowScanner) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken

	err := row.Scan(
		&token.ID, &token.UserID, &token.TokenHash,
		&token.ExpiresAt, &token.UsedAt, &token.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &token, nil
}

// Create stores a new reset token (hash only, never the raw value).
func (r *PasswordResetRepository) Create(ctx context.Context, token *models.PasswordResetToken) error {
	token.ID = uuid.New().String()
	token.CreatedAt = time.Now()

	query := `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create password reset token: %w", database.MapPostgresError(err))
	}
	return nil
}

// Consume atomically marks an unused, unexpired token as used and returns
// it. A second Consume of the same token fails with ErrNotFound.
func (r *PasswordResetRepository) Consume(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	query := `
		UPDATE password_reset_tokens
		SET used_at = CURRENT_TIMESTAMP
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > CURRENT_TIMESTAMP
		RETURNING id, user_id, token_hash, expires_at, used_at, created_at
	`

	return scanResetTokenRow(r.pool.QueryRow(ctx, query, tokenHash))
}

// DeleteExpired removes tokens past their expiry, returning the count.
func (r *PasswordResetRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM password_reset_tokens WHERE expires_at <= CURRENT_TIMESTAMP`

	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
