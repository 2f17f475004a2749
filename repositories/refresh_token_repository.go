package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dartmaster/dartmaster-api/models"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	ListActiveByUser(ctx context.Context, userID int) ([]*models.RefreshToken, error)
	Revoke(ctx context.Context, id int, at time.Time) error
	RevokeAllForUser(ctx context.Context, userID int, at time.Time) error
}

type postgresRefreshTokenRepository struct {
	db *sql.DB
}

func NewPostgresRefreshTokenRepository(db *sql.DB) RefreshTokenRepository {
	return &postgresRefreshTokenRepository{db: db}
}

func (r *postgresRefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

func (r *postgresRefreshTokenRepository) ListActiveByUser(ctx context.Context, userID int) ([]*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > now()
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh tokens for user %d: %w", userID, err)
	}
	defer rows.Close()

	tokens := make([]*models.RefreshToken, 0)
	for rows.Next() {
		var t models.RefreshToken
		if scanErr := rows.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.RevokedAt, &t.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan refresh token row: %w", scanErr)
		}
		tokens = append(tokens, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during refresh token rows iteration: %w", err)
	}
	return tokens, nil
}

func (r *postgresRefreshTokenRepository) Revoke(ctx context.Context, id int, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`, at, id)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrRefreshTokenNotFound)
}

func (r *postgresRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = $1 WHERE user_id = $2 AND revoked_at IS NULL`, at, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh tokens for user %d: %w", userID, err)
	}
	return nil
}
