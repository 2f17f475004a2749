package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dartmaster/dartmaster-api/models"
)

type ConfirmationRepository interface {
	Upsert(ctx context.Context, exec SQLExecutor, c *models.MatchConfirmation) error
	CountConfirmedByMatch(ctx context.Context, exec SQLExecutor, matchID int) (int, error)
	ListByMatch(ctx context.Context, matchID int) ([]*models.MatchConfirmation, error)
}

type postgresConfirmationRepository struct {
	db *sql.DB
}

func NewPostgresConfirmationRepository(db *sql.DB) ConfirmationRepository {
	return &postgresConfirmationRepository{db: db}
}

func (r *postgresConfirmationRepository) Upsert(ctx context.Context, exec SQLExecutor, c *models.MatchConfirmation) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		INSERT INTO match_confirmations (match_id, user_id, confirmed, confirmed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (match_id, user_id)
		DO UPDATE SET confirmed = EXCLUDED.confirmed, confirmed_at = EXCLUDED.confirmed_at
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		c.MatchID,
		c.UserID,
		c.Confirmed,
		c.ConfirmedAt,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert match confirmation: %w", err)
	}
	return nil
}

func (r *postgresConfirmationRepository) CountConfirmedByMatch(ctx context.Context, exec SQLExecutor, matchID int) (int, error) {
	if exec == nil {
		exec = r.db
	}
	var count int
	err := exec.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM match_confirmations WHERE match_id = $1 AND confirmed`, matchID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count confirmations for match %d: %w", matchID, err)
	}
	return count, nil
}

func (r *postgresConfirmationRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchConfirmation, error) {
	query := `
		SELECT id, match_id, user_id, confirmed, confirmed_at, created_at
		FROM match_confirmations
		WHERE match_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query confirmations for match %d: %w", matchID, err)
	}
	defer rows.Close()

	confirmations := make([]*models.MatchConfirmation, 0)
	for rows.Next() {
		var c models.MatchConfirmation
		if scanErr := rows.Scan(&c.ID, &c.MatchID, &c.UserID, &c.Confirmed, &c.ConfirmedAt, &c.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan confirmation row: %w", scanErr)
		}
		confirmations = append(confirmations, &c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during confirmation rows iteration: %w", err)
	}
	return confirmations, nil
}
