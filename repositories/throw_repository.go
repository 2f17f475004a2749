package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dartmaster/dartmaster-api/models"
)

var ErrThrowNotFound = errors.New("dart throw not found")

type ThrowRepository interface {
	Create(ctx context.Context, exec SQLExecutor, t *models.DartThrow) error
	// LatestByMatchAndPlayer returns the most recent throw for the pair, by
	// (thrown_at, id) descending. ErrThrowNotFound means the player has not
	// thrown yet.
	LatestByMatchAndPlayer(ctx context.Context, exec SQLExecutor, matchID, userID int) (*models.DartThrow, error)
	CountByMatchAndPlayer(ctx context.Context, exec SQLExecutor, matchID, userID int) (int, error)
	CountRoundsByMatchAndPlayer(ctx context.Context, exec SQLExecutor, matchID, userID int) (int, error)
	ListByMatch(ctx context.Context, matchID int) ([]*models.DartThrow, error)
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresThrowRepository struct {
	db *sql.DB
}

func NewPostgresThrowRepository(db *sql.DB) ThrowRepository {
	return &postgresThrowRepository{db: db}
}

const throwColumns = `id, match_id, user_id, points, remaining_score, is_double, round_number, throw_number, thrown_at`

func (r *postgresThrowRepository) Create(ctx context.Context, exec SQLExecutor, t *models.DartThrow) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		INSERT INTO dart_throws
			(match_id, user_id, points, remaining_score, is_double, round_number, throw_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, thrown_at`

	err := exec.QueryRowContext(ctx, query,
		t.MatchID,
		t.UserID,
		t.Points,
		t.RemainingScore,
		t.IsDouble,
		t.RoundNumber,
		t.ThrowNumber,
	).Scan(&t.ID, &t.ThrownAt)
	if err != nil {
		return fmt.Errorf("failed to create dart throw: %w", err)
	}
	return nil
}

func (r *postgresThrowRepository) LatestByMatchAndPlayer(ctx context.Context, exec SQLExecutor, matchID, userID int) (*models.DartThrow, error) {
	if exec == nil {
		exec = r.db
	}
	query := `
		SELECT ` + throwColumns + `
		FROM dart_throws
		WHERE match_id = $1 AND user_id = $2
		ORDER BY thrown_at DESC, id DESC
		LIMIT 1`

	t := &models.DartThrow{}
	err := exec.QueryRowContext(ctx, query, matchID, userID).Scan(
		&t.ID,
		&t.MatchID,
		&t.UserID,
		&t.Points,
		&t.RemainingScore,
		&t.IsDouble,
		&t.RoundNumber,
		&t.ThrowNumber,
		&t.ThrownAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrThrowNotFound
		}
		return nil, fmt.Errorf("failed to scan latest throw for match %d user %d: %w", matchID, userID, err)
	}
	return t, nil
}

func (r *postgresThrowRepository) CountByMatchAndPlayer(ctx context.Context, exec SQLExecutor, matchID, userID int) (int, error) {
	if exec == nil {
		exec = r.db
	}
	var count int
	err := exec.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dart_throws WHERE match_id = $1 AND user_id = $2`,
		matchID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count throws for match %d user %d: %w", matchID, userID, err)
	}
	return count, nil
}

func (r *postgresThrowRepository) CountRoundsByMatchAndPlayer(ctx context.Context, exec SQLExecutor, matchID, userID int) (int, error) {
	if exec == nil {
		exec = r.db
	}
	var count int
	err := exec.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT round_number) FROM dart_throws WHERE match_id = $1 AND user_id = $2`,
		matchID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rounds for match %d user %d: %w", matchID, userID, err)
	}
	return count, nil
}

func (r *postgresThrowRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.DartThrow, error) {
	query := `
		SELECT ` + throwColumns + `
		FROM dart_throws
		WHERE match_id = $1
		ORDER BY user_id ASC, round_number ASC, throw_number ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query throws for match %d: %w", matchID, err)
	}
	defer rows.Close()

	throws := make([]*models.DartThrow, 0)
	for rows.Next() {
		var t models.DartThrow
		if scanErr := rows.Scan(
			&t.ID,
			&t.MatchID,
			&t.UserID,
			&t.Points,
			&t.RemainingScore,
			&t.IsDouble,
			&t.RoundNumber,
			&t.ThrowNumber,
			&t.ThrownAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan throw row: %w", scanErr)
		}
		throws = append(throws, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during throw rows iteration: %w", err)
	}
	return throws, nil
}

func (r *postgresThrowRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	if exec == nil {
		exec = r.db
	}
	result, err := exec.ExecContext(ctx, `DELETE FROM dart_throws WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete throw %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrThrowNotFound)
}
