package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dartmaster/dartmaster-api/models"
	"github.com/lib/pq"
)

var (
	ErrMatchParticipantNotFound = errors.New("match participant not found")
	ErrMatchParticipantConflict = errors.New("user is already a participant in this match")
)

type MatchParticipantRepository interface {
	Create(ctx context.Context, p *models.MatchParticipant) error
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.MatchParticipant, error)
	FindByMatchAndUser(ctx context.Context, exec SQLExecutor, matchID, userID int) (*models.MatchParticipant, error)
	// LockByMatchAndUser reads the participant row FOR UPDATE. It is the
	// serialization point for concurrent throw submissions: two RecordThrow
	// calls for the same (match, player) queue up on this row lock.
	LockByMatchAndUser(ctx context.Context, exec SQLExecutor, matchID, userID int) (*models.MatchParticipant, error)
	UpdateResult(ctx context.Context, exec SQLExecutor, id int, finishingScore, position *int) error
	SetConfirmed(ctx context.Context, exec SQLExecutor, id int, confirmed bool) error
	CountByMatch(ctx context.Context, matchID int) (int, error)
}

type postgresMatchParticipantRepository struct {
	db *sql.DB
}

func NewPostgresMatchParticipantRepository(db *sql.DB) MatchParticipantRepository {
	return &postgresMatchParticipantRepository{db: db}
}

const matchParticipantColumns = `id, match_id, user_id, finishing_score, position, is_confirmed, created_at`

func (r *postgresMatchParticipantRepository) Create(ctx context.Context, p *models.MatchParticipant) error {
	query := `
		INSERT INTO match_participants (match_id, user_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, p.MatchID, p.UserID).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrMatchParticipantConflict
		}
		return fmt.Errorf("failed to create match participant: %w", err)
	}
	return nil
}

func (r *postgresMatchParticipantRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.MatchParticipant, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT ` + matchParticipantColumns + ` FROM match_participants WHERE match_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := exec.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for match %d: %w", matchID, err)
	}
	defer rows.Close()

	participants := make([]*models.MatchParticipant, 0)
	for rows.Next() {
		var p models.MatchParticipant
		if scanErr := rows.Scan(
			&p.ID,
			&p.MatchID,
			&p.UserID,
			&p.FinishingScore,
			&p.Position,
			&p.IsConfirmed,
			&p.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match participant row: %w", scanErr)
		}
		participants = append(participants, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match participant rows iteration: %w", err)
	}
	return participants, nil
}

func (r *postgresMatchParticipantRepository) FindByMatchAndUser(ctx context.Context, exec SQLExecutor, matchID, userID int) (*models.MatchParticipant, error) {
	query := `SELECT ` + matchParticipantColumns + ` FROM match_participants WHERE match_id = $1 AND user_id = $2`
	return r.scanOne(ctx, exec, query, matchID, userID)
}

func (r *postgresMatchParticipantRepository) LockByMatchAndUser(ctx context.Context, exec SQLExecutor, matchID, userID int) (*models.MatchParticipant, error) {
	query := `SELECT ` + matchParticipantColumns + ` FROM match_participants WHERE match_id = $1 AND user_id = $2 FOR UPDATE`
	return r.scanOne(ctx, exec, query, matchID, userID)
}

func (r *postgresMatchParticipantRepository) UpdateResult(ctx context.Context, exec SQLExecutor, id int, finishingScore, position *int) error {
	if exec == nil {
		exec = r.db
	}
	result, err := exec.ExecContext(ctx,
		`UPDATE match_participants SET finishing_score = $1, position = $2 WHERE id = $3`,
		finishingScore, position, id)
	if err != nil {
		return fmt.Errorf("failed to update match participant %d result: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchParticipantNotFound)
}

func (r *postgresMatchParticipantRepository) SetConfirmed(ctx context.Context, exec SQLExecutor, id int, confirmed bool) error {
	if exec == nil {
		exec = r.db
	}
	result, err := exec.ExecContext(ctx,
		`UPDATE match_participants SET is_confirmed = $1 WHERE id = $2`, confirmed, id)
	if err != nil {
		return fmt.Errorf("failed to update match participant %d confirmation: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchParticipantNotFound)
}

func (r *postgresMatchParticipantRepository) CountByMatch(ctx context.Context, matchID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM match_participants WHERE match_id = $1`, matchID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants for match %d: %w", matchID, err)
	}
	return count, nil
}

func (r *postgresMatchParticipantRepository) scanOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.MatchParticipant, error) {
	if exec == nil {
		exec = r.db
	}
	p := &models.MatchParticipant{}
	err := exec.QueryRowContext(ctx, query, args...).Scan(
		&p.ID,
		&p.MatchID,
		&p.UserID,
		&p.FinishingScore,
		&p.Position,
		&p.IsConfirmed,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan match participant: %w", err)
	}
	return p, nil
}
