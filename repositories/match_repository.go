package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dartmaster/dartmaster-api/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, m *models.Match) error
	// GetByID takes an executor so score operations can re-read the match
	// state inside their own transaction.
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error
	SetActualStart(ctx context.Context, exec SQLExecutor, id int, at time.Time) error
	SetActualEnd(ctx context.Context, exec SQLExecutor, id int, at time.Time) error
	Delete(ctx context.Context, id int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, tournament_id, group_id, match_format, status, scheduled_start, actual_start, actual_end, created_at, updated_at`

func (r *postgresMatchRepository) Create(ctx context.Context, m *models.Match) error {
	query := `
		INSERT INTO matches (tournament_id, group_id, match_format, status, scheduled_start)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		m.TournamentID,
		m.GroupID,
		m.MatchFormat,
		m.Status,
		m.ScheduledStart,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "matches_tournament_id_fkey" {
			return ErrMatchTournamentInvalid
		}
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	m := &models.Match{}
	err := exec.QueryRowContext(ctx, query, id).Scan(
		&m.ID,
		&m.TournamentID,
		&m.GroupID,
		&m.MatchFormat,
		&m.Status,
		&m.ScheduledStart,
		&m.ActualStart,
		&m.ActualEnd,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var m models.Match
		if scanErr := rows.Scan(
			&m.ID,
			&m.TournamentID,
			&m.GroupID,
			&m.MatchFormat,
			&m.Status,
			&m.ScheduledStart,
			&m.ActualStart,
			&m.ActualEnd,
			&m.CreatedAt,
			&m.UpdatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error {
	if exec == nil {
		exec = r.db
	}
	result, err := exec.ExecContext(ctx,
		`UPDATE matches SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update match %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SetActualStart(ctx context.Context, exec SQLExecutor, id int, at time.Time) error {
	if exec == nil {
		exec = r.db
	}
	result, err := exec.ExecContext(ctx,
		`UPDATE matches SET actual_start = $1, updated_at = now() WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to set match %d actual start: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SetActualEnd(ctx context.Context, exec SQLExecutor, id int, at time.Time) error {
	if exec == nil {
		exec = r.db
	}
	result, err := exec.ExecContext(ctx,
		`UPDATE matches SET actual_end = $1, updated_at = now() WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to set match %d actual end: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}
