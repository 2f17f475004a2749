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
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentAdminInvalid = errors.New("tournament admin conflict or invalid")
)

type TournamentRepository interface {
	Create(ctx context.Context, t *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context) ([]*models.Tournament, error)
	Update(ctx context.Context, t *models.Tournament) error
	UpdateStatus(ctx context.Context, id int, status models.TournamentStatus) error
	UpdateLogoKey(ctx context.Context, id int, logoKey *string) error
	Delete(ctx context.Context, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `id, name, description, status, format, match_format, start_date, end_date,
	registration_deadline, max_players, admin_id, logo_key, created_at, updated_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments
			(name, description, status, format, match_format, start_date, end_date,
			 registration_deadline, max_players, admin_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name,
		t.Description,
		t.Status,
		t.Format,
		t.MatchFormat,
		t.StartDate,
		t.EndDate,
		t.RegistrationDeadline,
		t.MaxPlayers,
		t.AdminID,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "tournaments_admin_id_fkey" {
			return ErrTournamentAdminInvalid
		}
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.Status,
		&t.Format,
		&t.MatchFormat,
		&t.StartDate,
		&t.EndDate,
		&t.RegistrationDeadline,
		&t.MaxPlayers,
		&t.AdminID,
		&t.LogoKey,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament by id %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := rows.Scan(
			&t.ID,
			&t.Name,
			&t.Description,
			&t.Status,
			&t.Format,
			&t.MatchFormat,
			&t.StartDate,
			&t.EndDate,
			&t.RegistrationDeadline,
			&t.MaxPlayers,
			&t.AdminID,
			&t.LogoKey,
			&t.CreatedAt,
			&t.UpdatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	query := `
		UPDATE tournaments
		SET name = $1, description = $2, start_date = $3, end_date = $4,
		    registration_deadline = $5, max_players = $6, updated_at = now()
		WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		t.Name,
		t.Description,
		t.StartDate,
		t.EndDate,
		t.RegistrationDeadline,
		t.MaxPlayers,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tournament %d: %w", t.ID, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, id int, status models.TournamentStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tournaments SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tournaments SET logo_key = $1, updated_at = now() WHERE id = $2`, logoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament %d logo key: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
