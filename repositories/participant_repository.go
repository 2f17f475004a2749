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
	ErrParticipantNotFound          = errors.New("participant registration not found")
	ErrParticipantConflict          = errors.New("user is already registered for this tournament")
	ErrParticipantUserInvalid       = errors.New("participant user conflict or invalid")
	ErrParticipantTournamentInvalid = errors.New("participant tournament conflict or invalid")
)

type ParticipantRepository interface {
	Create(ctx context.Context, p *models.TournamentParticipant) error
	FindByTournamentAndUser(ctx context.Context, tournamentID, userID int) (*models.TournamentParticipant, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentParticipant, error)
	CountByTournament(ctx context.Context, tournamentID int) (int, error)
	UpdateStatus(ctx context.Context, id int, status models.ParticipantStatus) error
	UpdateGroup(ctx context.Context, id int, groupID *int) error
	Delete(ctx context.Context, id int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) Create(ctx context.Context, p *models.TournamentParticipant) error {
	query := `
		INSERT INTO tournament_participants (tournament_id, user_id, group_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, registered_at`

	err := r.db.QueryRowContext(ctx, query,
		p.TournamentID,
		p.UserID,
		p.GroupID,
		p.Status,
	).Scan(&p.ID, &p.RegisteredAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrParticipantConflict
			case "23503":
				switch pqErr.Constraint {
				case "tournament_participants_user_id_fkey":
					return ErrParticipantUserInvalid
				case "tournament_participants_tournament_id_fkey":
					return ErrParticipantTournamentInvalid
				}
			}
		}
		return fmt.Errorf("failed to create tournament participant: %w", err)
	}
	return nil
}

func (r *postgresParticipantRepository) FindByTournamentAndUser(ctx context.Context, tournamentID, userID int) (*models.TournamentParticipant, error) {
	query := `
		SELECT id, tournament_id, user_id, group_id, status, registered_at
		FROM tournament_participants
		WHERE tournament_id = $1 AND user_id = $2`

	p := &models.TournamentParticipant{}
	err := r.db.QueryRowContext(ctx, query, tournamentID, userID).Scan(
		&p.ID,
		&p.TournamentID,
		&p.UserID,
		&p.GroupID,
		&p.Status,
		&p.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant for tournament %d user %d: %w", tournamentID, userID, err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentParticipant, error) {
	query := `
		SELECT p.id, p.tournament_id, p.user_id, p.group_id, p.status, p.registered_at,
		       u.id, u.first_name, u.last_name, u.nickname, u.role
		FROM tournament_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.tournament_id = $1
		ORDER BY p.registered_at ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]*models.TournamentParticipant, 0)
	for rows.Next() {
		var p models.TournamentParticipant
		var u models.User
		if scanErr := rows.Scan(
			&p.ID,
			&p.TournamentID,
			&p.UserID,
			&p.GroupID,
			&p.Status,
			&p.RegisteredAt,
			&u.ID,
			&u.FirstName,
			&u.LastName,
			&u.Nickname,
			&u.Role,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", scanErr)
		}
		p.User = &u
		participants = append(participants, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during participant rows iteration: %w", err)
	}
	return participants, nil
}

func (r *postgresParticipantRepository) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_participants WHERE tournament_id = $1 AND status != 'withdrawn'`,
		tournamentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresParticipantRepository) UpdateStatus(ctx context.Context, id int, status models.ParticipantStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tournament_participants SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update participant %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) UpdateGroup(ctx context.Context, id int, groupID *int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tournament_participants SET group_id = $1 WHERE id = $2`, groupID, id)
	if err != nil {
		return fmt.Errorf("failed to update participant %d group: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournament_participants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}
