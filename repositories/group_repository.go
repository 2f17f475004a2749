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
	ErrGroupNotFound       = errors.New("tournament group not found")
	ErrGroupNumberConflict = errors.New("group number already exists in this tournament")
)

type GroupRepository interface {
	Create(ctx context.Context, g *models.TournamentGroup) error
	GetByID(ctx context.Context, id int) (*models.TournamentGroup, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentGroup, error)
	Delete(ctx context.Context, id int) error
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func (r *postgresGroupRepository) Create(ctx context.Context, g *models.TournamentGroup) error {
	query := `
		INSERT INTO tournament_groups (tournament_id, name, group_number)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, g.TournamentID, g.Name, g.GroupNumber).
		Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrGroupNumberConflict
		}
		return fmt.Errorf("failed to create tournament group: %w", err)
	}
	return nil
}

func (r *postgresGroupRepository) GetByID(ctx context.Context, id int) (*models.TournamentGroup, error) {
	query := `SELECT id, tournament_id, name, group_number, created_at FROM tournament_groups WHERE id = $1`

	g := &models.TournamentGroup{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&g.ID, &g.TournamentID, &g.Name, &g.GroupNumber, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to scan group by id %d: %w", id, err)
	}
	return g, nil
}

func (r *postgresGroupRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentGroup, error) {
	query := `
		SELECT id, tournament_id, name, group_number, created_at
		FROM tournament_groups
		WHERE tournament_id = $1
		ORDER BY group_number ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	groups := make([]*models.TournamentGroup, 0)
	for rows.Next() {
		var g models.TournamentGroup
		if scanErr := rows.Scan(&g.ID, &g.TournamentID, &g.Name, &g.GroupNumber, &g.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", scanErr)
		}
		groups = append(groups, &g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during group rows iteration: %w", err)
	}
	return groups, nil
}

func (r *postgresGroupRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournament_groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrGroupNotFound)
}
