package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bracketlab/esports-server/models"
	"github.com/lib/pq"
)

var (
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamNameConflict = errors.New("team name is already in use")
)

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	GetByIDs(ctx context.Context, ids []int) (map[int]*models.Team, error)
	UpdateLogoKey(ctx context.Context, teamID int, logoKey *string) error
	// ApplyMatchResult bumps the aggregate stats of both sides of a completed
	// match: winner +1 win +3 points, loser +1 loss, both +1 played. For a
	// draw both sides get +1 point instead.
	ApplyMatchResult(ctx context.Context, exec SQLExecutor, winnerID, loserID *int, drawTeamIDs []int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const teamColumns = `id, name, tag, captain_id, region, ranking, matches_played, wins, losses, points, logo_key, created_at`

func (r *postgresTeamRepository) Create(ctx context.Context, t *models.Team) error {
	query := `
		INSERT INTO teams (name, tag, captain_id, region, ranking)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Tag, t.CaptainID, t.Region, t.Stats.Ranking,
	).Scan(&t.ID, &t.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" && pqErr.Constraint == "teams_name_key" {
				return ErrTeamNameConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	t := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Tag, &t.CaptainID, &t.Region,
		&t.Stats.Ranking, &t.Stats.MatchesPlayed, &t.Stats.Wins, &t.Stats.Losses, &t.Stats.Points,
		&t.LogoKey, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTeamRepository) GetByIDs(ctx context.Context, ids []int) (map[int]*models.Team, error) {
	teams := make(map[int]*models.Team, len(ids))
	if len(ids) == 0 {
		return teams, nil
	}

	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		t := &models.Team{}
		if scanErr := rows.Scan(
			&t.ID, &t.Name, &t.Tag, &t.CaptainID, &t.Region,
			&t.Stats.Ranking, &t.Stats.MatchesPlayed, &t.Stats.Wins, &t.Stats.Losses, &t.Stats.Points,
			&t.LogoKey, &t.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		teams[t.ID] = t
	}
	return teams, rows.Err()
}

func (r *postgresTeamRepository) UpdateLogoKey(ctx context.Context, teamID int, logoKey *string) error {
	query := `UPDATE teams SET logo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, logoKey, teamID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) ApplyMatchResult(ctx context.Context, exec SQLExecutor, winnerID, loserID *int, drawTeamIDs []int) error {
	executor := r.getExecutor(exec)

	if winnerID != nil {
		query := `UPDATE teams SET matches_played = matches_played + 1, wins = wins + 1, points = points + 3 WHERE id = $1`
		if _, err := executor.ExecContext(ctx, query, *winnerID); err != nil {
			return err
		}
	}
	if loserID != nil {
		query := `UPDATE teams SET matches_played = matches_played + 1, losses = losses + 1 WHERE id = $1`
		if _, err := executor.ExecContext(ctx, query, *loserID); err != nil {
			return err
		}
	}
	for _, id := range drawTeamIDs {
		query := `UPDATE teams SET matches_played = matches_played + 1, points = points + 1 WHERE id = $1`
		if _, err := executor.ExecContext(ctx, query, id); err != nil {
			return err
		}
	}
	return nil
}
