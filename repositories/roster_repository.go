package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bracketlab/esports-server/models"
	"github.com/lib/pq"
)

var (
	ErrRosterEntryNotFound = errors.New("roster entry not found")
	ErrRosterConflict      = errors.New("user is already on the team roster")
)

type RosterRepository interface {
	Add(ctx context.Context, exec SQLExecutor, member *models.TeamMember) error
	Remove(ctx context.Context, exec SQLExecutor, teamID, userID int) error
	ListByTeam(ctx context.Context, teamID int) ([]*models.TeamMember, error)
}

type postgresRosterRepository struct {
	db *sql.DB
}

func NewPostgresRosterRepository(db *sql.DB) RosterRepository {
	return &postgresRosterRepository{db: db}
}

func (r *postgresRosterRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRosterRepository) Add(ctx context.Context, exec SQLExecutor, member *models.TeamMember) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO team_members (team_id, user_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query, member.TeamID, member.UserID).
		Scan(&member.ID, &member.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" && pqErr.Constraint == "team_members_team_id_user_id_key" {
				return ErrRosterConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresRosterRepository) Remove(ctx context.Context, exec SQLExecutor, teamID, userID int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`
	result, err := executor.ExecContext(ctx, query, teamID, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRosterEntryNotFound)
}

func (r *postgresRosterRepository) ListByTeam(ctx context.Context, teamID int) ([]*models.TeamMember, error) {
	query := `
		SELECT tm.id, tm.team_id, tm.user_id, tm.created_at,
		       u.id, u.email, u.nickname, u.role, u.created_at
		FROM team_members tm
		JOIN users u ON u.id = tm.user_id
		WHERE tm.team_id = $1
		ORDER BY tm.created_at, tm.id`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]*models.TeamMember, 0)
	for rows.Next() {
		member := &models.TeamMember{User: &models.User{}}
		if scanErr := rows.Scan(
			&member.ID, &member.TeamID, &member.UserID, &member.CreatedAt,
			&member.User.ID, &member.User.Email, &member.User.Nickname,
			&member.User.Role, &member.User.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		members = append(members, member)
	}
	return members, rows.Err()
}
