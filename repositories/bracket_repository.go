package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bracketlab/esports-server/models"
)

var ErrBracketNotFound = errors.New("bracket not found")

type BracketRepository interface {
	Create(ctx context.Context, exec SQLExecutor, bracket *models.Bracket) error
	GetByTournament(ctx context.Context, tournamentID int) (*models.Bracket, error)
	// DeleteByTournament removes the bracket and, through ON DELETE CASCADE,
	// its matches. Used only for regeneration before the tournament starts.
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresBracketRepository struct {
	db *sql.DB
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

func (r *postgresBracketRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresBracketRepository) Create(ctx context.Context, exec SQLExecutor, b *models.Bracket) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO brackets (tournament_id, format, rounds)
		VALUES ($1, $2, $3)
		RETURNING id, generated_at`
	return executor.QueryRowContext(ctx, query, b.TournamentID, b.Format, b.Rounds).
		Scan(&b.ID, &b.GeneratedAt)
}

func (r *postgresBracketRepository) GetByTournament(ctx context.Context, tournamentID int) (*models.Bracket, error) {
	query := `SELECT id, tournament_id, format, rounds, generated_at FROM brackets WHERE tournament_id = $1`
	b := &models.Bracket{}
	err := r.db.QueryRowContext(ctx, query, tournamentID).Scan(
		&b.ID, &b.TournamentID, &b.Format, &b.Rounds, &b.GeneratedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *postgresBracketRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM brackets WHERE tournament_id = $1`, tournamentID)
	return err
}
