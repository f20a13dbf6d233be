package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bracketlab/esports-server/models"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	// ErrMatchNotPending is returned by CompletePending when the conditional
	// update matched no pending row: the match was already completed or
	// cancelled by a concurrent writer.
	ErrMatchNotPending = errors.New("match is not pending")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	GetByUID(ctx context.Context, tournamentID int, uid string) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	// CompletePending records a result with a compare-and-swap on status:
	// the row is only touched while still pending, so the second of two
	// concurrent reports observes ErrMatchNotPending.
	CompletePending(ctx context.Context, exec SQLExecutor, match *models.Match) error
	// SetSlot writes a team into slot 1 or 2 of the match identified by its
	// bracket UID.
	SetSlot(ctx context.Context, exec SQLExecutor, tournamentID int, uid string, slot int, teamID int) error
	CountByTournament(ctx context.Context, tournamentID int) (total, completed int, err error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, bracket_id, tournament_id, uid, round, branch, order_in_round,
	slot1_team_id, slot2_team_id, status, winner_team_id, score1, score2, is_draw,
	winner_next_uid, winner_next_slot, loser_next_uid, loser_next_slot,
	is_bye, completed_at, completed_by`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches (
			bracket_id, tournament_id, uid, round, branch, order_in_round,
			slot1_team_id, slot2_team_id, status,
			winner_next_uid, winner_next_slot, loser_next_uid, loser_next_slot, is_bye
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`
	return executor.QueryRowContext(ctx, query,
		m.BracketID, m.TournamentID, m.UID, m.Round, m.Branch, m.OrderInRound,
		m.Slot1TeamID, m.Slot2TeamID, m.Status,
		m.WinnerNextUID, m.WinnerNextSlot, m.LoserNextUID, m.LoserNextSlot, m.IsBye,
	).Scan(&m.ID)
}

func scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(
		&m.ID, &m.BracketID, &m.TournamentID, &m.UID, &m.Round, &m.Branch, &m.OrderInRound,
		&m.Slot1TeamID, &m.Slot2TeamID, &m.Status, &m.WinnerTeamID, &m.Score1, &m.Score2, &m.IsDraw,
		&m.WinnerNextUID, &m.WinnerNextSlot, &m.LoserNextUID, &m.LoserNextSlot,
		&m.IsBye, &m.CompletedAt, &m.CompletedBy,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	m, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) GetByUID(ctx context.Context, tournamentID int, uid string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1 AND uid = $2`
	m, err := scanMatch(r.db.QueryRowContext(ctx, query, tournamentID, uid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1
		ORDER BY branch, round, order_in_round`
	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) CompletePending(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	now := time.Now().UTC()
	query := `
		UPDATE matches SET
			status = $1, winner_team_id = $2, score1 = $3, score2 = $4, is_draw = $5,
			completed_at = $6, completed_by = $7
		WHERE id = $8 AND status = $9`
	result, err := executor.ExecContext(ctx, query,
		models.MatchCompleted, m.WinnerTeamID, m.Score1, m.Score2, m.IsDraw,
		now, m.CompletedBy, m.ID, models.MatchPending,
	)
	if err != nil {
		return err
	}
	if err := checkAffectedRows(result, ErrMatchNotPending); err != nil {
		return err
	}
	m.Status = models.MatchCompleted
	m.CompletedAt = &now
	return nil
}

func (r *postgresMatchRepository) SetSlot(ctx context.Context, exec SQLExecutor, tournamentID int, uid string, slot int, teamID int) error {
	executor := r.getExecutor(exec)
	column := "slot1_team_id"
	if slot == 2 {
		column = "slot2_team_id"
	}
	query := `UPDATE matches SET ` + column + ` = $1 WHERE tournament_id = $2 AND uid = $3`
	result, err := executor.ExecContext(ctx, query, teamID, tournamentID, uid)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CountByTournament(ctx context.Context, tournamentID int) (int, int, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $2)
		FROM matches WHERE tournament_id = $1`
	var total, completed int
	err := r.db.QueryRowContext(ctx, query, tournamentID, models.MatchCompleted).Scan(&total, &completed)
	if err != nil {
		return 0, 0, err
	}
	return total, completed, nil
}
