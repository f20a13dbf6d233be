package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bracketlab/esports-server/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name conflict for this organizer")
	// ErrTournamentCapacity is returned by IncrementParticipantCount when the
	// guarded update matched no row because the tournament is already full.
	ErrTournamentCapacity = errors.New("tournament participant capacity reached")
)

type ListTournamentsFilter struct {
	Game        *string
	Format      *models.TournamentFormat
	Status      *models.TournamentStatus
	OrganizerID *int
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus, reason *string) error
	UpdateWinner(ctx context.Context, exec SQLExecutor, id int, winnerTeamID *int) error
	UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error
	// IncrementParticipantCount admits one participant atomically: the
	// increment only applies while participant_count < max_participants, so
	// two captains racing for the last slot cannot both succeed.
	IncrementParticipantCount(ctx context.Context, exec SQLExecutor, id int) error
	DecrementParticipantCount(ctx context.Context, exec SQLExecutor, id int) error
	ListDueToStart(ctx context.Context, now time.Time) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, description, game, format, status, organizer_id,
	min_participants, max_participants, participant_count,
	registration_deadline, start_date, end_date, requirements,
	winner_team_id, cancellation_reason, banner_key, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	reqJSON, err := json.Marshal(t.Requirements)
	if err != nil {
		return fmt.Errorf("failed to encode tournament requirements: %w", err)
	}

	query := `
		INSERT INTO tournaments (
			name, description, game, format, status, organizer_id,
			min_participants, max_participants, registration_deadline,
			start_date, end_date, requirements
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, participant_count, created_at`

	err = r.db.QueryRowContext(ctx, query,
		t.Name, t.Description, t.Game, t.Format, t.Status, t.OrganizerID,
		t.MinParticipants, t.MaxParticipants, t.RegistrationDeadline,
		t.StartDate, t.EndDate, reqJSON,
	).Scan(&t.ID, &t.ParticipantCount, &t.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" && pqErr.Constraint == "tournaments_organizer_name_key" {
				return ErrTournamentNameConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	t, err := scanTournament(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTournament(row rowScanner) (*models.Tournament, error) {
	t := &models.Tournament{}
	var reqJSON []byte
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.Game, &t.Format, &t.Status, &t.OrganizerID,
		&t.MinParticipants, &t.MaxParticipants, &t.ParticipantCount,
		&t.RegistrationDeadline, &t.StartDate, &t.EndDate, &reqJSON,
		&t.WinnerTeamID, &t.CancellationReason, &t.BannerKey, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(reqJSON) > 0 {
		if err := json.Unmarshal(reqJSON, &t.Requirements); err != nil {
			return nil, fmt.Errorf("failed to decode tournament requirements: %w", err)
		}
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Game != nil {
		query += fmt.Sprintf(" AND game = $%d", argID)
		args = append(args, *filter.Game)
		argID++
	}
	if filter.Format != nil {
		query += fmt.Sprintf(" AND format = $%d", argID)
		args = append(args, *filter.Format)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.OrganizerID != nil {
		query += fmt.Sprintf(" AND organizer_id = $%d", argID)
		args = append(args, *filter.OrganizerID)
		argID++
	}

	query += " ORDER BY start_date DESC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, *t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	reqJSON, err := json.Marshal(t.Requirements)
	if err != nil {
		return fmt.Errorf("failed to encode tournament requirements: %w", err)
	}

	query := `
		UPDATE tournaments SET
			name = $1, description = $2, game = $3,
			min_participants = $4, max_participants = $5,
			registration_deadline = $6, start_date = $7, end_date = $8,
			requirements = $9
		WHERE id = $10`

	result, err := r.db.ExecContext(ctx, query,
		t.Name, t.Description, t.Game,
		t.MinParticipants, t.MaxParticipants,
		t.RegistrationDeadline, t.StartDate, t.EndDate,
		reqJSON, t.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus, reason *string) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1, cancellation_reason = COALESCE($2, cancellation_reason) WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, status, reason, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateWinner(ctx context.Context, exec SQLExecutor, id int, winnerTeamID *int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET winner_team_id = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, winnerTeamID, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error {
	query := `UPDATE tournaments SET banner_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, bannerKey, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) IncrementParticipantCount(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments
		SET participant_count = participant_count + 1
		WHERE id = $1 AND participant_count < max_participants`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentCapacity)
}

func (r *postgresTournamentRepository) DecrementParticipantCount(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments
		SET participant_count = participant_count - 1
		WHERE id = $1 AND participant_count > 0`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) ListDueToStart(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE status = $1 AND start_date <= $2`
	rows, err := r.db.QueryContext(ctx, query, models.TournamentUpcoming, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}
