package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bracketlab/esports-server/brackets"
	"github.com/bracketlab/esports-server/models"
	"github.com/bracketlab/esports-server/repositories"
	"github.com/bracketlab/esports-server/storage"
)

type BracketService interface {
	// Generate builds (or rebuilds) the bracket from the confirmed
	// registrations in seed order. Only allowed while the tournament is
	// upcoming; regeneration replaces the previous bracket wholesale.
	Generate(ctx context.Context, tournamentID, userID int, role models.UserRole) (*models.Bracket, error)
	GetBracket(ctx context.Context, tournamentID int) (*models.Bracket, error)
}

type bracketService struct {
	db               *sql.DB
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	bracketRepo      repositories.BracketRepository
	matchRepo        repositories.MatchRepository
	teamRepo         repositories.TeamRepository
	uploader         storage.FileUploader
	hub              *brackets.Hub
	logger           *slog.Logger
}

func NewBracketService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	uploader storage.FileUploader,
	hub *brackets.Hub,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		db:               db,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		bracketRepo:      bracketRepo,
		matchRepo:        matchRepo,
		teamRepo:         teamRepo,
		uploader:         uploader,
		hub:              hub,
		logger:           logger,
	}
}

func (s *bracketService) Generate(ctx context.Context, tournamentID, userID int, role models.UserRole) (*models.Bracket, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, storageErr(err)
	}
	if tournament.OrganizerID != userID && role != models.RoleAdmin {
		return nil, ErrForbiddenOperation
	}
	if tournament.Started() {
		return nil, ErrTournamentStarted
	}

	status := models.RegistrationConfirmed
	registrations, err := s.registrationRepo.ListByTournament(ctx, tournamentID, &status)
	if err != nil {
		return nil, storageErr(err)
	}
	if len(registrations) < 2 || len(registrations) < tournament.MinParticipants {
		return nil, ErrNotEnoughParticipants
	}

	teamIDs := make([]int, len(registrations))
	for i, reg := range registrations {
		teamIDs[i] = reg.TeamID
	}

	generator, err := brackets.ForFormat(tournament.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	blueprint, err := generator.Generate(teamIDs)
	if err != nil {
		if errors.Is(err, brackets.ErrInsufficientParticipants) {
			return nil, ErrNotEnoughParticipants
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	bracket, err := s.persistBlueprint(ctx, tournamentID, blueprint)
	if err != nil {
		return nil, err
	}

	s.hub.Notify(tournamentID, brackets.EventBracketGenerated, map[string]interface{}{
		"bracket_id":  bracket.ID,
		"format":      bracket.Format,
		"rounds":      bracket.Rounds,
		"match_count": len(bracket.Matches),
	})
	return bracket, nil
}

// persistBlueprint replaces the tournament's bracket inside one transaction
// so a failed regeneration never leaves a half-written topology behind.
func (s *bracketService) persistBlueprint(ctx context.Context, tournamentID int, blueprint *brackets.Blueprint) (*models.Bracket, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr(err)
	}
	defer tx.Rollback()

	if err := s.bracketRepo.DeleteByTournament(ctx, tx, tournamentID); err != nil &&
		!errors.Is(err, repositories.ErrBracketNotFound) {
		return nil, storageErr(err)
	}

	bracket := &models.Bracket{
		TournamentID: tournamentID,
		Format:       blueprint.Format,
		Rounds:       blueprint.Rounds,
	}
	if err := s.bracketRepo.Create(ctx, tx, bracket); err != nil {
		return nil, storageErr(err)
	}

	for _, match := range blueprint.Matches {
		match.BracketID = bracket.ID
		match.TournamentID = tournamentID
		if err := s.matchRepo.Create(ctx, tx, match); err != nil {
			return nil, storageErr(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, storageErr(err)
	}

	bracket.Matches = matchesToValues(blueprint.Matches)
	return bracket, nil
}

func (s *bracketService) GetBracket(ctx context.Context, tournamentID int) (*models.Bracket, error) {
	bracket, err := s.bracketRepo.GetByTournament(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrBracketNotFound
		}
		return nil, storageErr(err)
	}

	var (
		matches       []*models.Match
		registrations []*models.Registration
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gctx, tournamentID)
		return err
	})
	g.Go(func() error {
		status := models.RegistrationConfirmed
		var err error
		registrations, err = s.registrationRepo.ListByTournament(gctx, tournamentID, &status)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storageErr(err)
	}

	teamIDs := make([]int, 0, len(registrations))
	for _, reg := range registrations {
		teamIDs = append(teamIDs, reg.TeamID)
	}
	teams, err := s.teamRepo.GetByIDs(ctx, teamIDs)
	if err != nil {
		s.logger.Warn("failed to load teams for bracket",
			slog.Int("tournament_id", tournamentID),
			slog.Any("error", err))
		teams = map[int]*models.Team{}
	}
	for _, team := range teams {
		populateTeamLogoURL(team, s.uploader)
	}

	bracket.Matches = matchesToValues(matches)
	bracket.Teams = teams
	return bracket, nil
}
