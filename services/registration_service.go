package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bracketlab/esports-server/models"
	"github.com/bracketlab/esports-server/repositories"
)

// RegistrationService admits teams into tournaments under the entry
// constraints: deadline, capacity, one active registration per team, captain
// ownership, and the tournament's eligibility requirements.
type RegistrationService interface {
	Register(ctx context.Context, tournamentID, teamID, userID int) (*models.Registration, error)
	Unregister(ctx context.Context, tournamentID, teamID, userID int) error
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Registration, error)
}

// RegistrationMailer sends the confirmation message after a successful
// registration. Delivery is best effort and never fails the registration.
type RegistrationMailer interface {
	SendRegistrationConfirmation(team *models.Team, tournament *models.Tournament) error
}

type registrationService struct {
	registrationRepo repositories.RegistrationRepository
	tournamentRepo   repositories.TournamentRepository
	teamRepo         repositories.TeamRepository
	mailer           RegistrationMailer
	logger           *slog.Logger
}

func NewRegistrationService(
	registrationRepo repositories.RegistrationRepository,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	mailer RegistrationMailer,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		registrationRepo: registrationRepo,
		tournamentRepo:   tournamentRepo,
		teamRepo:         teamRepo,
		mailer:           mailer,
		logger:           logger,
	}
}

func (s *registrationService) Register(ctx context.Context, tournamentID, teamID, userID int) (*models.Registration, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, storageErr(err)
	}

	if tournament.Started() {
		return nil, ErrTournamentStarted
	}
	if time.Now().After(tournament.RegistrationDeadline) {
		return nil, ErrRegistrationDeadlinePassed
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, storageErr(err)
	}
	if team.CaptainID != userID {
		return nil, ErrUserMustBeCaptain
	}

	if existing, err := s.registrationRepo.FindActive(ctx, tournamentID, teamID); err == nil && existing != nil {
		return nil, ErrRegistrationConflict
	} else if err != nil && !errors.Is(err, repositories.ErrRegistrationNotFound) {
		return nil, storageErr(err)
	}

	if err := checkTeamRequirements(team, tournament.Requirements); err != nil {
		return nil, err
	}

	// Capacity is claimed with a guarded atomic increment before the
	// registration row is written: two captains racing for the last slot
	// cannot both pass.
	if err := s.tournamentRepo.IncrementParticipantCount(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentCapacity) {
			return nil, ErrTournamentFull
		}
		return nil, storageErr(err)
	}

	seed, err := s.registrationRepo.NextSeed(ctx, nil, tournamentID)
	if err != nil {
		s.releaseSlot(ctx, tournamentID)
		return nil, storageErr(err)
	}

	registration := &models.Registration{
		TournamentID: tournamentID,
		TeamID:       teamID,
		RegisteredBy: userID,
		Seed:         seed,
		Status:       models.RegistrationConfirmed,
	}
	if err := s.registrationRepo.Create(ctx, nil, registration); err != nil {
		s.releaseSlot(ctx, tournamentID)
		if errors.Is(err, repositories.ErrRegistrationConflict) {
			return nil, ErrRegistrationConflict
		}
		return nil, storageErr(err)
	}

	if s.mailer != nil {
		if mailErr := s.mailer.SendRegistrationConfirmation(team, tournament); mailErr != nil {
			s.logger.Warn("failed to send registration confirmation",
				slog.Int("tournament_id", tournamentID),
				slog.Int("team_id", teamID),
				slog.Any("error", mailErr))
		}
	}

	registration.Team = team
	return registration, nil
}

func (s *registrationService) Unregister(ctx context.Context, tournamentID, teamID, userID int) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return storageErr(err)
	}
	if tournament.Started() {
		return ErrTournamentStarted
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return storageErr(err)
	}
	if team.CaptainID != userID {
		return ErrUserMustBeCaptain
	}

	registration, err := s.registrationRepo.FindActive(ctx, tournamentID, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		return storageErr(err)
	}

	if err := s.registrationRepo.Cancel(ctx, nil, registration.ID); err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		return storageErr(err)
	}
	s.releaseSlot(ctx, tournamentID)
	return nil
}

func (s *registrationService) ListByTournament(ctx context.Context, tournamentID int) ([]models.Registration, error) {
	status := models.RegistrationConfirmed
	registrations, err := s.registrationRepo.ListByTournament(ctx, tournamentID, &status)
	if err != nil {
		return nil, storageErr(err)
	}
	return registrationsToValues(registrations), nil
}

func (s *registrationService) releaseSlot(ctx context.Context, tournamentID int) {
	if err := s.tournamentRepo.DecrementParticipantCount(ctx, nil, tournamentID); err != nil {
		s.logger.Error("failed to release participant slot",
			slog.Int("tournament_id", tournamentID),
			slog.Any("error", err))
	}
}

func checkTeamRequirements(team *models.Team, req models.TeamRequirements) error {
	if req.MinRank > 0 && team.Stats.Ranking < req.MinRank {
		return fmt.Errorf("%w: team rank must be at least %d", ErrRequirementsNotMet, req.MinRank)
	}
	if req.MinMatches > 0 && team.Stats.MatchesPlayed < req.MinMatches {
		return fmt.Errorf("%w: team must have played at least %d matches", ErrRequirementsNotMet, req.MinMatches)
	}
	if req.Region != "" && team.Region != req.Region {
		return fmt.Errorf("%w: tournament is restricted to the %s region", ErrRequirementsNotMet, req.Region)
	}
	return nil
}
