package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bracketlab/esports-server/brackets"
	"github.com/bracketlab/esports-server/models"
	"github.com/bracketlab/esports-server/repositories"
)

// ReportResultInput is an organizer's result submission for one match.
type ReportResultInput struct {
	WinnerTeamID *int `json:"winner_team_id,omitempty"`
	Score1       int  `json:"score1"`
	Score2       int  `json:"score2"`
	IsDraw       bool `json:"is_draw,omitempty"`
}

type MatchService interface {
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	// ReportResult records a match outcome and advances the bracket: the
	// winner (and in double elimination the loser) is written into its
	// destination slot, walkover matches on the path complete automatically,
	// and finishing the last match completes the tournament.
	ReportResult(ctx context.Context, matchID, userID int, role models.UserRole, input ReportResultInput) (*models.Match, error)
}

type matchService struct {
	matchRepo        repositories.MatchRepository
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	teamRepo         repositories.TeamRepository
	cache            StandingsCache
	hub              *brackets.Hub
	logger           *slog.Logger
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	teamRepo repositories.TeamRepository,
	cache StandingsCache,
	hub *brackets.Hub,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo:        matchRepo,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		teamRepo:         teamRepo,
		cache:            cache,
		hub:              hub,
		logger:           logger,
	}
}

func (s *matchService) GetByID(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, storageErr(err)
	}
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, storageErr(err)
	}
	return matches, nil
}

func (s *matchService) ReportResult(ctx context.Context, matchID, userID int, role models.UserRole, input ReportResultInput) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, storageErr(err)
	}
	switch match.Status {
	case models.MatchCompleted:
		return nil, ErrMatchAlreadyCompleted
	case models.MatchCancelled:
		return nil, ErrMatchCancelled
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, storageErr(err)
	}
	if tournament.OrganizerID != userID && role != models.RoleAdmin {
		return nil, ErrForbiddenOperation
	}
	if tournament.Status != models.TournamentOngoing {
		return nil, ErrTournamentNotOngoing
	}

	if err := validateResult(match, tournament.Format, input); err != nil {
		return nil, err
	}

	match.WinnerTeamID = input.WinnerTeamID
	match.Score1 = input.Score1
	match.Score2 = input.Score2
	match.IsDraw = input.IsDraw
	match.CompletedBy = &userID

	// CAS on the pending status: the second of two concurrent reports for
	// the same match loses here and nothing downstream runs twice.
	if err := s.matchRepo.CompletePending(ctx, nil, match); err != nil {
		if errors.Is(err, repositories.ErrMatchNotPending) {
			return nil, ErrMatchAlreadyCompleted
		}
		return nil, storageErr(err)
	}

	if err := s.applyStats(ctx, match); err != nil {
		s.logger.Error("failed to apply team stats",
			slog.Int("match_id", match.ID),
			slog.Any("error", err))
	}

	final, err := s.propagate(ctx, match, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, tournament.ID)
	}
	s.hub.Notify(tournament.ID, brackets.EventMatchResult, map[string]interface{}{
		"match_id": match.ID,
		"uid":      match.UID,
		"winner":   match.WinnerTeamID,
		"score1":   match.Score1,
		"score2":   match.Score2,
		"is_draw":  match.IsDraw,
	})

	if err := s.maybeCompleteTournament(ctx, tournament, final); err != nil {
		return nil, err
	}
	return match, nil
}

func validateResult(match *models.Match, format models.TournamentFormat, input ReportResultInput) error {
	if match.Slot1TeamID == nil || match.Slot2TeamID == nil {
		return ErrInvalidWinner
	}
	if input.Score1 < 0 || input.Score2 < 0 {
		return ErrInvalidScore
	}

	if input.IsDraw {
		if format != models.FormatRoundRobin {
			return ErrDrawNotAllowed
		}
		if input.WinnerTeamID != nil {
			return ErrInvalidWinner
		}
		if input.Score1 != input.Score2 {
			return ErrInvalidScore
		}
		return nil
	}

	if input.WinnerTeamID == nil || !match.HasTeam(*input.WinnerTeamID) {
		return ErrInvalidWinner
	}
	winnerIsSlot1 := *input.WinnerTeamID == *match.Slot1TeamID
	if winnerIsSlot1 && input.Score1 <= input.Score2 {
		return ErrInvalidScore
	}
	if !winnerIsSlot1 && input.Score2 <= input.Score1 {
		return ErrInvalidScore
	}
	return nil
}

func (s *matchService) applyStats(ctx context.Context, match *models.Match) error {
	if match.IsDraw {
		ids := []int{*match.Slot1TeamID, *match.Slot2TeamID}
		return s.teamRepo.ApplyMatchResult(ctx, nil, nil, nil, ids)
	}
	return s.teamRepo.ApplyMatchResult(ctx, nil, match.WinnerTeamID, match.LoserTeamID(), nil)
}

// propagate pushes the winner and loser of a completed match into their
// destination slots. Walkover destinations complete immediately and cascade.
// Returns the last match completed on the cascade (the reported match itself
// when no walkovers fired).
func (s *matchService) propagate(ctx context.Context, match *models.Match, userID int) (*models.Match, error) {
	final := match

	if match.WinnerTeamID != nil && match.WinnerNextUID != nil && match.WinnerNextSlot != nil {
		tail, err := s.deliver(ctx, match.TournamentID, *match.WinnerNextUID, *match.WinnerNextSlot, *match.WinnerTeamID, userID)
		if err != nil {
			return nil, err
		}
		if tail != nil {
			final = tail
		}
	}
	if loserID := match.LoserTeamID(); loserID != nil && match.LoserNextUID != nil && match.LoserNextSlot != nil {
		if _, err := s.deliver(ctx, match.TournamentID, *match.LoserNextUID, *match.LoserNextSlot, *loserID, userID); err != nil {
			return nil, err
		}
	}
	return final, nil
}

// deliver writes a team into a destination slot and, when the destination is
// a walkover match, completes it and keeps cascading. Returns the deepest
// match it completed, or nil when it only filled a slot.
func (s *matchService) deliver(ctx context.Context, tournamentID int, uid string, slot, teamID, userID int) (*models.Match, error) {
	if err := s.matchRepo.SetSlot(ctx, nil, tournamentID, uid, slot, teamID); err != nil {
		return nil, storageErr(err)
	}
	dest, err := s.matchRepo.GetByUID(ctx, tournamentID, uid)
	if err != nil {
		return nil, storageErr(err)
	}
	if !dest.IsBye || dest.Status != models.MatchPending {
		return nil, nil
	}

	// Walkover: the lone live slot wins the moment it is filled.
	dest.WinnerTeamID = &teamID
	dest.CompletedBy = &userID
	if err := s.matchRepo.CompletePending(ctx, nil, dest); err != nil {
		if errors.Is(err, repositories.ErrMatchNotPending) {
			return nil, nil
		}
		return nil, storageErr(err)
	}

	tail, err := s.propagate(ctx, dest, userID)
	if err != nil {
		return nil, err
	}
	return tail, nil
}

// maybeCompleteTournament finishes the tournament when its decisive condition
// is met: the final match of an elimination bracket completed, or every round
// robin match completed (winner is the standings leader).
func (s *matchService) maybeCompleteTournament(ctx context.Context, tournament *models.Tournament, final *models.Match) error {
	var winnerTeamID *int

	switch tournament.Format {
	case models.FormatRoundRobin:
		total, completed, err := s.matchRepo.CountByTournament(ctx, tournament.ID)
		if err != nil {
			return storageErr(err)
		}
		if total == 0 || completed < total {
			return nil
		}
		winnerTeamID, err = s.roundRobinWinner(ctx, tournament.ID)
		if err != nil {
			return err
		}
	default:
		if final.WinnerNextUID != nil || final.WinnerTeamID == nil {
			return nil
		}
		winnerTeamID = final.WinnerTeamID
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, nil, tournament.ID, models.TournamentCompleted, nil); err != nil {
		return storageErr(err)
	}
	if err := s.tournamentRepo.UpdateWinner(ctx, nil, tournament.ID, winnerTeamID); err != nil {
		return storageErr(err)
	}
	tournament.Status = models.TournamentCompleted
	tournament.WinnerTeamID = winnerTeamID

	if s.cache != nil {
		s.cache.Invalidate(ctx, tournament.ID)
	}
	s.hub.Notify(tournament.ID, brackets.EventTournamentCompleted, map[string]interface{}{
		"winner_team_id": winnerTeamID,
	})
	s.logger.Info("tournament completed",
		slog.Int("tournament_id", tournament.ID),
		slog.Any("winner_team_id", winnerTeamID))
	return nil
}

func (s *matchService) roundRobinWinner(ctx context.Context, tournamentID int) (*int, error) {
	status := models.RegistrationConfirmed
	registrations, err := s.registrationRepo.ListByTournament(ctx, tournamentID, &status)
	if err != nil {
		return nil, storageErr(err)
	}
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, storageErr(err)
	}
	standings := computeRoundRobinStandings(registrations, matches)
	if len(standings) == 0 {
		return nil, nil
	}
	return intCopy(standings[0].TeamID), nil
}

func intCopy(i int) *int { return &i }
