package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/bracketlab/esports-server/models"
	"github.com/bracketlab/esports-server/repositories"
	"github.com/bracketlab/esports-server/storage"
)

// Round robin scoring.
const (
	pointsPerWin  = 3
	pointsPerDraw = 1
)

// StandingsCache is a best-effort read-through cache for computed standings.
// Implementations must treat unavailability as a miss, never as an error the
// caller has to handle.
type StandingsCache interface {
	Get(ctx context.Context, tournamentID int) ([]models.Standing, bool)
	Set(ctx context.Context, tournamentID int, standings []models.Standing)
	Invalidate(ctx context.Context, tournamentID int)
}

type StandingsService interface {
	GetStandings(ctx context.Context, tournamentID int) ([]models.Standing, error)
}

type standingsService struct {
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	matchRepo        repositories.MatchRepository
	teamRepo         repositories.TeamRepository
	cache            StandingsCache
	uploader         storage.FileUploader
	logger           *slog.Logger
}

func NewStandingsService(
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	cache StandingsCache,
	uploader storage.FileUploader,
	logger *slog.Logger,
) StandingsService {
	return &standingsService{
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		matchRepo:        matchRepo,
		teamRepo:         teamRepo,
		cache:            cache,
		uploader:         uploader,
		logger:           logger,
	}
}

func (s *standingsService) GetStandings(ctx context.Context, tournamentID int) ([]models.Standing, error) {
	if s.cache != nil {
		if standings, ok := s.cache.Get(ctx, tournamentID); ok {
			return standings, nil
		}
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, storageErr(err)
	}

	status := models.RegistrationConfirmed
	registrations, err := s.registrationRepo.ListByTournament(ctx, tournamentID, &status)
	if err != nil {
		return nil, storageErr(err)
	}
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, storageErr(err)
	}

	var standings []models.Standing
	switch tournament.Format {
	case models.FormatRoundRobin:
		standings = computeRoundRobinStandings(registrations, matches)
	case models.FormatSingleElimination, models.FormatDoubleElimination:
		standings = computeEliminationStandings(registrations, matches, tournament.WinnerTeamID)
	default:
		return nil, ErrInvalidFormat
	}

	s.attachTeams(ctx, standings)

	if s.cache != nil {
		s.cache.Set(ctx, tournamentID, standings)
	}
	return standings, nil
}

func (s *standingsService) attachTeams(ctx context.Context, standings []models.Standing) {
	ids := make([]int, len(standings))
	for i := range standings {
		ids[i] = standings[i].TeamID
	}
	teams, err := s.teamRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to load teams for standings", slog.Any("error", err))
		return
	}
	for i := range standings {
		if team, ok := teams[standings[i].TeamID]; ok {
			populateTeamLogoURL(team, s.uploader)
			standings[i].Team = team
		}
	}
}

// computeRoundRobinStandings ranks teams by points (3 win, 1 draw, 0 loss),
// then wins, then original seed. Ties on points and wins share a rank.
func computeRoundRobinStandings(registrations []*models.Registration, matches []*models.Match) []models.Standing {
	rows := standingRows(registrations)

	for _, m := range matches {
		if m.Status != models.MatchCompleted || m.Slot1TeamID == nil || m.Slot2TeamID == nil {
			continue
		}
		r1, ok1 := rows[*m.Slot1TeamID]
		r2, ok2 := rows[*m.Slot2TeamID]
		if !ok1 || !ok2 {
			continue
		}
		r1.MatchesPlayed++
		r2.MatchesPlayed++
		switch {
		case m.IsDraw:
			r1.Draws++
			r2.Draws++
			r1.Points += pointsPerDraw
			r2.Points += pointsPerDraw
		case m.WinnerTeamID != nil && *m.WinnerTeamID == *m.Slot1TeamID:
			r1.Wins++
			r1.Points += pointsPerWin
			r2.Losses++
		case m.WinnerTeamID != nil && *m.WinnerTeamID == *m.Slot2TeamID:
			r2.Wins++
			r2.Points += pointsPerWin
			r1.Losses++
		}
	}

	standings := rowsToSlice(rows)
	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].Points != standings[j].Points {
			return standings[i].Points > standings[j].Points
		}
		if standings[i].Wins != standings[j].Wins {
			return standings[i].Wins > standings[j].Wins
		}
		return standings[i].Seed < standings[j].Seed
	})
	for i := range standings {
		if i > 0 && standings[i].Points == standings[i-1].Points && standings[i].Wins == standings[i-1].Wins {
			standings[i].Rank = standings[i-1].Rank
		} else {
			standings[i].Rank = i + 1
		}
	}
	return standings
}

// computeEliminationStandings ranks teams by how deep into the bracket they
// survived. A team is eliminated by losing a match with no loser destination
// (every match in single elimination, losers-side and grand-final matches in
// double elimination); teams eliminated in the same round share a rank. The
// champion is first and the grand-final loser second.
func computeEliminationStandings(registrations []*models.Registration, matches []*models.Match, winnerTeamID *int) []models.Standing {
	rows := standingRows(registrations)
	depth := make(map[int]int, len(rows))

	for _, m := range matches {
		if m.Status != models.MatchCompleted || m.WinnerTeamID == nil {
			continue
		}
		if winner, ok := rows[*m.WinnerTeamID]; ok {
			winner.Wins++
			winner.MatchesPlayed++
		}
		loserID := m.LoserTeamID()
		if loserID == nil {
			continue
		}
		if loser, ok := rows[*loserID]; ok {
			loser.Losses++
			loser.MatchesPlayed++
		}
		if m.LoserNextUID == nil {
			if m.Round > depth[*loserID] {
				depth[*loserID] = m.Round
			}
		}
	}

	standings := rowsToSlice(rows)
	sort.SliceStable(standings, func(i, j int) bool {
		gi := eliminationGroup(&standings[i], depth, winnerTeamID)
		gj := eliminationGroup(&standings[j], depth, winnerTeamID)
		if gi != gj {
			return gi > gj
		}
		if standings[i].Wins != standings[j].Wins {
			return standings[i].Wins > standings[j].Wins
		}
		return standings[i].Seed < standings[j].Seed
	})
	for i := range standings {
		if i > 0 && eliminationGroup(&standings[i], depth, winnerTeamID) == eliminationGroup(&standings[i-1], depth, winnerTeamID) {
			standings[i].Rank = standings[i-1].Rank
		} else {
			standings[i].Rank = i + 1
		}
	}
	return standings
}

// eliminationGroup orders teams for elimination standings: the champion above
// everyone, teams still alive above the eliminated, and the eliminated by the
// round of their final loss.
func eliminationGroup(s *models.Standing, depth map[int]int, winnerTeamID *int) int {
	const (
		championGroup = 1 << 20
		aliveGroup    = 1 << 19
	)
	if winnerTeamID != nil && *winnerTeamID == s.TeamID {
		return championGroup
	}
	if d, eliminated := depth[s.TeamID]; eliminated {
		return d
	}
	return aliveGroup
}

func standingRows(registrations []*models.Registration) map[int]*models.Standing {
	rows := make(map[int]*models.Standing, len(registrations))
	for _, reg := range registrations {
		rows[reg.TeamID] = &models.Standing{
			TeamID: reg.TeamID,
			Seed:   reg.Seed,
		}
	}
	return rows
}

func rowsToSlice(rows map[int]*models.Standing) []models.Standing {
	standings := make([]models.Standing, 0, len(rows))
	for _, row := range rows {
		standings = append(standings, *row)
	}
	sort.Slice(standings, func(i, j int) bool { return standings[i].Seed < standings[j].Seed })
	return standings
}
