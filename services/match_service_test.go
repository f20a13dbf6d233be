package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracketlab/esports-server/brackets"
	"github.com/bracketlab/esports-server/models"
)

type matchFixture struct {
	svc            MatchService
	tournamentRepo *fakeTournamentRepo
	matchRepo      *fakeMatchRepo
	teamRepo       *fakeTeamRepo
	tournament     *models.Tournament
}

// newMatchFixture generates a real bracket for the given format and team IDs,
// loads it into the fakes, and marks the tournament ongoing.
func newMatchFixture(t *testing.T, format models.TournamentFormat, ids []int) *matchFixture {
	t.Helper()

	tournamentRepo := newFakeTournamentRepo()
	registrationRepo := newFakeRegistrationRepo()
	matchRepo := newFakeMatchRepo()

	teams := make([]*models.Team, len(ids))
	for i, id := range ids {
		teams[i] = &models.Team{ID: id, Name: "Team", CaptainID: 1000 + id}
	}
	teamRepo := newFakeTeamRepo(teams...)

	now := time.Now()
	tournament := tournamentRepo.add(&models.Tournament{
		Name:                 "Playoffs",
		Game:                 "dota2",
		Format:               format,
		Status:               models.TournamentOngoing,
		OrganizerID:          1,
		MinParticipants:      2,
		MaxParticipants:      len(ids),
		ParticipantCount:     len(ids),
		RegistrationDeadline: now.Add(-2 * time.Hour),
		StartDate:            now.Add(-time.Hour),
		EndDate:              now.Add(time.Hour),
	})

	for i, id := range ids {
		require.NoError(t, registrationRepo.Create(context.Background(), nil, &models.Registration{
			TournamentID: tournament.ID,
			TeamID:       id,
			RegisteredBy: 1000 + id,
			Seed:         i + 1,
			Status:       models.RegistrationConfirmed,
		}))
	}

	gen, err := brackets.ForFormat(format)
	require.NoError(t, err)
	bp, err := gen.Generate(ids)
	require.NoError(t, err)
	for _, m := range bp.Matches {
		m.TournamentID = tournament.ID
		m.BracketID = 1
		require.NoError(t, matchRepo.Create(context.Background(), nil, m))
	}

	svc := NewMatchService(matchRepo, tournamentRepo, registrationRepo, teamRepo, nil, brackets.NewHub(), testLogger())
	return &matchFixture{
		svc:            svc,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		teamRepo:       teamRepo,
		tournament:     tournament,
	}
}

func (f *matchFixture) matchID(t *testing.T, uid string) int {
	t.Helper()
	m, err := f.matchRepo.GetByUID(context.Background(), f.tournament.ID, uid)
	require.NoError(t, err)
	return m.ID
}

func (f *matchFixture) report(t *testing.T, uid string, winner *int, s1, s2 int, draw bool) error {
	t.Helper()
	_, err := f.svc.ReportResult(context.Background(), f.matchID(t, uid), 1, models.RoleOrganizer, ReportResultInput{
		WinnerTeamID: winner,
		Score1:       s1,
		Score2:       s2,
		IsDraw:       draw,
	})
	return err
}

func TestSingleEliminationRunToCompletion(t *testing.T) {
	f := newMatchFixture(t, models.FormatSingleElimination, []int{1, 2, 3, 4})
	ctx := context.Background()

	require.NoError(t, f.report(t, "W-R1M1", intCopy(1), 2, 0, false))
	require.NoError(t, f.report(t, "W-R1M2", intCopy(3), 2, 1, false))

	final, err := f.matchRepo.GetByUID(ctx, f.tournament.ID, "W-R2M1")
	require.NoError(t, err)
	require.NotNil(t, final.Slot1TeamID)
	require.NotNil(t, final.Slot2TeamID)
	assert.Equal(t, 1, *final.Slot1TeamID)
	assert.Equal(t, 3, *final.Slot2TeamID)

	require.NoError(t, f.report(t, "W-R2M1", intCopy(1), 2, 1, false))

	tournament, err := f.tournamentRepo.GetByID(ctx, f.tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentCompleted, tournament.Status)
	require.NotNil(t, tournament.WinnerTeamID)
	assert.Equal(t, 1, *tournament.WinnerTeamID)

	// Team stats followed the results.
	champion, err := f.teamRepo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, champion.Stats.Wins)
	assert.Equal(t, 2, champion.Stats.MatchesPlayed)
}

func TestReportResultRejectsSecondReport(t *testing.T) {
	f := newMatchFixture(t, models.FormatSingleElimination, []int{1, 2, 3, 4})

	require.NoError(t, f.report(t, "W-R1M1", intCopy(1), 2, 0, false))
	err := f.report(t, "W-R1M1", intCopy(2), 0, 2, false)
	assert.ErrorIs(t, err, ErrMatchAlreadyCompleted)
}

func TestReportResultConcurrentReportsOnlyOneWins(t *testing.T) {
	f := newMatchFixture(t, models.FormatSingleElimination, []int{1, 2, 3, 4})
	id := f.matchID(t, "W-R1M1")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ReportResult(context.Background(), id, 1, models.RoleOrganizer, ReportResultInput{
				WinnerTeamID: intCopy(1), Score1: 2, Score2: 0,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrMatchAlreadyCompleted)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestReportResultValidation(t *testing.T) {
	f := newMatchFixture(t, models.FormatSingleElimination, []int{1, 2, 3, 4})

	// Winner must be in the match.
	err := f.report(t, "W-R1M1", intCopy(3), 2, 0, false)
	assert.ErrorIs(t, err, ErrInvalidWinner)

	// Scores must agree with the winner.
	err = f.report(t, "W-R1M1", intCopy(1), 0, 2, false)
	assert.ErrorIs(t, err, ErrInvalidScore)

	// Draws are a round robin concept.
	err = f.report(t, "W-R1M1", nil, 1, 1, true)
	assert.ErrorIs(t, err, ErrDrawNotAllowed)

	// The final has empty slots until the semifinals resolve.
	err = f.report(t, "W-R2M1", intCopy(1), 2, 0, false)
	assert.ErrorIs(t, err, ErrInvalidWinner)
}

func TestReportResultRequiresOngoingTournament(t *testing.T) {
	f := newMatchFixture(t, models.FormatSingleElimination, []int{1, 2, 3, 4})

	f.tournament.Status = models.TournamentPaused
	f.tournamentRepo.add(f.tournament)

	err := f.report(t, "W-R1M1", intCopy(1), 2, 0, false)
	assert.ErrorIs(t, err, ErrTournamentNotOngoing)
}

func TestReportResultRequiresOrganizerOrAdmin(t *testing.T) {
	f := newMatchFixture(t, models.FormatSingleElimination, []int{1, 2, 3, 4})

	_, err := f.svc.ReportResult(context.Background(), f.matchID(t, "W-R1M1"), 999, models.RoleUser, ReportResultInput{
		WinnerTeamID: intCopy(1), Score1: 2, Score2: 0,
	})
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	// An admin who is not the organizer may report.
	_, err = f.svc.ReportResult(context.Background(), f.matchID(t, "W-R1M1"), 999, models.RoleAdmin, ReportResultInput{
		WinnerTeamID: intCopy(1), Score1: 2, Score2: 0,
	})
	assert.NoError(t, err)
}

func TestDoubleEliminationWalkoverCascade(t *testing.T) {
	// Three teams: the losers match L-R1M1 has a single live feeder and must
	// resolve by walkover the moment the first loser arrives.
	f := newMatchFixture(t, models.FormatDoubleElimination, []int{1, 2, 3})
	ctx := context.Background()

	require.NoError(t, f.report(t, "W-R1M1", intCopy(1), 2, 0, false))

	walkover, err := f.matchRepo.GetByUID(ctx, f.tournament.ID, "L-R1M1")
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, walkover.Status)
	require.NotNil(t, walkover.WinnerTeamID)
	assert.Equal(t, 2, *walkover.WinnerTeamID)

	next, err := f.matchRepo.GetByUID(ctx, f.tournament.ID, "L-R2M1")
	require.NoError(t, err)
	require.NotNil(t, next.Slot1TeamID)
	assert.Equal(t, 2, *next.Slot1TeamID)
	assert.Equal(t, models.MatchPending, next.Status)
}

func TestDoubleEliminationGrandFinalDecides(t *testing.T) {
	f := newMatchFixture(t, models.FormatDoubleElimination, []int{1, 2})
	ctx := context.Background()

	require.NoError(t, f.report(t, "W-R1M1", intCopy(1), 2, 0, false))

	gf, err := f.matchRepo.GetByUID(ctx, f.tournament.ID, brackets.GrandFinalUID)
	require.NoError(t, err)
	require.NotNil(t, gf.Slot1TeamID)
	require.NotNil(t, gf.Slot2TeamID)
	assert.Equal(t, 1, *gf.Slot1TeamID)
	assert.Equal(t, 2, *gf.Slot2TeamID)

	// The losers side winner takes the grand final; no bracket reset.
	require.NoError(t, f.report(t, brackets.GrandFinalUID, intCopy(2), 1, 2, false))

	tournament, err := f.tournamentRepo.GetByID(ctx, f.tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentCompleted, tournament.Status)
	require.NotNil(t, tournament.WinnerTeamID)
	assert.Equal(t, 2, *tournament.WinnerTeamID)
}

func TestRoundRobinCompletesWithStandingsLeader(t *testing.T) {
	f := newMatchFixture(t, models.FormatRoundRobin, []int{1, 2, 3})
	ctx := context.Background()

	// RR-M1 is 1v2, RR-M2 is 1v3, RR-M3 is 2v3.
	require.NoError(t, f.report(t, "RR-M1", intCopy(1), 2, 0, false))
	require.NoError(t, f.report(t, "RR-M2", intCopy(1), 2, 1, false))

	tournament, err := f.tournamentRepo.GetByID(ctx, f.tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentOngoing, tournament.Status, "one match still open")

	require.NoError(t, f.report(t, "RR-M3", nil, 1, 1, true))

	tournament, err = f.tournamentRepo.GetByID(ctx, f.tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentCompleted, tournament.Status)
	require.NotNil(t, tournament.WinnerTeamID)
	assert.Equal(t, 1, *tournament.WinnerTeamID)
}
