package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracketlab/esports-server/brackets"
	"github.com/bracketlab/esports-server/models"
)

func tournamentFixture() (TournamentService, *fakeTournamentRepo, *fakeBracketRepo) {
	tournamentRepo := newFakeTournamentRepo()
	bracketRepo := newFakeBracketRepo()
	svc := NewTournamentService(tournamentRepo, newFakeRegistrationRepo(), bracketRepo, nil, brackets.NewHub(), testLogger())
	return svc, tournamentRepo, bracketRepo
}

func validCreateInput() CreateTournamentInput {
	now := time.Now()
	return CreateTournamentInput{
		Name:                 "Summer Cup",
		Game:                 "valorant",
		Format:               models.FormatSingleElimination,
		MinParticipants:      4,
		MaxParticipants:      16,
		RegistrationDeadline: now.Add(24 * time.Hour),
		StartDate:            now.Add(48 * time.Hour),
		EndDate:              now.Add(72 * time.Hour),
	}
}

func TestCreateTournamentValidation(t *testing.T) {
	svc, _, _ := tournamentFixture()
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		tournament, err := svc.Create(ctx, 1, validCreateInput())
		require.NoError(t, err)
		assert.Equal(t, models.TournamentUpcoming, tournament.Status)
		assert.Equal(t, 1, tournament.OrganizerID)
	})

	t.Run("empty name", func(t *testing.T) {
		input := validCreateInput()
		input.Name = "  "
		_, err := svc.Create(ctx, 1, input)
		assert.ErrorIs(t, err, ErrTournamentNameRequired)
	})

	t.Run("unknown format", func(t *testing.T) {
		input := validCreateInput()
		input.Format = "ladder"
		_, err := svc.Create(ctx, 1, input)
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("bad capacity", func(t *testing.T) {
		input := validCreateInput()
		input.MinParticipants = 8
		input.MaxParticipants = 4
		_, err := svc.Create(ctx, 1, input)
		assert.ErrorIs(t, err, ErrTournamentInvalidCapacity)
	})

	t.Run("deadline after start", func(t *testing.T) {
		input := validCreateInput()
		input.RegistrationDeadline = input.StartDate.Add(time.Hour)
		_, err := svc.Create(ctx, 1, input)
		assert.ErrorIs(t, err, ErrTournamentInvalidDateRange)
	})
}

func TestChangeStatusTransitions(t *testing.T) {
	svc, tournamentRepo, bracketRepo := tournamentFixture()
	ctx := context.Background()

	tournament, err := svc.Create(ctx, 1, validCreateInput())
	require.NoError(t, err)

	// Starting requires enough participants and a generated bracket.
	_, err = svc.ChangeStatus(ctx, tournament.ID, 1, models.RoleOrganizer, models.TournamentOngoing, nil)
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)

	stored, _ := tournamentRepo.GetByID(ctx, tournament.ID)
	stored.ParticipantCount = 4
	tournamentRepo.add(stored)

	_, err = svc.ChangeStatus(ctx, tournament.ID, 1, models.RoleOrganizer, models.TournamentOngoing, nil)
	assert.ErrorIs(t, err, ErrBracketNotFound)

	require.NoError(t, bracketRepo.Create(ctx, nil, &models.Bracket{
		TournamentID: tournament.ID,
		Format:       models.FormatSingleElimination,
		Rounds:       2,
	}))

	updated, err := svc.ChangeStatus(ctx, tournament.ID, 1, models.RoleOrganizer, models.TournamentOngoing, nil)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentOngoing, updated.Status)

	// ongoing <-> paused both ways.
	updated, err = svc.ChangeStatus(ctx, tournament.ID, 1, models.RoleOrganizer, models.TournamentPaused, nil)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentPaused, updated.Status)

	updated, err = svc.ChangeStatus(ctx, tournament.ID, 1, models.RoleOrganizer, models.TournamentOngoing, nil)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentOngoing, updated.Status)

	// Cancellation is terminal.
	reason := "sponsor pulled out"
	updated, err = svc.ChangeStatus(ctx, tournament.ID, 1, models.RoleOrganizer, models.TournamentCancelled, &reason)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentCancelled, updated.Status)

	_, err = svc.ChangeStatus(ctx, tournament.ID, 1, models.RoleOrganizer, models.TournamentOngoing, nil)
	assert.ErrorIs(t, err, ErrTournamentInvalidTransition)
}

func TestChangeStatusOwnership(t *testing.T) {
	svc, _, _ := tournamentFixture()
	ctx := context.Background()

	tournament, err := svc.Create(ctx, 1, validCreateInput())
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, tournament.ID, 2, models.RoleOrganizer, models.TournamentCancelled, nil)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	// Admins may act on any tournament.
	_, err = svc.ChangeStatus(ctx, tournament.ID, 2, models.RoleAdmin, models.TournamentCancelled, nil)
	assert.NoError(t, err)
}

func TestChangeStatusRejectsDirectCompletion(t *testing.T) {
	svc, _, _ := tournamentFixture()
	ctx := context.Background()

	tournament, err := svc.Create(ctx, 1, validCreateInput())
	require.NoError(t, err)

	// Completion is driven by match results, never set by hand.
	_, err = svc.ChangeStatus(ctx, tournament.ID, 1, models.RoleOrganizer, models.TournamentCompleted, nil)
	assert.ErrorIs(t, err, ErrTournamentInvalidStatus)
}

func TestUpdateLockedAfterStart(t *testing.T) {
	svc, tournamentRepo, _ := tournamentFixture()
	ctx := context.Background()

	tournament, err := svc.Create(ctx, 1, validCreateInput())
	require.NoError(t, err)

	stored, _ := tournamentRepo.GetByID(ctx, tournament.ID)
	stored.Status = models.TournamentOngoing
	tournamentRepo.add(stored)

	name := "Renamed"
	_, err = svc.Update(ctx, tournament.ID, 1, models.RoleOrganizer, UpdateTournamentInput{Name: &name})
	assert.ErrorIs(t, err, ErrTournamentStarted)
}

func TestAutoStartDue(t *testing.T) {
	svc, tournamentRepo, bracketRepo := tournamentFixture()
	ctx := context.Background()
	now := time.Now()

	// Ready to go: enough participants and a bracket.
	ready := tournamentRepo.add(&models.Tournament{
		Name: "Ready", Format: models.FormatSingleElimination,
		Status: models.TournamentUpcoming, OrganizerID: 1,
		MinParticipants: 2, MaxParticipants: 8, ParticipantCount: 4,
		RegistrationDeadline: now.Add(-2 * time.Hour),
		StartDate:            now.Add(-time.Minute),
		EndDate:              now.Add(time.Hour),
	})
	require.NoError(t, bracketRepo.Create(ctx, nil, &models.Bracket{TournamentID: ready.ID, Format: models.FormatSingleElimination, Rounds: 2}))

	// Due but unstartable: gets cancelled rather than lingering.
	stale := tournamentRepo.add(&models.Tournament{
		Name: "Stale", Format: models.FormatSingleElimination,
		Status: models.TournamentUpcoming, OrganizerID: 1,
		MinParticipants: 4, MaxParticipants: 8, ParticipantCount: 1,
		RegistrationDeadline: now.Add(-2 * time.Hour),
		StartDate:            now.Add(-time.Minute),
		EndDate:              now.Add(time.Hour),
	})

	// Not due yet: untouched.
	future := tournamentRepo.add(&models.Tournament{
		Name: "Future", Format: models.FormatSingleElimination,
		Status: models.TournamentUpcoming, OrganizerID: 1,
		MinParticipants: 2, MaxParticipants: 8, ParticipantCount: 4,
		RegistrationDeadline: now.Add(time.Hour),
		StartDate:            now.Add(2 * time.Hour),
		EndDate:              now.Add(3 * time.Hour),
	})

	require.NoError(t, svc.AutoStartDue(ctx, now))

	got, _ := tournamentRepo.GetByID(ctx, ready.ID)
	assert.Equal(t, models.TournamentOngoing, got.Status)

	got, _ = tournamentRepo.GetByID(ctx, stale.ID)
	assert.Equal(t, models.TournamentCancelled, got.Status)
	require.NotNil(t, got.CancellationReason)

	got, _ = tournamentRepo.GetByID(ctx, future.ID)
	assert.Equal(t, models.TournamentUpcoming, got.Status)
}
