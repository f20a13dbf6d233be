package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/bracketlab/esports-server/models"
	"github.com/bracketlab/esports-server/repositories"
	"github.com/bracketlab/esports-server/storage"
)

// storageErr классифицирует ошибку репозитория: известные доменные ошибки
// проходят как есть, всё остальное считается сбоем хранилища.
func storageErr(err error) error {
	var known = []error{
		repositories.ErrUserNotFound,
		repositories.ErrUserEmailConflict,
		repositories.ErrTeamNotFound,
		repositories.ErrTeamNameConflict,
		repositories.ErrTournamentNotFound,
		repositories.ErrTournamentNameConflict,
		repositories.ErrTournamentCapacity,
		repositories.ErrRegistrationNotFound,
		repositories.ErrRegistrationConflict,
		repositories.ErrBracketNotFound,
		repositories.ErrMatchNotFound,
		repositories.ErrMatchNotPending,
		repositories.ErrRosterEntryNotFound,
		repositories.ErrRosterConflict,
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

func validateTournamentDates(deadline, start, end time.Time) error {
	if deadline.IsZero() || start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: all tournament dates are required", ErrTournamentInvalidDateRange)
	}
	if deadline.After(start) {
		return fmt.Errorf("%w: registration deadline (%s) cannot be after start date (%s)",
			ErrTournamentInvalidDateRange, deadline.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if !start.Before(end) {
		return fmt.Errorf("%w: start date (%s) must be before end date (%s)",
			ErrTournamentInvalidDateRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

func populateTeamLogoURL(team *models.Team, uploader storage.FileUploader) {
	if team != nil && team.LogoKey != nil && *team.LogoKey != "" && uploader != nil {
		if url := uploader.GetPublicURL(*team.LogoKey); url != "" {
			team.LogoURL = &url
		}
	}
}

func populateTournamentBannerURL(tournament *models.Tournament, uploader storage.FileUploader) {
	if tournament != nil && tournament.BannerKey != nil && *tournament.BannerKey != "" && uploader != nil {
		if url := uploader.GetPublicURL(*tournament.BannerKey); url != "" {
			tournament.BannerURL = &url
		}
	}
}

func registrationsToValues(slice []*models.Registration) []models.Registration {
	if slice == nil {
		return []models.Registration{}
	}
	result := make([]models.Registration, len(slice))
	for i, ptr := range slice {
		if ptr != nil {
			result[i] = *ptr
		}
	}
	return result
}

func matchesToValues(slice []*models.Match) []models.Match {
	if slice == nil {
		return []models.Match{}
	}
	result := make([]models.Match, len(slice))
	for i, ptr := range slice {
		if ptr != nil {
			result[i] = *ptr
		}
	}
	return result
}
