package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/bracketlab/esports-server/brackets"
	"github.com/bracketlab/esports-server/models"
	"github.com/bracketlab/esports-server/repositories"
	"github.com/bracketlab/esports-server/storage"
)

// CreateTournamentInput carries the organizer-supplied fields for a new
// tournament.
type CreateTournamentInput struct {
	Name                 string                  `json:"name"`
	Description          *string                 `json:"description,omitempty"`
	Game                 string                  `json:"game"`
	Format               models.TournamentFormat `json:"format"`
	MinParticipants      int                     `json:"min_participants"`
	MaxParticipants      int                     `json:"max_participants"`
	RegistrationDeadline time.Time               `json:"registration_deadline"`
	StartDate            time.Time               `json:"start_date"`
	EndDate              time.Time               `json:"end_date"`
	Requirements         models.TeamRequirements `json:"requirements"`
}

// UpdateTournamentInput holds the mutable fields. Nil means "leave as is".
type UpdateTournamentInput struct {
	Name                 *string                  `json:"name,omitempty"`
	Description          *string                  `json:"description,omitempty"`
	RegistrationDeadline *time.Time               `json:"registration_deadline,omitempty"`
	StartDate            *time.Time               `json:"start_date,omitempty"`
	EndDate              *time.Time               `json:"end_date,omitempty"`
	Requirements         *models.TeamRequirements `json:"requirements,omitempty"`
}

type TournamentService interface {
	Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, id, userID int, role models.UserRole, input UpdateTournamentInput) (*models.Tournament, error)
	ChangeStatus(ctx context.Context, id, userID int, role models.UserRole, next models.TournamentStatus, reason *string) (*models.Tournament, error)
	UploadBanner(ctx context.Context, id, userID int, role models.UserRole, file io.Reader, contentType string) (*models.Tournament, error)
	AutoStartDue(ctx context.Context, now time.Time) error
}

type tournamentService struct {
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	bracketRepo      repositories.BracketRepository
	uploader         storage.FileUploader
	hub              *brackets.Hub
	logger           *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	bracketRepo repositories.BracketRepository,
	uploader storage.FileUploader,
	hub *brackets.Hub,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		bracketRepo:      bracketRepo,
		uploader:         uploader,
		hub:              hub,
		logger:           logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}
	if !input.Format.Valid() {
		return nil, fmt.Errorf("%w: unknown format %q", ErrValidationFailed, input.Format)
	}
	if input.MinParticipants < 2 || input.MaxParticipants < input.MinParticipants {
		return nil, fmt.Errorf("%w: min %d, max %d", ErrTournamentInvalidCapacity,
			input.MinParticipants, input.MaxParticipants)
	}
	if err := validateTournamentDates(input.RegistrationDeadline, input.StartDate, input.EndDate); err != nil {
		return nil, err
	}

	tournament := &models.Tournament{
		Name:                 name,
		Description:          input.Description,
		Game:                 strings.TrimSpace(input.Game),
		Format:               input.Format,
		Status:               models.TournamentUpcoming,
		OrganizerID:          organizerID,
		MinParticipants:      input.MinParticipants,
		MaxParticipants:      input.MaxParticipants,
		RegistrationDeadline: input.RegistrationDeadline,
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		Requirements:         input.Requirements,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, storageErr(err)
	}
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, storageErr(err)
	}
	populateTournamentBannerURL(tournament, s.uploader)
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, storageErr(err)
	}
	for i := range tournaments {
		populateTournamentBannerURL(&tournaments[i], s.uploader)
	}
	return tournaments, nil
}

func (s *tournamentService) Update(ctx context.Context, id, userID int, role models.UserRole, input UpdateTournamentInput) (*models.Tournament, error) {
	tournament, err := s.getOwned(ctx, id, userID, role)
	if err != nil {
		return nil, err
	}
	if tournament.Started() {
		return nil, ErrTournamentStarted
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrTournamentNameRequired
		}
		tournament.Name = name
	}
	if input.Description != nil {
		tournament.Description = input.Description
	}
	if input.RegistrationDeadline != nil {
		tournament.RegistrationDeadline = *input.RegistrationDeadline
	}
	if input.StartDate != nil {
		tournament.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		tournament.EndDate = *input.EndDate
	}
	if input.Requirements != nil {
		tournament.Requirements = *input.Requirements
	}
	if err := validateTournamentDates(tournament.RegistrationDeadline, tournament.StartDate, tournament.EndDate); err != nil {
		return nil, err
	}

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, storageErr(err)
	}
	populateTournamentBannerURL(tournament, s.uploader)
	return tournament, nil
}

func (s *tournamentService) ChangeStatus(ctx context.Context, id, userID int, role models.UserRole, next models.TournamentStatus, reason *string) (*models.Tournament, error) {
	switch next {
	case models.TournamentOngoing, models.TournamentPaused, models.TournamentCancelled:
	default:
		return nil, ErrTournamentInvalidStatus
	}

	tournament, err := s.getOwned(ctx, id, userID, role)
	if err != nil {
		return nil, err
	}
	if !models.ValidTournamentTransition(tournament.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidTransition, tournament.Status, next)
	}
	if tournament.Status == next {
		return tournament, nil
	}

	if next == models.TournamentOngoing && tournament.Status == models.TournamentUpcoming {
		if err := s.checkStartable(ctx, tournament); err != nil {
			return nil, err
		}
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, next, reason); err != nil {
		return nil, storageErr(err)
	}
	tournament.Status = next
	if next == models.TournamentCancelled {
		tournament.CancellationReason = reason
	}

	s.hub.Notify(id, brackets.EventTournamentStatus, map[string]interface{}{
		"status": next,
	})
	populateTournamentBannerURL(tournament, s.uploader)
	return tournament, nil
}

// checkStartable enforces the preconditions for moving into ongoing: enough
// confirmed participants and a generated bracket.
func (s *tournamentService) checkStartable(ctx context.Context, tournament *models.Tournament) error {
	if tournament.ParticipantCount < tournament.MinParticipants || tournament.ParticipantCount < 2 {
		return ErrNotEnoughParticipants
	}
	if _, err := s.bracketRepo.GetByTournament(ctx, tournament.ID); err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return ErrBracketNotFound
		}
		return storageErr(err)
	}
	return nil
}

func (s *tournamentService) UploadBanner(ctx context.Context, id, userID int, role models.UserRole, file io.Reader, contentType string) (*models.Tournament, error) {
	tournament, err := s.getOwned(ctx, id, userID, role)
	if err != nil {
		return nil, err
	}
	ext, err := storage.ExtensionForContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("tournaments/%d/banner%s", id, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("%w: banner upload failed: %w", ErrStorageUnavailable, err)
	}
	if err := s.tournamentRepo.UpdateBannerKey(ctx, id, &key); err != nil {
		return nil, storageErr(err)
	}
	tournament.BannerKey = &key
	populateTournamentBannerURL(tournament, s.uploader)
	return tournament, nil
}

// AutoStartDue flips upcoming tournaments whose start date has arrived into
// ongoing. Tournaments that are not startable (too few participants or no
// bracket) are cancelled so they do not linger past their start date.
func (s *tournamentService) AutoStartDue(ctx context.Context, now time.Time) error {
	due, err := s.tournamentRepo.ListDueToStart(ctx, now)
	if err != nil {
		return storageErr(err)
	}
	for _, tournament := range due {
		if err := s.checkStartable(ctx, tournament); err != nil {
			if errors.Is(err, ErrNotEnoughParticipants) || errors.Is(err, ErrBracketNotFound) {
				reason := err.Error()
				if cancelErr := s.tournamentRepo.UpdateStatus(ctx, nil, tournament.ID, models.TournamentCancelled, &reason); cancelErr != nil {
					s.logger.Error("failed to cancel unstartable tournament",
						slog.Int("tournament_id", tournament.ID),
						slog.Any("error", cancelErr))
					continue
				}
				s.hub.Notify(tournament.ID, brackets.EventTournamentStatus, map[string]interface{}{
					"status": models.TournamentCancelled,
					"reason": reason,
				})
				s.logger.Info("cancelled unstartable tournament",
					slog.Int("tournament_id", tournament.ID),
					slog.String("reason", reason))
			} else {
				s.logger.Error("failed to evaluate tournament for auto start",
					slog.Int("tournament_id", tournament.ID),
					slog.Any("error", err))
			}
			continue
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, nil, tournament.ID, models.TournamentOngoing, nil); err != nil {
			s.logger.Error("failed to auto start tournament",
				slog.Int("tournament_id", tournament.ID),
				slog.Any("error", err))
			continue
		}
		s.hub.Notify(tournament.ID, brackets.EventTournamentStatus, map[string]interface{}{
			"status": models.TournamentOngoing,
		})
		s.logger.Info("tournament auto started", slog.Int("tournament_id", tournament.ID))
	}
	return nil
}

func (s *tournamentService) getOwned(ctx context.Context, id, userID int, role models.UserRole) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, storageErr(err)
	}
	if tournament.OrganizerID != userID && role != models.RoleAdmin {
		return nil, ErrForbiddenOperation
	}
	return tournament, nil
}
