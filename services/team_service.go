package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bracketlab/esports-server/models"
	"github.com/bracketlab/esports-server/repositories"
	"github.com/bracketlab/esports-server/storage"
)

type TeamService interface {
	CreateTeam(ctx context.Context, captainID int, input CreateTeamInput) (*models.Team, error)
	GetTeamByID(ctx context.Context, id int) (*models.Team, error)
	AddMember(ctx context.Context, teamID, captainID, memberID int) (*models.TeamMember, error)
	RemoveMember(ctx context.Context, teamID, captainID, memberID int) error
	UploadLogo(ctx context.Context, teamID, userID int, contentType string, file io.Reader) (*models.Team, error)
}

type CreateTeamInput struct {
	Name   string `json:"name"`
	Tag    string `json:"tag"`
	Region string `json:"region"`
}

type teamService struct {
	teamRepo   repositories.TeamRepository
	rosterRepo repositories.RosterRepository
	userRepo   repositories.UserRepository
	uploader   storage.FileUploader
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	rosterRepo repositories.RosterRepository,
	userRepo repositories.UserRepository,
	uploader storage.FileUploader,
) TeamService {
	return &teamService{
		teamRepo:   teamRepo,
		rosterRepo: rosterRepo,
		userRepo:   userRepo,
		uploader:   uploader,
	}
}

func (s *teamService) CreateTeam(ctx context.Context, captainID int, input CreateTeamInput) (*models.Team, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, ErrTeamNameRequired
	}

	team := &models.Team{
		Name:      input.Name,
		Tag:       strings.TrimSpace(input.Tag),
		CaptainID: captainID,
		Region:    strings.TrimSpace(input.Region),
	}

	if err := s.teamRepo.Create(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		return nil, storageErr(err)
	}

	// Капитан сразу попадает в состав своей команды.
	if err := s.rosterRepo.Add(ctx, nil, &models.TeamMember{TeamID: team.ID, UserID: captainID}); err != nil {
		return nil, storageErr(err)
	}
	if err := s.loadMembers(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

func (s *teamService) GetTeamByID(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, storageErr(err)
	}
	if err := s.loadMembers(ctx, team); err != nil {
		return nil, err
	}
	populateTeamLogoURL(team, s.uploader)
	return team, nil
}

func (s *teamService) AddMember(ctx context.Context, teamID, captainID, memberID int) (*models.TeamMember, error) {
	team, err := s.getCaptained(ctx, teamID, captainID)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storageErr(err)
	}

	member := &models.TeamMember{TeamID: team.ID, UserID: memberID}
	if err := s.rosterRepo.Add(ctx, nil, member); err != nil {
		if errors.Is(err, repositories.ErrRosterConflict) {
			return nil, ErrMemberAlreadyOnRoster
		}
		return nil, storageErr(err)
	}
	member.User = user
	return member, nil
}

func (s *teamService) RemoveMember(ctx context.Context, teamID, captainID, memberID int) error {
	team, err := s.getCaptained(ctx, teamID, captainID)
	if err != nil {
		return err
	}
	if memberID == team.CaptainID {
		return ErrCannotRemoveCaptain
	}

	if err := s.rosterRepo.Remove(ctx, nil, team.ID, memberID); err != nil {
		if errors.Is(err, repositories.ErrRosterEntryNotFound) {
			return ErrMemberNotOnRoster
		}
		return storageErr(err)
	}
	return nil
}

func (s *teamService) UploadLogo(ctx context.Context, teamID, userID int, contentType string, file io.Reader) (*models.Team, error) {
	team, err := s.getCaptained(ctx, teamID, userID)
	if err != nil {
		return nil, err
	}

	ext, err := storage.ExtensionForContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("teams/%d/logo%s", team.ID, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload team logo: %w", err)
	}

	if err := s.teamRepo.UpdateLogoKey(ctx, team.ID, &key); err != nil {
		return nil, storageErr(err)
	}
	team.LogoKey = &key
	populateTeamLogoURL(team, s.uploader)
	return team, nil
}

// getCaptained загружает команду и проверяет, что действие выполняет её капитан.
func (s *teamService) getCaptained(ctx context.Context, teamID, userID int) (*models.Team, error) {
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
	return team, nil
}

func (s *teamService) loadMembers(ctx context.Context, team *models.Team) error {
	entries, err := s.rosterRepo.ListByTeam(ctx, team.ID)
	if err != nil {
		return storageErr(err)
	}
	members := make([]models.User, 0, len(entries))
	for _, entry := range entries {
		if entry.User != nil {
			members = append(members, *entry.User)
		}
	}
	team.Members = members
	return nil
}
