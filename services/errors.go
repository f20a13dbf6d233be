package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден
	ErrNotFound           = errors.New("requested resource not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrBracketNotFound    = errors.New("bracket has not been generated for this tournament")

	// Состав команды
	ErrMemberAlreadyOnRoster = errors.New("user is already a member of this team")
	ErrMemberNotOnRoster     = errors.New("user is not a member of this team")
	ErrCannotRemoveCaptain   = errors.New("team captain cannot be removed from the roster")

	// Регистрация на турнир
	ErrRegistrationDeadlinePassed = errors.New("tournament registration deadline has passed")
	ErrTournamentFull             = errors.New("tournament registration is full")
	ErrRegistrationConflict       = errors.New("team is already registered for this tournament")
	ErrRegistrationNotFound       = errors.New("registration not found")
	ErrRequirementsNotMet         = errors.New("team does not meet the tournament requirements")
	ErrUserMustBeCaptain          = errors.New("only the team captain can perform this action")

	// Сетка и матчи
	ErrNotEnoughParticipants = errors.New("not enough participants (minimum 2 required)")
	ErrInvalidFormat         = errors.New("tournament format does not support bracket generation")
	ErrMatchAlreadyCompleted = errors.New("match is already completed")
	ErrMatchCancelled        = errors.New("match has been cancelled")
	ErrInvalidWinner         = errors.New("winner must be one of the match participants")
	ErrInvalidScore          = errors.New("scores are inconsistent with the reported winner")
	ErrDrawNotAllowed        = errors.New("draws are only allowed in round robin tournaments")

	// Состояние турнира
	ErrTournamentStarted           = errors.New("tournament has already started")
	ErrTournamentNotOngoing        = errors.New("tournament is not ongoing")
	ErrTournamentInvalidStatus     = errors.New("invalid tournament status provided")
	ErrTournamentInvalidTransition = errors.New("invalid tournament status transition")

	// Валидация
	ErrValidationFailed           = errors.New("validation failed")
	ErrTournamentNameRequired     = errors.New("tournament name is required")
	ErrTournamentInvalidCapacity  = errors.New("tournament participant bounds are invalid")
	ErrTournamentInvalidDateRange = errors.New("tournament dates are inconsistent")
	ErrTeamNameRequired           = errors.New("team name is required")
	ErrPasswordTooShort           = errors.New("password is too short")

	// Аутентификация и авторизация
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email address is already in use")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// Конфликты
	ErrTeamNameConflict       = errors.New("team name is already in use")
	ErrTournamentNameConflict = errors.New("tournament name already exists")

	// Инфраструктура: персистентность недоступна, оригинальная ошибка
	// оборачивается через %w и логируется на границе.
	ErrStorageUnavailable = errors.New("storage is temporarily unavailable")
)
