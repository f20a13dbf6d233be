package models

import "time"

// TournamentFormat matches the format ENUM in the DB.
type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single_elimination"
	FormatDoubleElimination TournamentFormat = "double_elimination"
	FormatRoundRobin        TournamentFormat = "round_robin"
	FormatSwiss             TournamentFormat = "swiss"
)

func (f TournamentFormat) Valid() bool {
	switch f {
	case FormatSingleElimination, FormatDoubleElimination, FormatRoundRobin, FormatSwiss:
		return true
	}
	return false
}

type TournamentStatus string

const (
	TournamentUpcoming  TournamentStatus = "upcoming"
	TournamentOngoing   TournamentStatus = "ongoing"
	TournamentPaused    TournamentStatus = "paused"
	TournamentCompleted TournamentStatus = "completed"
	TournamentCancelled TournamentStatus = "cancelled"
)

// ValidTournamentTransition reports whether a status change is allowed.
// Transitions are monotonic except ongoing <-> paused.
func ValidTournamentTransition(current, next TournamentStatus) bool {
	if current == next {
		return true
	}
	allowed := map[TournamentStatus][]TournamentStatus{
		TournamentUpcoming:  {TournamentOngoing, TournamentCancelled},
		TournamentOngoing:   {TournamentPaused, TournamentCompleted, TournamentCancelled},
		TournamentPaused:    {TournamentOngoing, TournamentCancelled},
		TournamentCompleted: {},
		TournamentCancelled: {},
	}
	for _, s := range allowed[current] {
		if s == next {
			return true
		}
	}
	return false
}

// TeamRequirements are eligibility constraints a team must satisfy to enter a
// tournament. A zero value means the constraint is not enforced.
type TeamRequirements struct {
	MinRank    int    `json:"min_rank,omitempty"`
	MinMatches int    `json:"min_matches,omitempty"`
	Region     string `json:"region,omitempty"`
}

type Tournament struct {
	ID                   int              `json:"id" db:"id"`
	Name                 string           `json:"name" db:"name"`
	Description          *string          `json:"description,omitempty" db:"description"`
	Game                 string           `json:"game" db:"game"`
	Format               TournamentFormat `json:"format" db:"format"`
	Status               TournamentStatus `json:"status" db:"status"`
	OrganizerID          int              `json:"organizer_id" db:"organizer_id"`
	MinParticipants      int              `json:"min_participants" db:"min_participants"`
	MaxParticipants      int              `json:"max_participants" db:"max_participants"`
	ParticipantCount     int              `json:"participant_count" db:"participant_count"`
	RegistrationDeadline time.Time        `json:"registration_deadline" db:"registration_deadline"`
	StartDate            time.Time        `json:"start_date" db:"start_date"`
	EndDate              time.Time        `json:"end_date" db:"end_date"`
	Requirements         TeamRequirements `json:"requirements" db:"-"`
	WinnerTeamID         *int             `json:"winner_team_id,omitempty" db:"winner_team_id"`
	CancellationReason   *string          `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`

	BannerKey *string `json:"-" db:"banner_key"`
	BannerURL *string `json:"banner_url,omitempty" db:"-"`

	Organizer     *User          `json:"organizer,omitempty" db:"-"`
	Registrations []Registration `json:"registrations,omitempty" db:"-"`
	Bracket       *Bracket       `json:"bracket,omitempty" db:"-"`
}

// Started reports whether the bracket is locked in: once a tournament leaves
// the upcoming state its participant list and bracket are immutable.
func (t *Tournament) Started() bool {
	return t.Status != TournamentUpcoming
}
