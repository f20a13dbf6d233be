package models

import "time"

// TeamMember is a single roster entry linking a user to a team. The captain
// holds an entry like everyone else; captaincy itself lives on the team row.
type TeamMember struct {
	ID        int       `json:"id" db:"id"`
	TeamID    int       `json:"team_id" db:"team_id"`
	UserID    int       `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
}
