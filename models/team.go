package models

import "time"

// TeamStats holds the aggregate record a team carries across tournaments.
// Tournament requirements (minimum rank, minimum matches played) are checked
// against these values at registration time.
type TeamStats struct {
	Ranking       int `json:"ranking" db:"ranking"`
	MatchesPlayed int `json:"matches_played" db:"matches_played"`
	Wins          int `json:"wins" db:"wins"`
	Losses        int `json:"losses" db:"losses"`
	Points        int `json:"points" db:"points"`
}

type Team struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Tag       string    `json:"tag" db:"tag"`
	CaptainID int       `json:"captain_id" db:"captain_id"`
	Region    string    `json:"region" db:"region"`
	Stats     TeamStats `json:"stats" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	LogoKey *string `json:"-" db:"logo_key"`
	LogoURL *string `json:"logo_url,omitempty" db:"-"`

	Captain *User  `json:"captain,omitempty" db:"-"`
	Members []User `json:"members,omitempty" db:"-"`
}
