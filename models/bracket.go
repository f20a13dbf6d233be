package models

import "time"

// Bracket is the match topology of a single tournament. It is created once
// and mutated in place as results arrive; regeneration replaces it wholesale
// and is only allowed before the tournament starts.
type Bracket struct {
	ID           int              `json:"id" db:"id"`
	TournamentID int              `json:"tournament_id" db:"tournament_id"`
	Format       TournamentFormat `json:"format" db:"format"`
	Rounds       int              `json:"rounds" db:"rounds"`
	GeneratedAt  time.Time        `json:"generated_at" db:"generated_at"`

	Matches []Match       `json:"matches,omitempty" db:"-"`
	Teams   map[int]*Team `json:"teams,omitempty" db:"-"`
}
