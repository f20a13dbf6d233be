package models

// Standing is one row of a tournament's ranked table. Standings are derived
// from completed matches on demand and are not persisted authoritatively.
type Standing struct {
	Rank          int   `json:"rank"`
	TeamID        int   `json:"team_id"`
	Seed          int   `json:"seed"`
	Points        int   `json:"points"`
	Wins          int   `json:"wins"`
	Losses        int   `json:"losses"`
	Draws         int   `json:"draws"`
	MatchesPlayed int   `json:"matches_played"`
	Team          *Team `json:"team,omitempty"`
}
