package models

import "time"

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchLive      MatchStatus = "live"
	MatchCompleted MatchStatus = "completed"
	MatchCancelled MatchStatus = "cancelled"
)

// BracketBranch tags which side of a double-elimination bracket a match
// belongs to. Single-elimination and round-robin matches are all winners-side.
type BracketBranch string

const (
	BranchWinners    BracketBranch = "winners"
	BranchLosers     BracketBranch = "losers"
	BranchGrandFinal BracketBranch = "grand_final"
)

// Match is one node of a bracket. Team slots may be nil until upstream
// results arrive. WinnerNextUID/LoserNextUID carry the precomputed
// destination of the winner (and, for double elimination, the loser) so that
// advancement is plain slot arithmetic rather than a topology search.
type Match struct {
	ID           int           `json:"id" db:"id"`
	BracketID    int           `json:"bracket_id" db:"bracket_id"`
	TournamentID int           `json:"tournament_id" db:"tournament_id"`
	UID          string        `json:"uid" db:"uid"`
	Round        int           `json:"round" db:"round"`
	Branch       BracketBranch `json:"branch" db:"branch"`
	OrderInRound int           `json:"order_in_round" db:"order_in_round"`

	Slot1TeamID *int `json:"slot1_team_id" db:"slot1_team_id"`
	Slot2TeamID *int `json:"slot2_team_id" db:"slot2_team_id"`

	Status       MatchStatus `json:"status" db:"status"`
	WinnerTeamID *int        `json:"winner_team_id,omitempty" db:"winner_team_id"`
	Score1       int         `json:"score1" db:"score1"`
	Score2       int         `json:"score2" db:"score2"`
	IsDraw       bool        `json:"is_draw,omitempty" db:"is_draw"`

	WinnerNextUID  *string `json:"winner_next_uid,omitempty" db:"winner_next_uid"`
	WinnerNextSlot *int    `json:"winner_next_slot,omitempty" db:"winner_next_slot"`
	LoserNextUID   *string `json:"loser_next_uid,omitempty" db:"loser_next_uid"`
	LoserNextSlot  *int    `json:"loser_next_slot,omitempty" db:"loser_next_slot"`

	// IsBye marks a permanently one-sided match: the single live slot wins by
	// walkover as soon as it is filled.
	IsBye bool `json:"is_bye,omitempty" db:"is_bye"`

	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CompletedBy *int       `json:"completed_by,omitempty" db:"completed_by"`
}

// HasTeam reports whether teamID occupies one of the match's slots.
func (m *Match) HasTeam(teamID int) bool {
	if m.Slot1TeamID != nil && *m.Slot1TeamID == teamID {
		return true
	}
	if m.Slot2TeamID != nil && *m.Slot2TeamID == teamID {
		return true
	}
	return false
}

// LoserTeamID returns the non-winning slot of a completed match, or nil for
// draws and byes.
func (m *Match) LoserTeamID() *int {
	if m.WinnerTeamID == nil {
		return nil
	}
	if m.Slot1TeamID != nil && *m.Slot1TeamID != *m.WinnerTeamID {
		return m.Slot1TeamID
	}
	if m.Slot2TeamID != nil && *m.Slot2TeamID != *m.WinnerTeamID {
		return m.Slot2TeamID
	}
	return nil
}
