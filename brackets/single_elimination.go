package brackets

import (
	"math"

	"github.com/bracketlab/esports-server/models"
)

// SingleEliminationGenerator pairs participants in seed order, two at a
// time. When the field is not a power of two, the tail seeds receive a bye
// and are written straight into their second-round slot at generation time;
// no match row is created for a bye.
type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() *SingleEliminationGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Format() models.TournamentFormat {
	return models.FormatSingleElimination
}

func (g *SingleEliminationGenerator) Generate(teamIDs []int) (*Blueprint, error) {
	matches, rounds, err := buildWinnersBracket(teamIDs, nil)
	if err != nil {
		return nil, err
	}
	return &Blueprint{
		Format:  models.FormatSingleElimination,
		Rounds:  rounds,
		Matches: matches,
	}, nil
}

// buildWinnersBracket constructs a full elimination tree over the padded
// bracket size. finalNext, when set, links the winner of the last round
// onward (used by double elimination to feed the grand final).
//
// Layout: with n teams and bracket size 2^rounds, round 1 has size/2
// positions; the first n-size/2 positions are real matches pairing seeds in
// input order, and the remaining size-n tail seeds occupy bye positions that
// feed round 2 directly.
func buildWinnersBracket(teamIDs []int, finalNext *slotRef) ([]*models.Match, int, error) {
	n := len(teamIDs)
	if n < 2 {
		return nil, 0, ErrInsufficientParticipants
	}

	rounds := int(math.Ceil(math.Log2(float64(n))))
	size := 1 << uint(rounds)
	half := size / 2

	// Number of real round-1 matches; positions beyond them are byes.
	playCount := n - half

	var matches []*models.Match

	link := func(m *models.Match, round, order int) {
		if round < rounds {
			m.WinnerNextUID = strPtr(winnersUID(round+1, (order-1)/2+1))
			m.WinnerNextSlot = intPtr((order-1)%2 + 1)
		} else if finalNext != nil {
			m.WinnerNextUID = strPtr(finalNext.uid)
			m.WinnerNextSlot = intPtr(finalNext.slot)
		}
	}

	for i := 0; i < playCount; i++ {
		m := &models.Match{
			UID:          winnersUID(1, i+1),
			Round:        1,
			Branch:       models.BranchWinners,
			OrderInRound: i + 1,
			Slot1TeamID:  intPtr(teamIDs[2*i]),
			Slot2TeamID:  intPtr(teamIDs[2*i+1]),
			Status:       models.MatchPending,
		}
		link(m, 1, i+1)
		matches = append(matches, m)
	}

	// Seed the later rounds: empty stubs first, then drop the bye teams into
	// their round-2 slots.
	byRoundOrder := make(map[string]*models.Match)
	for r := 2; r <= rounds; r++ {
		count := size >> uint(r)
		for j := 1; j <= count; j++ {
			m := &models.Match{
				UID:          winnersUID(r, j),
				Round:        r,
				Branch:       models.BranchWinners,
				OrderInRound: j,
				Status:       models.MatchPending,
			}
			link(m, r, j)
			matches = append(matches, m)
			byRoundOrder[m.UID] = m
		}
	}

	for k := 0; k < size-n; k++ {
		pos := playCount + k // zero-based round-1 position of this bye
		dest := byRoundOrder[winnersUID(2, pos/2+1)]
		teamID := teamIDs[2*playCount+k]
		if pos%2 == 0 {
			dest.Slot1TeamID = intPtr(teamID)
		} else {
			dest.Slot2TeamID = intPtr(teamID)
		}
	}

	return matches, rounds, nil
}

type slotRef struct {
	uid  string
	slot int
}
