package brackets

import (
	"fmt"

	"github.com/bracketlab/esports-server/models"
)

// RoundRobinGenerator schedules every unordered pair of participants exactly
// once: N*(N-1)/2 matches in i<j insertion order. There is no elimination
// structure, so every match conceptually belongs to round 1 and nothing
// propagates downstream.
type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() *RoundRobinGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) Format() models.TournamentFormat {
	return models.FormatRoundRobin
}

func (g *RoundRobinGenerator) Generate(teamIDs []int) (*Blueprint, error) {
	n := len(teamIDs)
	if n < 2 {
		return nil, ErrInsufficientParticipants
	}

	matches := make([]*models.Match, 0, n*(n-1)/2)
	order := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			order++
			matches = append(matches, &models.Match{
				UID:          fmt.Sprintf("RR-M%d", order),
				Round:        1,
				Branch:       models.BranchWinners,
				OrderInRound: order,
				Slot1TeamID:  intPtr(teamIDs[i]),
				Slot2TeamID:  intPtr(teamIDs[j]),
				Status:       models.MatchPending,
			})
		}
	}

	return &Blueprint{
		Format:  models.FormatRoundRobin,
		Rounds:  1,
		Matches: matches,
	}, nil
}
