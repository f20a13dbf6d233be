package brackets

import (
	"math"

	"github.com/bracketlab/esports-server/models"
)

// DoubleEliminationGenerator builds a winners bracket (same layout as single
// elimination), a losers bracket sized to absorb one drop per winners round,
// and a single grand final. No bracket reset: the grand final decides the
// tournament regardless of which side its winner came from.
//
// Drop schedule, with R winners rounds over bracket size 2^R:
//   - losers rounds come in minor/major pairs, 2(R-1) in total;
//   - winners round 1 losers pair up into losers round 1:
//     loser of W-R1M{i} -> L-R1M{ceil(i/2)}, slot ((i-1)%2)+1;
//   - the loser of winners round r >= 2 match i drops into the major round
//     L-R{2(r-1)}M{i}, slot 2, whose slot 1 holds the preceding minor
//     round's winner;
//   - minor round L-R{2s-1}M{j} (s >= 2) pairs the winners of major round
//     L-R{2s-2} matches 2j-1 and 2j;
//   - the last major round's winner fills the grand final's second slot.
//
// Winners-bracket byes leave holes in the drop schedule: a losers match with
// exactly one live feeder is marked as a bye and resolves by walkover when
// its team arrives; a losers match with no live feeders is omitted entirely,
// which in turn makes its destination slot dead.
type DoubleEliminationGenerator struct{}

func NewDoubleEliminationGenerator() *DoubleEliminationGenerator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) Format() models.TournamentFormat {
	return models.FormatDoubleElimination
}

func (g *DoubleEliminationGenerator) Generate(teamIDs []int) (*Blueprint, error) {
	n := len(teamIDs)
	if n < 2 {
		return nil, ErrInsufficientParticipants
	}

	wbRounds := int(math.Ceil(math.Log2(float64(n))))
	size := 1 << uint(wbRounds)
	half := size / 2
	playCount := n - half // real winners round-1 matches
	lbRounds := 2 * (wbRounds - 1)

	gfRound := wbRounds + 1
	if lbRounds+1 > gfRound {
		gfRound = lbRounds + 1
	}

	grandFinal := &models.Match{
		UID:          GrandFinalUID,
		Round:        gfRound,
		Branch:       models.BranchGrandFinal,
		OrderInRound: 1,
		Status:       models.MatchPending,
	}

	wbMatches, _, err := buildWinnersBracket(teamIDs, &slotRef{uid: GrandFinalUID, slot: 1})
	if err != nil {
		return nil, err
	}

	// Wire the winners-bracket drops. The winners final drops straight into
	// the grand final when there is no losers bracket (two-team field).
	wbByUID := make(map[string]*models.Match, len(wbMatches))
	for _, m := range wbMatches {
		wbByUID[m.UID] = m
	}
	for _, m := range wbMatches {
		switch {
		case lbRounds == 0:
			m.LoserNextUID = strPtr(GrandFinalUID)
			m.LoserNextSlot = intPtr(2)
		case m.Round == 1:
			m.LoserNextUID = strPtr(losersUID(1, (m.OrderInRound-1)/2+1))
			m.LoserNextSlot = intPtr((m.OrderInRound-1)%2 + 1)
		case m.Round == wbRounds:
			m.LoserNextUID = strPtr(losersUID(lbRounds, 1))
			m.LoserNextSlot = intPtr(2)
		default:
			m.LoserNextUID = strPtr(losersUID(2*(m.Round-1), m.OrderInRound))
			m.LoserNextSlot = intPtr(2)
		}
	}

	lbMatches := buildLosersBracket(wbRounds, size, playCount)

	matches := make([]*models.Match, 0, len(wbMatches)+len(lbMatches)+1)
	matches = append(matches, wbMatches...)
	matches = append(matches, lbMatches...)
	matches = append(matches, grandFinal)

	return &Blueprint{
		Format:  models.FormatDoubleElimination,
		Rounds:  gfRound,
		Matches: matches,
	}, nil
}

// lbSource identifies what feeds one slot of a losers-bracket match.
type lbSource struct {
	fromWinnersRound int // loser drop from this winners round, 0 if none
	fromWinnersMatch int
	fromLosersRound  int // winner of this losers match, 0 if none
	fromLosersMatch  int
}

func buildLosersBracket(wbRounds, size, playCount int) []*models.Match {
	lbRounds := 2 * (wbRounds - 1)
	if lbRounds == 0 {
		return nil
	}

	// alive tracks which losers matches were actually created, keyed by
	// (round, order). A feeder that was dropped produces no team.
	alive := make(map[[2]int]bool)

	var matches []*models.Match

	for l := 1; l <= lbRounds; l++ {
		stage := (l + 1) / 2 // minor/major pair index
		count := size >> uint(stage+1)

		for j := 1; j <= count; j++ {
			var src1, src2 lbSource
			if l == 1 {
				src1 = lbSource{fromWinnersRound: 1, fromWinnersMatch: 2*j - 1}
				src2 = lbSource{fromWinnersRound: 1, fromWinnersMatch: 2 * j}
			} else if l%2 == 0 { // major: minor winner vs fresh drop
				src1 = lbSource{fromLosersRound: l - 1, fromLosersMatch: j}
				src2 = lbSource{fromWinnersRound: stage + 1, fromWinnersMatch: j}
			} else { // minor: previous major winners paired
				src1 = lbSource{fromLosersRound: l - 1, fromLosersMatch: 2*j - 1}
				src2 = lbSource{fromLosersRound: l - 1, fromLosersMatch: 2 * j}
			}

			live := 0
			if sourceAlive(src1, playCount, alive) {
				live++
			}
			if sourceAlive(src2, playCount, alive) {
				live++
			}
			if live == 0 {
				continue // nothing can ever reach this match
			}

			m := &models.Match{
				UID:          losersUID(l, j),
				Round:        l,
				Branch:       models.BranchLosers,
				OrderInRound: j,
				Status:       models.MatchPending,
				IsBye:        live == 1,
			}

			if l == lbRounds {
				m.WinnerNextUID = strPtr(GrandFinalUID)
				m.WinnerNextSlot = intPtr(2)
			} else if l%2 == 1 { // minor -> same index in the next major
				m.WinnerNextUID = strPtr(losersUID(l+1, j))
				m.WinnerNextSlot = intPtr(1)
			} else { // major -> paired into the next minor
				m.WinnerNextUID = strPtr(losersUID(l+1, (j-1)/2+1))
				m.WinnerNextSlot = intPtr((j-1)%2 + 1)
			}

			alive[[2]int{l, j}] = true
			matches = append(matches, m)
		}
	}

	return matches
}

// sourceAlive reports whether a losers-bracket slot can ever receive a team.
// Winners round 1 only produces a loser from its real (non-bye) matches;
// later winners rounds always play. A losers-bracket feeder must itself have
// been created.
func sourceAlive(src lbSource, playCount int, alive map[[2]int]bool) bool {
	if src.fromWinnersRound == 1 {
		return src.fromWinnersMatch <= playCount
	}
	if src.fromWinnersRound > 1 {
		return true
	}
	return alive[[2]int{src.fromLosersRound, src.fromLosersMatch}]
}
