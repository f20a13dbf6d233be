package brackets

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracketlab/esports-server/models"
)

func TestRoundRobinPairsEveryoneOnce(t *testing.T) {
	gen := NewRoundRobinGenerator()
	for n := 2; n <= 8; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			bp, err := gen.Generate(teamIDs(n))
			require.NoError(t, err)
			require.Len(t, bp.Matches, n*(n-1)/2)

			seen := make(map[[2]int]bool)
			for _, m := range bp.Matches {
				require.NotNil(t, m.Slot1TeamID)
				require.NotNil(t, m.Slot2TeamID)
				assert.NotEqual(t, *m.Slot1TeamID, *m.Slot2TeamID)

				pair := [2]int{*m.Slot1TeamID, *m.Slot2TeamID}
				if pair[0] > pair[1] {
					pair[0], pair[1] = pair[1], pair[0]
				}
				assert.False(t, seen[pair], "pair %v scheduled twice", pair)
				seen[pair] = true

				assert.Equal(t, models.MatchPending, m.Status)
				assert.Nil(t, m.WinnerNextUID, "round robin has no advancement")
				assert.Nil(t, m.LoserNextUID)
			}
		})
	}
}

func TestRoundRobinUIDs(t *testing.T) {
	bp, err := NewRoundRobinGenerator().Generate([]int{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, bp.Matches, 3)
	assert.Equal(t, "RR-M1", bp.Matches[0].UID)
	assert.Equal(t, "RR-M2", bp.Matches[1].UID)
	assert.Equal(t, "RR-M3", bp.Matches[2].UID)
	assert.Equal(t, 1, bp.Rounds)
}

func TestRoundRobinTooFewTeams(t *testing.T) {
	_, err := NewRoundRobinGenerator().Generate([]int{9})
	assert.ErrorIs(t, err, ErrInsufficientParticipants)
}
