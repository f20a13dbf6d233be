package brackets

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracketlab/esports-server/models"
)

func teamIDs(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = 100 + i
	}
	return ids
}

func matchByUID(t *testing.T, matches []*models.Match, uid string) *models.Match {
	t.Helper()
	for _, m := range matches {
		if m.UID == uid {
			return m
		}
	}
	t.Fatalf("match %s not found", uid)
	return nil
}

func TestSingleEliminationMatchCount(t *testing.T) {
	gen := NewSingleEliminationGenerator()
	for n := 2; n <= 16; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			bp, err := gen.Generate(teamIDs(n))
			require.NoError(t, err)
			assert.Len(t, bp.Matches, n-1, "elimination over n teams needs n-1 matches")
			assert.Equal(t, models.FormatSingleElimination, bp.Format)
		})
	}
}

func TestSingleEliminationFourTeams(t *testing.T) {
	bp, err := NewSingleEliminationGenerator().Generate([]int{1, 2, 3, 4})
	require.NoError(t, err)
	require.Len(t, bp.Matches, 3)
	assert.Equal(t, 2, bp.Rounds)

	m1 := matchByUID(t, bp.Matches, "W-R1M1")
	require.NotNil(t, m1.Slot1TeamID)
	require.NotNil(t, m1.Slot2TeamID)
	assert.Equal(t, 1, *m1.Slot1TeamID)
	assert.Equal(t, 2, *m1.Slot2TeamID)
	require.NotNil(t, m1.WinnerNextUID)
	assert.Equal(t, "W-R2M1", *m1.WinnerNextUID)
	assert.Equal(t, 1, *m1.WinnerNextSlot)

	m2 := matchByUID(t, bp.Matches, "W-R1M2")
	assert.Equal(t, 3, *m2.Slot1TeamID)
	assert.Equal(t, 4, *m2.Slot2TeamID)
	assert.Equal(t, "W-R2M1", *m2.WinnerNextUID)
	assert.Equal(t, 2, *m2.WinnerNextSlot)

	final := matchByUID(t, bp.Matches, "W-R2M1")
	assert.Nil(t, final.WinnerNextUID, "the final has no downstream match")
	assert.Nil(t, final.Slot1TeamID)
	assert.Nil(t, final.Slot2TeamID)
}

func TestSingleEliminationByes(t *testing.T) {
	// Five teams pad to a bracket of eight: one real first-round match, the
	// three tail seeds skip straight into the semifinal slots.
	bp, err := NewSingleEliminationGenerator().Generate([]int{1, 2, 3, 4, 5})
	require.NoError(t, err)
	require.Len(t, bp.Matches, 4)
	assert.Equal(t, 3, bp.Rounds)

	m1 := matchByUID(t, bp.Matches, "W-R1M1")
	assert.Equal(t, 1, *m1.Slot1TeamID)
	assert.Equal(t, 2, *m1.Slot2TeamID)
	assert.Equal(t, "W-R2M1", *m1.WinnerNextUID)
	assert.Equal(t, 1, *m1.WinnerNextSlot)

	semi1 := matchByUID(t, bp.Matches, "W-R2M1")
	assert.Nil(t, semi1.Slot1TeamID, "slot reserved for the round-1 winner")
	require.NotNil(t, semi1.Slot2TeamID)
	assert.Equal(t, 3, *semi1.Slot2TeamID)

	semi2 := matchByUID(t, bp.Matches, "W-R2M2")
	require.NotNil(t, semi2.Slot1TeamID)
	require.NotNil(t, semi2.Slot2TeamID)
	assert.Equal(t, 4, *semi2.Slot1TeamID)
	assert.Equal(t, 5, *semi2.Slot2TeamID)

	final := matchByUID(t, bp.Matches, "W-R3M1")
	assert.Nil(t, final.WinnerNextUID)
}

func TestSingleEliminationTooFewTeams(t *testing.T) {
	gen := NewSingleEliminationGenerator()
	for _, ids := range [][]int{nil, {}, {42}} {
		_, err := gen.Generate(ids)
		assert.ErrorIs(t, err, ErrInsufficientParticipants)
	}
}

func TestForFormat(t *testing.T) {
	for _, format := range []models.TournamentFormat{
		models.FormatSingleElimination,
		models.FormatDoubleElimination,
		models.FormatRoundRobin,
	} {
		gen, err := ForFormat(format)
		require.NoError(t, err)
		assert.Equal(t, format, gen.Format())
	}

	_, err := ForFormat(models.FormatSwiss)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = ForFormat("ladder")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
