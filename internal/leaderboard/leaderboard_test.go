package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teamIDs(s []Standing) []int64 {
	ids := make([]int64, 0, len(s))
	for _, st := range s {
		ids = append(ids, st.TeamID)
	}
	return ids
}

func TestCompute_TiesBrokenByTeamID(t *testing.T) {
	points := map[int64]int{3: 5, 2: 10, 1: 10}
	names := map[int64]string{1: "A", 2: "B", 3: "C"}

	got := Compute(points, names)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 2, 3}, teamIDs(got))
	assert.Equal(t, Standing{Position: 1, TeamID: 1, TeamName: "A", Points: 10}, got[0])
	assert.Equal(t, 3, got[2].Position)
}

func TestCompute_Deterministic(t *testing.T) {
	points := map[int64]int{9: 1, 4: 7, 6: 7, 2: 0, 8: 7}
	names := map[int64]string{}

	first := Compute(points, names)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Compute(points, names))
	}
	assert.Equal(t, []int64{4, 6, 8, 9, 2}, teamIDs(first))
}

func TestCompute_NegativeAndEmpty(t *testing.T) {
	assert.Empty(t, Compute(nil, nil))

	got := Compute(map[int64]int{1: -4, 2: 0}, map[int64]string{1: "Minus"})
	assert.Equal(t, []int64{2, 1}, teamIDs(got))
	assert.Equal(t, "Minus", got[1].TeamName)
}
