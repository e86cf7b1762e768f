package brackets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkluge/tournament-server/models"
)

func dates(n int) []time.Time {
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.Add(time.Duration(i) * time.Hour)
	}
	return out
}

func TestSlotCounts(t *testing.T) {
	tests := []struct {
		name          string
		teamCount     int
		teamsPerMatch int
		want          []int
	}{
		{"two teams head to head", 2, 2, []int{1}},
		{"four teams pairwise", 4, 2, []int{2, 1}},
		{"five teams pairwise", 5, 2, []int{3, 2, 1}},
		{"six teams pairwise", 6, 2, []int{3, 2, 1}},
		{"eight teams pairwise", 8, 2, []int{4, 2, 1}},
		{"three teams three-way", 3, 3, []int{1}},
		{"four teams three-way", 4, 3, []int{2, 1}},
		{"nine teams three-way", 9, 3, []int{3, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SlotCounts(tt.teamCount, tt.teamsPerMatch))
		})
	}
}

func TestTotalSlots(t *testing.T) {
	assert.Equal(t, 1, TotalSlots(2, 2))
	assert.Equal(t, 3, TotalSlots(4, 2))
	assert.Equal(t, 6, TotalSlots(5, 2))
	assert.Equal(t, 7, TotalSlots(8, 2))
	assert.Equal(t, 4, TotalSlots(9, 3))
}

func TestBuildValidation(t *testing.T) {
	_, err := Build(1, 2, dates(1))
	assert.ErrorIs(t, err, ErrNotEnoughTeams)

	_, err = Build(4, 4, dates(3))
	assert.ErrorIs(t, err, ErrUnsupportedTeamsPerMatch)

	_, err = Build(4, 2, dates(2))
	assert.ErrorIs(t, err, ErrCreationDatesMismatch)
}

func TestBuildFourTeams(t *testing.T) {
	ds := dates(3)
	bracket, err := Build(4, 2, ds)
	require.NoError(t, err)
	require.Len(t, bracket, 2)

	require.Len(t, bracket[0], 2)
	assert.Equal(t, []int{0, 1}, bracket[0][0].Teams)
	assert.Equal(t, []int{2, 3}, bracket[0][1].Teams)
	assert.Equal(t, ds[0], bracket[0][0].CreationDate)
	assert.Equal(t, ds[1], bracket[0][1].CreationDate)

	require.Len(t, bracket[1], 1)
	assert.Equal(t, []int{models.Unset, models.Unset}, bracket[1][0].Teams)
	assert.Equal(t, ds[2], bracket[1][0].CreationDate)

	for _, round := range bracket {
		for _, slot := range round {
			assert.Equal(t, models.Unset, slot.GameID)
			assert.Equal(t, models.Unset, slot.Winner)
		}
	}
}

func TestBuildOddTeamCountGivesTopSeedBye(t *testing.T) {
	bracket, err := Build(5, 2, dates(6))
	require.NoError(t, err)
	require.Len(t, bracket, 3)

	// Smaller slots come first, so seed 0 sits alone.
	require.Len(t, bracket[0], 3)
	assert.Equal(t, []int{0}, bracket[0][0].Teams)
	assert.Equal(t, []int{1, 2}, bracket[0][1].Teams)
	assert.Equal(t, []int{3, 4}, bracket[0][2].Teams)

	// The bye is decided at build time and already carried into round 2.
	assert.Equal(t, 0, bracket[0][0].Winner)
	assert.Equal(t, 0, bracket[1][0].Teams[0])
	assert.Equal(t, models.Unset, bracket[1][0].Teams[1])

	// The second slot of round 2 is fed by a single source.
	assert.Equal(t, []int{models.Unset}, bracket[1][1].Teams)
}

func TestBuildThreeWayMatches(t *testing.T) {
	bracket, err := Build(9, 3, dates(4))
	require.NoError(t, err)
	require.Len(t, bracket, 2)

	require.Len(t, bracket[0], 3)
	assert.Equal(t, []int{0, 1, 2}, bracket[0][0].Teams)
	assert.Equal(t, []int{3, 4, 5}, bracket[0][1].Teams)
	assert.Equal(t, []int{6, 7, 8}, bracket[0][2].Teams)

	require.Len(t, bracket[1], 1)
	assert.Len(t, bracket[1][0].Teams, 3)
}

func TestBuildDeterministic(t *testing.T) {
	ds := dates(7)
	first, err := Build(8, 2, ds)
	require.NoError(t, err)
	second, err := Build(8, 2, ds)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildEveryTeamAppearsExactlyOnce(t *testing.T) {
	for _, teamCount := range []int{2, 3, 5, 6, 7, 8, 11} {
		bracket, err := Build(teamCount, 2, dates(TotalSlots(teamCount, 2)))
		require.NoError(t, err)

		seen := map[int]int{}
		for _, slot := range bracket[0] {
			for _, team := range slot.Teams {
				seen[team]++
			}
		}
		require.Len(t, seen, teamCount, "team count %d", teamCount)
		for team, n := range seen {
			assert.Equal(t, 1, n, "team %d appears %d times", team, n)
		}
	}
}
