package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterTeamIsReady(t *testing.T) {
	team := RegisterTeam{
		Name:      "The Sharks",
		PlayerIDs: []int{1, 2},
		Players:   []string{"alice", "bob"},
		Activated: []bool{true, false},
	}
	assert.False(t, team.IsReady(2), "pending consent")

	team.Activated[1] = true
	assert.True(t, team.IsReady(2))
	assert.False(t, team.IsReady(3), "undersized")
}

func TestRegisterTeamRemovePlayerAtKeepsAlignment(t *testing.T) {
	team := RegisterTeam{
		PlayerIDs: []int{1, 2, 3},
		Players:   []string{"alice", "bob", "carol"},
		Activated: []bool{true, false, true},
	}
	team.RemovePlayerAt(1)
	assert.Equal(t, []int{1, 3}, team.PlayerIDs)
	assert.Equal(t, []string{"alice", "carol"}, team.Players)
	assert.Equal(t, []bool{true, true}, team.Activated)
}

func TestTournamentHasPlayerChecksBothPhases(t *testing.T) {
	tournament := Tournament{
		RegisterTeams: []RegisterTeam{{Name: "Forming", PlayerIDs: []int{1}}},
		Teams:         []Team{{Name: "Final", PlayerIDs: []int{2}}},
	}
	assert.True(t, tournament.HasPlayer(1))
	assert.True(t, tournament.HasPlayer(2))
	assert.False(t, tournament.HasPlayer(3))
}

func TestTournamentStatusPredicates(t *testing.T) {
	tournament := Tournament{Status: StatusSignUpWaiting}
	assert.True(t, tournament.SignUpOpen())
	assert.False(t, tournament.Terminal())

	tournament.Status = StatusRunning
	assert.False(t, tournament.SignUpOpen())
	assert.False(t, tournament.Terminal())

	tournament.Status = StatusAborted
	assert.True(t, tournament.Terminal())
	tournament.Status = StatusEnded
	assert.True(t, tournament.Terminal())
}

func TestReadyTeamCount(t *testing.T) {
	tournament := Tournament{
		PlayersPerTeam: 2,
		RegisterTeams: []RegisterTeam{
			{PlayerIDs: []int{1, 2}, Activated: []bool{true, true}},
			{PlayerIDs: []int{3}, Activated: []bool{true}},
			{PlayerIDs: []int{4, 5}, Activated: []bool{true, false}},
		},
	}
	assert.Equal(t, 1, tournament.ReadyTeamCount())
}
