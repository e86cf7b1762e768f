package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkluge/tournament-server/events"
	"github.com/tkluge/tournament-server/models"
	"github.com/tkluge/tournament-server/repositories"
)

func signupTournament(t *testing.T, repo *fakeTournamentRepo, nTeams, playersPerTeam int) *models.Tournament {
	t.Helper()
	tournament := &models.Tournament{
		Title:          "Spring Cup",
		Status:         models.StatusSignUpWaiting,
		SignupBegin:    time.Now().Add(-time.Hour),
		SignupDeadline: time.Now().Add(time.Hour),
		NTeams:         nTeams,
		PlayersPerTeam: playersPerTeam,
		TeamsPerMatch:  2,
		Type:           models.TournamentTypeKO,
	}
	require.NoError(t, repo.Create(context.Background(), tournament))
	return tournament
}

func newRegistrationFixture(t *testing.T, nTeams, playersPerTeam int, usernames ...string) (RegistrationService, *fakeTournamentRepo, *recordingBus, *models.Tournament) {
	t.Helper()
	repo := newFakeTournamentRepo()
	bus := &recordingBus{}
	svc := NewRegistrationService(repo, newFakeUserRepo(usersNamed(usernames...)...), bus, testLogger())
	tournament := signupTournament(t, repo, nTeams, playersPerTeam)
	return svc, repo, bus, tournament
}

func TestRegisterTeamCreatorIsActivated(t *testing.T) {
	svc, _, bus, tournament := newRegistrationFixture(t, 2, 2, "alice", "bob")

	result, err := svc.RegisterTeam(context.Background(), tournament.ID, "The Sharks", []string{"alice", "bob"}, 1)
	require.NoError(t, err)

	require.Len(t, result.RegisterTeams, 1)
	team := result.RegisterTeams[0]
	assert.Equal(t, "The Sharks", team.Name)
	assert.Equal(t, []int{1, 2}, team.PlayerIDs)
	assert.Equal(t, []string{"alice", "bob"}, team.Players)
	assert.Equal(t, []bool{true, false}, team.Activated)

	invites := bus.byType(events.TypeTeamInvited)
	require.Len(t, invites, 1)
	assert.Equal(t, []int{2}, invites[0].PlayerIDs)
	assert.Equal(t, "The Sharks", invites[0].TeamName)
}

func TestRegisterTeamValidation(t *testing.T) {
	svc, repo, _, tournament := newRegistrationFixture(t, 2, 2, "alice", "bob", "carol")

	_, err := svc.RegisterTeam(context.Background(), tournament.ID, "abc", []string{"alice"}, 1)
	assert.ErrorIs(t, err, ErrInvalidTeamName)

	_, err = svc.RegisterTeam(context.Background(), tournament.ID, "The Sharks", []string{"alice", "bob", "carol"}, 1)
	assert.ErrorIs(t, err, ErrTooManyPlayers)

	// The requester has to be part of their own team.
	_, err = svc.RegisterTeam(context.Background(), tournament.ID, "The Sharks", []string{"bob"}, 1)
	assert.ErrorIs(t, err, ErrPlayerNotInTeam)

	_, err = svc.RegisterTeam(context.Background(), tournament.ID, "The Sharks", []string{"alice", "alice"}, 1)
	assert.ErrorIs(t, err, ErrDuplicatePlayer)

	_, err = svc.RegisterTeam(context.Background(), tournament.ID, "The Sharks", []string{"alice"}, 1)
	require.NoError(t, err)

	_, err = svc.RegisterTeam(context.Background(), tournament.ID, "The Sharks", []string{"bob"}, 2)
	assert.ErrorIs(t, err, ErrDuplicateTeamName)

	_, err = svc.RegisterTeam(context.Background(), tournament.ID, "Sea Otters", []string{"alice"}, 1)
	assert.ErrorIs(t, err, ErrDuplicatePlayer)

	// Closed signup rejects everything.
	stored, _ := repo.GetByID(context.Background(), tournament.ID)
	stored.Status = models.StatusSignUpEnded
	require.NoError(t, repo.Update(context.Background(), stored))
	_, err = svc.RegisterTeam(context.Background(), tournament.ID, "Sea Otters", []string{"carol"}, 3)
	assert.ErrorIs(t, err, ErrSignUpClosed)
}

func TestJoinTeam(t *testing.T) {
	svc, _, _, tournament := newRegistrationFixture(t, 2, 2, "alice", "bob", "carol")

	_, err := svc.RegisterTeam(context.Background(), tournament.ID, "The Sharks", []string{"alice"}, 1)
	require.NoError(t, err)

	result, err := svc.JoinTeam(context.Background(), tournament.ID, "The Sharks", 2)
	require.NoError(t, err)
	team := result.RegisterTeams[0]
	assert.Equal(t, []int{1, 2}, team.PlayerIDs)
	assert.Equal(t, []bool{true, false}, team.Activated)

	_, err = svc.JoinTeam(context.Background(), tournament.ID, "The Sharks", 3)
	assert.ErrorIs(t, err, ErrTeamFull)

	_, err = svc.JoinTeam(context.Background(), tournament.ID, "Nobody", 3)
	assert.ErrorIs(t, err, ErrTeamNotFound)

	_, err = svc.JoinTeam(context.Background(), tournament.ID, "The Sharks", 1)
	assert.ErrorIs(t, err, ErrDuplicatePlayer)
}

func TestRegisterTeamClosesSignupWhenTargetReached(t *testing.T) {
	svc, repo, bus, tournament := newRegistrationFixture(t, 2, 1, "alice", "bob")

	// Single-player teams whose creator registered themselves are ready
	// immediately, so the second registration fills the tournament.
	_, err := svc.RegisterTeam(context.Background(), tournament.ID, "Team Alice", []string{"alice"}, 1)
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSignUpWaiting, stored.Status)

	result, err := svc.RegisterTeam(context.Background(), tournament.ID, "Team Bobby", []string{"bob"}, 2)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSignUpEnded, result.Status)

	admitted := bus.byType(events.TypeSignUpParticipate)
	require.Len(t, admitted, 1)
	assert.ElementsMatch(t, []int{1, 2}, admitted[0].PlayerIDs)
	assert.Empty(t, bus.byType(events.TypeSignUpDropped))
}

func TestActivateDropsUnreadyTeamsAtClosure(t *testing.T) {
	svc, repo, bus, tournament := newRegistrationFixture(t, 2, 2, "alice", "bob", "carol", "dave", "erin")

	_, err := svc.RegisterTeam(context.Background(), tournament.ID, "Team Alpha", []string{"alice", "bob"}, 1)
	require.NoError(t, err)
	_, err = svc.RegisterTeam(context.Background(), tournament.ID, "Team Bravo", []string{"carol", "dave"}, 3)
	require.NoError(t, err)
	_, err = svc.RegisterTeam(context.Background(), tournament.ID, "Team Heron", []string{"erin"}, 5)
	require.NoError(t, err)

	_, err = svc.Activate(context.Background(), tournament.ID, "Team Alpha", 2)
	require.NoError(t, err)
	_, err = svc.Activate(context.Background(), tournament.ID, "Team Bravo", 4)
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSignUpEnded, stored.Status)
	require.Len(t, stored.RegisterTeams, 2)
	assert.Equal(t, "Team Alpha", stored.RegisterTeams[0].Name)
	assert.Equal(t, "Team Bravo", stored.RegisterTeams[1].Name)

	dropped := bus.byType(events.TypeSignUpDropped)
	require.Len(t, dropped, 1)
	assert.Equal(t, []int{5}, dropped[0].PlayerIDs)

	admitted := bus.byType(events.TypeSignUpParticipate)
	require.Len(t, admitted, 1)
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, admitted[0].PlayerIDs)
}

func TestLeaveTournamentRemovesEmptyTeam(t *testing.T) {
	svc, repo, _, tournament := newRegistrationFixture(t, 2, 2, "alice", "bob")

	_, err := svc.RegisterTeam(context.Background(), tournament.ID, "The Sharks", []string{"alice", "bob"}, 1)
	require.NoError(t, err)

	result, _, err := svc.LeaveTournament(context.Background(), tournament.ID, 2)
	require.NoError(t, err)
	require.Len(t, result.RegisterTeams, 1)
	assert.Equal(t, []int{1}, result.RegisterTeams[0].PlayerIDs)

	result, _, err = svc.LeaveTournament(context.Background(), tournament.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, result.RegisterTeams)

	_, _, err = svc.LeaveTournament(context.Background(), tournament.ID, 1)
	assert.ErrorIs(t, err, ErrPlayerNotRegistered)

	stored, err := repo.GetByID(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.RegisterTeams)
}

func TestDeclineRemovesPlayer(t *testing.T) {
	svc, _, _, tournament := newRegistrationFixture(t, 2, 2, "alice", "bob")

	_, err := svc.RegisterTeam(context.Background(), tournament.ID, "The Sharks", []string{"alice", "bob"}, 1)
	require.NoError(t, err)

	result, err := svc.Decline(context.Background(), tournament.ID, "The Sharks", 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, result.RegisterTeams[0].PlayerIDs)

	_, err = svc.Decline(context.Background(), tournament.ID, "The Sharks", 2)
	assert.ErrorIs(t, err, ErrPlayerNotInTeam)
}

func TestRemovePlayerRequiresMembership(t *testing.T) {
	svc, _, _, tournament := newRegistrationFixture(t, 2, 3, "alice", "bob", "carol")

	_, err := svc.RegisterTeam(context.Background(), tournament.ID, "The Sharks", []string{"alice", "bob"}, 1)
	require.NoError(t, err)

	_, err = svc.RemovePlayer(context.Background(), tournament.ID, 3, "bob", "The Sharks")
	assert.ErrorIs(t, err, ErrPlayerNotInTeam)

	result, err := svc.RemovePlayer(context.Background(), tournament.ID, 1, "bob", "The Sharks")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, result.RegisterTeams[0].PlayerIDs)
}

func TestRegistrationSurfacesConcurrentModification(t *testing.T) {
	svc, repo, _, tournament := newRegistrationFixture(t, 2, 2, "alice")

	repo.updateErr = repositories.ErrConcurrentModification
	_, err := svc.RegisterTeam(context.Background(), tournament.ID, "The Sharks", []string{"alice"}, 1)
	assert.ErrorIs(t, err, repositories.ErrConcurrentModification)

	// The write never landed.
	stored, err := repo.GetByID(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.RegisterTeams)
}
