package services

import (
	"context"
	"log/slog"

	"github.com/tkluge/tournament-server/events"
	"github.com/tkluge/tournament-server/models"
	"github.com/tkluge/tournament-server/repositories"
)

// RegistrationService covers everything that happens to forming teams during
// the signup window: creating a team, joining, leaving, and the per-player
// consent protocol. Every mutation follows read-validate-mutate-write; the
// repository's version check turns racing writers into
// repositories.ErrConcurrentModification, which is surfaced to the caller
// for retry.
type RegistrationService interface {
	RegisterTeam(ctx context.Context, tournamentID int, name string, playerUsernames []string, requestingUserID int) (*models.Tournament, error)
	JoinTeam(ctx context.Context, tournamentID int, teamName string, userID int) (*models.Tournament, error)
	LeaveTournament(ctx context.Context, tournamentID, userID int) (*models.Tournament, *models.RegisterTeam, error)
	RemovePlayer(ctx context.Context, tournamentID, requestingUserID int, usernameToRemove, teamName string) (*models.Tournament, error)
	Activate(ctx context.Context, tournamentID int, teamName string, userID int) (*models.Tournament, error)
	Decline(ctx context.Context, tournamentID int, teamName string, userID int) (*models.Tournament, error)
}

type registrationService struct {
	tournamentRepo repositories.TournamentRepository
	userRepo       repositories.UserRepository
	bus            events.Bus
	logger         *slog.Logger
}

func NewRegistrationService(
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	bus events.Bus,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
		bus:            bus,
		logger:         logger,
	}
}

func (s *registrationService) RegisterTeam(ctx context.Context, tournamentID int, name string, playerUsernames []string, requestingUserID int) (*models.Tournament, error) {
	if len(name) < 5 || len(name) > 25 {
		return nil, ErrInvalidTeamName
	}

	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !t.SignUpOpen() {
		return nil, ErrSignUpClosed
	}
	if len(playerUsernames) > t.PlayersPerTeam {
		return nil, ErrTooManyPlayers
	}
	if t.RegisterTeamByName(name) != nil {
		return nil, ErrDuplicateTeamName
	}

	team := models.RegisterTeam{Name: name}
	requesterIncluded := false
	for _, username := range playerUsernames {
		user, err := s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if t.HasPlayer(user.ID) || team.PlayerIndex(user.ID) >= 0 {
			return nil, ErrDuplicatePlayer
		}
		activated := user.ID == requestingUserID
		if activated {
			requesterIncluded = true
		}
		team.PlayerIDs = append(team.PlayerIDs, user.ID)
		team.Players = append(team.Players, user.Username)
		team.Activated = append(team.Activated, activated)
	}
	if !requesterIncluded {
		return nil, ErrPlayerNotInTeam
	}

	t.RegisterTeams = append(t.RegisterTeams, team)

	// A creator-only team on a one-player-per-team tournament is ready the
	// moment it registers and can fill the tournament by itself.
	var closure *signUpClosure
	if t.ReadyTeamCount() >= t.NTeams {
		closure = applySignUpClosure(t)
	}

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	if closure != nil {
		closure.publish(ctx, s.bus, t)
	}

	// Invitees who have not consented yet get a targeted notification.
	var invited []int
	for i, id := range team.PlayerIDs {
		if !team.Activated[i] {
			invited = append(invited, id)
		}
	}
	if len(invited) > 0 {
		s.bus.Publish(ctx, events.Event{
			Type:            events.TypeTeamInvited,
			TournamentID:    t.ID,
			TournamentTitle: t.Title,
			PlayerIDs:       invited,
			TeamName:        team.Name,
		})
	}
	s.publishUpdate(ctx, t)

	return t, nil
}

func (s *registrationService) JoinTeam(ctx context.Context, tournamentID int, teamName string, userID int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !t.SignUpOpen() {
		return nil, ErrSignUpClosed
	}
	team := t.RegisterTeamByName(teamName)
	if team == nil {
		return nil, ErrTeamNotFound
	}
	if len(team.PlayerIDs) >= t.PlayersPerTeam {
		return nil, ErrTeamFull
	}
	if t.HasPlayer(userID) {
		return nil, ErrDuplicatePlayer
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	team.PlayerIDs = append(team.PlayerIDs, user.ID)
	team.Players = append(team.Players, user.Username)
	team.Activated = append(team.Activated, false)

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.publishUpdate(ctx, t)
	return t, nil
}

func (s *registrationService) LeaveTournament(ctx context.Context, tournamentID, userID int) (*models.Tournament, *models.RegisterTeam, error) {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, nil, err
	}
	if !t.SignUpOpen() {
		return nil, nil, ErrSignUpClosed
	}
	team := t.RegisterTeamOfPlayer(userID)
	if team == nil {
		return nil, nil, ErrPlayerNotRegistered
	}

	team.RemovePlayerAt(team.PlayerIndex(userID))
	remaining := *team
	if len(team.PlayerIDs) == 0 {
		t.RemoveRegisterTeam(team.Name)
	}

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, nil, err
	}
	s.publishUpdate(ctx, t)
	return t, &remaining, nil
}

// RemovePlayer is the privileged variant of leaving: any current member of a
// forming team may drop another named member while the team is incomplete.
func (s *registrationService) RemovePlayer(ctx context.Context, tournamentID, requestingUserID int, usernameToRemove, teamName string) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !t.SignUpOpen() {
		return nil, ErrSignUpClosed
	}
	team := t.RegisterTeamByName(teamName)
	if team == nil {
		return nil, ErrTeamNotFound
	}
	if team.PlayerIndex(requestingUserID) < 0 {
		return nil, ErrPlayerNotInTeam
	}

	idx := -1
	for i, username := range team.Players {
		if username == usernameToRemove {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrPlayerNotRegistered
	}

	team.RemovePlayerAt(idx)
	if len(team.PlayerIDs) == 0 {
		t.RemoveRegisterTeam(team.Name)
	}

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.publishUpdate(ctx, t)
	return t, nil
}

func (s *registrationService) Activate(ctx context.Context, tournamentID int, teamName string, userID int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !t.SignUpOpen() {
		return nil, ErrSignUpClosed
	}
	team := t.RegisterTeamByName(teamName)
	if team == nil {
		return nil, ErrTeamNotFound
	}
	idx := team.PlayerIndex(userID)
	if idx < 0 {
		return nil, ErrPlayerNotInTeam
	}

	team.Activated[idx] = true

	// The last consent can fill the tournament: once the target number of
	// teams is ready, signup closes on its own.
	var closure *signUpClosure
	if t.ReadyTeamCount() >= t.NTeams {
		closure = applySignUpClosure(t)
	}

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	if closure != nil {
		closure.publish(ctx, s.bus, t)
	}
	s.publishUpdate(ctx, t)
	return t, nil
}

// Decline withdraws a player's pending consent, which is the same as leaving
// the team.
func (s *registrationService) Decline(ctx context.Context, tournamentID int, teamName string, userID int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !t.SignUpOpen() {
		return nil, ErrSignUpClosed
	}
	team := t.RegisterTeamByName(teamName)
	if team == nil {
		return nil, ErrTeamNotFound
	}
	idx := team.PlayerIndex(userID)
	if idx < 0 {
		return nil, ErrPlayerNotInTeam
	}

	team.RemovePlayerAt(idx)
	if len(team.PlayerIDs) == 0 {
		t.RemoveRegisterTeam(team.Name)
	}

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.publishUpdate(ctx, t)
	return t, nil
}

func (s *registrationService) publishUpdate(ctx context.Context, t *models.Tournament) {
	s.bus.Publish(ctx, events.Event{
		Type:            events.TypeTournamentUpdate,
		TournamentID:    t.ID,
		TournamentTitle: t.Title,
		Tournament:      t,
	})
}
