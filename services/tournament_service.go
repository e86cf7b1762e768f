package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/tkluge/tournament-server/brackets"
	"github.com/tkluge/tournament-server/events"
	"github.com/tkluge/tournament-server/models"
	"github.com/tkluge/tournament-server/repositories"
	"golang.org/x/sync/errgroup"
)

// TournamentService drives the tournament status machine:
// signUpWaiting -> signUpEnded -> running -> ended, with aborted reachable
// from every non-terminal status. Each operation reads the aggregate,
// computes the transition in memory and writes it back under the
// repository's version check; domain events go out only after the commit.
type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	GetCurrentTournament(ctx context.Context) (*models.Tournament, error)
	ListTournaments(ctx context.Context, limit, offset int) ([]models.Tournament, error)
	CloseSignUp(ctx context.Context, tournamentID int) (*models.Tournament, error)
	Start(ctx context.Context, tournamentID int) (*models.Tournament, error)
	StartGame(ctx context.Context, tournamentID, round, slot int) (*models.Tournament, error)
	ReportResult(ctx context.Context, tournamentID, gameID, winningTeam int) (*models.Tournament, error)
	Abort(ctx context.Context, tournamentID int) (*models.Tournament, error)
	CloseExpiredSignups(ctx context.Context) error
}

type CreateTournamentInput struct {
	Title          string      `json:"title"`
	SignupBegin    time.Time   `json:"signupBegin"`
	SignupDeadline time.Time   `json:"signupDeadline"`
	CreationDates  []time.Time `json:"creationDates"`
	SecondsPerGame int         `json:"secondsPerGame"`
	NTeams         int         `json:"nTeams"`
	PlayersPerTeam int         `json:"playersPerTeam"`
	TeamsPerMatch  int         `json:"teamsPerMatch"`
	Type           string      `json:"tournamentType"`
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	gameRepo       repositories.GameRepository
	bus            events.Bus
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	gameRepo repositories.GameRepository,
	bus events.Bus,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		gameRepo:       gameRepo,
		bus:            bus,
		logger:         logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Type != models.TournamentTypeKO {
		return nil, ErrOnlyKOSupported
	}
	if !validTeamConfig(input.PlayersPerTeam) || !validTeamConfig(input.TeamsPerMatch) {
		return nil, ErrInvalidTeamConfig
	}
	if input.NTeams < 2 {
		return nil, ErrInvalidTeamTarget
	}
	if !input.SignupDeadline.After(input.SignupBegin) {
		return nil, ErrInvalidSignupWindow
	}
	// One creation date per bracket slot, fixed up front for the target
	// team count; a mismatch rejects the whole tournament.
	if len(input.CreationDates) != brackets.TotalSlots(input.NTeams, input.TeamsPerMatch) {
		return nil, brackets.ErrCreationDatesMismatch
	}

	t := &models.Tournament{
		Title:          input.Title,
		Status:         models.StatusSignUpWaiting,
		SignupBegin:    input.SignupBegin,
		SignupDeadline: input.SignupDeadline,
		CreationDates:  input.CreationDates,
		SecondsPerGame: input.SecondsPerGame,
		NTeams:         input.NTeams,
		PlayersPerTeam: input.PlayersPerTeam,
		TeamsPerMatch:  input.TeamsPerMatch,
		Type:           input.Type,
	}
	if err := s.tournamentRepo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", t.ID), slog.String("title", t.Title))
	s.publishUpdate(ctx, t)
	return t, nil
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	return s.tournamentRepo.GetByID(ctx, id)
}

func (s *tournamentService) GetCurrentTournament(ctx context.Context) (*models.Tournament, error) {
	return s.tournamentRepo.GetCurrent(ctx)
}

func (s *tournamentService) ListTournaments(ctx context.Context, limit, offset int) ([]models.Tournament, error) {
	return s.tournamentRepo.List(ctx, limit, offset)
}

// CloseSignUp freezes team composition. Forming teams that never reached
// full size and full consensus are dropped; their players are told they
// won't take part.
func (s *tournamentService) CloseSignUp(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.StatusSignUpWaiting {
		return nil, ErrInvalidStatusTransition
	}

	closure := applySignUpClosure(t)

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	closure.publish(ctx, s.bus, t)
	s.publishUpdate(ctx, t)
	return t, nil
}

// Start promotes every ready forming team, builds the bracket and moves the
// tournament to running. Calling Start while signup is still open performs
// the closure first (manual early close). Nothing is persisted when the
// bracket cannot be built.
func (s *tournamentService) Start(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	var closure *signUpClosure
	switch t.Status {
	case models.StatusSignUpWaiting:
		closure = applySignUpClosure(t)
	case models.StatusSignUpEnded:
	default:
		return nil, ErrInvalidStatusTransition
	}

	// After closure every remaining forming team is ready; promote them in
	// registration order, which doubles as bracket seeding.
	if len(t.RegisterTeams) < 2 {
		return nil, ErrNotEnoughTeams
	}
	teams := make([]models.Team, 0, len(t.RegisterTeams))
	for _, rt := range t.RegisterTeams {
		teams = append(teams, models.Team{
			Name:      rt.Name,
			PlayerIDs: rt.PlayerIDs,
			Players:   rt.Players,
		})
	}

	bracket, err := brackets.Build(len(teams), t.TeamsPerMatch, t.CreationDates)
	if err != nil {
		return nil, err
	}

	t.Teams = teams
	t.RegisterTeams = nil
	t.Brackets = bracket
	t.Status = models.StatusRunning

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, err
	}

	if closure != nil {
		closure.publish(ctx, s.bus, t)
	}
	s.bus.Publish(ctx, events.Event{
		Type:            events.TypeStarted,
		TournamentID:    t.ID,
		TournamentTitle: t.Title,
	})
	s.publishUpdate(ctx, t)

	s.logger.Info("tournament started",
		slog.Int("tournament_id", t.ID), slog.Int("teams", len(teams)))
	return t, nil
}

// StartGame requests a game instance for a bracket slot whose participants
// are all decided and records the returned game id.
func (s *tournamentService) StartGame(ctx context.Context, tournamentID, round, slot int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.StatusRunning {
		return nil, ErrInvalidStatusTransition
	}
	if round < 0 || round >= len(t.Brackets) || slot < 0 || slot >= len(t.Brackets[round]) {
		return nil, ErrSlotNotFound
	}

	target := &t.Brackets[round][slot]
	if target.GameID != models.Unset {
		return nil, ErrSlotAlreadyStarted
	}
	if !brackets.SlotReady(*target) {
		return nil, ErrSlotNotReady
	}

	var playerIDs []int
	var teamMembers [][]int
	for _, teamIdx := range target.Teams {
		playerIDs = append(playerIDs, t.Teams[teamIdx].PlayerIDs...)
		teamMembers = append(teamMembers, t.Teams[teamIdx].PlayerIDs)
	}

	firstOfRound := true
	for i := range t.Brackets[round] {
		if t.Brackets[round][i].GameID != models.Unset {
			firstOfRound = false
			break
		}
	}

	gameID, err := s.gameRepo.CreateInstance(ctx, t.ID, playerIDs, teamMembers, t.SecondsPerGame)
	if err != nil {
		return nil, err
	}
	target.GameID = gameID

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		// The aggregate write lost; don't leave the fresh game instance
		// attached to the tournament.
		if releaseErr := s.gameRepo.Release(ctx, []int{gameID}); releaseErr != nil {
			s.logger.Error("failed to release orphaned game",
				slog.Int("game_id", gameID), slog.Any("error", releaseErr))
		}
		return nil, err
	}

	if firstOfRound {
		roundsToFinal := len(t.Brackets) - 1 - round
		s.bus.Publish(ctx, events.Event{
			Type:            events.TypeRoundStarted,
			TournamentID:    t.ID,
			TournamentTitle: t.Title,
			RoundsToFinal:   &roundsToFinal,
		})
	}
	s.publishUpdate(ctx, t)
	return t, nil
}

// ReportResult is invoked by the game-completion collaborator. It records
// the slot winner, advances the bracket and ends the tournament once the
// final is decided.
func (s *tournamentService) ReportResult(ctx context.Context, tournamentID, gameID, winningTeam int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.StatusRunning {
		return nil, ErrInvalidStatusTransition
	}

	round, slot, ok := brackets.FindSlotByGame(t.Brackets, gameID)
	if !ok {
		return nil, repositories.ErrGameNotFound
	}
	target := &t.Brackets[round][slot]
	if target.Winner != models.Unset {
		return nil, ErrResultAlreadyReported
	}
	validWinner := false
	for _, teamIdx := range target.Teams {
		if teamIdx == winningTeam {
			validWinner = true
			break
		}
	}
	if !validWinner {
		return nil, ErrWinnerNotInMatch
	}

	target.Winner = winningTeam
	champion := brackets.Propagate(t.Brackets, t.TeamsPerMatch)
	roundDone := brackets.RoundComplete(t.Brackets[round])
	if champion != models.Unset {
		t.Status = models.StatusEnded
	}

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, err
	}

	if roundDone {
		roundsToFinal := len(t.Brackets) - 1 - round
		s.bus.Publish(ctx, events.Event{
			Type:            events.TypeRoundEnded,
			TournamentID:    t.ID,
			TournamentTitle: t.Title,
			RoundsToFinal:   &roundsToFinal,
		})
	}
	if champion != models.Unset {
		winner := t.Teams[champion]
		s.bus.Publish(ctx, events.Event{
			Type:            events.TypeEnded,
			TournamentID:    t.ID,
			TournamentTitle: t.Title,
			Winner:          &winner,
		})
		s.logger.Info("tournament ended",
			slog.Int("tournament_id", t.ID), slog.String("winner", winner.Name))
	}
	s.publishUpdate(ctx, t)
	return t, nil
}

// Abort cancels a non-finished tournament: registrations are dropped, every
// slot's game association and winner are reset, and in-flight game instances
// are disassociated (never deleted). Aborting an aborted tournament is a
// no-op success.
func (s *tournamentService) Abort(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Status == models.StatusAborted {
		return t, nil
	}
	if t.Status == models.StatusEnded {
		return nil, ErrInvalidStatusTransition
	}

	var signedUp []int
	if t.Status == models.StatusSignUpWaiting || t.Status == models.StatusSignUpEnded {
		for i := range t.RegisterTeams {
			signedUp = append(signedUp, t.RegisterTeams[i].PlayerIDs...)
		}
	}

	var releasedGames []int
	for r := range t.Brackets {
		for i := range t.Brackets[r] {
			if t.Brackets[r][i].GameID != models.Unset {
				releasedGames = append(releasedGames, t.Brackets[r][i].GameID)
			}
			t.Brackets[r][i].GameID = models.Unset
			t.Brackets[r][i].Winner = models.Unset
		}
	}
	t.RegisterTeams = nil
	t.Status = models.StatusAborted

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	if err := s.gameRepo.Release(ctx, releasedGames); err != nil {
		s.logger.Error("failed to release games on abort",
			slog.Int("tournament_id", t.ID), slog.Any("error", err))
	}

	if len(signedUp) > 0 {
		s.bus.Publish(ctx, events.Event{
			Type:            events.TypeSignUpFailed,
			TournamentID:    t.ID,
			TournamentTitle: t.Title,
			PlayerIDs:       signedUp,
		})
	}
	s.publishUpdate(ctx, t)
	s.logger.Info("tournament aborted", slog.Int("tournament_id", t.ID))
	return t, nil
}

// CloseExpiredSignups is the scheduler entrypoint: every tournament still
// waiting for signups past its deadline gets closed. Version conflicts are
// left for the next tick.
func (s *tournamentService) CloseExpiredSignups(ctx context.Context) error {
	expired, err := s.tournamentRepo.ListExpiredSignups(ctx, time.Now())
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, t := range expired {
		t := t
		g.Go(func() error {
			if _, err := s.CloseSignUp(gCtx, t.ID); err != nil {
				s.logger.Warn("failed to close expired signup",
					slog.Int("tournament_id", t.ID), slog.Any("error", err))
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *tournamentService) publishUpdate(ctx context.Context, t *models.Tournament) {
	s.bus.Publish(ctx, events.Event{
		Type:            events.TypeTournamentUpdate,
		TournamentID:    t.ID,
		TournamentTitle: t.Title,
		Tournament:      t,
	})
}

func validTeamConfig(n int) bool {
	return n == 2 || n == 3
}

// signUpClosure records who survived a signup closure so the notifications
// can go out after the write committed.
type signUpClosure struct {
	admitted []int
	dropped  []int
}

// applySignUpClosure freezes the team set: forming teams that are not ready
// are discarded, the rest stay as register teams until Start promotes them.
func applySignUpClosure(t *models.Tournament) *signUpClosure {
	closure := &signUpClosure{}
	kept := t.RegisterTeams[:0]
	for _, rt := range t.RegisterTeams {
		if rt.IsReady(t.PlayersPerTeam) {
			closure.admitted = append(closure.admitted, rt.PlayerIDs...)
			kept = append(kept, rt)
		} else {
			closure.dropped = append(closure.dropped, rt.PlayerIDs...)
		}
	}
	t.RegisterTeams = kept
	t.Status = models.StatusSignUpEnded
	return closure
}

func (c *signUpClosure) publish(ctx context.Context, bus events.Bus, t *models.Tournament) {
	if len(c.admitted) > 0 {
		bus.Publish(ctx, events.Event{
			Type:            events.TypeSignUpParticipate,
			TournamentID:    t.ID,
			TournamentTitle: t.Title,
			PlayerIDs:       c.admitted,
		})
	}
	if len(c.dropped) > 0 {
		bus.Publish(ctx, events.Event{
			Type:            events.TypeSignUpDropped,
			TournamentID:    t.ID,
			TournamentTitle: t.Title,
			PlayerIDs:       c.dropped,
		})
	}
}
