package services

import "errors"

// Business-rule errors shared by the tournament services. Handlers map these
// onto HTTP statuses and stable error codes.
var (
	// Registration / consensus
	ErrSignUpClosed        = errors.New("tournament signup is closed")
	ErrDuplicateTeamName   = errors.New("team name is already used in this tournament")
	ErrDuplicatePlayer     = errors.New("player already belongs to a team in this tournament")
	ErrTooManyPlayers      = errors.New("more players named than the team size allows")
	ErrTeamFull            = errors.New("team already has the full number of players")
	ErrTeamNotFound        = errors.New("register team not found")
	ErrPlayerNotRegistered = errors.New("player is not registered in this tournament")
	ErrPlayerNotInTeam     = errors.New("player is not a member of this team")
	ErrInvalidTeamName     = errors.New("team name must be between 5 and 25 characters")

	// Lifecycle
	ErrOnlyKOSupported         = errors.New("only KO tournaments are supported")
	ErrInvalidTeamConfig       = errors.New("players per team and teams per match must be 2 or 3")
	ErrInvalidTeamTarget       = errors.New("tournament needs a target of at least 2 teams")
	ErrInvalidSignupWindow     = errors.New("signup deadline must be after signup begin")
	ErrNotEnoughTeams          = errors.New("not enough ready teams to start the tournament")
	ErrInvalidStatusTransition = errors.New("operation not allowed in the current tournament status")
	ErrSlotNotFound            = errors.New("bracket slot does not exist")
	ErrSlotNotReady            = errors.New("bracket slot is still waiting for participants")
	ErrSlotAlreadyStarted      = errors.New("bracket slot already has a running game")
	ErrResultAlreadyReported   = errors.New("game result was already reported")
	ErrWinnerNotInMatch        = errors.New("winning team is not a participant of this game")
)
