package models

import "time"

// TournamentStatus mirrors the ENUM in the tournaments table.
type TournamentStatus string

const (
	StatusSignUpWaiting TournamentStatus = "signUpWaiting"
	StatusSignUpEnded   TournamentStatus = "signUpEnded"
	StatusRunning       TournamentStatus = "running"
	StatusAborted       TournamentStatus = "aborted"
	StatusEnded         TournamentStatus = "ended"
)

// TournamentTypeKO is the only bracket type currently supported.
const TournamentTypeKO = "KO"

// Unset marks an unresolved bracket reference: a participant position still
// waiting for a previous round, a slot without a game instance, or an
// undecided winner.
const Unset = -1

// Tournament is the aggregate root. RegisterTeams, Teams and Brackets are
// owned by the tournament and live with it; Version is the optimistic-lock
// counter checked on every write.
type Tournament struct {
	ID             int              `json:"id" db:"id"`
	Title          string           `json:"title" db:"title"`
	Status         TournamentStatus `json:"status" db:"status"`
	SignupBegin    time.Time        `json:"signupBegin" db:"signup_begin"`
	SignupDeadline time.Time        `json:"signupDeadline" db:"signup_deadline"`
	CreationDates  []time.Time      `json:"-" db:"-"`
	SecondsPerGame int              `json:"secondsPerGame" db:"seconds_per_game"`
	NTeams         int              `json:"nTeams" db:"n_teams"`
	PlayersPerTeam int              `json:"playersPerTeam" db:"players_per_team"`
	TeamsPerMatch  int              `json:"teamsPerMatch" db:"teams_per_match"`
	Type           string           `json:"tournamentType" db:"tournament_type"`
	Brackets       [][]BracketSlot  `json:"brackets" db:"-"`
	RegisterTeams  []RegisterTeam   `json:"registerTeams" db:"-"`
	Teams          []Team           `json:"teams" db:"-"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	Version        int              `json:"-" db:"version"`
}

// RegisterTeam is a team under formation during signup. The three slices are
// index-aligned: Activated[i] is the consent flag of PlayerIDs[i]/Players[i].
type RegisterTeam struct {
	Name      string   `json:"name"`
	PlayerIDs []int    `json:"playerids"`
	Players   []string `json:"players"`
	Activated []bool   `json:"activated"`
}

// Team is a finalized participant, promoted from a fully consented
// RegisterTeam at signup closure. Immutable afterwards.
type Team struct {
	Name      string   `json:"name"`
	PlayerIDs []int    `json:"playerids"`
	Players   []string `json:"players"`
}

// BracketSlot is one match-up of a bracket round. Teams holds indices into
// Tournament.Teams, Unset while a participant is still undecided. A slot with
// a single participant is a bye: its Winner is pre-set and no game is ever
// created for it.
type BracketSlot struct {
	Teams        []int     `json:"teams"`
	CreationDate time.Time `json:"created"`
	GameID       int       `json:"gameID"`
	Winner       int       `json:"winner"`
}

// IsReady reports whether a forming team can be promoted: full size and
// every member individually activated.
func (r RegisterTeam) IsReady(playersPerTeam int) bool {
	if len(r.PlayerIDs) != playersPerTeam {
		return false
	}
	for _, a := range r.Activated {
		if !a {
			return false
		}
	}
	return true
}

// PlayerIndex returns the position of userID in the team, or -1.
func (r RegisterTeam) PlayerIndex(userID int) int {
	for i, id := range r.PlayerIDs {
		if id == userID {
			return i
		}
	}
	return -1
}

// RemovePlayerAt drops the member at index idx from the forming team,
// keeping the three slices aligned.
func (r *RegisterTeam) RemovePlayerAt(idx int) {
	r.PlayerIDs = append(r.PlayerIDs[:idx], r.PlayerIDs[idx+1:]...)
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	r.Activated = append(r.Activated[:idx], r.Activated[idx+1:]...)
}

// SignUpOpen reports whether registration mutations are still allowed.
func (t *Tournament) SignUpOpen() bool {
	return t.Status == StatusSignUpWaiting
}

// Terminal reports whether the tournament reached a final status.
func (t *Tournament) Terminal() bool {
	return t.Status == StatusAborted || t.Status == StatusEnded
}

// RegisterTeamByName returns the forming team with the given name, or nil.
func (t *Tournament) RegisterTeamByName(name string) *RegisterTeam {
	for i := range t.RegisterTeams {
		if t.RegisterTeams[i].Name == name {
			return &t.RegisterTeams[i]
		}
	}
	return nil
}

// RegisterTeamOfPlayer returns the forming team containing userID, or nil.
func (t *Tournament) RegisterTeamOfPlayer(userID int) *RegisterTeam {
	for i := range t.RegisterTeams {
		if t.RegisterTeams[i].PlayerIndex(userID) >= 0 {
			return &t.RegisterTeams[i]
		}
	}
	return nil
}

// HasPlayer reports whether userID already belongs to any forming or
// finalized team of the tournament.
func (t *Tournament) HasPlayer(userID int) bool {
	if t.RegisterTeamOfPlayer(userID) != nil {
		return true
	}
	for _, team := range t.Teams {
		for _, id := range team.PlayerIDs {
			if id == userID {
				return true
			}
		}
	}
	return false
}

// ReadyTeamCount counts forming teams that reached full size and consensus.
func (t *Tournament) ReadyTeamCount() int {
	n := 0
	for _, rt := range t.RegisterTeams {
		if rt.IsReady(t.PlayersPerTeam) {
			n++
		}
	}
	return n
}

// RemoveRegisterTeam deletes the forming team with the given name.
func (t *Tournament) RemoveRegisterTeam(name string) {
	for i := range t.RegisterTeams {
		if t.RegisterTeams[i].Name == name {
			t.RegisterTeams = append(t.RegisterTeams[:i], t.RegisterTeams[i+1:]...)
			return
		}
	}
}
