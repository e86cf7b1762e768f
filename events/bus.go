package events

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tkluge/tournament-server/models"
	"golang.org/x/sync/errgroup"
)

// Type names a domain event. The string values are part of the client
// protocol and match the toast topics the frontends listen on.
type Type string

const (
	TypeSignUpFailed      Type = "signUp-failed"
	TypeSignUpParticipate Type = "signUpEnded-you-partizipate"
	TypeSignUpDropped     Type = "signUpEnded-you-wont-partizipate"
	TypeTeamInvited       Type = "invited-to-a-team"
	TypeStarted           Type = "started"
	TypeRoundStarted      Type = "round-started"
	TypeRoundEnded        Type = "round-ended"
	TypeEnded             Type = "ended"

	// TypeTournamentUpdate carries the full public projection after every
	// committed mutation.
	TypeTournamentUpdate Type = "tournament-update"
)

// Event is the minimal payload a subscriber needs to produce a human-readable
// notification. PlayerIDs limits delivery to specific recipients; empty means
// everyone watching the tournament.
type Event struct {
	ID              uuid.UUID          `json:"id"`
	Type            Type               `json:"type"`
	TournamentID    int                `json:"tournamentID"`
	TournamentTitle string             `json:"tournamentTitle"`
	PlayerIDs       []int              `json:"playerids,omitempty"`
	TeamName        string             `json:"teamName,omitempty"`
	RoundsToFinal   *int               `json:"roundsToFinal,omitempty"`
	Winner          *models.Team       `json:"winner,omitempty"`
	Tournament      *models.Tournament `json:"tournament,omitempty"`
}

// Bus is the outbound notification queue the core appends to after each
// commit. Delivery is at-most-once: subscribers must not assume they see
// every transition.
type Bus interface {
	Publish(ctx context.Context, event Event)
}

// Subscriber consumes published events. Errors are logged, never retried.
type Subscriber interface {
	HandleEvent(ctx context.Context, event Event) error
}

// Fanout delivers each event to every subscriber concurrently.
type Fanout struct {
	subscribers []Subscriber
	logger      *slog.Logger
}

func NewFanout(logger *slog.Logger, subscribers ...Subscriber) *Fanout {
	return &Fanout{subscribers: subscribers, logger: logger}
}

func (f *Fanout) Publish(ctx context.Context, event Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, sub := range f.subscribers {
		sub := sub
		g.Go(func() error {
			return sub.HandleEvent(gCtx, event)
		})
	}
	if err := g.Wait(); err != nil {
		f.logger.Error("event delivery failed",
			slog.String("event", string(event.Type)),
			slog.Int("tournament_id", event.TournamentID),
			slog.Any("error", err))
	}
}
