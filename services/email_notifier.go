package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tkluge/tournament-server/events"
	"github.com/tkluge/tournament-server/repositories"
	"golang.org/x/sync/errgroup"
)

// EmailNotifier turns targeted domain events into emails. It only reacts to
// events that name specific players; broadcast events stay on the websocket
// path.
type EmailNotifier struct {
	emails   *EmailService
	userRepo repositories.UserRepository
	logger   *slog.Logger
}

func NewEmailNotifier(emails *EmailService, userRepo repositories.UserRepository, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		emails:   emails,
		userRepo: userRepo,
		logger:   logger,
	}
}

func (n *EmailNotifier) HandleEvent(ctx context.Context, event events.Event) error {
	if len(event.PlayerIDs) == 0 {
		return nil
	}

	var message string
	switch event.Type {
	case events.TypeTeamInvited:
		return n.sendInvites(ctx, event)
	case events.TypeSignUpParticipate:
		message = "Signup has closed and your team is in. Good luck!"
	case events.TypeSignUpDropped:
		message = "Signup has closed and your team did not fill up in time. You won't take part this time."
	case events.TypeSignUpFailed:
		message = "The tournament was called off before it started. Your signup no longer applies."
	default:
		return nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, playerID := range event.PlayerIDs {
		playerID := playerID
		g.Go(func() error {
			user, err := n.userRepo.GetByID(gCtx, playerID)
			if err != nil {
				n.logger.Warn("skipping email for unknown player",
					slog.Int("player_id", playerID), slog.Any("error", err))
				return nil
			}
			if err := n.emails.SendTournamentStatusEmail(user.Email, user.Username, event.TournamentTitle, message); err != nil {
				return fmt.Errorf("failed to email player %d: %w", playerID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (n *EmailNotifier) sendInvites(ctx context.Context, event events.Event) error {
	for _, playerID := range event.PlayerIDs {
		user, err := n.userRepo.GetByID(ctx, playerID)
		if err != nil {
			n.logger.Warn("skipping invite email for unknown player",
				slog.Int("player_id", playerID), slog.Any("error", err))
			continue
		}
		if err := n.emails.SendTeamInviteEmail(user.Email, user.Username, event.TeamName, event.TournamentTitle); err != nil {
			return fmt.Errorf("failed to email player %d: %w", playerID, err)
		}
	}
	return nil
}
