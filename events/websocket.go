package events

import (
	"context"
	"strconv"

	"github.com/tkluge/tournament-server/brackets"
)

// HubNotifier bridges the bus onto the websocket hub. Updates are broadcast
// to the whole tournament room; targeted events reach only the sockets
// authenticated as one of the named players.
type HubNotifier struct {
	hub *brackets.Hub
}

func NewHubNotifier(hub *brackets.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// RoomID returns the hub room name for a tournament.
func RoomID(tournamentID int) string {
	return "tournament_" + strconv.Itoa(tournamentID)
}

func (n *HubNotifier) HandleEvent(_ context.Context, event Event) error {
	room := RoomID(event.TournamentID)

	if event.Type == TypeTournamentUpdate {
		n.hub.BroadcastToRoom(room, brackets.PushMessage{
			Type:    string(event.Type),
			Payload: event.Tournament,
		})
		return nil
	}

	msg := brackets.PushMessage{Type: string(event.Type), Payload: event}
	if len(event.PlayerIDs) == 0 {
		n.hub.BroadcastToRoom(room, msg)
		return nil
	}
	n.hub.NotifyUsers(room, event.PlayerIDs, msg)
	return nil
}
