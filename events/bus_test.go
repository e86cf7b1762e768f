package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSubscriber struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (c *captureSubscriber) HandleEvent(ctx context.Context, event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return c.err
}

func TestFanoutDeliversToAllSubscribers(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	first := &captureSubscriber{}
	second := &captureSubscriber{}
	bus := NewFanout(logger, first, second)

	bus.Publish(context.Background(), Event{Type: TypeStarted, TournamentID: 7})

	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
	assert.Equal(t, TypeStarted, first.events[0].Type)
	assert.Equal(t, 7, first.events[0].TournamentID)
}

func TestFanoutAssignsEventID(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sub := &captureSubscriber{}
	bus := NewFanout(logger, sub)

	bus.Publish(context.Background(), Event{Type: TypeEnded})
	require.Len(t, sub.events, 1)
	assert.NotEqual(t, uuid.Nil, sub.events[0].ID)
}

func TestFanoutSubscriberFailureDoesNotPanic(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	failing := &captureSubscriber{err: errors.New("smtp down")}
	healthy := &captureSubscriber{}
	bus := NewFanout(logger, failing, healthy)

	bus.Publish(context.Background(), Event{Type: TypeRoundEnded})
	assert.Len(t, healthy.events, 1)
}

func TestRoomID(t *testing.T) {
	assert.Equal(t, "tournament_42", RoomID(42))
}
