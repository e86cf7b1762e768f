package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tkluge/tournament-server/events"
	"github.com/tkluge/tournament-server/models"
	"github.com/tkluge/tournament-server/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func cloneTournament(t *models.Tournament) *models.Tournament {
	c := *t
	c.CreationDates = append([]time.Time(nil), t.CreationDates...)
	c.RegisterTeams = make([]models.RegisterTeam, len(t.RegisterTeams))
	for i, rt := range t.RegisterTeams {
		c.RegisterTeams[i] = models.RegisterTeam{
			Name:      rt.Name,
			PlayerIDs: append([]int(nil), rt.PlayerIDs...),
			Players:   append([]string(nil), rt.Players...),
			Activated: append([]bool(nil), rt.Activated...),
		}
	}
	c.Teams = make([]models.Team, len(t.Teams))
	for i, team := range t.Teams {
		c.Teams[i] = models.Team{
			Name:      team.Name,
			PlayerIDs: append([]int(nil), team.PlayerIDs...),
			Players:   append([]string(nil), team.Players...),
		}
	}
	c.Brackets = make([][]models.BracketSlot, len(t.Brackets))
	for r, round := range t.Brackets {
		c.Brackets[r] = make([]models.BracketSlot, len(round))
		for i, slot := range round {
			c.Brackets[r][i] = models.BracketSlot{
				Teams:        append([]int(nil), slot.Teams...),
				CreationDate: slot.CreationDate,
				GameID:       slot.GameID,
				Winner:       slot.Winner,
			}
		}
	}
	return &c
}

// fakeTournamentRepo keeps aggregates in memory and enforces the same
// version check as the postgres implementation.
type fakeTournamentRepo struct {
	mu          sync.Mutex
	tournaments map[int]*models.Tournament
	nextID      int
	updateErr   error
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{tournaments: map[int]*models.Tournament{}, nextID: 1}
}

func (f *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.nextID
	f.nextID++
	t.CreatedAt = time.Now()
	t.Version = 1
	f.tournaments[t.ID] = cloneTournament(t)
	return nil
}

func (f *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return cloneTournament(t), nil
}

func (f *fakeTournamentRepo) GetCurrent(ctx context.Context) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tournaments {
		if !t.Terminal() {
			return cloneTournament(t), nil
		}
	}
	return nil, repositories.ErrTournamentNotFound
}

func (f *fakeTournamentRepo) List(ctx context.Context, limit, offset int) ([]models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Tournament
	for id := 1; id < f.nextID; id++ {
		if t, ok := f.tournaments[id]; ok {
			out = append(out, *cloneTournament(t))
		}
	}
	return out, nil
}

func (f *fakeTournamentRepo) ListExpiredSignups(ctx context.Context, now time.Time) ([]models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Tournament
	for id := 1; id < f.nextID; id++ {
		t, ok := f.tournaments[id]
		if ok && t.Status == models.StatusSignUpWaiting && t.SignupDeadline.Before(now) {
			out = append(out, *cloneTournament(t))
		}
	}
	return out, nil
}

func (f *fakeTournamentRepo) Update(ctx context.Context, t *models.Tournament) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		err := f.updateErr
		f.updateErr = nil
		return err
	}
	stored, ok := f.tournaments[t.ID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if stored.Version != t.Version {
		return repositories.ErrConcurrentModification
	}
	t.Version++
	f.tournaments[t.ID] = cloneTournament(t)
	return nil
}

type fakeUserRepo struct {
	users map[int]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	f := &fakeUserRepo{users: map[int]*models.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) Create(ctx context.Context, u *models.User) error {
	u.ID = len(f.users) + 1
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) UpdateAvatarKey(ctx context.Context, userID int, key *string) error {
	u, ok := f.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.AvatarKey = key
	return nil
}

type createdGame struct {
	tournamentID   int
	playerIDs      []int
	teams          [][]int
	secondsPerGame int
}

type fakeGameRepo struct {
	nextID    int
	created   []createdGame
	released  []int
	createErr error
}

func newFakeGameRepo() *fakeGameRepo {
	return &fakeGameRepo{nextID: 100}
}

func (f *fakeGameRepo) CreateInstance(ctx context.Context, tournamentID int, playerIDs []int, teams [][]int, secondsPerGame int) (int, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.created = append(f.created, createdGame{tournamentID, playerIDs, teams, secondsPerGame})
	id := f.nextID
	f.nextID++
	return id, nil
}

func (f *fakeGameRepo) Release(ctx context.Context, gameIDs []int) error {
	f.released = append(f.released, gameIDs...)
	return nil
}

// recordingBus collects published events synchronously for assertions.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) byType(t events.Type) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func usersNamed(names ...string) []*models.User {
	out := make([]*models.User, len(names))
	for i, name := range names {
		out[i] = &models.User{
			ID:       i + 1,
			Username: name,
			Email:    fmt.Sprintf("%s@example.com", name),
		}
	}
	return out
}
