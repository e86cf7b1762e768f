package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/tkluge/tournament-server/models"
)

var (
	ErrTournamentNotFound = errors.New("tournament not found")

	// ErrConcurrentModification is returned when the aggregate changed between
	// read and write. The caller re-reads and retries; the repository never
	// merges divergent writes.
	ErrConcurrentModification = errors.New("tournament was modified concurrently")
)

// TournamentRepository is the persistence boundary for tournament aggregates.
// Update performs a compare-and-swap on the version read by GetByID.
type TournamentRepository interface {
	Create(ctx context.Context, t *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	GetCurrent(ctx context.Context) (*models.Tournament, error)
	List(ctx context.Context, limit, offset int) ([]models.Tournament, error)
	ListExpiredSignups(ctx context.Context, now time.Time) ([]models.Tournament, error)
	Update(ctx context.Context, t *models.Tournament) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `
	id, title, status, signup_begin, signup_deadline, creation_dates,
	seconds_per_game, n_teams, players_per_team, teams_per_match,
	tournament_type, register_teams, teams, brackets, created_at, version`

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	registerTeams, teams, bracket, err := marshalAggregate(t)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tournaments (
			title, status, signup_begin, signup_deadline, creation_dates,
			seconds_per_game, n_teams, players_per_team, teams_per_match,
			tournament_type, register_teams, teams, brackets, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)
		RETURNING id, created_at, version`

	err = r.db.QueryRowContext(ctx, query,
		t.Title, t.Status, t.SignupBegin, t.SignupDeadline, pq.Array(t.CreationDates),
		t.SecondsPerGame, t.NTeams, t.PlayersPerTeam, t.TeamsPerMatch,
		t.Type, registerTeams, teams, bracket,
	).Scan(&t.ID, &t.CreatedAt, &t.Version)
	if err != nil {
		return fmt.Errorf("failed to insert tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetCurrent returns the most recently created tournament that is not yet in
// a terminal state.
func (r *postgresTournamentRepository) GetCurrent(ctx context.Context) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE status NOT IN ($1, $2)
		ORDER BY created_at DESC
		LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, models.StatusAborted, models.StatusEnded))
}

func (r *postgresTournamentRepository) List(ctx context.Context, limit, offset int) ([]models.Tournament, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// ListExpiredSignups returns tournaments still waiting for signups whose
// deadline has passed; the scheduler closes them.
func (r *postgresTournamentRepository) ListExpiredSignups(ctx context.Context, now time.Time) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE status = $1 AND signup_deadline <= $2
		ORDER BY signup_deadline`

	rows, err := r.db.QueryContext(ctx, query, models.StatusSignUpWaiting, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired signups: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	registerTeams, teams, bracket, err := marshalAggregate(t)
	if err != nil {
		return err
	}

	query := `
		UPDATE tournaments SET
			status = $1,
			register_teams = $2,
			teams = $3,
			brackets = $4,
			version = version + 1
		WHERE id = $5 AND version = $6`

	result, err := r.db.ExecContext(ctx, query,
		t.Status, registerTeams, teams, bracket, t.ID, t.Version)
	if err != nil {
		return fmt.Errorf("failed to update tournament %d: %w", t.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		// Either the row vanished or somebody else committed first.
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM tournaments WHERE id = $1)`, t.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check tournament existence: %w", err)
		}
		if !exists {
			return ErrTournamentNotFound
		}
		return ErrConcurrentModification
	}

	t.Version++
	return nil
}

func (r *postgresTournamentRepository) scanOne(row *sql.Row) (*models.Tournament, error) {
	t := &models.Tournament{}
	var registerTeams, teams, bracket []byte

	err := row.Scan(
		&t.ID, &t.Title, &t.Status, &t.SignupBegin, &t.SignupDeadline,
		pq.Array(&t.CreationDates),
		&t.SecondsPerGame, &t.NTeams, &t.PlayersPerTeam, &t.TeamsPerMatch,
		&t.Type, &registerTeams, &teams, &bracket, &t.CreatedAt, &t.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament: %w", err)
	}
	if err := unmarshalAggregate(t, registerTeams, teams, bracket); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) scanMany(rows *sql.Rows) ([]models.Tournament, error) {
	var tournaments []models.Tournament
	for rows.Next() {
		t := models.Tournament{}
		var registerTeams, teams, bracket []byte
		err := rows.Scan(
			&t.ID, &t.Title, &t.Status, &t.SignupBegin, &t.SignupDeadline,
			pq.Array(&t.CreationDates),
			&t.SecondsPerGame, &t.NTeams, &t.PlayersPerTeam, &t.TeamsPerMatch,
			&t.Type, &registerTeams, &teams, &bracket, &t.CreatedAt, &t.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		if err := unmarshalAggregate(&t, registerTeams, teams, bracket); err != nil {
			return nil, err
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func marshalAggregate(t *models.Tournament) (registerTeams, teams, bracket []byte, err error) {
	if t.RegisterTeams == nil {
		t.RegisterTeams = []models.RegisterTeam{}
	}
	if t.Teams == nil {
		t.Teams = []models.Team{}
	}
	if t.Brackets == nil {
		t.Brackets = [][]models.BracketSlot{}
	}
	if registerTeams, err = json.Marshal(t.RegisterTeams); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal register teams: %w", err)
	}
	if teams, err = json.Marshal(t.Teams); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal teams: %w", err)
	}
	if bracket, err = json.Marshal(t.Brackets); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal brackets: %w", err)
	}
	return registerTeams, teams, bracket, nil
}

func unmarshalAggregate(t *models.Tournament, registerTeams, teams, bracket []byte) error {
	if err := json.Unmarshal(registerTeams, &t.RegisterTeams); err != nil {
		return fmt.Errorf("failed to unmarshal register teams: %w", err)
	}
	if err := json.Unmarshal(teams, &t.Teams); err != nil {
		return fmt.Errorf("failed to unmarshal teams: %w", err)
	}
	if err := json.Unmarshal(bracket, &t.Brackets); err != nil {
		return fmt.Errorf("failed to unmarshal brackets: %w", err)
	}
	return nil
}
