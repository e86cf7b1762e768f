package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var ErrGameNotFound = errors.New("game not found")

// GameRepository creates and releases game instances on behalf of the
// external card-game engine. The engine owns the rows once created; the
// orchestration core only ever references games by id and, on abort,
// disassociates them from the tournament without deleting them.
type GameRepository interface {
	CreateInstance(ctx context.Context, tournamentID int, playerIDs []int, teams [][]int, secondsPerGame int) (int, error)
	Release(ctx context.Context, gameIDs []int) error
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

func (r *postgresGameRepository) CreateInstance(ctx context.Context, tournamentID int, playerIDs []int, teams [][]int, secondsPerGame int) (int, error) {
	// Team membership is stored flattened with per-team offsets; the game
	// engine reconstructs seating from players_per_team.
	playersPerTeam := 0
	if len(teams) > 0 {
		playersPerTeam = len(teams[0])
	}

	var gameID int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO games (tournament_id, player_ids, n_players, players_per_team, seconds_per_game)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		tournamentID, pq.Array(playerIDs), len(playerIDs), playersPerTeam, secondsPerGame,
	).Scan(&gameID)
	if err != nil {
		return 0, fmt.Errorf("failed to create game instance: %w", err)
	}
	return gameID, nil
}

func (r *postgresGameRepository) Release(ctx context.Context, gameIDs []int) error {
	if len(gameIDs) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET tournament_id = NULL WHERE id = ANY($1)`, pq.Array(gameIDs))
	if err != nil {
		return fmt.Errorf("failed to release games: %w", err)
	}
	return nil
}
