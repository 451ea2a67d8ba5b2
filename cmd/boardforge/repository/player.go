package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/boardforge/boardforge/common/models"
)

// PlayerRepository handles database operations for seats
type PlayerRepository struct {
	q Querier
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(q Querier) *PlayerRepository {
	return &PlayerRepository{q: q}
}

// CreatePlayer inserts a new seat and fills the assigned identity
func (r *PlayerRepository) CreatePlayer(ctx context.Context, player *models.Player) error {
	query := `
		INSERT INTO player (version_id, user_id, name, seat_order, original_player_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		player.VersionID,
		player.UserID,
		player.Name,
		player.SeatOrder,
		player.OriginalPlayerID,
	).Scan(&player.ID, &player.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}

	return nil
}

// ListPlayers retrieves a version's seats in seat order
func (r *PlayerRepository) ListPlayers(ctx context.Context, versionID uuid.UUID) ([]*models.Player, error) {
	query := `
		SELECT id, version_id, user_id, name, seat_order, original_player_id, created_at
		FROM player
		WHERE version_id = $1
		ORDER BY seat_order ASC
	`

	rows, err := r.q.Query(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		player := &models.Player{}
		err := rows.Scan(
			&player.ID,
			&player.VersionID,
			&player.UserID,
			&player.Name,
			&player.SeatOrder,
			&player.OriginalPlayerID,
			&player.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, player)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return players, nil
}

// ClaimSeat binds the first unclaimed seat of the version to the user.
// Joining twice returns the seat already held. SKIP LOCKED keeps two
// users joining at once from fighting over one row.
func (r *PlayerRepository) ClaimSeat(ctx context.Context, versionID uuid.UUID, userID string) (*models.Player, error) {
	existing := `
		SELECT id, version_id, user_id, name, seat_order, original_player_id, created_at
		FROM player
		WHERE version_id = $1 AND user_id = $2
	`

	player := &models.Player{}
	err := r.q.QueryRow(ctx, existing, versionID, userID).Scan(
		&player.ID,
		&player.VersionID,
		&player.UserID,
		&player.Name,
		&player.SeatOrder,
		&player.OriginalPlayerID,
		&player.CreatedAt,
	)
	if err == nil {
		return player, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up seat: %w", err)
	}

	claim := `
		UPDATE player
		SET user_id = $2
		WHERE id = (
			SELECT id FROM player
			WHERE version_id = $1 AND user_id IS NULL
			ORDER BY seat_order ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, version_id, user_id, name, seat_order, original_player_id, created_at
	`

	err = r.q.QueryRow(ctx, claim, versionID, userID).Scan(
		&player.ID,
		&player.VersionID,
		&player.UserID,
		&player.Name,
		&player.SeatOrder,
		&player.OriginalPlayerID,
		&player.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, "no free seat in version %s", versionID)
	}

	return player, nil
}
