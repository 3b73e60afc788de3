package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/guildchat/internal/models"
)

type PostgresChannelRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresChannelRepository(pool *pgxpool.Pool) *PostgresChannelRepository {
	return &PostgresChannelRepository{pool: pool}
}

func (r *PostgresChannelRepository) Create(ctx context.Context, channel *models.Channel) error {
	query := `INSERT INTO channels (server_id, name, type)
	          VALUES ($1, $2, $3)
	          RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query, channel.ServerID, channel.Name, channel.Type).
		Scan(&channel.ID, &channel.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return nil
}

func (r *PostgresChannelRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	query := `SELECT id, server_id, name, type, created_at FROM channels WHERE id = $1`

	var channel models.Channel
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&channel.ID, &channel.ServerID, &channel.Name, &channel.Type, &channel.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	return &channel, nil
}

func (r *PostgresChannelRepository) ListByServer(ctx context.Context, serverID uuid.UUID) ([]*models.Channel, error) {
	query := `SELECT id, server_id, name, type, created_at FROM channels
	          WHERE server_id = $1
	          ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer rows.Close()

	var channels []*models.Channel
	for rows.Next() {
		var channel models.Channel
		if err := rows.Scan(&channel.ID, &channel.ServerID, &channel.Name, &channel.Type, &channel.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, &channel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channels: %w", err)
	}
	return channels, nil
}

func (r *PostgresChannelRepository) DeleteByServer(ctx context.Context, serverID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM channels WHERE server_id = $1`, serverID); err != nil {
		return fmt.Errorf("failed to delete channels: %w", err)
	}
	return nil
}
