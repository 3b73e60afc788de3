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

const messageColumns = `id, channel_id, dm_id, user_id, content, attachments, timestamp`

type PostgresMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresMessageRepository(pool *pgxpool.Pool) *PostgresMessageRepository {
	return &PostgresMessageRepository{pool: pool}
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var message models.Message
	err := row.Scan(
		&message.ID,
		&message.ChannelID,
		&message.DMID,
		&message.UserID,
		&message.Content,
		&message.Attachments,
		&message.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	if message.Attachments == nil {
		message.Attachments = []string{}
	}
	return &message, nil
}

// Create stores the message with the id and timestamp the caller assigned.
// The container check is enforced again by the table's CHECK constraint.
func (r *PostgresMessageRepository) Create(ctx context.Context, message *models.Message) error {
	query := `INSERT INTO messages (id, channel_id, dm_id, user_id, content, attachments, timestamp)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if message.Attachments == nil {
		message.Attachments = []string{}
	}

	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.ChannelID,
		message.DMID,
		message.UserID,
		message.Content,
		message.Attachments,
		message.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	message, err := scanMessage(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return message, nil
}

func (r *PostgresMessageRepository) ListByChannel(ctx context.Context, channelID uuid.UUID, limit int) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
	          WHERE channel_id = $1
	          ORDER BY timestamp ASC
	          LIMIT $2`
	return r.queryMessages(ctx, query, channelID, limit)
}

func (r *PostgresMessageRepository) ListByDirectThread(ctx context.Context, threadID uuid.UUID, limit int) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
	          WHERE dm_id = $1
	          ORDER BY timestamp ASC
	          LIMIT $2`
	return r.queryMessages(ctx, query, threadID, limit)
}

// ListRecent returns the newest messages across all containers, newest first.
func (r *PostgresMessageRepository) ListRecent(ctx context.Context, limit int) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
	          ORDER BY timestamp DESC
	          LIMIT $1`
	return r.queryMessages(ctx, query, limit)
}

func (r *PostgresMessageRepository) queryMessages(ctx context.Context, query string, args ...any) ([]*models.Message, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

func (r *PostgresMessageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}
