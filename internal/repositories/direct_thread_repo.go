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

// PostgresDirectThreadRepository stores each pair sorted (user_low < user_high) so
// an unordered lookup is a single equality match. Uniqueness of the pair is not
// enforced here.
type PostgresDirectThreadRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresDirectThreadRepository(pool *pgxpool.Pool) *PostgresDirectThreadRepository {
	return &PostgresDirectThreadRepository{pool: pool}
}

func scanThread(row pgx.Row) (*models.DirectThread, error) {
	var thread models.DirectThread
	err := row.Scan(&thread.ID, &thread.Participants[0], &thread.Participants[1], &thread.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

func (r *PostgresDirectThreadRepository) Create(ctx context.Context, thread *models.DirectThread) error {
	query := `INSERT INTO direct_messages (user_low, user_high)
	          VALUES ($1, $2)
	          RETURNING id, created_at`

	low, high := models.OrderedPair(thread.Participants[0], thread.Participants[1])
	err := r.pool.QueryRow(ctx, query, low, high).Scan(&thread.ID, &thread.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create direct thread: %w", err)
	}
	return nil
}

func (r *PostgresDirectThreadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DirectThread, error) {
	query := `SELECT id, user_low, user_high, created_at FROM direct_messages WHERE id = $1`

	thread, err := scanThread(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get direct thread: %w", err)
	}
	return thread, nil
}

// GetByParticipants returns the oldest thread for the unordered pair {a, b}.
func (r *PostgresDirectThreadRepository) GetByParticipants(ctx context.Context, a, b uuid.UUID) (*models.DirectThread, error) {
	query := `SELECT id, user_low, user_high, created_at FROM direct_messages
	          WHERE user_low = $1 AND user_high = $2
	          ORDER BY created_at ASC
	          LIMIT 1`

	low, high := models.OrderedPair(a, b)
	thread, err := scanThread(r.pool.QueryRow(ctx, query, low, high))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get direct thread by participants: %w", err)
	}
	return thread, nil
}

func (r *PostgresDirectThreadRepository) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*models.DirectThread, error) {
	query := `SELECT id, user_low, user_high, created_at FROM direct_messages
	          WHERE user_low = $1 OR user_high = $1
	          ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query direct threads: %w", err)
	}
	defer rows.Close()

	var threads []*models.DirectThread
	for rows.Next() {
		thread, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan direct thread: %w", err)
		}
		threads = append(threads, thread)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating direct threads: %w", err)
	}
	return threads, nil
}
