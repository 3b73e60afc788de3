package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/guildchat/internal/models"
)

type PostgresActivityRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresActivityRepository(pool *pgxpool.Pool) *PostgresActivityRepository {
	return &PostgresActivityRepository{pool: pool}
}

func (r *PostgresActivityRepository) Append(ctx context.Context, record *models.ActivityRecord) error {
	query := `INSERT INTO activity_logs (user_id, action, details)
	          VALUES ($1, $2, $3)
	          RETURNING id, timestamp`

	if record.Details == nil {
		record.Details = map[string]any{}
	}

	err := r.pool.QueryRow(ctx, query, record.UserID, record.Action, record.Details).
		Scan(&record.ID, &record.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

func (r *PostgresActivityRepository) ListRecent(ctx context.Context, limit int) ([]*models.ActivityRecord, error) {
	query := `SELECT id, user_id, action, details, timestamp FROM activity_logs
	          ORDER BY timestamp DESC
	          LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var records []*models.ActivityRecord
	for rows.Next() {
		var record models.ActivityRecord
		if err := rows.Scan(&record.ID, &record.UserID, &record.Action, &record.Details, &record.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}
	return records, nil
}
