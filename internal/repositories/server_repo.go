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

type PostgresServerRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresServerRepository(pool *pgxpool.Pool) *PostgresServerRepository {
	return &PostgresServerRepository{pool: pool}
}

func (r *PostgresServerRepository) Create(ctx context.Context, server *models.Server) error {
	query := `INSERT INTO servers (name, owner_id, icon)
	          VALUES ($1, $2, $3)
	          RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query, server.Name, server.OwnerID, server.Icon).
		Scan(&server.ID, &server.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return nil
}

func (r *PostgresServerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Server, error) {
	query := `SELECT id, name, owner_id, icon, created_at FROM servers WHERE id = $1`

	var server models.Server
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&server.ID, &server.Name, &server.OwnerID, &server.Icon, &server.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get server: %w", err)
	}
	return &server, nil
}

func (r *PostgresServerRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Server, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT id, name, owner_id, icon, created_at FROM servers
	          WHERE id = ANY($1)
	          ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query servers: %w", err)
	}
	defer rows.Close()

	var servers []*models.Server
	for rows.Next() {
		var server models.Server
		if err := rows.Scan(&server.ID, &server.Name, &server.OwnerID, &server.Icon, &server.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan server: %w", err)
		}
		servers = append(servers, &server)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating servers: %w", err)
	}
	return servers, nil
}

func (r *PostgresServerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM servers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresServerRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM servers`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count servers: %w", err)
	}
	return count, nil
}

type PostgresMemberRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresMemberRepository(pool *pgxpool.Pool) *PostgresMemberRepository {
	return &PostgresMemberRepository{pool: pool}
}

// Add inserts a membership. Adding an existing member leaves the original row as is.
func (r *PostgresMemberRepository) Add(ctx context.Context, member *models.ServerMember) error {
	query := `INSERT INTO server_members (server_id, user_id, role)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (server_id, user_id) DO NOTHING
	          RETURNING joined_at`

	err := r.pool.QueryRow(ctx, query, member.ServerID, member.UserID, member.Role).Scan(&member.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to add server member: %w", err)
	}
	return nil
}

func (r *PostgresMemberRepository) Get(ctx context.Context, serverID, userID uuid.UUID) (*models.ServerMember, error) {
	query := `SELECT server_id, user_id, role, joined_at FROM server_members
	          WHERE server_id = $1 AND user_id = $2`

	var member models.ServerMember
	err := r.pool.QueryRow(ctx, query, serverID, userID).
		Scan(&member.ServerID, &member.UserID, &member.Role, &member.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get server member: %w", err)
	}
	return &member, nil
}

func (r *PostgresMemberRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ServerMember, error) {
	query := `SELECT server_id, user_id, role, joined_at FROM server_members
	          WHERE user_id = $1
	          ORDER BY joined_at ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer rows.Close()

	var members []*models.ServerMember
	for rows.Next() {
		var member models.ServerMember
		if err := rows.Scan(&member.ServerID, &member.UserID, &member.Role, &member.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		members = append(members, &member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}
	return members, nil
}

func (r *PostgresMemberRepository) DeleteByServer(ctx context.Context, serverID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM server_members WHERE server_id = $1`, serverID); err != nil {
		return fmt.Errorf("failed to delete server members: %w", err)
	}
	return nil
}
