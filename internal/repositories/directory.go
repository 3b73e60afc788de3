package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// NewDirectory backs durable collections with Postgres and sessions plus the
// presence mirror with Redis.
func NewDirectory(pool *pgxpool.Pool, client *redis.Client) *Directory {
	return &Directory{
		Users:     NewPostgresUserRepository(pool),
		Servers:   NewPostgresServerRepository(pool),
		Members:   NewPostgresMemberRepository(pool),
		Channels:  NewPostgresChannelRepository(pool),
		Messages:  NewPostgresMessageRepository(pool),
		Threads:   NewPostgresDirectThreadRepository(pool),
		Activity:  NewPostgresActivityRepository(pool),
		Sessions:  NewRedisSessionRepository(client),
		Presences: NewRedisPresenceRepository(client),
	}
}
