package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/guildchat/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	presenceKeyPrefix = "presence:"
	// PresenceTTL bounds how long a mirrored status survives without a refresh.
	PresenceTTL = 90 * time.Second
)

// RedisPresenceRepository mirrors the live registry's statuses for operators and other
// processes. It is never read back by the registry itself.
type RedisPresenceRepository struct {
	client *redis.Client
}

func NewRedisPresenceRepository(client *redis.Client) *RedisPresenceRepository {
	return &RedisPresenceRepository{client: client}
}

func offlinePresence(userID uuid.UUID) models.Presence {
	return models.Presence{
		UserID: userID,
		Status: string(models.StatusOffline),
	}
}

func (r *RedisPresenceRepository) SetPresence(ctx context.Context, presence *models.Presence) error {
	presence.LastSeen = time.Now()

	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}

	if err := r.client.Set(ctx, presenceKey(presence.UserID), data, PresenceTTL).Err(); err != nil {
		return fmt.Errorf("failed to set presence: %w", err)
	}
	return nil
}

func (r *RedisPresenceRepository) GetPresence(ctx context.Context, userID uuid.UUID) (*models.Presence, error) {
	data, err := r.client.Get(ctx, presenceKey(userID)).Result()
	if err == redis.Nil {
		p := offlinePresence(userID)
		return &p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presence: %w", err)
	}

	var presence models.Presence
	if err := json.Unmarshal([]byte(data), &presence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence: %w", err)
	}
	return &presence, nil
}

func (r *RedisPresenceRepository) DeletePresence(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Del(ctx, presenceKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete presence: %w", err)
	}
	return nil
}

// GetBulkPresence resolves many users with one MGET. Unknown or unreadable entries
// are reported offline.
func (r *RedisPresenceRepository) GetBulkPresence(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.Presence, error) {
	presences := make(map[uuid.UUID]models.Presence, len(userIDs))
	if len(userIDs) == 0 {
		return presences, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = presenceKey(id)
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bulk presence: %w", err)
	}

	for i, result := range results {
		userID := userIDs[i]
		presences[userID] = offlinePresence(userID)

		data, ok := result.(string)
		if !ok {
			continue
		}

		var presence models.Presence
		if err := json.Unmarshal([]byte(data), &presence); err != nil {
			continue
		}
		presences[userID] = presence
	}
	return presences, nil
}

func presenceKey(userID uuid.UUID) string {
	return presenceKeyPrefix + userID.String()
}
