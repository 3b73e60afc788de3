package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prudhvinik1/guildchat/internal/models"
	"github.com/prudhvinik1/guildchat/internal/repositories"
)

// AuthorResolver annotates messages with author snapshots. Authors that no longer
// exist are left without a snapshot.
type AuthorResolver interface {
	Resolve(ctx context.Context, messages []*models.Message) (map[uuid.UUID]*models.User, error)
}

// BatchAuthorResolver loads all distinct authors with one lookup.
type BatchAuthorResolver struct {
	users repositories.UserRepository
}

func NewBatchAuthorResolver(users repositories.UserRepository) *BatchAuthorResolver {
	return &BatchAuthorResolver{users: users}
}

func (r *BatchAuthorResolver) Resolve(ctx context.Context, messages []*models.Message) (map[uuid.UUID]*models.User, error) {
	seen := make(map[uuid.UUID]struct{}, len(messages))
	ids := make([]uuid.UUID, 0, len(messages))
	for _, m := range messages {
		if _, ok := seen[m.UserID]; ok {
			continue
		}
		seen[m.UserID] = struct{}{}
		ids = append(ids, m.UserID)
	}

	users, err := r.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve authors: %w", err)
	}
	return users, nil
}

// PerMessageAuthorResolver fetches each message's author individually.
type PerMessageAuthorResolver struct {
	users repositories.UserRepository
}

func NewPerMessageAuthorResolver(users repositories.UserRepository) *PerMessageAuthorResolver {
	return &PerMessageAuthorResolver{users: users}
}

func (r *PerMessageAuthorResolver) Resolve(ctx context.Context, messages []*models.Message) (map[uuid.UUID]*models.User, error) {
	users := make(map[uuid.UUID]*models.User, len(messages))
	for _, m := range messages {
		user, err := r.users.GetByID(ctx, m.UserID)
		if errors.Is(err, repositories.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve author: %w", err)
		}
		users[m.UserID] = user
	}
	return users, nil
}
