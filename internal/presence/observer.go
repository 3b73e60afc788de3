package presence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/guildchat/internal/models"
	"github.com/prudhvinik1/guildchat/internal/repositories"
	"go.uber.org/zap"
)

const observerTimeout = 3 * time.Second

// DirectoryObserver copies status transitions into the durable users table and the
// presence mirror. Both writes are best-effort.
type DirectoryObserver struct {
	users     repositories.UserRepository
	presences repositories.PresenceRepository
	log       *zap.Logger
}

func NewDirectoryObserver(users repositories.UserRepository, presences repositories.PresenceRepository, log *zap.Logger) *DirectoryObserver {
	return &DirectoryObserver{
		users:     users,
		presences: presences,
		log:       log.Named("presence-observer"),
	}
}

func (o *DirectoryObserver) StatusChanged(userID uuid.UUID, status models.PresenceStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), observerTimeout)
	defer cancel()

	if err := o.users.UpdateStatus(ctx, userID, string(status)); err != nil {
		o.log.Warn("persist user status", zap.Stringer("user_id", userID), zap.Error(err))
	}

	var err error
	if status == models.StatusOffline {
		err = o.presences.DeletePresence(ctx, userID)
	} else {
		err = o.presences.SetPresence(ctx, &models.Presence{UserID: userID, Status: string(status)})
	}
	if err != nil {
		o.log.Warn("mirror presence", zap.Stringer("user_id", userID), zap.Error(err))
	}
}

// StatusSource is the read side of the registry the mirror refresher needs.
type StatusSource interface {
	OnlineUsers() []uuid.UUID
	Status(userID uuid.UUID) models.PresenceStatus
}

// RunMirrorRefresh rewrites the presence mirror for every connected user on each tick
// so long-lived connections do not fall out of it when their TTL lapses. It returns
// when ctx is done.
func (o *DirectoryObserver) RunMirrorRefresh(ctx context.Context, source StatusSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, userID := range source.OnlineUsers() {
				status := source.Status(userID)
				if status == models.StatusOffline {
					continue
				}
				err := o.presences.SetPresence(ctx, &models.Presence{UserID: userID, Status: string(status)})
				if err != nil {
					o.log.Warn("refresh presence", zap.Stringer("user_id", userID), zap.Error(err))
				}
			}
		}
	}
}
