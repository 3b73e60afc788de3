package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/guildchat/internal/models"
	"github.com/prudhvinik1/guildchat/internal/repositories"
	"go.uber.org/zap"
)

const activityTimeout = 2 * time.Second

// ActivityLogger appends audit records. A failed append is logged and dropped; it
// never fails the operation being audited.
type ActivityLogger struct {
	repo repositories.ActivityRepository
	log  *zap.Logger
}

func NewActivityLogger(repo repositories.ActivityRepository, log *zap.Logger) *ActivityLogger {
	return &ActivityLogger{repo: repo, log: log.Named("activity")}
}

func (a *ActivityLogger) Log(ctx context.Context, userID uuid.UUID, action string, details map[string]any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), activityTimeout)
	defer cancel()

	record := &models.ActivityRecord{
		UserID:  userID,
		Action:  action,
		Details: details,
	}
	if err := a.repo.Append(ctx, record); err != nil {
		a.log.Warn("append activity",
			zap.Stringer("user_id", userID),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
