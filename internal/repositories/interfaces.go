package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/prudhvinik1/guildchat/internal/models"
)

var ErrNotFound = errors.New("not found")

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUserNumber(ctx context.Context, userNumber string) (*models.User, error)
	Search(ctx context.Context, query string, limit int) ([]*models.User, error)
	List(ctx context.Context, limit int) ([]*models.User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type ServerRepository interface {
	Create(ctx context.Context, server *models.Server) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Server, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Server, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type MemberRepository interface {
	Add(ctx context.Context, member *models.ServerMember) error
	Get(ctx context.Context, serverID, userID uuid.UUID) (*models.ServerMember, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ServerMember, error)
	DeleteByServer(ctx context.Context, serverID uuid.UUID) error
}

type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error)
	ListByServer(ctx context.Context, serverID uuid.UUID) ([]*models.Channel, error)
	DeleteByServer(ctx context.Context, serverID uuid.UUID) error
}

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Message, error)
	ListByChannel(ctx context.Context, channelID uuid.UUID, limit int) ([]*models.Message, error)
	ListByDirectThread(ctx context.Context, threadID uuid.UUID, limit int) ([]*models.Message, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Message, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type DirectThreadRepository interface {
	Create(ctx context.Context, thread *models.DirectThread) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DirectThread, error)
	GetByParticipants(ctx context.Context, a, b uuid.UUID) (*models.DirectThread, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*models.DirectThread, error)
}

type ActivityRepository interface {
	Append(ctx context.Context, record *models.ActivityRecord) error
	ListRecent(ctx context.Context, limit int) ([]*models.ActivityRecord, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
}

type PresenceRepository interface {
	SetPresence(ctx context.Context, presence *models.Presence) error
	GetPresence(ctx context.Context, userID uuid.UUID) (*models.Presence, error)
	DeletePresence(ctx context.Context, userID uuid.UUID) error
	GetBulkPresence(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.Presence, error)
}

// Directory bundles every collection the services touch.
type Directory struct {
	Users     UserRepository
	Servers   ServerRepository
	Members   MemberRepository
	Channels  ChannelRepository
	Messages  MessageRepository
	Threads   DirectThreadRepository
	Activity  ActivityRepository
	Sessions  SessionRepository
	Presences PresenceRepository
}
