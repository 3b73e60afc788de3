package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/prudhvinik1/guildchat/internal/models"
	"github.com/prudhvinik1/guildchat/internal/repositories"
	"go.uber.org/zap"
)

const (
	AdminListLimit     = 100
	AdminActivityLimit = 200
)

// OnlineCounter reports how many users hold a live connection.
type OnlineCounter interface {
	OnlineCount() int
}

type Stats struct {
	TotalUsers    int64 `json:"total_users"`
	TotalServers  int64 `json:"total_servers"`
	TotalMessages int64 `json:"total_messages"`
	OnlineUsers   int   `json:"online_users"`
}

// AdminService backs the operator console. Callers are expected to have checked
// is_admin already.
type AdminService struct {
	users    repositories.UserRepository
	servers  repositories.ServerRepository
	members  repositories.MemberRepository
	channels repositories.ChannelRepository
	messages repositories.MessageRepository
	activity repositories.ActivityRepository

	conversations *ConversationService
	online        OnlineCounter
	audit         *ActivityLogger
	log           *zap.Logger
}

func NewAdminService(
	dir *repositories.Directory,
	conversations *ConversationService,
	online OnlineCounter,
	audit *ActivityLogger,
	log *zap.Logger,
) *AdminService {
	return &AdminService{
		users:         dir.Users,
		servers:       dir.Servers,
		members:       dir.Members,
		channels:      dir.Channels,
		messages:      dir.Messages,
		activity:      dir.Activity,
		conversations: conversations,
		online:        online,
		audit:         audit,
		log:           log.Named("admin"),
	}
}

func (s *AdminService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

// RecentMessages returns the newest messages first, each with its author and a
// human readable location.
func (s *AdminService) RecentMessages(ctx context.Context) ([]*models.MessageView, error) {
	messages, err := s.messages.ListRecent(ctx, AdminListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	authorIDs := make([]uuid.UUID, 0, len(messages))
	for _, m := range messages {
		authorIDs = append(authorIDs, m.UserID)
	}
	authors, err := s.users.GetByIDs(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve authors: %w", err)
	}

	views := make([]*models.MessageView, 0, len(messages))
	for _, m := range messages {
		view := &models.MessageView{Message: *m, Location: s.location(ctx, m)}
		if author, ok := authors[m.UserID]; ok {
			snapshot := author.Author()
			view.User = &snapshot
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *AdminService) location(ctx context.Context, m *models.Message) string {
	if m.DMID != nil {
		return "Direct Message"
	}
	if m.ChannelID == nil {
		return "Unknown"
	}

	channel, err := s.channels.GetByID(ctx, *m.ChannelID)
	if err != nil {
		return "Unknown"
	}
	server, err := s.servers.GetByID(ctx, channel.ServerID)
	if err != nil {
		return "#" + channel.Name
	}
	return server.Name + " > #" + channel.Name
}

func (s *AdminService) RecentActivity(ctx context.Context) ([]*models.ActivityView, error) {
	records, err := s.activity.ListRecent(ctx, AdminActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	userIDs := make([]uuid.UUID, 0, len(records))
	for _, r := range records {
		userIDs = append(userIDs, r.UserID)
	}
	users, err := s.users.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve activity users: %w", err)
	}

	views := make([]*models.ActivityView, 0, len(records))
	for _, r := range records {
		view := &models.ActivityView{ActivityRecord: *r}
		if u, ok := users[r.UserID]; ok {
			view.User = &models.UserSummary{Username: u.Username, Email: u.Email, UserNumber: u.UserNumber}
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *AdminService) DeleteUser(ctx context.Context, adminID, userID uuid.UUID) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return notFound(err, "user")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return notFound(err, "user")
	}

	s.log.Info("user deleted", zap.Stringer("admin_id", adminID), zap.Stringer("user_id", userID))
	s.audit.Log(ctx, adminID, models.ActionAdminDeleteUser, map[string]any{
		"deleted_user_id":  userID.String(),
		"deleted_username": user.Username,
	})
	return nil
}

func (s *AdminService) DeleteMessage(ctx context.Context, adminID, messageID uuid.UUID) error {
	message, err := s.conversations.DeleteMessage(ctx, messageID)
	if err != nil {
		return err
	}

	s.audit.Log(ctx, adminID, models.ActionAdminDeleteMessage, map[string]any{
		"message_id": messageID.String(),
		"author_id":  message.UserID.String(),
	})
	return nil
}

// DeleteServer removes the server with its channels and memberships. Messages in
// its channels are left in place.
func (s *AdminService) DeleteServer(ctx context.Context, adminID, serverID uuid.UUID) error {
	server, err := s.servers.GetByID(ctx, serverID)
	if err != nil {
		return notFound(err, "server")
	}

	if err := s.channels.DeleteByServer(ctx, serverID); err != nil {
		return fmt.Errorf("failed to delete channels: %w", err)
	}
	if err := s.members.DeleteByServer(ctx, serverID); err != nil {
		return fmt.Errorf("failed to delete members: %w", err)
	}
	if err := s.servers.Delete(ctx, serverID); err != nil {
		return notFound(err, "server")
	}

	s.log.Info("server deleted", zap.Stringer("admin_id", adminID), zap.Stringer("server_id", serverID))
	s.audit.Log(ctx, adminID, models.ActionAdminDeleteServer, map[string]any{
		"server_id":   serverID.String(),
		"server_name": server.Name,
	})
	return nil
}

func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	servers, err := s.servers.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count servers: %w", err)
	}
	messages, err := s.messages.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	return &Stats{
		TotalUsers:    users,
		TotalServers:  servers,
		TotalMessages: messages,
		OnlineUsers:   s.online.OnlineCount(),
	}, nil
}
