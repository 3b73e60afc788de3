package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/prudhvinik1/guildchat/internal/models"
	"github.com/prudhvinik1/guildchat/internal/repositories"
	"go.uber.org/zap"
)

const (
	UserSearchLimit = 20

	defaultTextChannel  = "general"
	defaultVoiceChannel = "General Voice"
)

// UserResult is a search hit with its live presence.
type UserResult struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	UserNumber string    `json:"user_number"`
	Avatar     *string   `json:"avatar"`
	Status     string    `json:"status"`
}

type ServerService struct {
	users    repositories.UserRepository
	servers  repositories.ServerRepository
	members  repositories.MemberRepository
	channels repositories.ChannelRepository

	statuses StatusReader
	activity *ActivityLogger
	log      *zap.Logger
}

func NewServerService(dir *repositories.Directory, statuses StatusReader, activity *ActivityLogger, log *zap.Logger) *ServerService {
	return &ServerService{
		users:    dir.Users,
		servers:  dir.Servers,
		members:  dir.Members,
		channels: dir.Channels,
		statuses: statuses,
		activity: activity,
		log:      log.Named("servers"),
	}
}

// CreateServer creates a server owned by ownerID with one text and one voice channel.
func (s *ServerService) CreateServer(ctx context.Context, ownerID uuid.UUID, name string, icon *string) (*models.Server, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("server name is required")
	}

	server := &models.Server{Name: name, OwnerID: ownerID, Icon: icon}
	if err := s.servers.Create(ctx, server); err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	owner := &models.ServerMember{ServerID: server.ID, UserID: ownerID, Role: models.RoleOwner}
	if err := s.members.Add(ctx, owner); err != nil {
		return nil, fmt.Errorf("failed to add owner: %w", err)
	}

	defaults := []*models.Channel{
		{ServerID: server.ID, Name: defaultTextChannel, Type: models.ChannelText},
		{ServerID: server.ID, Name: defaultVoiceChannel, Type: models.ChannelVoice},
	}
	for _, channel := range defaults {
		if err := s.channels.Create(ctx, channel); err != nil {
			return nil, fmt.Errorf("failed to create default channel: %w", err)
		}
	}

	s.log.Info("server created", zap.Stringer("server_id", server.ID), zap.Stringer("owner_id", ownerID))
	s.activity.Log(ctx, ownerID, models.ActionCreateServer, map[string]any{
		"server_id":   server.ID.String(),
		"server_name": server.Name,
	})
	return server, nil
}

// ListServers returns the servers userID belongs to.
func (s *ServerService) ListServers(ctx context.Context, userID uuid.UUID) ([]*models.Server, error) {
	memberships, err := s.members.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	if len(memberships) == 0 {
		return []*models.Server{}, nil
	}

	ids := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.ServerID)
	}
	servers, err := s.servers.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get servers: %w", err)
	}
	if servers == nil {
		servers = []*models.Server{}
	}
	return servers, nil
}

// JoinServer adds userID as a member. Joining twice is not an error.
func (s *ServerService) JoinServer(ctx context.Context, userID, serverID uuid.UUID) (*models.Server, error) {
	server, err := s.servers.GetByID(ctx, serverID)
	if err != nil {
		return nil, notFound(err, "server")
	}

	member := &models.ServerMember{ServerID: serverID, UserID: userID, Role: models.RoleMember}
	if err := s.members.Add(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to join server: %w", err)
	}

	s.activity.Log(ctx, userID, models.ActionJoinServer, map[string]any{
		"server_id": serverID.String(),
	})
	return server, nil
}

func (s *ServerService) ListChannels(ctx context.Context, serverID uuid.UUID) ([]*models.Channel, error) {
	if _, err := s.servers.GetByID(ctx, serverID); err != nil {
		return nil, notFound(err, "server")
	}

	channels, err := s.channels.ListByServer(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	if channels == nil {
		channels = []*models.Channel{}
	}
	return channels, nil
}

func (s *ServerService) CreateChannel(ctx context.Context, userID, serverID uuid.UUID, name string, channelType models.ChannelType) (*models.Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("channel name is required")
	}
	if channelType == "" {
		channelType = models.ChannelText
	}
	if !channelType.Valid() {
		return nil, validationError("channel type must be text or voice")
	}
	if _, err := s.servers.GetByID(ctx, serverID); err != nil {
		return nil, notFound(err, "server")
	}

	channel := &models.Channel{ServerID: serverID, Name: name, Type: channelType}
	if err := s.channels.Create(ctx, channel); err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	s.activity.Log(ctx, userID, models.ActionCreateChannel, map[string]any{
		"server_id":    serverID.String(),
		"channel_id":   channel.ID.String(),
		"channel_name": channel.Name,
		"channel_type": string(channel.Type),
	})
	return channel, nil
}

// SearchUsers matches usernames by substring and user numbers by prefix.
func (s *ServerService) SearchUsers(ctx context.Context, query string) ([]*UserResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*UserResult{}, nil
	}

	users, err := s.users.Search(ctx, query, UserSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	results := make([]*UserResult, 0, len(users))
	for _, u := range users {
		results = append(results, &UserResult{
			ID:         u.ID,
			Username:   u.Username,
			UserNumber: u.UserNumber,
			Avatar:     u.Avatar,
			Status:     string(s.statuses.Status(u.ID)),
		})
	}
	return results, nil
}
