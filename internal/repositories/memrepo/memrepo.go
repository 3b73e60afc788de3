// Package memrepo is an in-process Directory Store. It backs local development
// (DIRECTORY_BACKEND=memory) and the service tests.
package memrepo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/guildchat/internal/models"
	"github.com/prudhvinik1/guildchat/internal/repositories"
)

// Store holds every collection behind one lock. Records are copied on the way in
// and out so callers never share memory with the store.
type Store struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]models.User
	servers  map[uuid.UUID]models.Server
	members  []models.ServerMember
	channels map[uuid.UUID]models.Channel
	messages []models.Message
	threads  []models.DirectThread
	activity []models.ActivityRecord
	sessions map[string]models.Session
	presence map[uuid.UUID]models.Presence

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:    make(map[uuid.UUID]models.User),
		servers:  make(map[uuid.UUID]models.Server),
		channels: make(map[uuid.UUID]models.Channel),
		sessions: make(map[string]models.Session),
		presence: make(map[uuid.UUID]models.Presence),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Directory exposes the store through the repository interfaces.
func (s *Store) Directory() *repositories.Directory {
	return &repositories.Directory{
		Users:     (*userRepo)(s),
		Servers:   (*serverRepo)(s),
		Members:   (*memberRepo)(s),
		Channels:  (*channelRepo)(s),
		Messages:  (*messageRepo)(s),
		Threads:   (*threadRepo)(s),
		Activity:  (*activityRepo)(s),
		Sessions:  (*sessionRepo)(s),
		Presences: (*presenceRepo)(s),
	}
}

type userRepo Store

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	user.ID = uuid.New()
	user.CreatedAt = s.now()
	if user.Status == "" {
		user.Status = string(models.StatusOffline)
	}
	s.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &user, nil
}

func (r *userRepo) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make(map[uuid.UUID]*models.User, len(ids))
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			users[id] = &user
		}
	}
	return users, nil
}

func (r *userRepo) find(match func(models.User) bool) (*models.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if match(user) {
			return &user, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r *userRepo) GetByUserNumber(_ context.Context, userNumber string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.UserNumber == userNumber })
}

func (r *userRepo) sorted(match func(models.User) bool, limit int) []*models.User {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []*models.User
	for _, user := range s.users {
		if match(user) {
			u := user
			users = append(users, &u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users
}

func (r *userRepo) Search(_ context.Context, query string, limit int) ([]*models.User, error) {
	lowered := strings.ToLower(query)
	return r.sorted(func(u models.User) bool {
		return strings.Contains(strings.ToLower(u.Username), lowered) ||
			strings.HasPrefix(u.UserNumber, query)
	}, limit), nil
}

func (r *userRepo) List(_ context.Context, limit int) ([]*models.User, error) {
	return r.sorted(func(models.User) bool { return true }, limit), nil
}

func (r *userRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.Status = status
	s.users[id] = user
	return nil
}

func (r *userRepo) Delete(_ context.Context, id uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (r *userRepo) Count(_ context.Context) (int64, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

type serverRepo Store

func (r *serverRepo) Create(_ context.Context, server *models.Server) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	server.ID = uuid.New()
	server.CreatedAt = s.now()
	s.servers[server.ID] = *server
	return nil
}

func (r *serverRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Server, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	server, ok := s.servers[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &server, nil
}

func (r *serverRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*models.Server, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var servers []*models.Server
	for _, id := range ids {
		if server, ok := s.servers[id]; ok {
			servers = append(servers, &server)
		}
	}
	sort.SliceStable(servers, func(i, j int) bool {
		return servers[i].CreatedAt.Before(servers[j].CreatedAt)
	})
	return servers, nil
}

func (r *serverRepo) Delete(_ context.Context, id uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.servers[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.servers, id)
	return nil
}

func (r *serverRepo) Count(_ context.Context) (int64, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.servers)), nil
}

type memberRepo Store

func (r *memberRepo) Add(_ context.Context, member *models.ServerMember) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.members {
		if existing.ServerID == member.ServerID && existing.UserID == member.UserID {
			return nil
		}
	}
	member.JoinedAt = s.now()
	s.members = append(s.members, *member)
	return nil
}

func (r *memberRepo) Get(_ context.Context, serverID, userID uuid.UUID) (*models.ServerMember, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, member := range s.members {
		if member.ServerID == serverID && member.UserID == userID {
			return &member, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *memberRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.ServerMember, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var members []*models.ServerMember
	for _, member := range s.members {
		if member.UserID == userID {
			m := member
			members = append(members, &m)
		}
	}
	return members, nil
}

func (r *memberRepo) DeleteByServer(_ context.Context, serverID uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.members[:0]
	for _, member := range s.members {
		if member.ServerID != serverID {
			kept = append(kept, member)
		}
	}
	s.members = kept
	return nil
}

type channelRepo Store

func (r *channelRepo) Create(_ context.Context, channel *models.Channel) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	channel.ID = uuid.New()
	channel.CreatedAt = s.now()
	s.channels[channel.ID] = *channel
	return nil
}

func (r *channelRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Channel, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	channel, ok := s.channels[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &channel, nil
}

func (r *channelRepo) ListByServer(_ context.Context, serverID uuid.UUID) ([]*models.Channel, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var channels []*models.Channel
	for _, channel := range s.channels {
		if channel.ServerID == serverID {
			c := channel
			channels = append(channels, &c)
		}
	}
	sort.SliceStable(channels, func(i, j int) bool {
		return channels[i].CreatedAt.Before(channels[j].CreatedAt)
	})
	return channels, nil
}

func (r *channelRepo) DeleteByServer(_ context.Context, serverID uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, channel := range s.channels {
		if channel.ServerID == serverID {
			delete(s.channels, id)
		}
	}
	return nil
}
