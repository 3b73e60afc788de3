package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/guildchat/internal/metrics"
	"github.com/prudhvinik1/guildchat/internal/models"
	"github.com/prudhvinik1/guildchat/internal/presence"
	"github.com/prudhvinik1/guildchat/internal/repositories"
	"github.com/prudhvinik1/guildchat/internal/repositories/memrepo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConn struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (c *fakeConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, payload)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// eventsOfType decodes every payload whose type matches.
func (c *fakeConn) eventsOfType(t *testing.T, eventType string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []map[string]any
	for _, raw := range c.sent {
		var ev map[string]any
		require.NoError(t, json.Unmarshal(raw, &ev))
		if ev["type"] == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type failingActivityRepo struct{}

func (failingActivityRepo) Append(context.Context, *models.ActivityRecord) error {
	return fmt.Errorf("activity store unavailable")
}

func (failingActivityRepo) ListRecent(context.Context, int) ([]*models.ActivityRecord, error) {
	return nil, fmt.Errorf("activity store unavailable")
}

type testEnv struct {
	store    *memrepo.Store
	dir      *repositories.Directory
	registry *presence.Registry

	conversations *ConversationService
	auth          *AuthService
	servers       *ServerService
	admin         *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := zap.NewNop()
	store := memrepo.New()
	dir := store.Directory()
	registry := presence.NewRegistry(log, metrics.New(nil))
	activity := NewActivityLogger(dir.Activity, log)

	conversations := NewConversationService(dir, NewBatchAuthorResolver(dir.Users), registry, registry, activity, metrics.New(nil), log)
	return &testEnv{
		store:         store,
		dir:           dir,
		registry:      registry,
		conversations: conversations,
		auth:          NewAuthService(dir.Users, dir.Sessions, registry, activity, log, "test-secret", time.Hour),
		servers:       NewServerService(dir, registry, activity, log),
		admin:         NewAdminService(dir, conversations, registry, activity, log),
	}
}

var userCounter atomic.Int64

func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()

	n := userCounter.Add(1)
	user := &models.User{
		Email:      fmt.Sprintf("%s-%d@example.com", username, n),
		Username:   username,
		UserNumber: fmt.Sprintf("%08d", n),
	}
	require.NoError(t, e.dir.Users.Create(context.Background(), user))
	return user
}

func (e *testEnv) createTextChannel(t *testing.T, owner uuid.UUID) *models.Channel {
	t.Helper()

	ctx := context.Background()
	server, err := e.servers.CreateServer(ctx, owner, "Guild", nil)
	require.NoError(t, err)

	channel, err := e.servers.CreateChannel(ctx, owner, server.ID, "chat", models.ChannelText)
	require.NoError(t, err)
	return channel
}

func (e *testEnv) connect(userID uuid.UUID) *fakeConn {
	conn := &fakeConn{}
	e.registry.Connect(userID, conn)
	return conn
}
