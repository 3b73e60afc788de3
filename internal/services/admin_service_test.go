package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prudhvinik1/guildchat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentMessages_NewestFirstWithLocation(t *testing.T) {
	// ARRANGE
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	server, err := env.servers.CreateServer(ctx, alice.ID, "Guild", nil)
	require.NoError(t, err)
	channel, err := env.servers.CreateChannel(ctx, alice.ID, server.ID, "random", models.ChannelText)
	require.NoError(t, err)
	thread, err := env.conversations.CreateOrGetDirectThread(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = env.conversations.PostChannelMessage(ctx, channel.ID, alice.ID, "public", nil)
	require.NoError(t, err)
	_, err = env.conversations.PostDirectMessage(ctx, thread.ID, bob.ID, "private", nil)
	require.NoError(t, err)

	// ACT
	views, err := env.admin.RecentMessages(ctx)

	// ASSERT
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "private", views[0].Content)
	assert.Equal(t, "Direct Message", views[0].Location)
	assert.Equal(t, "bob", views[0].User.Username)
	assert.Equal(t, "public", views[1].Content)
	assert.Equal(t, "Guild > #random", views[1].Location)
}

func TestDeleteServer_CascadesAndLogs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "alice")
	admin := env.createUser(t, "root")
	server, err := env.servers.CreateServer(ctx, owner.ID, "Guild", nil)
	require.NoError(t, err)

	require.NoError(t, env.admin.DeleteServer(ctx, admin.ID, server.ID))

	_, err = env.dir.Servers.GetByID(ctx, server.ID)
	assert.Error(t, err)
	channels, err := env.dir.Channels.ListByServer(ctx, server.ID)
	require.NoError(t, err)
	assert.Empty(t, channels)
	_, err = env.dir.Members.Get(ctx, server.ID, owner.ID)
	assert.Error(t, err)

	activity, err := env.admin.RecentActivity(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, activity)
	assert.Equal(t, models.ActionAdminDeleteServer, activity[0].Action)
	require.NotNil(t, activity[0].User)
	assert.Equal(t, "root", activity[0].User.Username)

	assert.ErrorIs(t, env.admin.DeleteServer(ctx, admin.ID, server.ID), ErrNotFound)
}

func TestDeleteUserAndMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	admin := env.createUser(t, "root")
	channel := env.createTextChannel(t, alice.ID)
	message, err := env.conversations.PostChannelMessage(ctx, channel.ID, alice.ID, "spam", nil)
	require.NoError(t, err)

	require.NoError(t, env.admin.DeleteMessage(ctx, admin.ID, message.ID))
	assert.ErrorIs(t, env.admin.DeleteMessage(ctx, admin.ID, message.ID), ErrNotFound)

	require.NoError(t, env.admin.DeleteUser(ctx, admin.ID, alice.ID))
	assert.ErrorIs(t, env.admin.DeleteUser(ctx, admin.ID, alice.ID), ErrNotFound)
	assert.ErrorIs(t, env.admin.DeleteUser(ctx, admin.ID, uuid.New()), ErrNotFound)

	users, err := env.admin.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "root", users[0].Username)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	env.createUser(t, "bob")
	channel := env.createTextChannel(t, alice.ID)
	_, err := env.conversations.PostChannelMessage(ctx, channel.ID, alice.ID, "hello", nil)
	require.NoError(t, err)
	env.connect(alice.ID)

	stats, err := env.admin.Stats(ctx)

	require.NoError(t, err)
	assert.Equal(t, &Stats{TotalUsers: 2, TotalServers: 1, TotalMessages: 1, OnlineUsers: 1}, stats)
}
