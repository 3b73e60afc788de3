package repositories

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/guildchat/internal/database"
	"github.com/prudhvinik1/guildchat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMessageRepository_ListByChannelOrdered tests ascending timestamp order and
// byte-equal round trip of content and attachments
func TestMessageRepository_ListByChannelOrdered(t *testing.T) {
	pool := getTestPool(t)
	ctx := context.Background()
	users := NewPostgresUserRepository(pool)
	servers := NewPostgresServerRepository(pool)
	channels := NewPostgresChannelRepository(pool)
	messages := NewPostgresMessageRepository(pool)

	author := createTestUser(t, ctx, users)
	defer users.Delete(ctx, author.ID)

	server := &models.Server{Name: "test", OwnerID: author.ID}
	require.NoError(t, servers.Create(ctx, server))
	defer servers.Delete(ctx, server.ID)

	channel := &models.Channel{ServerID: server.ID, Name: "general", Type: models.ChannelText}
	require.NoError(t, channels.Create(ctx, channel))

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i, content := range []string{"third", "first", "second"} {
		offset := []time.Duration{2, 0, 1}[i]
		require.NoError(t, messages.Create(ctx, &models.Message{
			ID:          uuid.New(),
			ChannelID:   &channel.ID,
			UserID:      author.ID,
			Content:     content,
			Attachments: []string{"file-" + content},
			Timestamp:   base.Add(offset * time.Second),
		}))
	}

	// ACT
	list, err := messages.ListByChannel(ctx, channel.ID, 1000)

	// ASSERT
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "first", list[0].Content)
	assert.Equal(t, "second", list[1].Content)
	assert.Equal(t, "third", list[2].Content)
	assert.Equal(t, []string{"file-first"}, list[0].Attachments)
	assert.Nil(t, list[0].DMID)
}

// TestDirectThreadRepository_GetByParticipants tests lookups in either order
func TestDirectThreadRepository_GetByParticipants(t *testing.T) {
	pool := getTestPool(t)
	ctx := context.Background()
	users := NewPostgresUserRepository(pool)
	threads := NewPostgresDirectThreadRepository(pool)

	a := createTestUser(t, ctx, users)
	defer users.Delete(ctx, a.ID)
	b := createTestUser(t, ctx, users)
	defer users.Delete(ctx, b.ID)

	thread := &models.DirectThread{Participants: [2]uuid.UUID{a.ID, b.ID}}
	require.NoError(t, threads.Create(ctx, thread))

	// ACT
	forward, err := threads.GetByParticipants(ctx, a.ID, b.ID)
	require.NoError(t, err)
	reverse, err := threads.GetByParticipants(ctx, b.ID, a.ID)
	require.NoError(t, err)

	// ASSERT
	assert.Equal(t, thread.ID, forward.ID)
	assert.Equal(t, thread.ID, reverse.ID)
	assert.True(t, forward.HasParticipant(a.ID))
	assert.True(t, forward.HasParticipant(b.ID))
}

// getTestPool connects to TEST_DATABASE_URL, applies the schema, or skips the test
func getTestPool(t *testing.T) *pgxpool.Pool {
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseURL)
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, database.Migrate(ctx, pool))
	t.Cleanup(pool.Close)
	return pool
}

func createTestUser(t *testing.T, ctx context.Context, users *PostgresUserRepository) *models.User {
	number := uuid.New().ID() % 100000000
	user := &models.User{
		Email:        "test-" + uuid.New().String() + "@example.com",
		Username:     "tester",
		UserNumber:   fmt.Sprintf("%08d", number),
		PasswordHash: "test-hash",
	}
	require.NoError(t, users.Create(ctx, user), "Failed to create test user")
	return user
}
