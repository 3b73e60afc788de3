package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/guildchat/internal/metrics"
	"github.com/prudhvinik1/guildchat/internal/models"
	"github.com/prudhvinik1/guildchat/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPostChannelMessage_DeliversToConnectedUsers(t *testing.T) {
	// ARRANGE
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "alice")
	u2 := env.createUser(t, "bob")
	channel := env.createTextChannel(t, u1.ID)
	env.connect(u1.ID)
	c2 := env.connect(u2.ID)

	// ACT
	message, err := env.conversations.PostChannelMessage(ctx, channel.ID, u1.ID, "hi", nil)

	// ASSERT
	require.NoError(t, err)
	require.NotNil(t, message.ChannelID)
	assert.Equal(t, channel.ID, *message.ChannelID)
	assert.Nil(t, message.DMID)
	assert.Equal(t, "hi", message.Content)
	assert.Equal(t, []string{}, message.Attachments)

	events := c2.eventsOfType(t, models.EventMessage)
	require.Len(t, events, 1)
	data := events[0]["data"].(map[string]any)
	assert.Equal(t, channel.ID.String(), data["channel_id"])
	assert.Equal(t, "hi", data["content"])
	user := data["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, u1.UserNumber, user["user_number"])
}

func TestPostChannelMessage_UnknownChannel(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.createUser(t, "alice")

	_, err := env.conversations.PostChannelMessage(context.Background(), uuid.New(), u1.ID, "hi", nil)

	assert.ErrorIs(t, err, ErrNotFound)
	count, _ := env.dir.Messages.Count(context.Background())
	assert.Zero(t, count)
}

func TestPostChannelMessage_RejectsVoiceChannel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "alice")
	server, err := env.servers.CreateServer(ctx, u1.ID, "Guild", nil)
	require.NoError(t, err)
	voice, err := env.servers.CreateChannel(ctx, u1.ID, server.ID, "lounge", models.ChannelVoice)
	require.NoError(t, err)
	text := env.createTextChannel(t, u1.ID)

	_, err = env.conversations.PostChannelMessage(ctx, voice.ID, u1.ID, "hi", nil)
	assert.ErrorIs(t, err, ErrValidation)

	count, _ := env.dir.Messages.Count(ctx)
	assert.Zero(t, count)

	_, err = env.conversations.PostChannelMessage(ctx, text.ID, u1.ID, "hi", nil)
	assert.NoError(t, err)
}

func TestPostChannelMessage_BlankContentRoundTrips(t *testing.T) {
	// ARRANGE
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "alice")
	channel := env.createTextChannel(t, u1.ID)

	// ACT
	_, err := env.conversations.PostChannelMessage(ctx, channel.ID, u1.ID, "", nil)
	require.NoError(t, err)
	_, err = env.conversations.PostChannelMessage(ctx, channel.ID, u1.ID, "   ", nil)
	require.NoError(t, err)

	// ASSERT
	views, err := env.conversations.ListChannelMessages(ctx, channel.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "", views[0].Content)
	assert.Equal(t, "   ", views[1].Content)
}

func TestPostChannelMessage_DeliveryFailureDoesNotFailPost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "alice")
	u2 := env.createUser(t, "bob")
	channel := env.createTextChannel(t, u1.ID)
	env.registry.Connect(u2.ID, brokenConn{})

	message, err := env.conversations.PostChannelMessage(ctx, channel.ID, u1.ID, "still stored", nil)

	require.NoError(t, err)
	stored, err := env.dir.Messages.GetByID(ctx, message.ID)
	require.NoError(t, err)
	assert.Equal(t, "still stored", stored.Content)
}

type brokenConn struct{}

func (brokenConn) Send([]byte) error { return assert.AnError }
func (brokenConn) Close() error      { return nil }

func TestPostChannelMessage_ActivityFailureIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "alice")
	channel := env.createTextChannel(t, u1.ID)

	log := zap.NewNop()
	svc := NewConversationService(env.dir, NewBatchAuthorResolver(env.dir.Users), env.registry, env.registry,
		NewActivityLogger(failingActivityRepo{}, log), metrics.New(nil), log)

	_, err := svc.PostChannelMessage(ctx, channel.ID, u1.ID, "hi", nil)

	assert.NoError(t, err)
}

func TestListChannelMessages_OrderedAndRoundTrip(t *testing.T) {
	// ARRANGE
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "alice")
	channel := env.createTextChannel(t, u1.ID)

	contents := []string{"first", "second ✓", "third\nline", "fourth"}
	attachments := [][]string{nil, {"a.png"}, {"b.pdf", "c.txt"}, {}}
	var posted []*models.Message
	for i, c := range contents {
		m, err := env.conversations.PostChannelMessage(ctx, channel.ID, u1.ID, c, attachments[i])
		require.NoError(t, err)
		if len(posted) > 0 {
			assert.False(t, m.Timestamp.Before(posted[len(posted)-1].Timestamp))
		}
		posted = append(posted, m)
	}

	// ACT
	views, err := env.conversations.ListChannelMessages(ctx, channel.ID)

	// ASSERT
	require.NoError(t, err)
	require.Len(t, views, len(contents))
	for i, v := range views {
		assert.Equal(t, posted[i].ID, v.ID)
		assert.Equal(t, contents[i], v.Content)
		if attachments[i] == nil {
			assert.Empty(t, v.Attachments)
		} else {
			assert.Equal(t, attachments[i], v.Attachments)
		}
		if i > 0 {
			assert.False(t, v.Timestamp.Before(views[i-1].Timestamp))
		}
		require.NotNil(t, v.User)
		assert.Equal(t, "alice", v.User.Username)
		assert.Equal(t, u1.UserNumber, v.User.UserNumber)
	}
}

func TestListChannelMessages_UnknownChannel(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.conversations.ListChannelMessages(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListChannelMessages_DeletedAuthorHasNoSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "alice")
	u2 := env.createUser(t, "bob")
	channel := env.createTextChannel(t, u1.ID)
	_, err := env.conversations.PostChannelMessage(ctx, channel.ID, u2.ID, "bye", nil)
	require.NoError(t, err)
	require.NoError(t, env.dir.Users.Delete(ctx, u2.ID))

	views, err := env.conversations.ListChannelMessages(ctx, channel.ID)

	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Nil(t, views[0].User)
}

func TestListChannelMessages_PerMessageResolverMatchesBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "alice")
	u2 := env.createUser(t, "bob")
	channel := env.createTextChannel(t, u1.ID)
	for _, author := range []uuid.UUID{u1.ID, u2.ID, u1.ID} {
		_, err := env.conversations.PostChannelMessage(ctx, channel.ID, author, "x", nil)
		require.NoError(t, err)
	}

	log := zap.NewNop()
	perMessage := NewConversationService(env.dir, NewPerMessageAuthorResolver(env.dir.Users), env.registry, env.registry,
		NewActivityLogger(env.dir.Activity, log), metrics.New(nil), log)

	batched, err := env.conversations.ListChannelMessages(ctx, channel.ID)
	require.NoError(t, err)
	individual, err := perMessage.ListChannelMessages(ctx, channel.ID)
	require.NoError(t, err)

	assert.Equal(t, batched, individual)
}

func TestCreateOrGetDirectThread_EitherOrderReturnsSameThread(t *testing.T) {
	// ARRANGE
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "alice")
	u2 := env.createUser(t, "bob")

	// ACT
	first, err := env.conversations.CreateOrGetDirectThread(ctx, u1.ID, u2.ID)
	require.NoError(t, err)
	second, err := env.conversations.CreateOrGetDirectThread(ctx, u2.ID, u1.ID)
	require.NoError(t, err)
	third, err := env.conversations.CreateOrGetDirectThread(ctx, u1.ID, u2.ID)
	require.NoError(t, err)

	// ASSERT
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ID, third.ID)
	assert.Equal(t, 1, env.store.ThreadCount())
	assert.True(t, first.HasParticipant(u1.ID))
	assert.True(t, first.HasParticipant(u2.ID))
}

func TestCreateOrGetDirectThread_ConcurrentCallsCreateOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "alice")
	u2 := env.createUser(t, "bob")

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := u1.ID, u2.ID
			if i%2 == 1 {
				a, b = b, a
			}
			thread, err := env.conversations.CreateOrGetDirectThread(ctx, a, b)
			if assert.NoError(t, err) {
				ids[i] = thread.ID
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, env.store.ThreadCount())
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestCreateOrGetDirectThread_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "alice")

	_, err := env.conversations.CreateOrGetDirectThread(ctx, u1.ID, u1.ID)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.conversations.CreateOrGetDirectThread(ctx, u1.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Zero(t, env.store.ThreadCount())
}

func TestPostDirectMessage_DeliversOnlyToCounterpart(t *testing.T) {
	// ARRANGE
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.createUser(t, "alice")
	b := env.createUser(t, "bob")
	c := env.createUser(t, "carol")
	thread, err := env.conversations.CreateOrGetDirectThread(ctx, a.ID, b.ID)
	require.NoError(t, err)
	connA := env.connect(a.ID)
	connB := env.connect(b.ID)
	connC := env.connect(c.ID)

	// ACT
	message, err := env.conversations.PostDirectMessage(ctx, thread.ID, a.ID, "psst", []string{"secret.png"})

	// ASSERT
	require.NoError(t, err)
	require.NotNil(t, message.DMID)
	assert.Equal(t, thread.ID, *message.DMID)
	assert.Nil(t, message.ChannelID)

	assert.Empty(t, connA.eventsOfType(t, models.EventDM))
	assert.Empty(t, connC.eventsOfType(t, models.EventDM))
	events := connB.eventsOfType(t, models.EventDM)
	require.Len(t, events, 1)
	data := events[0]["data"].(map[string]any)
	assert.Equal(t, "psst", data["content"])
	assert.Equal(t, thread.ID.String(), data["dm_id"])
	user := data["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, user, "user_number")
}

func TestPostDirectMessage_OfflineCounterpartStillPersists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.createUser(t, "alice")
	b := env.createUser(t, "bob")
	thread, err := env.conversations.CreateOrGetDirectThread(ctx, a.ID, b.ID)
	require.NoError(t, err)

	_, err = env.conversations.PostDirectMessage(ctx, thread.ID, a.ID, "are you there?", nil)
	require.NoError(t, err)

	views, err := env.conversations.ListDirectMessages(ctx, thread.ID, b.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "are you there?", views[0].Content)
	require.NotNil(t, views[0].User)
	assert.Equal(t, "alice", views[0].User.Username)
	assert.Empty(t, views[0].User.UserNumber)
}

func TestPostDirectMessage_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.createUser(t, "alice")
	b := env.createUser(t, "bob")
	outsider := env.createUser(t, "mallory")
	thread, err := env.conversations.CreateOrGetDirectThread(ctx, a.ID, b.ID)
	require.NoError(t, err)

	_, err = env.conversations.PostDirectMessage(ctx, uuid.New(), a.ID, "hi", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.conversations.PostDirectMessage(ctx, thread.ID, outsider.ID, "hi", nil)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.conversations.ListDirectMessages(ctx, thread.ID, outsider.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	count, _ := env.dir.Messages.Count(ctx)
	assert.Zero(t, count)
}

func TestListDirectThreads_IncludesCounterpartStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.createUser(t, "alice")
	b := env.createUser(t, "bob")
	c := env.createUser(t, "carol")
	_, err := env.conversations.CreateOrGetDirectThread(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = env.conversations.CreateOrGetDirectThread(ctx, c.ID, a.ID)
	require.NoError(t, err)
	env.connect(b.ID)

	views, err := env.conversations.ListDirectThreads(ctx, a.ID)

	require.NoError(t, err)
	require.Len(t, views, 2)
	statuses := map[string]string{}
	for _, v := range views {
		require.NotNil(t, v.OtherUser)
		statuses[v.OtherUser.Username] = v.OtherUser.Status
	}
	assert.Equal(t, map[string]string{"bob": "online", "carol": "offline"}, statuses)
}

func TestDeleteMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "alice")
	channel := env.createTextChannel(t, u1.ID)
	message, err := env.conversations.PostChannelMessage(ctx, channel.ID, u1.ID, "oops", nil)
	require.NoError(t, err)

	deleted, err := env.conversations.DeleteMessage(ctx, message.ID)
	require.NoError(t, err)
	assert.Equal(t, message.ID, deleted.ID)

	_, err = env.conversations.DeleteMessage(ctx, message.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMonotonicClock_NeverGoesBackwards(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(-time.Hour), base, base.Add(time.Second)}
	i := 0
	clock := newMonotonicClock(func() time.Time {
		tick := ticks[i]
		i++
		return tick
	})

	var last time.Time
	for range ticks {
		now := clock.Now()
		assert.True(t, now.After(last))
		last = now
	}
	assert.Equal(t, base.Add(time.Second), last)
}

// wrappingUsers returns lookup errors wrapped, the way a decorating repository would.
type wrappingUsers struct {
	repositories.UserRepository
}

func (u wrappingUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := u.UserRepository.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	return user, nil
}

func TestPerMessageAuthorResolver_WrappedNotFoundLeavesNoSnapshot(t *testing.T) {
	// ARRANGE
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.createUser(t, "alice")
	u2 := env.createUser(t, "bob")
	channel := env.createTextChannel(t, u1.ID)
	_, err := env.conversations.PostChannelMessage(ctx, channel.ID, u1.ID, "hi", nil)
	require.NoError(t, err)
	_, err = env.conversations.PostChannelMessage(ctx, channel.ID, u2.ID, "bye", nil)
	require.NoError(t, err)
	require.NoError(t, env.dir.Users.Delete(ctx, u2.ID))

	messages, err := env.dir.Messages.ListByChannel(ctx, channel.ID, MessageListLimit)
	require.NoError(t, err)

	// ACT
	authors, err := NewPerMessageAuthorResolver(wrappingUsers{env.dir.Users}).Resolve(ctx, messages)

	// ASSERT
	require.NoError(t, err)
	assert.Contains(t, authors, u1.ID)
	assert.NotContains(t, authors, u2.ID)
}

// gatedThreads holds the first participant lookup until released and honours
// cancellation of the context it is given.
type gatedThreads struct {
	repositories.DirectThreadRepository

	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedThreads) GetByParticipants(ctx context.Context, a, b uuid.UUID) (*models.DirectThread, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.DirectThreadRepository.GetByParticipants(ctx, a, b)
}

func TestCreateOrGetDirectThread_CancelledCallerDoesNotFailShared(t *testing.T) {
	// ARRANGE
	env := newTestEnv(t)
	u1 := env.createUser(t, "alice")
	u2 := env.createUser(t, "bob")

	threads := &gatedThreads{
		DirectThreadRepository: env.dir.Threads,
		entered:                make(chan struct{}),
		release:                make(chan struct{}),
	}
	dir := *env.dir
	dir.Threads = threads
	log := zap.NewNop()
	conversations := NewConversationService(&dir, NewBatchAuthorResolver(dir.Users), env.registry, env.registry,
		NewActivityLogger(dir.Activity, log), metrics.New(nil), log)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()

	// ACT
	type result struct {
		thread *models.DirectThread
		err    error
	}
	first := make(chan result, 1)
	go func() {
		thread, err := conversations.CreateOrGetDirectThread(firstCtx, u1.ID, u2.ID)
		first <- result{thread, err}
	}()
	<-threads.entered

	second := make(chan result, 1)
	go func() {
		thread, err := conversations.CreateOrGetDirectThread(context.Background(), u2.ID, u1.ID)
		second <- result{thread, err}
	}()

	cancelFirst()
	time.Sleep(20 * time.Millisecond)
	close(threads.release)

	// ASSERT
	r1, r2 := <-first, <-second
	require.NoError(t, r1.err)
	require.NoError(t, r2.err)
	assert.Equal(t, r1.thread.ID, r2.thread.ID)
	assert.Equal(t, 1, env.store.ThreadCount())
}
