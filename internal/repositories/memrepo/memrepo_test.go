package memrepo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/guildchat/internal/models"
	"github.com/prudhvinik1/guildchat/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessages_OrderedAndIsolated(t *testing.T) {
	dir := New().Directory()
	ctx := context.Background()
	channelID := uuid.New()
	base := time.Now()

	for i, offset := range []time.Duration{2, 0, 1} {
		require.NoError(t, dir.Messages.Create(ctx, &models.Message{
			ID:          uuid.New(),
			ChannelID:   &channelID,
			UserID:      uuid.New(),
			Content:     []string{"c", "a", "b"}[i],
			Attachments: []string{"x"},
			Timestamp:   base.Add(offset * time.Second),
		}))
	}

	list, err := dir.Messages.ListByChannel(ctx, channelID, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Content)
	assert.Equal(t, "b", list[1].Content)

	// Mutating a returned message must not leak back into the store.
	list[0].Attachments[0] = "mutated"
	again, err := dir.Messages.ListByChannel(ctx, channelID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, again[0].Attachments)
}

func TestMessages_RejectsAmbiguousContainer(t *testing.T) {
	dir := New().Directory()
	channelID, dmID := uuid.New(), uuid.New()

	err := dir.Messages.Create(context.Background(), &models.Message{
		ID:        uuid.New(),
		ChannelID: &channelID,
		DMID:      &dmID,
	})

	assert.Error(t, err)
}

func TestThreads_UnorderedLookup(t *testing.T) {
	dir := New().Directory()
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	thread := &models.DirectThread{Participants: [2]uuid.UUID{a, b}}
	require.NoError(t, dir.Threads.Create(ctx, thread))

	found, err := dir.Threads.GetByParticipants(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, thread.ID, found.ID)

	_, err = dir.Threads.GetByParticipants(ctx, a, uuid.New())
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestSessions_ExpiredAreHidden(t *testing.T) {
	dir := New().Directory()
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, dir.Sessions.Create(ctx, &models.Session{ID: "old", UserID: userID, ExpiresAt: time.Now().Add(-time.Minute)}))
	require.NoError(t, dir.Sessions.Create(ctx, &models.Session{ID: "new", UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}))

	_, err := dir.Sessions.GetByID(ctx, "old")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	sessions, err := dir.Sessions.ListByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "new", sessions[0].ID)
}
