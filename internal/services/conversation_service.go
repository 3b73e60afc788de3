package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/guildchat/internal/metrics"
	"github.com/prudhvinik1/guildchat/internal/models"
	"github.com/prudhvinik1/guildchat/internal/repositories"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// MessageListLimit caps how many messages a single list call returns.
const MessageListLimit = 1000

const threadCreateTimeout = 5 * time.Second

// Notifier is the delivery side of the presence registry.
type Notifier interface {
	SendTo(userID uuid.UUID, event any)
	BroadcastToChannel(channelID uuid.UUID, event any)
}

// StatusReader reports live presence.
type StatusReader interface {
	Status(userID uuid.UUID) models.PresenceStatus
}

// ConversationService persists channel and direct messages and hands them to the
// notifier for live delivery. Persistence always happens first; delivery never
// affects the result.
type ConversationService struct {
	users    repositories.UserRepository
	channels repositories.ChannelRepository
	messages repositories.MessageRepository
	threads  repositories.DirectThreadRepository

	authors  AuthorResolver
	notifier Notifier
	statuses StatusReader
	activity *ActivityLogger
	metrics  *metrics.Metrics
	log      *zap.Logger

	clock       *monotonicClock
	threadGroup singleflight.Group
}

func NewConversationService(
	dir *repositories.Directory,
	authors AuthorResolver,
	notifier Notifier,
	statuses StatusReader,
	activity *ActivityLogger,
	m *metrics.Metrics,
	log *zap.Logger,
) *ConversationService {
	return &ConversationService{
		users:    dir.Users,
		channels: dir.Channels,
		messages: dir.Messages,
		threads:  dir.Threads,
		authors:  authors,
		notifier: notifier,
		statuses: statuses,
		activity: activity,
		metrics:  m,
		log:      log.Named("conversation"),
		clock:    newMonotonicClock(time.Now),
	}
}

// PostChannelMessage stores a message in a text channel and broadcasts it.
func (s *ConversationService) PostChannelMessage(ctx context.Context, channelID, authorID uuid.UUID, content string, attachments []string) (*models.Message, error) {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, notFound(err, "channel")
	}
	if channel.Type != models.ChannelText {
		return nil, validationError("channel %s does not accept messages", channel.Type)
	}

	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		return nil, notFound(err, "author")
	}

	message := s.newMessage(authorID, content, attachments)
	message.ChannelID = &channelID
	if err := s.store(ctx, message); err != nil {
		return nil, err
	}
	s.metrics.MessagesPosted.WithLabelValues("channel").Inc()

	snapshot := author.Author()
	s.notifier.BroadcastToChannel(channelID, models.MessageEvent{
		Type: models.EventMessage,
		Data: &models.MessageView{Message: *message, User: &snapshot},
	})

	s.activity.Log(ctx, authorID, models.ActionSendMessage, map[string]any{
		"channel_id": channelID.String(),
		"message_id": message.ID.String(),
	})
	return message, nil
}

// PostDirectMessage stores a message in a direct thread and sends it to the other
// participant only.
func (s *ConversationService) PostDirectMessage(ctx context.Context, threadID, authorID uuid.UUID, content string, attachments []string) (*models.Message, error) {
	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, notFound(err, "direct thread")
	}
	recipient, ok := thread.Counterpart(authorID)
	if !ok {
		return nil, fmt.Errorf("%w: not a participant of this thread", ErrForbidden)
	}

	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		return nil, notFound(err, "author")
	}

	message := s.newMessage(authorID, content, attachments)
	message.DMID = &threadID
	if err := s.store(ctx, message); err != nil {
		return nil, err
	}
	s.metrics.MessagesPosted.WithLabelValues("dm").Inc()

	s.notifier.SendTo(recipient, models.MessageEvent{
		Type: models.EventDM,
		Data: &models.MessageView{
			Message: *message,
			User:    &models.Author{Username: author.Username, Avatar: author.Avatar},
		},
	})

	s.activity.Log(ctx, authorID, models.ActionSendDM, map[string]any{
		"dm_id":      threadID.String(),
		"message_id": message.ID.String(),
	})
	return message, nil
}

func (s *ConversationService) newMessage(authorID uuid.UUID, content string, attachments []string) *models.Message {
	if attachments == nil {
		attachments = []string{}
	}
	return &models.Message{
		ID:          uuid.New(),
		UserID:      authorID,
		Content:     content,
		Attachments: append([]string{}, attachments...),
		Timestamp:   s.clock.Now(),
	}
}

func (s *ConversationService) store(ctx context.Context, message *models.Message) error {
	if !message.HasSingleContainer() {
		return validationError("message must belong to exactly one channel or direct thread")
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}
	return nil
}

// ListChannelMessages returns up to MessageListLimit messages, oldest first, with
// author username, avatar and user number.
func (s *ConversationService) ListChannelMessages(ctx context.Context, channelID uuid.UUID) ([]*models.MessageView, error) {
	if _, err := s.channels.GetByID(ctx, channelID); err != nil {
		return nil, notFound(err, "channel")
	}

	messages, err := s.messages.ListByChannel(ctx, channelID, MessageListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list channel messages: %w", err)
	}
	return s.annotate(ctx, messages, true)
}

// ListDirectMessages returns up to MessageListLimit messages of a thread the caller
// participates in, oldest first, with author username and avatar.
func (s *ConversationService) ListDirectMessages(ctx context.Context, threadID, requesterID uuid.UUID) ([]*models.MessageView, error) {
	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, notFound(err, "direct thread")
	}
	if !thread.HasParticipant(requesterID) {
		return nil, fmt.Errorf("%w: not a participant of this thread", ErrForbidden)
	}

	messages, err := s.messages.ListByDirectThread(ctx, threadID, MessageListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list direct messages: %w", err)
	}
	return s.annotate(ctx, messages, false)
}

func (s *ConversationService) annotate(ctx context.Context, messages []*models.Message, withNumber bool) ([]*models.MessageView, error) {
	authors, err := s.authors.Resolve(ctx, messages)
	if err != nil {
		return nil, err
	}

	views := make([]*models.MessageView, 0, len(messages))
	for _, m := range messages {
		view := &models.MessageView{Message: *m}
		if user, ok := authors[m.UserID]; ok {
			snapshot := user.Author()
			if !withNumber {
				snapshot.UserNumber = ""
			}
			view.User = &snapshot
		}
		views = append(views, view)
	}
	return views, nil
}

// CreateOrGetDirectThread returns the thread for the unordered pair, creating it on
// first use. Concurrent calls for the same pair share one lookup-then-create.
func (s *ConversationService) CreateOrGetDirectThread(ctx context.Context, userA, userB uuid.UUID) (*models.DirectThread, error) {
	if userA == userB {
		return nil, validationError("cannot open a direct thread with yourself")
	}
	if _, err := s.users.GetByID(ctx, userB); err != nil {
		return nil, notFound(err, "user")
	}

	low, high := models.OrderedPair(userA, userB)
	key := low.String() + ":" + high.String()

	v, err, _ := s.threadGroup.Do(key, func() (any, error) {
		// Shared by every caller waiting on key, so one caller going away must not
		// fail the others.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), threadCreateTimeout)
		defer cancel()

		existing, err := s.threads.GetByParticipants(ctx, low, high)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up direct thread: %w", err)
		}

		thread := &models.DirectThread{Participants: [2]uuid.UUID{userA, userB}}
		if err := s.threads.Create(ctx, thread); err != nil {
			return nil, fmt.Errorf("failed to create direct thread: %w", err)
		}
		s.log.Info("direct thread created",
			zap.Stringer("thread_id", thread.ID),
			zap.Stringer("user_a", userA),
			zap.Stringer("user_b", userB),
		)
		return thread, nil
	})
	if err != nil {
		return nil, err
	}

	thread := *v.(*models.DirectThread)
	return &thread, nil
}

// ListDirectThreads returns the caller's threads with the other participant's
// snapshot and live status.
func (s *ConversationService) ListDirectThreads(ctx context.Context, userID uuid.UUID) ([]*models.DirectThreadView, error) {
	threads, err := s.threads.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list direct threads: %w", err)
	}

	others := make([]uuid.UUID, 0, len(threads))
	for _, t := range threads {
		other, _ := t.Counterpart(userID)
		others = append(others, other)
	}
	users, err := s.users.GetByIDs(ctx, others)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve thread participants: %w", err)
	}

	views := make([]*models.DirectThreadView, 0, len(threads))
	for i, t := range threads {
		view := &models.DirectThreadView{DirectThread: *t}
		if user, ok := users[others[i]]; ok {
			view.OtherUser = &models.OtherUser{
				ID:       user.ID,
				Username: user.Username,
				Avatar:   user.Avatar,
				Status:   string(s.statuses.Status(user.ID)),
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// DeleteMessage removes a single message. Live clients are not notified.
func (s *ConversationService) DeleteMessage(ctx context.Context, messageID uuid.UUID) (*models.Message, error) {
	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, notFound(err, "message")
	}
	if err := s.messages.Delete(ctx, messageID); err != nil {
		return nil, notFound(err, "message")
	}
	return message, nil
}

// monotonicClock hands out timestamps that never go backwards, so append order in a
// container matches timestamp order even if the wall clock is stepped back.
type monotonicClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newMonotonicClock(now func() time.Time) *monotonicClock {
	return &monotonicClock{now: now}
}

func (c *monotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
