package memrepo

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/prudhvinik1/guildchat/internal/models"
	"github.com/prudhvinik1/guildchat/internal/repositories"
)

func copyMessage(m models.Message) *models.Message {
	m.Attachments = append([]string{}, m.Attachments...)
	return &m
}

type messageRepo Store

func (r *messageRepo) Create(_ context.Context, message *models.Message) error {
	if !message.HasSingleContainer() {
		return errors.New("message must reference exactly one container")
	}

	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if message.Attachments == nil {
		message.Attachments = []string{}
	}
	s.messages = append(s.messages, *copyMessage(*message))
	return nil
}

func (r *messageRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Message, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, message := range s.messages {
		if message.ID == id {
			return copyMessage(message), nil
		}
	}
	return nil, repositories.ErrNotFound
}

// filter returns matches in ascending timestamp order, insertion order breaking ties.
func (r *messageRepo) filter(match func(models.Message) bool) []*models.Message {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := []*models.Message{}
	for _, message := range s.messages {
		if match(message) {
			messages = append(messages, copyMessage(message))
		}
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages
}

func limited(messages []*models.Message, limit int) []*models.Message {
	if limit > 0 && len(messages) > limit {
		return messages[:limit]
	}
	return messages
}

func (r *messageRepo) ListByChannel(_ context.Context, channelID uuid.UUID, limit int) ([]*models.Message, error) {
	return limited(r.filter(func(m models.Message) bool {
		return m.ChannelID != nil && *m.ChannelID == channelID
	}), limit), nil
}

func (r *messageRepo) ListByDirectThread(_ context.Context, threadID uuid.UUID, limit int) ([]*models.Message, error) {
	return limited(r.filter(func(m models.Message) bool {
		return m.DMID != nil && *m.DMID == threadID
	}), limit), nil
}

func (r *messageRepo) ListRecent(_ context.Context, limit int) ([]*models.Message, error) {
	messages := r.filter(func(models.Message) bool { return true })
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return limited(messages, limit), nil
}

func (r *messageRepo) Delete(_ context.Context, id uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, message := range s.messages {
		if message.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (r *messageRepo) Count(_ context.Context) (int64, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.messages)), nil
}

type threadRepo Store

func (r *threadRepo) Create(_ context.Context, thread *models.DirectThread) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	thread.ID = uuid.New()
	thread.CreatedAt = s.now()
	s.threads = append(s.threads, *thread)
	return nil
}

func (r *threadRepo) GetByID(_ context.Context, id uuid.UUID) (*models.DirectThread, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, thread := range s.threads {
		if thread.ID == id {
			return &thread, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *threadRepo) GetByParticipants(_ context.Context, a, b uuid.UUID) (*models.DirectThread, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, thread := range s.threads {
		if thread.HasParticipant(a) && thread.HasParticipant(b) {
			return &thread, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *threadRepo) ListByParticipant(_ context.Context, userID uuid.UUID) ([]*models.DirectThread, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var threads []*models.DirectThread
	for _, thread := range s.threads {
		if thread.HasParticipant(userID) {
			t := thread
			threads = append(threads, &t)
		}
	}
	return threads, nil
}

// ThreadCount reports how many threads exist, duplicates included.
func (s *Store) ThreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads)
}
