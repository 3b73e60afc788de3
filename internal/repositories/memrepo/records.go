package memrepo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/guildchat/internal/models"
	"github.com/prudhvinik1/guildchat/internal/repositories"
)

type activityRepo Store

func (r *activityRepo) Append(_ context.Context, record *models.ActivityRecord) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	record.ID = uuid.New()
	record.Timestamp = s.now()
	if record.Details == nil {
		record.Details = map[string]any{}
	}
	s.activity = append(s.activity, *record)
	return nil
}

func (r *activityRepo) ListRecent(_ context.Context, limit int) ([]*models.ActivityRecord, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*models.ActivityRecord
	for i := len(s.activity) - 1; i >= 0; i-- {
		if limit > 0 && len(records) == limit {
			break
		}
		record := s.activity[i]
		records = append(records, &record)
	}
	return records, nil
}

type sessionRepo Store

func (r *sessionRepo) Create(_ context.Context, session *models.Session) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = *session
	return nil
}

func (r *sessionRepo) GetByID(_ context.Context, id string) (*models.Session, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok || !session.ExpiresAt.After(time.Now()) {
		return nil, repositories.ErrNotFound
	}
	return &session, nil
}

func (r *sessionRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]*models.Session, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []*models.Session
	for _, session := range s.sessions {
		if session.UserID == userID && session.ExpiresAt.After(time.Now()) {
			sess := session
			sessions = append(sessions, &sess)
		}
	}
	return sessions, nil
}

func (r *sessionRepo) Delete(_ context.Context, id string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (r *sessionRepo) DeleteAllForUser(_ context.Context, userID uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

type presenceRepo Store

func (r *presenceRepo) SetPresence(_ context.Context, presence *models.Presence) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	presence.LastSeen = time.Now()
	s.presence[presence.UserID] = *presence
	return nil
}

func (r *presenceRepo) GetPresence(_ context.Context, userID uuid.UUID) (*models.Presence, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	presence, ok := s.presence[userID]
	if !ok {
		presence = models.Presence{UserID: userID, Status: string(models.StatusOffline)}
	}
	return &presence, nil
}

func (r *presenceRepo) DeletePresence(_ context.Context, userID uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.presence, userID)
	return nil
}

func (r *presenceRepo) GetBulkPresence(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.Presence, error) {
	presences := make(map[uuid.UUID]models.Presence, len(userIDs))
	for _, id := range userIDs {
		presence, _ := r.GetPresence(ctx, id)
		presences[id] = *presence
	}
	return presences, nil
}
