package models

import (
	"time"

	"github.com/google/uuid"
)

// DirectThread is a conversation between exactly two users. The pair never changes.
type DirectThread struct {
	ID           uuid.UUID    `json:"id"`
	Participants [2]uuid.UUID `json:"participants"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (t *DirectThread) HasParticipant(userID uuid.UUID) bool {
	return t.Participants[0] == userID || t.Participants[1] == userID
}

// Counterpart returns the participant that is not userID.
func (t *DirectThread) Counterpart(userID uuid.UUID) (uuid.UUID, bool) {
	switch userID {
	case t.Participants[0]:
		return t.Participants[1], true
	case t.Participants[1]:
		return t.Participants[0], true
	}
	return uuid.Nil, false
}

// OrderedPair returns the two ids sorted so that an unordered pair has one key.
func OrderedPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}

type OtherUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Avatar   *string   `json:"avatar"`
	Status   string    `json:"status"`
}

type DirectThreadView struct {
	DirectThread
	OtherUser *OtherUser `json:"other_user,omitempty"`
}
