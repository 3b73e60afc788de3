package models

import (
	"time"

	"github.com/google/uuid"
)

// Message belongs to exactly one of a channel or a direct thread.
type Message struct {
	ID          uuid.UUID  `json:"id"`
	ChannelID   *uuid.UUID `json:"channel_id"`
	DMID        *uuid.UUID `json:"dm_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Content     string     `json:"content"`
	Attachments []string   `json:"attachments"`
	Timestamp   time.Time  `json:"timestamp"`
}

// HasSingleContainer reports whether exactly one of ChannelID and DMID is set.
func (m *Message) HasSingleContainer() bool {
	return (m.ChannelID != nil) != (m.DMID != nil)
}

// MessageView is a message with the author snapshot resolved at read or delivery time.
type MessageView struct {
	Message
	User     *Author `json:"user,omitempty"`
	Location string  `json:"location,omitempty"`
}
