package models

import (
	"time"

	"github.com/google/uuid"
)

type ChannelType string

const (
	ChannelText  ChannelType = "text"
	ChannelVoice ChannelType = "voice"
)

func (t ChannelType) Valid() bool {
	return t == ChannelText || t == ChannelVoice
}

type Channel struct {
	ID        uuid.UUID   `json:"id"`
	ServerID  uuid.UUID   `json:"server_id"`
	Name      string      `json:"name"`
	Type      ChannelType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
}
