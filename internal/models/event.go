package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Outbound realtime event types.
const (
	EventStatusUpdate = "status_update"
	EventMessage      = "message"
	EventDM           = "dm"
	EventTyping       = "typing"
)

// Inbound realtime event types.
const (
	EventOffer        = "offer"
	EventAnswer       = "answer"
	EventICECandidate = "ice-candidate"
	EventStatus       = "status"
)

type StatusUpdateEvent struct {
	Type   string         `json:"type"`
	UserID uuid.UUID      `json:"user_id"`
	Status PresenceStatus `json:"status"`
}

type MessageEvent struct {
	Type string       `json:"type"`
	Data *MessageView `json:"data"`
}

type TypingEvent struct {
	Type      string    `json:"type"`
	UserID    uuid.UUID `json:"user_id"`
	ChannelID string    `json:"channel_id"`
}

// InboundEvent holds the routing fields of a client event. Raw keeps the original
// bytes so relayed signaling payloads go out untouched.
type InboundEvent struct {
	Type         string `json:"type"`
	TargetUserID string `json:"target_user_id"`
	ChannelID    string `json:"channel_id"`
	Status       string `json:"status"`

	Raw json.RawMessage `json:"-"`
}
