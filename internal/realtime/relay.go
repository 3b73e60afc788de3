package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/prudhvinik1/guildchat/internal/metrics"
	"github.com/prudhvinik1/guildchat/internal/models"
	"go.uber.org/zap"
)

// Presence is the part of the registry the relay routes through.
type Presence interface {
	SendTo(userID uuid.UUID, event any)
	BroadcastToChannel(channelID uuid.UUID, event any)
	SetStatus(userID uuid.UUID, status models.PresenceStatus) error
}

// Relay routes client-originated events. Nothing it handles is persisted or
// acknowledged; anything it cannot route is dropped.
type Relay struct {
	presence Presence
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewRelay(presence Presence, m *metrics.Metrics, log *zap.Logger) *Relay {
	return &Relay{presence: presence, metrics: m, log: log.Named("relay")}
}

// Handle processes one raw event from userID.
func (r *Relay) Handle(from uuid.UUID, raw []byte) {
	var event models.InboundEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		r.log.Debug("malformed event", zap.Stringer("user_id", from), zap.Error(err))
		r.metrics.InboundEvents.WithLabelValues("malformed").Inc()
		return
	}
	event.Raw = raw

	switch event.Type {
	case models.EventOffer, models.EventAnswer, models.EventICECandidate:
		r.metrics.InboundEvents.WithLabelValues(event.Type).Inc()
		r.signal(from, &event)
	case models.EventTyping:
		r.metrics.InboundEvents.WithLabelValues(event.Type).Inc()
		r.typing(from, &event)
	case models.EventStatus:
		r.metrics.InboundEvents.WithLabelValues(event.Type).Inc()
		r.status(from, &event)
	default:
		r.metrics.InboundEvents.WithLabelValues("unknown").Inc()
		r.log.Debug("unknown event type", zap.Stringer("user_id", from), zap.String("type", event.Type))
	}
}

// signal forwards the payload byte for byte to its target.
func (r *Relay) signal(from uuid.UUID, event *models.InboundEvent) {
	target, err := uuid.Parse(event.TargetUserID)
	if err != nil {
		r.log.Debug("signaling event without valid target",
			zap.Stringer("user_id", from),
			zap.String("type", event.Type),
		)
		return
	}
	r.presence.SendTo(target, event.Raw)
}

func (r *Relay) typing(from uuid.UUID, event *models.InboundEvent) {
	channelID, err := uuid.Parse(event.ChannelID)
	if err != nil {
		r.log.Debug("typing event without valid channel", zap.Stringer("user_id", from))
		return
	}
	r.presence.BroadcastToChannel(channelID, models.TypingEvent{
		Type:      models.EventTyping,
		UserID:    from,
		ChannelID: event.ChannelID,
	})
}

func (r *Relay) status(from uuid.UUID, event *models.InboundEvent) {
	if err := r.presence.SetStatus(from, models.PresenceStatus(event.Status)); err != nil {
		r.log.Debug("status change rejected", zap.Stringer("user_id", from), zap.Error(err))
	}
}
