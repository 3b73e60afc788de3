// Package presence tracks which users hold a live realtime connection and routes
// outbound events to those connections.
//
// Delivery is best-effort and at-most-once: a missing connection, a marshal error or
// a transport failure is counted and logged, never returned to the caller.
package presence

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/prudhvinik1/guildchat/internal/metrics"
	"github.com/prudhvinik1/guildchat/internal/models"
	"go.uber.org/zap"
)

var (
	ErrNotConnected  = errors.New("user is not connected")
	ErrInvalidStatus = errors.New("invalid status")
)

// Conn is one live transport to a user.
type Conn interface {
	// Send queues payload for delivery. It must not block on the network.
	Send(payload []byte) error
	// Close tears the transport down. It must be safe to call more than once.
	Close() error
}

// StatusObserver is told about every status transition after it has been applied.
type StatusObserver interface {
	StatusChanged(userID uuid.UUID, status models.PresenceStatus)
}

// announceStripes is the number of locks transitions are serialized on. Users that
// hash to the same stripe share a lock.
const announceStripes = 64

type Registry struct {
	mu        sync.RWMutex
	conns     map[uuid.UUID]Conn
	statuses  map[uuid.UUID]models.PresenceStatus
	observers []StatusObserver

	// announce orders each user's transitions: the lock is held from the map change
	// until observers and other connections have been told, so a disconnect and a
	// reconnect racing for one user are announced in the order they were applied.
	// Always taken before mu.
	announce [announceStripes]sync.Mutex

	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewRegistry(log *zap.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		conns:    make(map[uuid.UUID]Conn),
		statuses: make(map[uuid.UUID]models.PresenceStatus),
		log:      log.Named("presence"),
		metrics:  m,
	}
}

// AddObserver must be called before the registry starts serving connections.
func (r *Registry) AddObserver(o StatusObserver) {
	r.observers = append(r.observers, o)
}

func (r *Registry) transitionLock(userID uuid.UUID) *sync.Mutex {
	return &r.announce[int(userID[15])%announceStripes]
}

// Connect makes conn the current connection for userID and announces the user online
// to everyone else. A previous connection for the same user is closed.
func (r *Registry) Connect(userID uuid.UUID, conn Conn) {
	lock := r.transitionLock(userID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	prev := r.conns[userID]
	r.conns[userID] = conn
	r.statuses[userID] = models.StatusOnline
	count := len(r.conns)
	r.mu.Unlock()

	r.metrics.Connections.Set(float64(count))

	if prev != nil && prev != conn {
		r.log.Info("superseding connection", zap.Stringer("user_id", userID))
		if err := prev.Close(); err != nil {
			r.log.Debug("close superseded connection", zap.Stringer("user_id", userID), zap.Error(err))
		}
	}

	r.log.Info("user connected", zap.Stringer("user_id", userID), zap.Int("connections", count))
	r.statusChanged(userID, models.StatusOnline)
}

// Disconnect drops the tracked connection for userID and announces the user offline.
// When conn is non-nil it only acts if conn is still the tracked connection, so a
// superseded transport shutting down cannot knock its replacement offline. Calling
// it for a user with nothing tracked is a no-op. It reports whether anything changed.
func (r *Registry) Disconnect(userID uuid.UUID, conn Conn) bool {
	lock := r.transitionLock(userID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	current, ok := r.conns[userID]
	if !ok || (conn != nil && current != conn) {
		r.mu.Unlock()
		return false
	}
	delete(r.conns, userID)
	r.statuses[userID] = models.StatusOffline
	count := len(r.conns)
	r.mu.Unlock()

	r.metrics.Connections.Set(float64(count))

	if err := current.Close(); err != nil {
		r.log.Debug("close connection", zap.Stringer("user_id", userID), zap.Error(err))
	}

	r.log.Info("user disconnected", zap.Stringer("user_id", userID), zap.Int("connections", count))
	r.statusChanged(userID, models.StatusOffline)
	return true
}

// SetStatus changes the advertised status of a connected user. Going offline is only
// possible through Disconnect.
func (r *Registry) SetStatus(userID uuid.UUID, status models.PresenceStatus) error {
	if !status.Valid() || status == models.StatusOffline {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	lock := r.transitionLock(userID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	if _, ok := r.conns[userID]; !ok {
		r.mu.Unlock()
		return ErrNotConnected
	}
	unchanged := r.statuses[userID] == status
	r.statuses[userID] = status
	r.mu.Unlock()

	if !unchanged {
		r.statusChanged(userID, status)
	}
	return nil
}

func (r *Registry) statusChanged(userID uuid.UUID, status models.PresenceStatus) {
	r.metrics.StatusChanges.WithLabelValues(string(status)).Inc()

	r.broadcast(models.StatusUpdateEvent{
		Type:   models.EventStatusUpdate,
		UserID: userID,
		Status: status,
	}, userID)

	r.notifyObservers(userID, status)
}

func (r *Registry) notifyObservers(userID uuid.UUID, status models.PresenceStatus) {
	for _, o := range r.observers {
		o.StatusChanged(userID, status)
	}
}

// Status returns the live status, offline for users never seen or disconnected.
func (r *Registry) Status(userID uuid.UUID) models.PresenceStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.conns[userID]; !ok {
		return models.StatusOffline
	}
	return r.statuses[userID]
}

func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.conns[userID]
	return ok
}

func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) OnlineUsers() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]uuid.UUID, 0, len(r.conns))
	for id := range r.conns {
		users = append(users, id)
	}
	return users
}

// SendTo delivers event to userID if connected. Failures are swallowed.
func (r *Registry) SendTo(userID uuid.UUID, event any) {
	payload, err := encode(event)
	if err != nil {
		r.log.Error("marshal event", zap.Error(err))
		return
	}

	r.mu.RLock()
	conn, ok := r.conns[userID]
	r.mu.RUnlock()

	if !ok {
		r.metrics.Deliveries.WithLabelValues(metrics.ResultOffline).Inc()
		return
	}
	r.deliver(userID, conn, payload)
}

// BroadcastAll delivers event to every tracked connection.
func (r *Registry) BroadcastAll(event any) {
	r.broadcast(event, uuid.Nil)
}

// BroadcastToChannel delivers a channel event. Channel subscriptions are not tracked,
// so this reaches every connected user and clients filter by channel_id.
func (r *Registry) BroadcastToChannel(channelID uuid.UUID, event any) {
	r.log.Debug("channel broadcast", zap.Stringer("channel_id", channelID))
	r.broadcast(event, uuid.Nil)
}

func (r *Registry) broadcast(event any, except uuid.UUID) {
	payload, err := encode(event)
	if err != nil {
		r.log.Error("marshal event", zap.Error(err))
		return
	}

	for userID, conn := range r.snapshot() {
		if userID == except {
			continue
		}
		r.deliver(userID, conn, payload)
	}
}

// encode passes pre-encoded events through unchanged.
func encode(event any) ([]byte, error) {
	if raw, ok := event.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(event)
}

func (r *Registry) snapshot() map[uuid.UUID]Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make(map[uuid.UUID]Conn, len(r.conns))
	for id, conn := range r.conns {
		conns[id] = conn
	}
	return conns
}

func (r *Registry) deliver(userID uuid.UUID, conn Conn, payload []byte) {
	if err := tryDeliver(conn, payload); err != nil {
		r.metrics.Deliveries.WithLabelValues(metrics.ResultFailed).Inc()
		r.log.Debug("delivery failed", zap.Stringer("user_id", userID), zap.Error(err))
		return
	}
	r.metrics.Deliveries.WithLabelValues(metrics.ResultDelivered).Inc()
}

// tryDeliver converts a panicking transport into an error so one bad connection
// cannot take down a fan-out.
func tryDeliver(conn Conn, payload []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("send panicked: %v", rec)
		}
	}()
	return conn.Send(payload)
}

// Shutdown closes every tracked connection. Observers are told each user went
// offline; connected clients are not, since they are all being closed.
func (r *Registry) Shutdown() int {
	closed := 0
	for userID, conn := range r.snapshot() {
		lock := r.transitionLock(userID)
		lock.Lock()

		r.mu.Lock()
		current, ok := r.conns[userID]
		if ok && current == conn {
			delete(r.conns, userID)
			r.statuses[userID] = models.StatusOffline
		}
		r.mu.Unlock()

		if ok && current == conn {
			conn.Close()
			r.notifyObservers(userID, models.StatusOffline)
			closed++
		}
		lock.Unlock()
	}
	r.metrics.Connections.Set(float64(r.OnlineCount()))
	return closed
}
