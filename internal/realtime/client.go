// Package realtime carries the websocket transport: per-connection pumps, the
// upgrade handler and the relay for client-originated events.
package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prudhvinik1/guildchat/internal/config"
	"github.com/prudhvinik1/guildchat/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Client is one websocket connection for an authenticated user. It satisfies
// presence.Conn.
type Client struct {
	userID  uuid.UUID
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	limiter *rate.Limiter

	closeOnce sync.Once
	log       *zap.Logger
	metrics   *metrics.Metrics
}

func NewClient(userID uuid.UUID, conn *websocket.Conn, cfg config.WebSocketConfig, m *metrics.Metrics, log *zap.Logger) *Client {
	conn.SetReadLimit(cfg.MaxMessageSize)
	return &Client{
		userID:  userID,
		conn:    conn,
		send:    make(chan []byte, cfg.SendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		log:     log.With(zap.Stringer("user_id", userID)),
		metrics: m,
	}
}

func (c *Client) UserID() uuid.UUID {
	return c.userID
}

// Send queues payload for the write pump. It never blocks: a full buffer is
// reported as an error and the payload is dropped.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the write pump, which sends a close frame and releases the socket.
// The read pump then fails its next read and exits.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

// readPump hands each inbound frame to handle in order. It returns when the
// connection fails or is closed.
func (c *Client) readPump(handle func(from uuid.UUID, raw []byte)) {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.limiter.Allow() {
			c.metrics.RateLimitedDrops.Inc()
			c.log.Debug("rate limit exceeded; dropping event")
			continue
		}

		handle(c.userID, raw)
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Info("event exceeded maximum size")
	case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		c.log.Info("unexpected websocket close", zap.Error(err))
	default:
		c.log.Debug("websocket closed", zap.Error(err))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			if err := c.write(websocket.TextMessage, payload); err != nil {
				c.log.Debug("write failed", zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.log.Debug("ping failed", zap.Error(err))
				c.Close()
				return
			}
		case <-c.done:
			c.flush()
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever was queued before the client was closed.
func (c *Client) flush() {
	for {
		select {
		case payload := <-c.send:
			if err := c.write(websocket.TextMessage, payload); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(messageType int, payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, payload)
}
