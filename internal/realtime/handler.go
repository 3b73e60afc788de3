package realtime

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prudhvinik1/guildchat/internal/config"
	"github.com/prudhvinik1/guildchat/internal/metrics"
	"github.com/prudhvinik1/guildchat/internal/presence"
	"github.com/prudhvinik1/guildchat/internal/services"
	"go.uber.org/zap"
)

// TokenVerifier authenticates the token presented on upgrade.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*services.TokenClaims, error)
}

// Registry tracks the live connection per user.
type Registry interface {
	Connect(userID uuid.UUID, conn presence.Conn)
	Disconnect(userID uuid.UUID, conn presence.Conn) bool
}

// Handler upgrades authenticated requests and runs the connection until it ends.
type Handler struct {
	verifier TokenVerifier
	registry Registry
	relay    *Relay
	upgrader websocket.Upgrader
	cfg      config.WebSocketConfig
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewHandler(
	verifier TokenVerifier,
	registry Registry,
	relay *Relay,
	cfg config.WebSocketConfig,
	allowedOrigins []string,
	m *metrics.Metrics,
	log *zap.Logger,
) *Handler {
	origins := newOriginPolicy(allowedOrigins)
	h := &Handler{
		verifier: verifier,
		registry: registry,
		relay:    relay,
		cfg:      cfg,
		metrics:  m,
		log:      log.Named("websocket"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if origins.check(r) {
				return true
			}
			h.log.Warn("blocked websocket from disallowed origin", zap.String("origin", r.Header.Get("Origin")))
			return false
		},
	}
	return h
}

// ServeHTTP authenticates with the token query parameter before upgrading so a
// rejected client gets a plain HTTP 401.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := h.verifier.VerifyToken(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(claims.UserID, conn, h.cfg, h.metrics, h.log)
	h.registry.Connect(client.UserID(), client)

	go client.writePump()
	client.readPump(h.relay.Handle)

	h.registry.Disconnect(client.UserID(), client)
	client.Close()
}
