// Package api exposes the services over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prudhvinik1/guildchat/internal/services"
	"go.uber.org/zap"
)

type Deps struct {
	Auth          *services.AuthService
	Servers       *services.ServerService
	Conversations *services.ConversationService
	Admin         *services.AdminService

	// WebSocket serves GET /ws.
	WebSocket http.Handler
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Log      *zap.Logger
}

type handlers struct {
	auth          *services.AuthService
	servers       *services.ServerService
	conversations *services.ConversationService
	admin         *services.AdminService
	log           *zap.Logger
}

func NewRouter(deps Deps) http.Handler {
	log := deps.Log.Named("http")
	h := &handlers{
		auth:          deps.Auth,
		servers:       deps.Servers,
		conversations: deps.Conversations,
		admin:         deps.Admin,
		log:           log,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(log))
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if deps.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	if deps.WebSocket != nil {
		router.Handle("/ws", deps.WebSocket)
	}

	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Get("/auth/me", h.me)
			r.Post("/auth/logout", h.logout)

			r.Post("/servers", h.createServer)
			r.Get("/servers", h.listServers)
			r.Post("/servers/{serverID}/join", h.joinServer)
			r.Get("/servers/{serverID}/channels", h.listChannels)
			r.Post("/servers/{serverID}/channels", h.createChannel)

			r.Get("/channels/{channelID}/messages", h.listChannelMessages)
			r.Post("/channels/{channelID}/messages", h.postChannelMessage)

			r.Get("/dms", h.listDirectThreads)
			r.Post("/dms", h.openDirectThread)
			r.Get("/dms/{threadID}/messages", h.listDirectMessages)
			r.Post("/dms/{threadID}/messages", h.postDirectMessage)

			r.Get("/users/search", h.searchUsers)

			r.Route("/admin", func(r chi.Router) {
				r.Use(h.requireAdmin)

				r.Get("/users", h.adminListUsers)
				r.Get("/messages", h.adminListMessages)
				r.Get("/activity", h.adminListActivity)
				r.Get("/stats", h.adminStats)
				r.Delete("/users/{userID}", h.adminDeleteUser)
				r.Delete("/messages/{messageID}", h.adminDeleteMessage)
				r.Delete("/servers/{serverID}", h.adminDeleteServer)
			})
		})
	})

	return router
}
