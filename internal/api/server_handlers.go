package api

import (
	"net/http"

	"github.com/prudhvinik1/guildchat/internal/models"
)

type createServerRequest struct {
	Name string  `json:"name"`
	Icon *string `json:"icon"`
}

type createChannelRequest struct {
	Name string             `json:"name"`
	Type models.ChannelType `json:"type"`
}

func (h *handlers) createServer(w http.ResponseWriter, r *http.Request) {
	var req createServerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	server, err := h.servers.CreateServer(r.Context(), userIDFrom(r.Context()), req.Name, req.Icon)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, server)
}

func (h *handlers) listServers(w http.ResponseWriter, r *http.Request) {
	servers, err := h.servers.ListServers(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, servers)
}

func (h *handlers) joinServer(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathID(w, r, "serverID")
	if !ok {
		return
	}

	server, err := h.servers.JoinServer(r.Context(), userIDFrom(r.Context()), serverID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, server)
}

func (h *handlers) listChannels(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathID(w, r, "serverID")
	if !ok {
		return
	}

	channels, err := h.servers.ListChannels(r.Context(), serverID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

func (h *handlers) createChannel(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathID(w, r, "serverID")
	if !ok {
		return
	}
	var req createChannelRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	channel, err := h.servers.CreateChannel(r.Context(), userIDFrom(r.Context()), serverID, req.Name, req.Type)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, channel)
}

func (h *handlers) searchUsers(w http.ResponseWriter, r *http.Request) {
	results, err := h.servers.SearchUsers(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
