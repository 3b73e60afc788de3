package api

import (
	"net/http"

	"github.com/google/uuid"
)

type postMessageRequest struct {
	Content     string   `json:"content"`
	Attachments []string `json:"attachments"`
}

type openThreadRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

func (h *handlers) postChannelMessage(w http.ResponseWriter, r *http.Request) {
	channelID, ok := pathID(w, r, "channelID")
	if !ok {
		return
	}
	var req postMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	message, err := h.conversations.PostChannelMessage(r.Context(), channelID, userIDFrom(r.Context()), req.Content, req.Attachments)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

func (h *handlers) listChannelMessages(w http.ResponseWriter, r *http.Request) {
	channelID, ok := pathID(w, r, "channelID")
	if !ok {
		return
	}

	messages, err := h.conversations.ListChannelMessages(r.Context(), channelID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *handlers) listDirectThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := h.conversations.ListDirectThreads(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, threads)
}

func (h *handlers) openDirectThread(w http.ResponseWriter, r *http.Request) {
	var req openThreadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	thread, err := h.conversations.CreateOrGetDirectThread(r.Context(), userIDFrom(r.Context()), req.UserID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

func (h *handlers) postDirectMessage(w http.ResponseWriter, r *http.Request) {
	threadID, ok := pathID(w, r, "threadID")
	if !ok {
		return
	}
	var req postMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	message, err := h.conversations.PostDirectMessage(r.Context(), threadID, userIDFrom(r.Context()), req.Content, req.Attachments)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

func (h *handlers) listDirectMessages(w http.ResponseWriter, r *http.Request) {
	threadID, ok := pathID(w, r, "threadID")
	if !ok {
		return
	}

	messages, err := h.conversations.ListDirectMessages(r.Context(), threadID, userIDFrom(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}
