package api

import (
	"net/http"
)

func (h *handlers) adminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *handlers) adminListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.admin.RecentMessages(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *handlers) adminListActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.admin.RecentActivity(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

func (h *handlers) adminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handlers) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	if err := h.admin.DeleteUser(r.Context(), userIDFrom(r.Context()), userID); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

func (h *handlers) adminDeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID, ok := pathID(w, r, "messageID")
	if !ok {
		return
	}
	if err := h.admin.DeleteMessage(r.Context(), userIDFrom(r.Context()), messageID); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "message deleted"})
}

func (h *handlers) adminDeleteServer(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathID(w, r, "serverID")
	if !ok {
		return
	}
	if err := h.admin.DeleteServer(r.Context(), userIDFrom(r.Context()), serverID); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "server deleted"})
}
