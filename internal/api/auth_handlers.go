package api

import (
	"net/http"

	"github.com/prudhvinik1/guildchat/internal/services"
)

type registerRequest struct {
	Email      string `json:"email"`
	Username   string `json:"username"`
	UserNumber string `json:"user_number"`
	Password   string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.auth.Register(r.Context(), services.RegisterRequest{
		Email:      req.Email,
		Username:   req.Username,
		UserNumber: req.UserNumber,
		Password:   req.Password,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), tokenFrom(r.Context())); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
