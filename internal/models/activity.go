package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionRegister           = "register"
	ActionLogin              = "login"
	ActionLogout             = "logout"
	ActionCreateServer       = "create_server"
	ActionCreateChannel      = "create_channel"
	ActionJoinServer         = "join_server"
	ActionSendMessage        = "send_message"
	ActionSendDM             = "send_dm"
	ActionAdminDeleteUser    = "admin_delete_user"
	ActionAdminDeleteMessage = "admin_delete_message"
	ActionAdminDeleteServer  = "admin_delete_server"
)

type ActivityRecord struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details"`
	Timestamp time.Time      `json:"timestamp"`
}

type ActivityView struct {
	ActivityRecord
	User *UserSummary `json:"user,omitempty"`
}

type UserSummary struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	UserNumber string `json:"user_number"`
}
