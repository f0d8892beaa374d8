package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"

	// RoleModel is the legacy spelling of RoleAssistant found in older
	// ledgers; readers normalize it to RoleAssistant.
	RoleModel Role = "model"
)

// Turn captures a single role-tagged entry in a chat's history ledger.
type Turn struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
