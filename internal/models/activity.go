// internal/models/activity.go
package models

import "time"

type ApplicationComment struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	UserID        string    `json:"user_id"`
	Comment       string    `json:"comment"`
	IsInternal    bool      `json:"is_internal"`
	CreatedAt     time.Time `json:"created_at"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Response  *string   `json:"response,omitempty"`
	SessionID *string   `json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditEntry records a privileged or state-changing action.
type AuditEntry struct {
	ID         string                 `json:"id"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Action     string                 `json:"action"`
	ActorID    string                 `json:"actor_id"`
	Details    map[string]interface{} `json:"details,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

const (
	EntityApplication = "application"
	EntityProfile     = "user_profile"

	AuditActionCreated       = "created"
	AuditActionTransitioned  = "transitioned"
	AuditActionRoleGranted   = "role_granted"
	AuditActionAdminOverride = "bootstrap_admin_override"
)
