package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions recorded by the quiz core. The sink is fire-and-forget; a
// failed write never blocks or rolls back the action it describes.
const (
	ActivityActionSessionStarted   = "session_started"
	ActivityActionSessionResumed   = "session_resumed"
	ActivityActionSessionCompleted = "session_completed"
	ActivityActionQuizActivated    = "quiz_activated"
	ActivityActionQuizDeactivated  = "quiz_deactivated"
)

// ActivityLog captures auditable events around quiz sessions and activation toggles.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   *uint             `json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}
