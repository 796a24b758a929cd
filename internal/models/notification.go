package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationType identifies the in-app notification template.
type NotificationType string

const (
	NotificationPaymentRequested  NotificationType = "PAYMENT_REQUESTED"
	NotificationPaymentConfirmed  NotificationType = "PAYMENT_CONFIRMED"
	NotificationAssetsReady       NotificationType = "ASSETS_READY"
	NotificationRevisionSubmitted NotificationType = "REVISION_SUBMITTED"
	NotificationProjectCompleted  NotificationType = "PROJECT_COMPLETED"
)

// Notification is an in-app message shown in a user's dashboard.
type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index:idx_notifications_user_read,priority:1" json:"user_id"`
	ProjectID *uuid.UUID       `gorm:"type:uuid;index" json:"project_id,omitempty"`
	Type      NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Title     string           `gorm:"not null" json:"title"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	Read      bool             `gorm:"not null;default:false;index:idx_notifications_user_read,priority:2" json:"read"`
	Metadata  datatypes.JSON   `json:"metadata,omitempty"`
	CreatedAt time.Time        `gorm:"index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
