package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectStatusHistory is one append-only ledger row per successful status
// transition. FromStatus is nil only for the creation entry.
type ProjectStatusHistory struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_status_history_project_created,priority:1" json:"project_id"`
	Project     *Project       `gorm:"foreignKey:ProjectID" json:"-"`
	FromStatus  *ProjectStatus `gorm:"type:varchar(32)" json:"from_status"`
	ToStatus    ProjectStatus  `gorm:"type:varchar(32);not null" json:"to_status"`
	ChangedByID *uuid.UUID     `gorm:"type:uuid" json:"changed_by_id,omitempty"`
	ChangedBy   *User          `gorm:"foreignKey:ChangedByID" json:"changed_by,omitempty"`
	Notes       *string        `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index:idx_status_history_project_created,priority:2" json:"created_at"`
}

// TableName keeps the ledger table name stable regardless of pluralisation.
func (ProjectStatusHistory) TableName() string { return "project_status_history" }

func (h *ProjectStatusHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
