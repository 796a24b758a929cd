package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssetType string

const (
	AssetReference AssetType = "REFERENCE"
	AssetGenerated AssetType = "GENERATED"
)

type AssetStatus string

const (
	AssetPending           AssetStatus = "PENDING"
	AssetReady             AssetStatus = "READY"
	AssetRevisionRequested AssetStatus = "REVISION_REQUESTED"
	AssetApproved          AssetStatus = "APPROVED"
)

// Asset is an image attached to a project: a client's reference photo or a
// generated model shot.
type Asset struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID     uuid.UUID   `gorm:"type:uuid;not null;index:idx_assets_project_type,priority:1" json:"project_id"`
	Type          AssetType   `gorm:"type:varchar(16);not null;index:idx_assets_project_type,priority:2" json:"type"`
	Status        AssetStatus `gorm:"type:varchar(32);not null;default:PENDING" json:"status"`
	FileName      string      `gorm:"not null" json:"file_name"`
	FileURL       string      `gorm:"type:text;not null" json:"file_url"`
	FileKey       string      `gorm:"type:text;not null" json:"file_key"`
	MimeType      string      `gorm:"type:varchar(64);not null" json:"mime_type"`
	FileSize      int64       `gorm:"not null" json:"file_size"`
	Width         *int        `json:"width,omitempty"`
	Height        *int        `json:"height,omitempty"`
	RevisionNotes *string     `gorm:"type:text" json:"revision_notes,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		if a.Type == AssetGenerated {
			a.Status = AssetReady
		} else {
			a.Status = AssetPending
		}
	}
	return nil
}
