package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectStatus is one of the seven lifecycle states of a project.
type ProjectStatus string

const (
	StatusIntakeNew       ProjectStatus = "INTAKE_NEW"
	StatusAwaitingPayment ProjectStatus = "AWAITING_PAYMENT"
	StatusPaid            ProjectStatus = "PAID"
	StatusInQueue         ProjectStatus = "IN_QUEUE"
	StatusGenerating      ProjectStatus = "GENERATING"
	StatusReviewReady     ProjectStatus = "REVIEW_READY"
	StatusCompleted       ProjectStatus = "COMPLETED"
)

func (s ProjectStatus) String() string { return string(s) }

// PackageType is the commercial package an admin assigns to a project.
type PackageType string

const (
	Package10Shots PackageType = "10-shots"
	Package20Shots PackageType = "20-shots"
	Package30Shots PackageType = "30-shots"
	PackageCustom  PackageType = "custom"
)

// Project is a client's photography request. Status is only ever changed by
// the lifecycle executor.
type Project struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID     `gorm:"type:uuid;index;not null" json:"user_id"`
	User           *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ProductType    string        `gorm:"type:varchar(100);not null" json:"product_type"`
	CreativeBrief  string        `gorm:"type:text;not null" json:"creative_brief"`
	Status         ProjectStatus `gorm:"type:varchar(32);not null;default:INTAKE_NEW;index" json:"status"`
	PackageType    *string       `gorm:"type:varchar(32)" json:"package_type,omitempty"`
	PaymentLinkURL *string       `gorm:"type:text" json:"payment_link_url,omitempty"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	CreatedAt      time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	Assets []Asset `gorm:"foreignKey:ProjectID" json:"assets,omitempty"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusIntakeNew
	}
	return nil
}
