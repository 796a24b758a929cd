package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role controls what a user may see and do in the portal.
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleAdmin  Role = "ADMIN"
)

// User represents a portal user. Clients sign in with magic links or OIDC,
// admins with a password.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email" validate:"required,email"`
	Name         string    `gorm:"not null;default:''" json:"name"`
	Role         Role      `gorm:"type:varchar(16);not null;default:CLIENT;index" json:"role" validate:"required,oneof=CLIENT ADMIN"`
	PasswordHash string    `gorm:"not null;default:''" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleClient
	}
	return nil
}

// DisplayName falls back to a generic salutation when the name is unknown.
func (u *User) DisplayName() string {
	if u == nil || u.Name == "" {
		return "Customer"
	}
	return u.Name
}
