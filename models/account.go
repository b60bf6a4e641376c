package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles an account can hold.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Account is the authentication identity. Passwords are stored as bcrypt hashes only.
// Its public face is the Persona bound to it.
type Account struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:16;not null;default:USER" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate hook ensures timestamps and role are set even when not provided.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.Role == "" {
		a.Role = RoleUser
	}
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (a *Account) BeforeUpdate(tx *gorm.DB) error {
	a.UpdatedAt = time.Now()
	return nil
}
