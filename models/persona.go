package models

import "time"

// Persona is the anonymous public identity of an Account.
// Both unique indexes are load-bearing: one persona per account, one owner per display name.
type Persona struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AccountID   uint      `gorm:"not null;uniqueIndex" json:"-"`
	DisplayName string    `gorm:"size:64;not null;uniqueIndex" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}
