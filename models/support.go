package models

import "time"

// Support is one persona's endorsement of a post.
type Support struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_support_post_persona" json:"post_id"`
	PersonaID uint      `gorm:"not null;uniqueIndex:idx_support_post_persona;index" json:"persona_id"`
	CreatedAt time.Time `json:"created_at"`
}
