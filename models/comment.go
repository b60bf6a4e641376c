package models

import "time"

// CommentContentMaxLength is the comment column size; configured limits cannot exceed it.
const CommentContentMaxLength = 1000

// Comment represents a reply to a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	PersonaID uint      `gorm:"index;not null" json:"-"`
	Content   string    `gorm:"size:1000;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	Persona   Persona   `gorm:"foreignKey:PersonaID" json:"-"`
}
