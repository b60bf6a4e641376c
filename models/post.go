package models

import "time"

// PostContentMaxLength bounds post content in characters.
const PostContentMaxLength = 1000

// Post is a short message authored by a persona.
// SupportCount caches the number of Support rows and is repaired by reconciliation.
type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PersonaID    uint      `gorm:"index;not null" json:"-"`
	Content      string    `gorm:"size:1000;not null" json:"content"`
	SupportCount int64     `gorm:"not null;default:0" json:"support_count"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	Persona      Persona   `gorm:"foreignKey:PersonaID" json:"-"`
}

// PostTag links a post to a catalog tag. It is the only owner of the relation.
type PostTag struct {
	PostID uint `gorm:"primaryKey;autoIncrement:false"`
	TagID  uint `gorm:"primaryKey;autoIncrement:false;index"`
}
