package models

// Tag is the persisted row behind one value of the closed tag enumeration.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Type string `gorm:"size:32;not null;uniqueIndex" json:"type"`
}
