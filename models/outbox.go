package models

import "time"

// Outbox delivery states.
const (
	OutboxPending int8 = 0
	OutboxSent    int8 = 1
	OutboxFailed  int8 = 2
)

// OutboxEvent is a domain event written in the same transaction as the change it describes.
type OutboxEvent struct {
	ID          uint64    `gorm:"primaryKey"`
	EventID     string    `gorm:"size:36;not null;uniqueIndex"`
	EventType   string    `gorm:"size:32;not null"`
	AggregateID uint      `gorm:"not null;index"`
	Payload     string    `gorm:"type:text;not null"`
	Status      int8      `gorm:"not null;default:0;index"`
	Retry       int       `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (OutboxEvent) TableName() string { return "outbox_events" }

// All lists every model for migration.
func All() []interface{} {
	return []interface{}{
		&Account{}, &Persona{}, &Post{}, &PostTag{}, &Tag{}, &Support{}, &Comment{}, &OutboxEvent{},
	}
}
