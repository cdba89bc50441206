package domain

import (
	"time"

	"github.com/google/uuid"
)

// Briefing logs each delivered briefing so feedback events can reference it.
type Briefing struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	IssueCount  int       `gorm:"column:issue_count;not null" json:"issue_count"`
	DeliveredAt time.Time `gorm:"column:delivered_at;not null;index" json:"delivered_at"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Briefing) TableName() string { return "briefings" }
