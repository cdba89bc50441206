package domain

import (
	"time"

	"github.com/google/uuid"
)

// EngagementRecord tracks how actively a user interacts with one issue. One
// row per (user_id, issue_id); mutated in place on every interaction and
// periodically decayed.
type EngagementRecord struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index;index:idx_engagement_user_issue,unique,priority:1" json:"user_id"`
	IssueID          string     `gorm:"column:issue_id;not null;index:idx_engagement_user_issue,unique,priority:2" json:"issue_id"`
	InteractionCount int        `gorm:"column:interaction_count;not null" json:"interaction_count"`
	EngagementScore  float64    `gorm:"column:engagement_score;not null" json:"engagement_score"`
	InteractionType  string     `gorm:"column:interaction_type" json:"interaction_type"`
	FirstInteraction time.Time  `gorm:"column:first_interaction;not null" json:"first_interaction"`
	LastInteraction  time.Time  `gorm:"column:last_interaction;not null;index" json:"last_interaction"`
	LastDecayedAt    *time.Time `gorm:"column:last_decayed_at" json:"last_decayed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (EngagementRecord) TableName() string { return "engagement_records" }
