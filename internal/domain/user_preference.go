package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	PreferenceTopic = "topic"
	PreferenceTeam  = "team"
	PreferenceLabel = "label"
)

// UserPreference holds one learned score per (user, type, key), e.g.
// (user, topic, "backend"). Rows are replaced wholesale by each analysis pass
// (last-analysis-wins) and deleted only on explicit user reset.
type UserPreference struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index;index:idx_user_pref_key,unique,priority:1" json:"user_id"`
	PreferenceType string    `gorm:"column:preference_type;not null;index:idx_user_pref_key,unique,priority:2" json:"preference_type"`
	PreferenceKey  string    `gorm:"column:preference_key;not null;index:idx_user_pref_key,unique,priority:3" json:"preference_key"`
	Score          float64   `gorm:"not null" json:"score"`
	Confidence     float64   `gorm:"not null" json:"confidence"`
	FeedbackCount  int       `gorm:"column:feedback_count;not null" json:"feedback_count"`
	LastUpdated    time.Time `gorm:"column:last_updated;not null" json:"last_updated"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (UserPreference) TableName() string { return "user_preferences" }
