package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	FeedbackPositive    = "positive"
	FeedbackNegative    = "negative"
	FeedbackIssueAction = "issue_action"
)

// ValidFeedbackType reports whether t is one of the recognized feedback types.
func ValidFeedbackType(t string) bool {
	switch t {
	case FeedbackPositive, FeedbackNegative, FeedbackIssueAction:
		return true
	}
	return false
}

// FeedbackEvent is an append-only record of a user reaction delivered by the
// chat bot. Rows are never updated; retention jobs may bulk-delete old ones.
type FeedbackEvent struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	BriefingID   *uuid.UUID     `gorm:"type:uuid;column:briefing_id;index" json:"briefing_id,omitempty"`
	FeedbackType string         `gorm:"column:feedback_type;not null;index" json:"feedback_type"`
	Metadata     datatypes.JSON `gorm:"column:metadata" json:"metadata"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (FeedbackEvent) TableName() string { return "feedback_events" }

// FeedbackMetadata is the decoded shape of FeedbackEvent.Metadata. IssueID is
// set for positive/negative feedback; Action additionally for issue_action.
type FeedbackMetadata struct {
	IssueID string `json:"issue_id"`
	Action  string `json:"action,omitempty"`
}

func (e *FeedbackEvent) DecodeMetadata() (FeedbackMetadata, error) {
	var m FeedbackMetadata
	if len(e.Metadata) == 0 {
		return m, nil
	}
	err := json.Unmarshal(e.Metadata, &m)
	return m, err
}
