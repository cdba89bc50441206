package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Issue workflow states as normalized by NormalizeState. The tracker reports
// display names ("In Progress"); comparisons always go through the normalized
// form.
const (
	StateBacklog    = "backlog"
	StateTodo       = "todo"
	StateInProgress = "in_progress"
	StateInReview   = "in_review"
	StateDone       = "done"
	StateCanceled   = "canceled"
)

// TerminalStates are workflow states in which an issue is no longer active.
var TerminalStates = []string{StateDone, StateCanceled}

func NormalizeState(state string) string {
	s := strings.ToLower(strings.TrimSpace(state))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

func IsTerminalState(state string) bool {
	n := NormalizeState(state)
	for _, t := range TerminalStates {
		if n == t {
			return true
		}
	}
	return false
}

// IssueSnapshot is a point-in-time copy of tracker issue state. Snapshots are
// append-only; the current state of an issue is its latest row by snapshot_at.
type IssueSnapshot struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	IssueID      string         `gorm:"column:issue_id;not null;index;index:idx_issue_snapshot_at,priority:1" json:"issue_id"`
	ExternalID   string         `gorm:"column:external_id" json:"external_id"`
	Title        string         `gorm:"not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	State        string         `gorm:"not null;index" json:"state"`
	Priority     int            `gorm:"not null" json:"priority"`
	AssigneeID   string         `gorm:"column:assignee_id" json:"assignee_id"`
	AssigneeName string         `gorm:"column:assignee_name" json:"assignee_name"`
	TeamID       string         `gorm:"column:team_id" json:"team_id"`
	TeamName     string         `gorm:"column:team_name;index" json:"team_name"`
	Labels       datatypes.JSON `gorm:"column:labels" json:"labels"`
	Metadata     datatypes.JSON `gorm:"column:metadata" json:"metadata"`
	SnapshotAt   time.Time      `gorm:"column:snapshot_at;not null;index;index:idx_issue_snapshot_at,priority:2" json:"snapshot_at"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (IssueSnapshot) TableName() string { return "issue_snapshots" }

func (s *IssueSnapshot) LabelList() []string {
	if len(s.Labels) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(s.Labels, &out); err != nil {
		return nil
	}
	return out
}

func (s *IssueSnapshot) SetLabels(labels []string) error {
	if labels == nil {
		labels = []string{}
	}
	raw, err := json.Marshal(labels)
	if err != nil {
		return err
	}
	s.Labels = datatypes.JSON(raw)
	return nil
}
