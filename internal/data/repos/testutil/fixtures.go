package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/chief-of-staff/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: "Test User",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SnapshotOpts describes one seeded issue snapshot. Zero values get sensible
// defaults; SnapshotAt defaults to now.
type SnapshotOpts struct {
	IssueID     string
	Title       string
	Description string
	State       string
	Priority    int
	TeamName    string
	Labels      []string
	SnapshotAt  time.Time
}

func SeedSnapshot(tb testing.TB, ctx context.Context, tx *gorm.DB, opts SnapshotOpts) *types.IssueSnapshot {
	tb.Helper()
	if opts.Title == "" {
		opts.Title = "issue " + opts.IssueID
	}
	if opts.State == "" {
		opts.State = "Todo"
	}
	if opts.SnapshotAt.IsZero() {
		opts.SnapshotAt = time.Now().UTC()
	}
	labels := opts.Labels
	if labels == nil {
		labels = []string{}
	}
	raw, err := json.Marshal(labels)
	if err != nil {
		tb.Fatalf("seed snapshot labels: %v", err)
	}
	s := &types.IssueSnapshot{
		ID:          uuid.New(),
		IssueID:     opts.IssueID,
		ExternalID:  opts.IssueID,
		Title:       opts.Title,
		Description: opts.Description,
		State:       opts.State,
		Priority:    opts.Priority,
		TeamName:    opts.TeamName,
		Labels:      datatypes.JSON(raw),
		SnapshotAt:  opts.SnapshotAt,
		CreatedAt:   time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed snapshot: %v", err)
	}
	return s
}

func SeedFeedback(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, feedbackType, issueID string, createdAt time.Time) *types.FeedbackEvent {
	tb.Helper()
	raw, err := json.Marshal(types.FeedbackMetadata{IssueID: issueID})
	if err != nil {
		tb.Fatalf("seed feedback metadata: %v", err)
	}
	e := &types.FeedbackEvent{
		ID:           uuid.New(),
		UserID:       userID,
		FeedbackType: feedbackType,
		Metadata:     datatypes.JSON(raw),
		CreatedAt:    createdAt,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed feedback: %v", err)
	}
	return e
}
