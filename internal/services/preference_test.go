package services

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/chief-of-staff/internal/data/repos/engagement"
	"github.com/yungbote/chief-of-staff/internal/data/repos/feedback"
	"github.com/yungbote/chief-of-staff/internal/data/repos/issues"
	"github.com/yungbote/chief-of-staff/internal/data/repos/prefs"
	"github.com/yungbote/chief-of-staff/internal/data/repos/testutil"
	types "github.com/yungbote/chief-of-staff/internal/domain"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
)

func newPreferenceService(t *testing.T, gdb *gorm.DB, cfg PreferenceConfig) PreferenceService {
	t.Helper()
	log := testutil.Logger(t)
	svc, err := NewPreferenceService(
		log,
		cfg,
		NewTopicDetector(nil),
		feedback.NewFeedbackEventRepo(gdb, log),
		issues.NewIssueSnapshotRepo(gdb, log),
		prefs.NewUserPreferenceRepo(gdb, log),
		engagement.NewEngagementRecordRepo(gdb, log),
		nil,
	)
	if err != nil {
		t.Fatalf("NewPreferenceService: %v", err)
	}
	return svc
}

func TestAnalyzeInsufficientData(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, gdb, "insufficient@example.com")
	dbc := dbctx.New(ctx)

	svc := newPreferenceService(t, gdb, PreferenceConfig{MinFeedbackCount: 3})

	testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{IssueID: "ISS-1"})
	testutil.SeedFeedback(t, ctx, gdb, user.ID, types.FeedbackPositive, "ISS-1", time.Now().UTC())

	report, err := svc.AnalyzeFeedbackPatterns(dbc, user.ID)
	if err != nil {
		t.Fatalf("AnalyzeFeedbackPatterns: %v", err)
	}
	if report.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0", report.Confidence)
	}
	if report.FeedbackCount != 1 {
		t.Fatalf("feedback count = %d, want 1", report.FeedbackCount)
	}
	if len(report.PreferredTopics) != 0 || len(report.DislikedTopics) != 0 {
		t.Fatalf("insufficient-data report must have empty lists, got %+v", report)
	}

	rows, err := prefs.NewUserPreferenceRepo(gdb, testutil.Logger(t)).ListByUser(dbc, user.ID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("insufficient-data pass must not persist rows, got %d", len(rows))
	}
}

func TestAnalyzeFeedbackPatterns(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, gdb, "learner@example.com")
	dbc := dbctx.New(ctx)
	now := time.Now().UTC()

	// 3 positive on backend/api issues from Backend Team, 1 negative frontend.
	testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{
		IssueID: "ISS-1", Title: "Backend worker crashes", TeamName: "Backend Team", Labels: []string{"bug"},
	})
	testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{
		IssueID: "ISS-2", Title: "API rate limit exceeded", TeamName: "Backend Team", Labels: []string{"bug"},
	})
	testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{
		IssueID: "ISS-3", Title: "Backend endpoint timeout", TeamName: "Backend Team",
	})
	testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{
		IssueID: "ISS-4", Title: "Frontend component misaligned", TeamName: "Web Team",
	})

	testutil.SeedFeedback(t, ctx, gdb, user.ID, types.FeedbackPositive, "ISS-1", now.Add(-3*time.Hour))
	testutil.SeedFeedback(t, ctx, gdb, user.ID, types.FeedbackPositive, "ISS-2", now.Add(-2*time.Hour))
	testutil.SeedFeedback(t, ctx, gdb, user.ID, types.FeedbackPositive, "ISS-3", now.Add(-time.Hour))
	testutil.SeedFeedback(t, ctx, gdb, user.ID, types.FeedbackNegative, "ISS-4", now)

	svc := newPreferenceService(t, gdb, PreferenceConfig{
		MinFeedbackCount:     3,
		ConfidenceSaturation: 20,
		PreferredThreshold:   0.7,
		DislikedThreshold:    0.3,
		MinObservations:      2,
	})

	report, err := svc.AnalyzeFeedbackPatterns(dbc, user.ID)
	if err != nil {
		t.Fatalf("AnalyzeFeedbackPatterns: %v", err)
	}

	if report.FeedbackCount != 4 {
		t.Fatalf("feedback count = %d, want 4", report.FeedbackCount)
	}
	if want := 4.0 / 20.0; math.Abs(report.Confidence-want) > 1e-9 {
		t.Fatalf("confidence = %v, want %v", report.Confidence, want)
	}
	if got := report.TopicScores["backend"]; got < 0.5 {
		t.Fatalf("backend score = %v, want >= 0.5", got)
	}
	if got, ok := report.TopicScores["frontend"]; !ok || got >= 0.5 {
		t.Fatalf("frontend score = %v (ok=%v), want < 0.5", got, ok)
	}
	foundBackendTeam := false
	for _, team := range report.PreferredTeams {
		if team == "Backend Team" {
			foundBackendTeam = true
		}
	}
	if !foundBackendTeam {
		t.Fatalf("preferred teams = %v, want Backend Team included", report.PreferredTeams)
	}

	// Persisted rows mirror the report.
	prefRepo := prefs.NewUserPreferenceRepo(gdb, testutil.Logger(t))
	topicRows, err := prefRepo.ListByUserAndType(dbc, user.ID, types.PreferenceTopic)
	if err != nil {
		t.Fatalf("ListByUserAndType: %v", err)
	}
	persisted := make(map[string]float64, len(topicRows))
	for _, row := range topicRows {
		persisted[row.PreferenceKey] = row.Score
	}
	if !reflect.DeepEqual(persisted, report.TopicScores) {
		t.Fatalf("persisted topic scores %v != report %v", persisted, report.TopicScores)
	}
}

func TestAnalyzeIdempotentOnUnchangedWindow(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, gdb, "idempotent@example.com")
	dbc := dbctx.New(ctx)
	now := time.Now().UTC()

	testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{IssueID: "ISS-1", Title: "Database migration stuck"})
	testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{IssueID: "ISS-2", Title: "Security token leak"})
	testutil.SeedFeedback(t, ctx, gdb, user.ID, types.FeedbackPositive, "ISS-1", now.Add(-time.Hour))
	testutil.SeedFeedback(t, ctx, gdb, user.ID, types.FeedbackPositive, "ISS-1", now.Add(-30*time.Minute))
	testutil.SeedFeedback(t, ctx, gdb, user.ID, types.FeedbackNegative, "ISS-2", now)

	svc := newPreferenceService(t, gdb, DefaultPreferenceConfig())

	first, err := svc.AnalyzeFeedbackPatterns(dbc, user.ID)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := svc.AnalyzeFeedbackPatterns(dbc, user.ID)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if !reflect.DeepEqual(first.TopicScores, second.TopicScores) {
		t.Fatalf("topic scores changed on unchanged window: %v vs %v", first.TopicScores, second.TopicScores)
	}
	if !reflect.DeepEqual(first.TeamScores, second.TeamScores) {
		t.Fatalf("team scores changed on unchanged window: %v vs %v", first.TeamScores, second.TeamScores)
	}
	if !reflect.DeepEqual(first.LabelScores, second.LabelScores) {
		t.Fatalf("label scores changed on unchanged window: %v vs %v", first.LabelScores, second.LabelScores)
	}
}

func TestAnalyzeSkipsUnresolvableIssues(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, gdb, "skips@example.com")
	dbc := dbctx.New(ctx)
	now := time.Now().UTC()

	testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{IssueID: "ISS-1", Title: "API timeout"})
	testutil.SeedFeedback(t, ctx, gdb, user.ID, types.FeedbackPositive, "ISS-1", now.Add(-2*time.Hour))
	testutil.SeedFeedback(t, ctx, gdb, user.ID, types.FeedbackPositive, "ISS-1", now.Add(-time.Hour))
	// No snapshot exists for this issue; the event is skipped, not fatal.
	testutil.SeedFeedback(t, ctx, gdb, user.ID, types.FeedbackNegative, "ISS-MISSING", now)

	svc := newPreferenceService(t, gdb, PreferenceConfig{MinFeedbackCount: 3})
	report, err := svc.AnalyzeFeedbackPatterns(dbc, user.ID)
	if err != nil {
		t.Fatalf("AnalyzeFeedbackPatterns: %v", err)
	}
	if report.SkippedCount != 1 {
		t.Fatalf("skipped count = %d, want 1", report.SkippedCount)
	}
	if got := report.TopicScores["api"]; got != 1.0 {
		t.Fatalf("api score = %v, want 1.0", got)
	}
}

func TestResetPreferences(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, gdb, "reset@example.com")
	dbc := dbctx.New(ctx)
	log := testutil.Logger(t)

	prefRepo := prefs.NewUserPreferenceRepo(gdb, log)
	err := prefRepo.UpsertBatch(dbc, []*types.UserPreference{
		{UserID: user.ID, PreferenceType: types.PreferenceTopic, PreferenceKey: "backend", Score: 0.9},
		{UserID: user.ID, PreferenceType: types.PreferenceTeam, PreferenceKey: "Backend Team", Score: 0.8},
	})
	if err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	svc := newPreferenceService(t, gdb, DefaultPreferenceConfig())
	n, err := svc.ResetPreferences(dbc, user.ID)
	if err != nil {
		t.Fatalf("ResetPreferences: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows deleted = %d, want 2", n)
	}

	scores, err := svc.PreferenceScores(dbc, user.ID)
	if err != nil {
		t.Fatalf("PreferenceScores: %v", err)
	}
	if len(scores) != 0 {
		t.Fatalf("scores after reset = %v, want empty", scores)
	}
}

func TestPreferenceScoresGrouping(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, gdb, "scores@example.com")
	dbc := dbctx.New(ctx)
	log := testutil.Logger(t)

	prefRepo := prefs.NewUserPreferenceRepo(gdb, log)
	err := prefRepo.UpsertBatch(dbc, []*types.UserPreference{
		{UserID: user.ID, PreferenceType: types.PreferenceTopic, PreferenceKey: "backend", Score: 0.9},
		{UserID: user.ID, PreferenceType: types.PreferenceTopic, PreferenceKey: "ui", Score: 0.2},
		{UserID: user.ID, PreferenceType: types.PreferenceLabel, PreferenceKey: "bug", Score: 0.6},
	})
	if err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	svc := newPreferenceService(t, gdb, DefaultPreferenceConfig())
	scores, err := svc.PreferenceScores(dbc, user.ID)
	if err != nil {
		t.Fatalf("PreferenceScores: %v", err)
	}
	if scores[types.PreferenceTopic]["backend"] != 0.9 {
		t.Fatalf("unexpected topic scores %v", scores[types.PreferenceTopic])
	}
	if scores[types.PreferenceLabel]["bug"] != 0.6 {
		t.Fatalf("unexpected label scores %v", scores[types.PreferenceLabel])
	}
	if _, ok := scores[uuid.NewString()]; ok {
		t.Fatalf("unexpected preference type bucket")
	}
}
