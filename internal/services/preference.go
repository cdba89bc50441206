package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/chief-of-staff/internal/data/repos/engagement"
	"github.com/yungbote/chief-of-staff/internal/data/repos/feedback"
	"github.com/yungbote/chief-of-staff/internal/data/repos/issues"
	"github.com/yungbote/chief-of-staff/internal/data/repos/prefs"
	types "github.com/yungbote/chief-of-staff/internal/domain"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
)

// PreferenceConfig holds the tunables of the feedback analysis. The thresholds
// are configuration, not invariants.
type PreferenceConfig struct {
	WindowDays           int
	MinFeedbackCount     int
	ConfidenceSaturation int
	PreferredThreshold   float64
	DislikedThreshold    float64
	MinObservations      int
}

func DefaultPreferenceConfig() PreferenceConfig {
	return PreferenceConfig{
		WindowDays:           30,
		MinFeedbackCount:     3,
		ConfidenceSaturation: 20,
		PreferredThreshold:   0.7,
		DislikedThreshold:    0.3,
		MinObservations:      2,
	}
}

// PreferenceReport is the result of one analysis pass. A report with
// Confidence == 0 means insufficient data, which is a valid state rather than
// an error.
type PreferenceReport struct {
	FeedbackCount   int                `json:"feedback_count"`
	SkippedCount    int                `json:"skipped_count"`
	Confidence      float64            `json:"confidence"`
	EngagementScore float64            `json:"engagement_score"`
	PreferredTopics []string           `json:"preferred_topics"`
	DislikedTopics  []string           `json:"disliked_topics"`
	TopicScores     map[string]float64 `json:"topic_scores"`
	PreferredTeams  []string           `json:"preferred_teams"`
	TeamScores      map[string]float64 `json:"team_scores"`
	PreferredLabels []string           `json:"preferred_labels"`
	LabelScores     map[string]float64 `json:"label_scores"`
}

type PreferenceService interface {
	// AnalyzeFeedbackPatterns recomputes the user's preference scores from the
	// feedback window and persists them. Returns an insufficient-data report
	// when fewer than MinFeedbackCount events exist.
	AnalyzeFeedbackPatterns(dbc dbctx.Context, userID uuid.UUID) (*PreferenceReport, error)
	// PreferenceScores returns the persisted scores keyed by type then key,
	// for briefing ranking.
	PreferenceScores(dbc dbctx.Context, userID uuid.UUID) (map[string]map[string]float64, error)
	// ResetPreferences deletes every persisted preference row for the user.
	ResetPreferences(dbc dbctx.Context, userID uuid.UUID) (int64, error)
}

type preferenceService struct {
	log            *logger.Logger
	cfg            PreferenceConfig
	detector       *TopicDetector
	feedbackRepo   feedback.FeedbackEventRepo
	snapshotRepo   issues.IssueSnapshotRepo
	prefRepo       prefs.UserPreferenceRepo
	engagementRepo engagement.EngagementRecordRepo
	memory         MemoryStore
}

// NewPreferenceService wires the learner. memory may be nil; summary writes
// are best-effort and never block the database path.
func NewPreferenceService(
	log *logger.Logger,
	cfg PreferenceConfig,
	detector *TopicDetector,
	feedbackRepo feedback.FeedbackEventRepo,
	snapshotRepo issues.IssueSnapshotRepo,
	prefRepo prefs.UserPreferenceRepo,
	engagementRepo engagement.EngagementRecordRepo,
	memory MemoryStore,
) (PreferenceService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if detector == nil {
		detector = NewTopicDetector(nil)
	}
	if feedbackRepo == nil || snapshotRepo == nil || prefRepo == nil || engagementRepo == nil {
		return nil, fmt.Errorf("feedback, snapshot, preference and engagement repos required")
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultPreferenceConfig().WindowDays
	}
	if cfg.MinFeedbackCount <= 0 {
		cfg.MinFeedbackCount = DefaultPreferenceConfig().MinFeedbackCount
	}
	if cfg.ConfidenceSaturation <= 0 {
		cfg.ConfidenceSaturation = DefaultPreferenceConfig().ConfidenceSaturation
	}
	if cfg.PreferredThreshold <= 0 {
		cfg.PreferredThreshold = DefaultPreferenceConfig().PreferredThreshold
	}
	if cfg.DislikedThreshold <= 0 {
		cfg.DislikedThreshold = DefaultPreferenceConfig().DislikedThreshold
	}
	if cfg.MinObservations <= 0 {
		cfg.MinObservations = DefaultPreferenceConfig().MinObservations
	}
	return &preferenceService{
		log:            log.With("service", "PreferenceService"),
		cfg:            cfg,
		detector:       detector,
		feedbackRepo:   feedbackRepo,
		snapshotRepo:   snapshotRepo,
		prefRepo:       prefRepo,
		engagementRepo: engagementRepo,
		memory:         memory,
	}, nil
}

func (s *preferenceService) AnalyzeFeedbackPatterns(dbc dbctx.Context, userID uuid.UUID) (*PreferenceReport, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("userID required")
	}

	since := time.Now().UTC().AddDate(0, 0, -s.cfg.WindowDays)
	events, err := s.feedbackRepo.ListByUserSince(dbc, userID, since, []string{
		types.FeedbackPositive,
		types.FeedbackNegative,
	})
	if err != nil {
		return nil, fmt.Errorf("list feedback events: %w", err)
	}

	if len(events) < s.cfg.MinFeedbackCount {
		s.log.Info("Insufficient feedback for analysis",
			"user_id", userID,
			"feedback_count", len(events),
			"min_required", s.cfg.MinFeedbackCount,
		)
		return emptyReport(len(events)), nil
	}

	issueIDs := make([]string, 0, len(events))
	seen := make(map[string]bool, len(events))
	for _, ev := range events {
		meta, err := ev.DecodeMetadata()
		if err != nil || meta.IssueID == "" {
			continue
		}
		if !seen[meta.IssueID] {
			seen[meta.IssueID] = true
			issueIDs = append(issueIDs, meta.IssueID)
		}
	}

	snapshots, err := s.snapshotRepo.LatestByIssueIDs(dbc, issueIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve issue snapshots: %w", err)
	}

	topics := newScoreAccumulator()
	teams := newScoreAccumulator()
	labels := newScoreAccumulator()

	skipped := 0
	for _, ev := range events {
		meta, err := ev.DecodeMetadata()
		if err != nil || meta.IssueID == "" {
			skipped++
			continue
		}
		snap := snapshots[meta.IssueID]
		if snap == nil {
			skipped++
			continue
		}
		positive := ev.FeedbackType == types.FeedbackPositive

		topics.Observe(s.detector.Detect(snap.Title, snap.Description), positive)
		if snap.TeamName != "" {
			teams.Observe([]string{snap.TeamName}, positive)
		}
		labels.Observe(snap.LabelList(), positive)
	}
	if skipped > 0 {
		s.log.Warn("Skipped unresolvable feedback events",
			"user_id", userID,
			"skipped", skipped,
			"total", len(events),
		)
	}

	confidence := math.Min(1.0, float64(len(events))/float64(s.cfg.ConfidenceSaturation))

	report := &PreferenceReport{
		FeedbackCount: len(events),
		SkippedCount:  skipped,
		Confidence:    confidence,
		TopicScores:   topics.Scores(),
		TeamScores:    teams.Scores(),
		LabelScores:   labels.Scores(),
	}
	report.PreferredTopics, report.DislikedTopics = topics.Partition(
		s.cfg.PreferredThreshold, s.cfg.DislikedThreshold, s.cfg.MinObservations)
	report.PreferredTeams, _ = teams.Partition(
		s.cfg.PreferredThreshold, s.cfg.DislikedThreshold, s.cfg.MinObservations)
	report.PreferredLabels, _ = labels.Partition(
		s.cfg.PreferredThreshold, s.cfg.DislikedThreshold, s.cfg.MinObservations)

	if score, ok := s.averageEngagement(dbc, userID); ok {
		report.EngagementScore = score
	}

	rows := buildPreferenceRows(userID, confidence, map[string]*scoreAccumulator{
		types.PreferenceTopic: topics,
		types.PreferenceTeam:  teams,
		types.PreferenceLabel: labels,
	})
	if err := s.prefRepo.UpsertBatch(dbc, rows); err != nil {
		return nil, fmt.Errorf("persist preferences: %w", err)
	}

	s.writeMemorySummary(dbc, userID, report)

	return report, nil
}

func (s *preferenceService) PreferenceScores(dbc dbctx.Context, userID uuid.UUID) (map[string]map[string]float64, error) {
	rows, err := s.prefRepo.ListByUser(dbc, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]float64)
	for _, row := range rows {
		byKey := out[row.PreferenceType]
		if byKey == nil {
			byKey = make(map[string]float64)
			out[row.PreferenceType] = byKey
		}
		byKey[row.PreferenceKey] = row.Score
	}
	return out, nil
}

func (s *preferenceService) ResetPreferences(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	n, err := s.prefRepo.DeleteByUser(dbc, userID)
	if err != nil {
		return 0, err
	}
	s.log.Info("Preferences reset", "user_id", userID, "rows_deleted", n)
	return n, nil
}

func (s *preferenceService) averageEngagement(dbc dbctx.Context, userID uuid.UUID) (float64, bool) {
	records, err := s.engagementRepo.ListByUser(dbc, userID)
	if err != nil {
		s.log.Warn("Engagement lookup failed during analysis", "user_id", userID, "error", err.Error())
		return 0, false
	}
	if len(records) == 0 {
		return 0, false
	}
	var sum float64
	for _, r := range records {
		sum += r.EngagementScore
	}
	return sum / float64(len(records)), true
}

func (s *preferenceService) writeMemorySummary(dbc dbctx.Context, userID uuid.UUID, report *PreferenceReport) {
	if s.memory == nil {
		return
	}
	summary := formatPreferenceSummary(report)
	if summary == "" {
		return
	}
	if err := s.memory.Add(dbc.Ctx, summary, map[string]any{
		"kind":    "preference_summary",
		"user_id": userID.String(),
	}); err != nil {
		s.log.Warn("Memory summary write failed", "user_id", userID, "error", err.Error())
	}
}

func emptyReport(feedbackCount int) *PreferenceReport {
	return &PreferenceReport{
		FeedbackCount:   feedbackCount,
		Confidence:      0,
		PreferredTopics: nil,
		DislikedTopics:  nil,
		TopicScores:     map[string]float64{},
		TeamScores:      map[string]float64{},
		LabelScores:     map[string]float64{},
	}
}

func buildPreferenceRows(userID uuid.UUID, confidence float64, accs map[string]*scoreAccumulator) []*types.UserPreference {
	var rows []*types.UserPreference
	for prefType, acc := range accs {
		scores := acc.Scores()
		keys := make([]string, 0, len(scores))
		for k := range scores {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rows = append(rows, &types.UserPreference{
				UserID:         userID,
				PreferenceType: prefType,
				PreferenceKey:  k,
				Score:          scores[k],
				Confidence:     confidence,
				FeedbackCount:  acc.Observations(k),
			})
		}
	}
	return rows
}

func formatPreferenceSummary(report *PreferenceReport) string {
	var parts []string
	if len(report.PreferredTopics) > 0 {
		parts = append(parts, "prefers topics: "+strings.Join(report.PreferredTopics, ", "))
	}
	if len(report.DislikedTopics) > 0 {
		parts = append(parts, "dislikes topics: "+strings.Join(report.DislikedTopics, ", "))
	}
	if len(report.PreferredTeams) > 0 {
		parts = append(parts, "prefers teams: "+strings.Join(report.PreferredTeams, ", "))
	}
	if len(report.PreferredLabels) > 0 {
		parts = append(parts, "prefers labels: "+strings.Join(report.PreferredLabels, ", "))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("User %s (confidence %.2f, %d feedback events)",
		strings.Join(parts, "; "), report.Confidence, report.FeedbackCount)
}
