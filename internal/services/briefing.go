package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/chief-of-staff/internal/clients/openai"
	"github.com/yungbote/chief-of-staff/internal/clients/telegram"
	"github.com/yungbote/chief-of-staff/internal/data/repos/briefings"
	"github.com/yungbote/chief-of-staff/internal/data/repos/engagement"
	"github.com/yungbote/chief-of-staff/internal/data/repos/issues"
	types "github.com/yungbote/chief-of-staff/internal/domain"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
)

const briefingIssueLimit = 10

const briefingSystemPrompt = `You are a concise chief of staff. Summarize the
issues below into a short morning briefing. Lead with what deserves attention
today, group related work, and keep it under 300 words. Plain text only.`

// rankedIssue pairs a snapshot with its composite ranking score.
type rankedIssue struct {
	Snapshot *types.IssueSnapshot
	Score    float64
}

type BriefingService interface {
	// GenerateAndDeliver ranks the user's active issues, drafts the briefing
	// text and sends it over the chat bot. The briefing row is stored even
	// when delivery fails.
	GenerateAndDeliver(dbc dbctx.Context, user *types.User) (*types.Briefing, error)
}

type briefingService struct {
	log            *logger.Logger
	detector       *TopicDetector
	snapshotRepo   issues.IssueSnapshotRepo
	briefingRepo   briefings.BriefingRepo
	engagementRepo engagement.EngagementRecordRepo
	prefSvc        PreferenceService
	ai             openai.Client
	bot            telegram.Client
}

func NewBriefingService(
	log *logger.Logger,
	detector *TopicDetector,
	snapshotRepo issues.IssueSnapshotRepo,
	briefingRepo briefings.BriefingRepo,
	engagementRepo engagement.EngagementRecordRepo,
	prefSvc PreferenceService,
	ai openai.Client,
	bot telegram.Client,
) (BriefingService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if detector == nil {
		detector = NewTopicDetector(nil)
	}
	if snapshotRepo == nil || briefingRepo == nil || engagementRepo == nil || prefSvc == nil {
		return nil, fmt.Errorf("snapshot, briefing, engagement repos and preference service required")
	}
	return &briefingService{
		log:            log.With("service", "BriefingService"),
		detector:       detector,
		snapshotRepo:   snapshotRepo,
		briefingRepo:   briefingRepo,
		engagementRepo: engagementRepo,
		prefSvc:        prefSvc,
		ai:             ai,
		bot:            bot,
	}, nil
}

func (s *briefingService) GenerateAndDeliver(dbc dbctx.Context, user *types.User) (*types.Briefing, error) {
	if user == nil {
		return nil, fmt.Errorf("user required")
	}

	snapshots, err := s.snapshotRepo.LatestAll(dbc, true)
	if err != nil {
		return nil, fmt.Errorf("load active issues: %w", err)
	}
	if len(snapshots) == 0 {
		s.log.Info("No active issues to brief on", "user_id", user.ID)
		return nil, nil
	}

	scores, err := s.prefSvc.PreferenceScores(dbc, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load preference scores: %w", err)
	}
	engagementByIssue := map[string]float64{}
	if records, err := s.engagementRepo.ListByUser(dbc, user.ID); err == nil {
		for _, r := range records {
			engagementByIssue[r.IssueID] = r.EngagementScore
		}
	} else {
		s.log.Warn("Engagement lookup failed, ranking without it", "user_id", user.ID, "error", err.Error())
	}

	ranked := rankIssues(s.detector, snapshots, scores, engagementByIssue)
	if len(ranked) > briefingIssueLimit {
		ranked = ranked[:briefingIssueLimit]
	}

	content := s.draftBriefing(dbc, ranked)

	briefing := &types.Briefing{
		UserID:     user.ID,
		Content:    content,
		IssueCount: len(ranked),
	}
	if err := s.briefingRepo.Create(dbc, briefing); err != nil {
		return nil, fmt.Errorf("store briefing: %w", err)
	}

	if s.bot != nil && user.TelegramChatID != 0 {
		if err := s.bot.SendMessage(dbc.Ctx, user.TelegramChatID, content, ""); err != nil {
			return briefing, fmt.Errorf("deliver briefing: %w", err)
		}
	}
	s.log.Info("Briefing delivered", "user_id", user.ID, "issue_count", len(ranked))
	return briefing, nil
}

// draftBriefing asks the LLM for prose and falls back to the plain issue list
// when generation fails.
func (s *briefingService) draftBriefing(dbc dbctx.Context, ranked []rankedIssue) string {
	listing := formatIssueList(ranked)
	if s.ai == nil {
		return listing
	}
	text, err := s.ai.GenerateText(dbc.Ctx, briefingSystemPrompt, listing)
	if err != nil || strings.TrimSpace(text) == "" {
		s.log.Warn("LLM briefing generation failed, using plain listing", "error", fmt.Sprintf("%v", err))
		return listing
	}
	return text
}

// rankIssues orders issues by a blend of learned preference, current
// engagement and tracker priority. Pure; exported behavior is covered by
// tests through this function.
func rankIssues(
	detector *TopicDetector,
	snapshots []*types.IssueSnapshot,
	prefScores map[string]map[string]float64,
	engagementByIssue map[string]float64,
) []rankedIssue {
	out := make([]rankedIssue, 0, len(snapshots))
	for _, snap := range snapshots {
		pref := preferenceMatch(detector, snap, prefScores)
		eng := engagementByIssue[snap.IssueID]
		score := 0.4*pref + 0.3*eng + 0.3*priorityWeight(snap.Priority)
		out = append(out, rankedIssue{Snapshot: snap, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Snapshot.IssueID < out[j].Snapshot.IssueID
	})
	return out
}

// preferenceMatch averages the user's scores over the issue's topics, team and
// labels, neutral when nothing matches.
func preferenceMatch(detector *TopicDetector, snap *types.IssueSnapshot, prefScores map[string]map[string]float64) float64 {
	var sum float64
	var n int
	for _, topic := range detector.Detect(snap.Title, snap.Description) {
		if score, ok := prefScores[types.PreferenceTopic][topic]; ok {
			sum += score
			n++
		}
	}
	if score, ok := prefScores[types.PreferenceTeam][snap.TeamName]; ok {
		sum += score
		n++
	}
	for _, label := range snap.LabelList() {
		if score, ok := prefScores[types.PreferenceLabel][label]; ok {
			sum += score
			n++
		}
	}
	if n == 0 {
		return neutralScore
	}
	return sum / float64(n)
}

// priorityWeight maps tracker priority (1 urgent .. 4 low, 0 none) to [0,1].
func priorityWeight(priority int) float64 {
	switch priority {
	case 1:
		return 1.0
	case 2:
		return 0.8
	case 3:
		return 0.5
	case 4:
		return 0.3
	default:
		return 0.4
	}
}

func formatIssueList(ranked []rankedIssue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your top %d issues today:\n", len(ranked))
	for i, r := range ranked {
		snap := r.Snapshot
		fmt.Fprintf(&b, "\n%d. [%s] %s (%s", i+1, snap.IssueID, snap.Title, snap.State)
		if snap.TeamName != "" {
			fmt.Fprintf(&b, ", %s", snap.TeamName)
		}
		b.WriteString(")")
	}
	return b.String()
}
