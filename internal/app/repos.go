package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/chief-of-staff/internal/data/repos/briefings"
	"github.com/yungbote/chief-of-staff/internal/data/repos/engagement"
	"github.com/yungbote/chief-of-staff/internal/data/repos/feedback"
	"github.com/yungbote/chief-of-staff/internal/data/repos/issues"
	"github.com/yungbote/chief-of-staff/internal/data/repos/prefs"
	"github.com/yungbote/chief-of-staff/internal/data/repos/user"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
)

type Repos struct {
	User           user.UserRepo
	FeedbackEvent  feedback.FeedbackEventRepo
	IssueSnapshot  issues.IssueSnapshotRepo
	Engagement     engagement.EngagementRecordRepo
	UserPreference prefs.UserPreferenceRepo
	Briefing       briefings.BriefingRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:           user.NewUserRepo(db, log),
		FeedbackEvent:  feedback.NewFeedbackEventRepo(db, log),
		IssueSnapshot:  issues.NewIssueSnapshotRepo(db, log),
		Engagement:     engagement.NewEngagementRecordRepo(db, log),
		UserPreference: prefs.NewUserPreferenceRepo(db, log),
		Briefing:       briefings.NewBriefingRepo(db, log),
	}
}
