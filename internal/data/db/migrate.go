package db

import (
	types "github.com/yungbote/chief-of-staff/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.User{},

		// Feature store
		&types.FeedbackEvent{},
		&types.IssueSnapshot{},
		&types.EngagementRecord{},
		&types.UserPreference{},

		// Delivery log
		&types.Briefing{},
	)
}
