package feedback

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/chief-of-staff/internal/domain"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
)

type FeedbackEventRepo interface {
	Create(dbc dbctx.Context, row *types.FeedbackEvent) error
	// ListByUserSince returns events for the user created at or after since,
	// restricted to feedbackTypes when non-empty, ordered by created_at then
	// id ascending so processing is deterministic.
	ListByUserSince(dbc dbctx.Context, userID uuid.UUID, since time.Time, feedbackTypes []string) ([]*types.FeedbackEvent, error)
	DeleteOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error)
}

type feedbackEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedbackEventRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackEventRepo {
	return &feedbackEventRepo{db: db, log: baseLog.With("repo", "FeedbackEventRepo")}
}

func (r *feedbackEventRepo) Create(dbc dbctx.Context, row *types.FeedbackEvent) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *feedbackEventRepo) ListByUserSince(dbc dbctx.Context, userID uuid.UUID, since time.Time, feedbackTypes []string) ([]*types.FeedbackEvent, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var results []*types.FeedbackEvent
	if userID == uuid.Nil {
		return results, nil
	}
	q := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND created_at >= ?", userID, since)
	if len(feedbackTypes) > 0 {
		q = q.Where("feedback_type IN ?", feedbackTypes)
	}
	if err := q.Order("created_at ASC, id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *feedbackEventRepo) DeleteOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Where("created_at < ?", cutoff).
		Delete(&types.FeedbackEvent{})
	return res.RowsAffected, res.Error
}
