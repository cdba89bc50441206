package engagement

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/chief-of-staff/internal/domain"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
)

type EngagementRecordRepo interface {
	Get(dbc dbctx.Context, userID uuid.UUID, issueID string) (*types.EngagementRecord, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.EngagementRecord, error)
	// Upsert inserts or replaces the row keyed by (user_id, issue_id).
	Upsert(dbc dbctx.Context, row *types.EngagementRecord) error
	Update(dbc dbctx.Context, row *types.EngagementRecord) error
	// ListDecayable returns rows whose last_interaction is older than
	// staleBefore and that have not been decayed since decayedBefore.
	ListDecayable(dbc dbctx.Context, staleBefore, decayedBefore time.Time) ([]*types.EngagementRecord, error)
	// DeleteZeroOlderThan removes rows whose score dropped to zero and whose
	// last interaction is older than cutoff.
	DeleteZeroOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error)
}

type engagementRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEngagementRecordRepo(db *gorm.DB, baseLog *logger.Logger) EngagementRecordRepo {
	return &engagementRecordRepo{db: db, log: baseLog.With("repo", "EngagementRecordRepo")}
}

func (r *engagementRecordRepo) Get(dbc dbctx.Context, userID uuid.UUID, issueID string) (*types.EngagementRecord, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || issueID == "" {
		return nil, nil
	}
	var row types.EngagementRecord
	err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND issue_id = ?", userID, issueID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *engagementRecordRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.EngagementRecord, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*types.EngagementRecord
	if userID == uuid.Nil {
		return rows, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *engagementRecordRepo) Upsert(dbc dbctx.Context, row *types.EngagementRecord) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.UserID == uuid.Nil || row.IssueID == "" {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.UpdatedAt = time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = row.UpdatedAt
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "issue_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"interaction_count",
				"engagement_score",
				"interaction_type",
				"last_interaction",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *engagementRecordRepo) Update(dbc dbctx.Context, row *types.EngagementRecord) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.ID == uuid.Nil {
		return nil
	}
	row.UpdatedAt = time.Now().UTC()
	return t.WithContext(dbc.Ctx).Save(row).Error
}

func (r *engagementRecordRepo) ListDecayable(dbc dbctx.Context, staleBefore, decayedBefore time.Time) ([]*types.EngagementRecord, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*types.EngagementRecord
	err := t.WithContext(dbc.Ctx).
		Where("last_interaction < ?", staleBefore).
		Where("last_decayed_at IS NULL OR last_decayed_at < ?", decayedBefore).
		Order("last_interaction ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *engagementRecordRepo) DeleteZeroOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Where("engagement_score <= 0 AND last_interaction < ?", cutoff).
		Delete(&types.EngagementRecord{})
	return res.RowsAffected, res.Error
}
