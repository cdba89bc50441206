package prefs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/chief-of-staff/internal/domain"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
)

type UserPreferenceRepo interface {
	// UpsertBatch replaces score/confidence/feedback_count for each
	// (user_id, preference_type, preference_key) row; each analysis pass
	// recomputes from the full window, so last-analysis-wins.
	UpsertBatch(dbc dbctx.Context, rows []*types.UserPreference) error
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserPreference, error)
	ListByUserAndType(dbc dbctx.Context, userID uuid.UUID, preferenceType string) ([]*types.UserPreference, error)
	DeleteByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error)
}

type userPreferenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserPreferenceRepo(db *gorm.DB, baseLog *logger.Logger) UserPreferenceRepo {
	return &userPreferenceRepo{db: db, log: baseLog.With("repo", "UserPreferenceRepo")}
}

func (r *userPreferenceRepo) UpsertBatch(dbc dbctx.Context, rows []*types.UserPreference) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.LastUpdated.IsZero() {
			row.LastUpdated = now
		}
		row.UpdatedAt = now
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "preference_type"},
				{Name: "preference_key"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"score",
				"confidence",
				"feedback_count",
				"last_updated",
				"updated_at",
			}),
		}).
		Create(&rows).Error
}

func (r *userPreferenceRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserPreference, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*types.UserPreference
	if userID == uuid.Nil {
		return rows, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("preference_type ASC, preference_key ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *userPreferenceRepo) ListByUserAndType(dbc dbctx.Context, userID uuid.UUID, preferenceType string) ([]*types.UserPreference, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*types.UserPreference
	if userID == uuid.Nil || preferenceType == "" {
		return rows, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND preference_type = ?", userID, preferenceType).
		Order("preference_key ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *userPreferenceRepo) DeleteByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil {
		return 0, nil
	}
	res := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Delete(&types.UserPreference{})
	return res.RowsAffected, res.Error
}
