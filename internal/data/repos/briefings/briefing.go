package briefings

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/chief-of-staff/internal/domain"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
)

type BriefingRepo interface {
	Create(dbc dbctx.Context, row *types.Briefing) error
	LatestByUser(dbc dbctx.Context, userID uuid.UUID) (*types.Briefing, error)
}

type briefingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBriefingRepo(db *gorm.DB, baseLog *logger.Logger) BriefingRepo {
	return &briefingRepo{db: db, log: baseLog.With("repo", "BriefingRepo")}
}

func (r *briefingRepo) Create(dbc dbctx.Context, row *types.Briefing) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.UserID == uuid.Nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	now := time.Now().UTC()
	if row.DeliveredAt.IsZero() {
		row.DeliveredAt = now
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *briefingRepo) LatestByUser(dbc dbctx.Context, userID uuid.UUID) (*types.Briefing, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.Briefing
	err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("delivered_at DESC").
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
