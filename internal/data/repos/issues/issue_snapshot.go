package issues

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/chief-of-staff/internal/domain"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
)

type IssueSnapshotRepo interface {
	Create(dbc dbctx.Context, rows []*types.IssueSnapshot) error
	// LatestByIssueID returns the most recent snapshot for one issue, or nil
	// when the issue has never been snapshotted.
	LatestByIssueID(dbc dbctx.Context, issueID string) (*types.IssueSnapshot, error)
	LatestByIssueIDs(dbc dbctx.Context, issueIDs []string) (map[string]*types.IssueSnapshot, error)
	// LatestAll returns the latest snapshot of every known issue. With
	// activeOnly, issues whose latest state is terminal are excluded.
	LatestAll(dbc dbctx.Context, activeOnly bool) ([]*types.IssueSnapshot, error)
}

type issueSnapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIssueSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) IssueSnapshotRepo {
	return &issueSnapshotRepo{db: db, log: baseLog.With("repo", "IssueSnapshotRepo")}
}

func (r *issueSnapshotRepo) Create(dbc dbctx.Context, rows []*types.IssueSnapshot) error {
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
		if row.SnapshotAt.IsZero() {
			row.SnapshotAt = now
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
	}
	return t.WithContext(dbc.Ctx).Create(&rows).Error
}

// latestJoin restricts issue_snapshots to the newest row per issue_id.
func latestJoin(t *gorm.DB) *gorm.DB {
	sub := t.Model(&types.IssueSnapshot{}).
		Select("issue_id AS lid, MAX(snapshot_at) AS max_at").
		Group("issue_id")
	return t.Model(&types.IssueSnapshot{}).
		Joins("JOIN (?) latest ON latest.lid = issue_snapshots.issue_id AND latest.max_at = issue_snapshots.snapshot_at", sub)
}

func (r *issueSnapshotRepo) LatestByIssueID(dbc dbctx.Context, issueID string) (*types.IssueSnapshot, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if issueID == "" {
		return nil, nil
	}
	var row types.IssueSnapshot
	err := t.WithContext(dbc.Ctx).
		Where("issue_id = ?", issueID).
		Order("snapshot_at DESC").
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

func (r *issueSnapshotRepo) LatestByIssueIDs(dbc dbctx.Context, issueIDs []string) (map[string]*types.IssueSnapshot, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := make(map[string]*types.IssueSnapshot, len(issueIDs))
	if len(issueIDs) == 0 {
		return out, nil
	}
	var rows []*types.IssueSnapshot
	err := latestJoin(t.WithContext(dbc.Ctx)).
		Where("issue_snapshots.issue_id IN ?", issueIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.IssueID] = row
	}
	return out, nil
}

func (r *issueSnapshotRepo) LatestAll(dbc dbctx.Context, activeOnly bool) ([]*types.IssueSnapshot, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*types.IssueSnapshot
	q := latestJoin(t.WithContext(dbc.Ctx))
	if err := q.Order("issue_snapshots.issue_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	if !activeOnly {
		return rows, nil
	}
	// Terminal-state filtering happens on the normalized state, which only
	// exists in Go, so filter after the fetch.
	active := make([]*types.IssueSnapshot, 0, len(rows))
	for _, row := range rows {
		if !types.IsTerminalState(row.State) {
			active = append(active, row)
		}
	}
	return active, nil
}
