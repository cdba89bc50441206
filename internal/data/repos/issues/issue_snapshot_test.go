package issues

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/chief-of-staff/internal/data/repos/testutil"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
)

func TestIssueSnapshotRepoLatest(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	repo := NewIssueSnapshotRepo(db, testutil.Logger(t))

	now := time.Now().UTC()

	// Two snapshots of the same issue; only the later one is "current".
	testutil.SeedSnapshot(t, ctx, db, testutil.SnapshotOpts{
		IssueID: "ISS-1", Title: "old title", State: "Todo", SnapshotAt: now.Add(-2 * time.Hour),
	})
	testutil.SeedSnapshot(t, ctx, db, testutil.SnapshotOpts{
		IssueID: "ISS-1", Title: "new title", State: "In Progress", SnapshotAt: now.Add(-1 * time.Hour),
	})
	testutil.SeedSnapshot(t, ctx, db, testutil.SnapshotOpts{
		IssueID: "ISS-2", Title: "done issue", State: "Done", SnapshotAt: now.Add(-1 * time.Hour),
	})

	latest, err := repo.LatestByIssueID(dbc, "ISS-1")
	if err != nil {
		t.Fatalf("LatestByIssueID: %v", err)
	}
	if latest == nil || latest.Title != "new title" {
		t.Fatalf("expected latest snapshot, got %+v", latest)
	}

	missing, err := repo.LatestByIssueID(dbc, "ISS-404")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown issue, got %+v err=%v", missing, err)
	}

	byIDs, err := repo.LatestByIssueIDs(dbc, []string{"ISS-1", "ISS-2", "ISS-404"})
	if err != nil {
		t.Fatalf("LatestByIssueIDs: %v", err)
	}
	if len(byIDs) != 2 {
		t.Fatalf("expected 2 resolved issues, got %d", len(byIDs))
	}
	if byIDs["ISS-1"].State != "In Progress" {
		t.Fatalf("expected latest state In Progress, got %q", byIDs["ISS-1"].State)
	}

	all, err := repo.LatestAll(dbc, false)
	if err != nil || len(all) != 2 {
		t.Fatalf("LatestAll(false): err=%v len=%d", err, len(all))
	}

	active, err := repo.LatestAll(dbc, true)
	if err != nil {
		t.Fatalf("LatestAll(true): %v", err)
	}
	if len(active) != 1 || active[0].IssueID != "ISS-1" {
		t.Fatalf("expected only ISS-1 active, got %+v", active)
	}
}
