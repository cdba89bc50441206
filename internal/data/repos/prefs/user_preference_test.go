package prefs

import (
	"context"
	"testing"

	"github.com/yungbote/chief-of-staff/internal/data/repos/testutil"
	types "github.com/yungbote/chief-of-staff/internal/domain"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
)

func TestUserPreferenceRepoUpsertBatch(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	repo := NewUserPreferenceRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, db, "prefsrepo@example.com")

	first := []*types.UserPreference{
		{UserID: u.ID, PreferenceType: types.PreferenceTopic, PreferenceKey: "backend", Score: 0.8, Confidence: 0.3, FeedbackCount: 4},
		{UserID: u.ID, PreferenceType: types.PreferenceTeam, PreferenceKey: "Backend Team", Score: 0.7, Confidence: 0.3, FeedbackCount: 4},
	}
	if err := repo.UpsertBatch(dbc, first); err != nil {
		t.Fatalf("UpsertBatch insert: %v", err)
	}

	// Re-analysis replaces rather than blends.
	second := []*types.UserPreference{
		{UserID: u.ID, PreferenceType: types.PreferenceTopic, PreferenceKey: "backend", Score: 0.9, Confidence: 0.5, FeedbackCount: 10},
	}
	if err := repo.UpsertBatch(dbc, second); err != nil {
		t.Fatalf("UpsertBatch update: %v", err)
	}

	rows, err := repo.ListByUser(dbc, u.ID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	topics, err := repo.ListByUserAndType(dbc, u.ID, types.PreferenceTopic)
	if err != nil || len(topics) != 1 {
		t.Fatalf("ListByUserAndType: err=%v len=%d", err, len(topics))
	}
	if topics[0].Score != 0.9 || topics[0].FeedbackCount != 10 {
		t.Fatalf("upsert did not replace values: %+v", topics[0])
	}

	deleted, err := repo.DeleteByUser(dbc, u.ID)
	if err != nil || deleted != 2 {
		t.Fatalf("DeleteByUser: err=%v deleted=%d", err, deleted)
	}
}
