package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/chief-of-staff/internal/data/repos/engagement"
	"github.com/yungbote/chief-of-staff/internal/data/repos/testutil"
	types "github.com/yungbote/chief-of-staff/internal/domain"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
)

func newEngagementService(t *testing.T, gdb *gorm.DB) (EngagementService, engagement.EngagementRecordRepo) {
	t.Helper()
	log := testutil.Logger(t)
	repo := engagement.NewEngagementRecordRepo(gdb, log)
	svc, err := NewEngagementService(log, DefaultEngagementConfig(), repo)
	if err != nil {
		t.Fatalf("NewEngagementService: %v", err)
	}
	return svc, repo
}

func TestRecordInteraction(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, gdb, "engage@example.com")
	dbc := dbctx.New(ctx)

	svc, repo := newEngagementService(t, gdb)

	first, err := svc.RecordInteraction(dbc, user.ID, "ISS-1", "viewed")
	if err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}
	if first.InteractionCount != 1 {
		t.Fatalf("count = %d, want 1", first.InteractionCount)
	}
	if first.EngagementScore <= 0 || first.EngagementScore > 1 {
		t.Fatalf("score = %v, want in (0,1]", first.EngagementScore)
	}

	second, err := svc.RecordInteraction(dbc, user.ID, "ISS-1", "clicked")
	if err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}
	if second.InteractionCount != 2 {
		t.Fatalf("count = %d, want 2", second.InteractionCount)
	}
	if second.EngagementScore <= first.EngagementScore {
		t.Fatalf("score should grow with fresh interactions: %v -> %v", first.EngagementScore, second.EngagementScore)
	}

	stored, err := repo.Get(dbc, user.ID, "ISS-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored == nil || stored.InteractionCount != 2 || stored.InteractionType != "clicked" {
		t.Fatalf("stored record = %+v", stored)
	}
	if !stored.FirstInteraction.Equal(first.FirstInteraction) {
		t.Fatalf("first_interaction must not move: %v vs %v", stored.FirstInteraction, first.FirstInteraction)
	}
}

func TestRecordInteractionSerialized(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, gdb, "race@example.com")
	dbc := dbctx.New(ctx)

	svc, repo := newEngagementService(t, gdb)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RecordInteraction(dbc, user.ID, "ISS-1", "clicked"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent RecordInteraction: %v", err)
	}

	row, err := repo.Get(dbc, user.ID, "ISS-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if row == nil || row.InteractionCount != n {
		t.Fatalf("count = %v, want %d (lost update)", row, n)
	}
}

func TestDecayOldEngagements(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, gdb, "decay@example.com")
	dbc := dbctx.New(ctx)

	svc, repo := newEngagementService(t, gdb)
	now := time.Now().UTC()

	stale := &types.EngagementRecord{
		UserID:           user.ID,
		IssueID:          "ISS-OLD",
		InteractionCount: 5,
		EngagementScore:  0.8,
		FirstInteraction: now.AddDate(0, 0, -60),
		LastInteraction:  now.AddDate(0, 0, -40),
	}
	fresh := &types.EngagementRecord{
		UserID:           user.ID,
		IssueID:          "ISS-FRESH",
		InteractionCount: 2,
		EngagementScore:  0.9,
		FirstInteraction: now,
		LastInteraction:  now,
	}
	for _, row := range []*types.EngagementRecord{stale, fresh} {
		if err := repo.Upsert(dbc, row); err != nil {
			t.Fatalf("seed engagement: %v", err)
		}
	}

	touched, err := svc.DecayOldEngagements(dbc, 30)
	if err != nil {
		t.Fatalf("DecayOldEngagements: %v", err)
	}
	if touched != 1 {
		t.Fatalf("touched = %d, want 1", touched)
	}

	decayed, err := repo.Get(dbc, user.ID, "ISS-OLD")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got, want := decayed.EngagementScore, 0.8*0.9; got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("decayed score = %v, want %v", got, want)
	}
	if decayed.LastDecayedAt == nil {
		t.Fatalf("last_decayed_at must be set after decay")
	}

	untouched, err := repo.Get(dbc, user.ID, "ISS-FRESH")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if untouched.EngagementScore != 0.9 {
		t.Fatalf("fresh record must not decay, score = %v", untouched.EngagementScore)
	}

	// Second run inside the decay window must not double-decay.
	touched, err = svc.DecayOldEngagements(dbc, 30)
	if err != nil {
		t.Fatalf("second DecayOldEngagements: %v", err)
	}
	if touched != 0 {
		t.Fatalf("second run touched = %d, want 0", touched)
	}
	again, err := repo.Get(dbc, user.ID, "ISS-OLD")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.EngagementScore != decayed.EngagementScore {
		t.Fatalf("score decayed twice: %v vs %v", again.EngagementScore, decayed.EngagementScore)
	}
}

func TestDecayFloorsTinyScoresToZero(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, gdb, "floor@example.com")
	dbc := dbctx.New(ctx)

	svc, repo := newEngagementService(t, gdb)
	now := time.Now().UTC()

	row := &types.EngagementRecord{
		UserID:           user.ID,
		IssueID:          "ISS-TINY",
		InteractionCount: 1,
		EngagementScore:  0.005,
		FirstInteraction: now.AddDate(0, 0, -90),
		LastInteraction:  now.AddDate(0, 0, -90),
	}
	if err := repo.Upsert(dbc, row); err != nil {
		t.Fatalf("seed engagement: %v", err)
	}

	if _, err := svc.DecayOldEngagements(dbc, 30); err != nil {
		t.Fatalf("DecayOldEngagements: %v", err)
	}
	got, err := repo.Get(dbc, user.ID, "ISS-TINY")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.EngagementScore != 0 {
		t.Fatalf("tiny score should floor to 0, got %v", got.EngagementScore)
	}
}

func TestCleanupZeroEngagements(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, gdb, "cleanup@example.com")
	dbc := dbctx.New(ctx)

	svc, repo := newEngagementService(t, gdb)
	now := time.Now().UTC()

	deletable := &types.EngagementRecord{
		UserID:           user.ID,
		IssueID:          "ISS-DEAD",
		InteractionCount: 1,
		EngagementScore:  0,
		FirstInteraction: now.AddDate(0, 0, -200),
		LastInteraction:  now.AddDate(0, 0, -100),
	}
	recentZero := &types.EngagementRecord{
		UserID:           user.ID,
		IssueID:          "ISS-RECENT",
		InteractionCount: 1,
		EngagementScore:  0,
		FirstInteraction: now,
		LastInteraction:  now,
	}
	for _, row := range []*types.EngagementRecord{deletable, recentZero} {
		if err := repo.Upsert(dbc, row); err != nil {
			t.Fatalf("seed engagement: %v", err)
		}
	}

	n, err := svc.CleanupZeroEngagements(dbc, 90)
	if err != nil {
		t.Fatalf("CleanupZeroEngagements: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted = %d, want 1", n)
	}
	if row, _ := repo.Get(dbc, user.ID, "ISS-DEAD"); row != nil {
		t.Fatalf("stale zero record should be gone")
	}
	if row, _ := repo.Get(dbc, user.ID, "ISS-RECENT"); row == nil {
		t.Fatalf("recent zero record must survive")
	}
}

func TestEngagementScoreStaysInRange(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, gdb, "range@example.com")
	dbc := dbctx.New(ctx)

	svc, repo := newEngagementService(t, gdb)

	for i := 0; i < 50; i++ {
		row, err := svc.RecordInteraction(dbc, user.ID, "ISS-1", "clicked")
		if err != nil {
			t.Fatalf("RecordInteraction: %v", err)
		}
		if row.EngagementScore < 0 || row.EngagementScore > 1 {
			t.Fatalf("score out of range after %d interactions: %v", i+1, row.EngagementScore)
		}
	}

	// Age the record, then decay repeatedly across windows.
	row, err := repo.Get(dbc, user.ID, "ISS-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	row.LastInteraction = time.Now().UTC().AddDate(0, 0, -60)
	if err := repo.Update(dbc, row); err != nil {
		t.Fatalf("Update: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.DecayOldEngagements(dbc, 30); err != nil {
			t.Fatalf("DecayOldEngagements: %v", err)
		}
		got, err := repo.Get(dbc, user.ID, "ISS-1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.EngagementScore < 0 || got.EngagementScore > 1 {
			t.Fatalf("score out of range after decay: %v", got.EngagementScore)
		}
		// Step past the decay window so the next pass is eligible again.
		past := time.Now().UTC().Add(-25 * time.Hour)
		got.LastDecayedAt = &past
		if err := repo.Update(dbc, got); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
}
