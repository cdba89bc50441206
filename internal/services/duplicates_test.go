package services

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/chief-of-staff/internal/clients/pinecone"
	"github.com/yungbote/chief-of-staff/internal/data/repos/issues"
	"github.com/yungbote/chief-of-staff/internal/data/repos/testutil"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
)

// fakeVectorStore serves canned embeddings from memory.
type fakeVectorStore struct {
	embeddings map[string][]float32
	fetchErr   error
}

func (f *fakeVectorStore) Upsert(ctx context.Context, namespace string, vectors []pinecone.Vector) error {
	for _, v := range vectors {
		if f.embeddings == nil {
			f.embeddings = map[string][]float32{}
		}
		f.embeddings[v.ID] = v.Values
	}
	return nil
}

func (f *fakeVectorStore) FetchEmbeddings(ctx context.Context, namespace string, ids []string) (map[string][]float32, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make(map[string][]float32)
	for _, id := range ids {
		if v, ok := f.embeddings[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (f *fakeVectorStore) QuerySimilar(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]pinecone.Match, error) {
	return nil, nil
}

func (f *fakeVectorStore) Delete(ctx context.Context, namespace string, ids []string) error {
	for _, id := range ids {
		delete(f.embeddings, id)
	}
	return nil
}

func newDuplicateService(t *testing.T, gdb *gorm.DB, vs pinecone.VectorStore) DuplicateService {
	t.Helper()
	log := testutil.Logger(t)
	svc, err := NewDuplicateService(log, issues.NewIssueSnapshotRepo(gdb, log), vs)
	if err != nil {
		t.Fatalf("NewDuplicateService: %v", err)
	}
	return svc
}

func TestFindDuplicatesOAuthPair(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)

	testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{
		IssueID: "ISS-1", Title: "OAuth implementation", State: "In Progress", TeamName: "Backend Team",
	})
	testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{
		IssueID: "ISS-2", Title: "OAuth2 auth flow", State: "Todo", TeamName: "Backend Team",
	})
	testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{
		IssueID: "ISS-3", Title: "Unrelated dashboard work", State: "Todo",
	})

	vs := &fakeVectorStore{embeddings: map[string][]float32{
		"ISS-1": {1, 0.02, 0},
		"ISS-2": {1, 0, 0.02},
		"ISS-3": {0, 1, 0},
	}}
	svc := newDuplicateService(t, gdb, vs)

	pairs, err := svc.FindDuplicates(dbc, 0.70, true)
	if err != nil {
		t.Fatalf("FindDuplicates: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("pairs = %+v, want exactly one", pairs)
	}
	p := pairs[0]
	if p.IssueA != "ISS-1" || p.IssueB != "ISS-2" {
		t.Fatalf("pair = %s/%s, want ISS-1/ISS-2", p.IssueA, p.IssueB)
	}
	if p.Similarity < 0.70 {
		t.Fatalf("similarity = %v, want >= 0.70", p.Similarity)
	}
	// The In Progress issue is the keeper.
	if p.SuggestedAction != "merge ISS-2 into ISS-1" {
		t.Fatalf("suggested action = %q", p.SuggestedAction)
	}
	if p.Team != "Backend Team" {
		t.Fatalf("team = %q", p.Team)
	}
}

func TestFindDuplicatesActiveOnly(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)

	testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{
		IssueID: "ISS-1", Title: "Retry queue stuck", State: "Done",
	})
	testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{
		IssueID: "ISS-2", Title: "Retry queue blocked", State: "Todo",
	})

	vs := &fakeVectorStore{embeddings: map[string][]float32{
		"ISS-1": {1, 0},
		"ISS-2": {1, 0.01},
	}}
	svc := newDuplicateService(t, gdb, vs)

	active, err := svc.FindDuplicates(dbc, 0.70, true)
	if err != nil {
		t.Fatalf("FindDuplicates active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active_only must exclude terminal issues, got %+v", active)
	}

	all, err := svc.FindDuplicates(dbc, 0.70, false)
	if err != nil {
		t.Fatalf("FindDuplicates all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("without active_only the pair must appear, got %+v", all)
	}
}

func TestCheckIssueConsistentWithFind(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)

	titles := map[string]string{
		"ISS-1": "Login page broken",
		"ISS-2": "Login screen failure",
		"ISS-3": "Login form error",
		"ISS-4": "Billing export slow",
	}
	for id, title := range titles {
		testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{IssueID: id, Title: title})
	}
	vs := &fakeVectorStore{embeddings: map[string][]float32{
		"ISS-1": {1, 0, 0},
		"ISS-2": {0.99, 0.1, 0},
		"ISS-3": {0.98, 0, 0.1},
		"ISS-4": {0, 0, 1},
	}}
	svc := newDuplicateService(t, gdb, vs)

	all, err := svc.FindDuplicates(dbc, 0.70, false)
	if err != nil {
		t.Fatalf("FindDuplicates: %v", err)
	}
	var expected []DuplicatePair
	for _, p := range all {
		if p.IssueA == "ISS-2" || p.IssueB == "ISS-2" {
			expected = append(expected, p)
		}
	}

	got, err := svc.CheckIssueForDuplicates(dbc, "ISS-2", 0.70)
	if err != nil {
		t.Fatalf("CheckIssueForDuplicates: %v", err)
	}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("check output %+v != filtered find output %+v", got, expected)
	}
}

func TestFindDuplicatesSkipsMissingEmbeddings(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)

	testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{IssueID: "ISS-1", Title: "Crash on save"})
	testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{IssueID: "ISS-2", Title: "Crash while saving"})
	testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{IssueID: "ISS-3", Title: "Crash during save"})

	// ISS-3 has no embedding and is skipped, not fatal.
	vs := &fakeVectorStore{embeddings: map[string][]float32{
		"ISS-1": {1, 0},
		"ISS-2": {1, 0.01},
	}}
	svc := newDuplicateService(t, gdb, vs)

	pairs, err := svc.FindDuplicates(dbc, 0.70, false)
	if err != nil {
		t.Fatalf("FindDuplicates: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("pairs = %+v, want one", pairs)
	}
}

func TestFindDuplicatesVectorStoreFailure(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)

	testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{IssueID: "ISS-1"})
	testutil.SeedSnapshot(t, ctx, gdb, testutil.SnapshotOpts{IssueID: "ISS-2"})

	vs := &fakeVectorStore{fetchErr: fmt.Errorf("index unreachable")}
	svc := newDuplicateService(t, gdb, vs)

	if _, err := svc.FindDuplicates(dbc, 0.70, false); err == nil {
		t.Fatalf("vector store failure must surface to the caller")
	}
}

func TestSuggestMergeAction(t *testing.T) {
	cases := []struct {
		name           string
		stateA, stateB string
		want           string
	}{
		{"a more advanced", "In Progress", "Todo", "merge B into A"},
		{"b more advanced", "Backlog", "In Review", "merge A into B"},
		{"tie", "Todo", "Todo", "check"},
		{"unknown state", "Triage", "Todo", "check"},
		{"both unknown", "Weird", "Stranger", "check"},
		{"done outranked by active", "Done", "Todo", "merge A into B"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SuggestMergeAction(tc.stateA, tc.stateB, "A", "B")
			if got != tc.want {
				t.Fatalf("SuggestMergeAction(%q, %q) = %q, want %q", tc.stateA, tc.stateB, got, tc.want)
			}
		})
	}
}

func TestFormatDuplicateReport(t *testing.T) {
	svc := newDuplicateService(t, testutil.DB(t), &fakeVectorStore{})

	if got := svc.FormatDuplicateReport(nil); !strings.Contains(got, "No duplicate issues") {
		t.Fatalf("empty report = %q", got)
	}

	report := svc.FormatDuplicateReport([]DuplicatePair{{
		IssueA:          "ISS-1",
		IssueB:          "ISS-2",
		TitleA:          "OAuth implementation",
		TitleB:          "OAuth2 auth flow",
		Similarity:      0.873,
		Team:            "Backend Team",
		SuggestedAction: "merge ISS-2 into ISS-1",
	}})
	for _, want := range []string{"87.3%", "ISS-1", "ISS-2", "merge ISS-2 into ISS-1", "Backend Team"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}
}
