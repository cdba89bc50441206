package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/yungbote/chief-of-staff/internal/clients/pinecone"
	"github.com/yungbote/chief-of-staff/internal/data/repos/issues"
	types "github.com/yungbote/chief-of-staff/internal/domain"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
)

const issuesNamespace = "issues"

// DuplicatePair is one unordered near-duplicate pair. IssueA < IssueB
// lexicographically so each pair is emitted exactly once.
type DuplicatePair struct {
	IssueA          string  `json:"issue_a"`
	IssueB          string  `json:"issue_b"`
	TitleA          string  `json:"title_a"`
	TitleB          string  `json:"title_b"`
	Similarity      float64 `json:"similarity"`
	Team            string  `json:"team"`
	SuggestedAction string  `json:"suggested_action"`
}

type DuplicateService interface {
	// FindDuplicates reports issue pairs whose embeddings score at or above
	// minSimilarity. With activeOnly, issues in a terminal state are excluded.
	FindDuplicates(dbc dbctx.Context, minSimilarity float64, activeOnly bool) ([]DuplicatePair, error)
	// CheckIssueForDuplicates restricts the same computation to pairs
	// involving issueID.
	CheckIssueForDuplicates(dbc dbctx.Context, issueID string, minSimilarity float64) ([]DuplicatePair, error)
	FormatDuplicateReport(pairs []DuplicatePair) string
}

type duplicateService struct {
	log          *logger.Logger
	snapshotRepo issues.IssueSnapshotRepo
	vs           pinecone.VectorStore
}

func NewDuplicateService(log *logger.Logger, snapshotRepo issues.IssueSnapshotRepo, vs pinecone.VectorStore) (DuplicateService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if snapshotRepo == nil || vs == nil {
		return nil, fmt.Errorf("snapshot repo and vector store required")
	}
	return &duplicateService{
		log:          log.With("service", "DuplicateService"),
		snapshotRepo: snapshotRepo,
		vs:           vs,
	}, nil
}

func (s *duplicateService) FindDuplicates(dbc dbctx.Context, minSimilarity float64, activeOnly bool) ([]DuplicatePair, error) {
	snapshots, err := s.snapshotRepo.LatestAll(dbc, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	return s.computePairs(dbc, snapshots, minSimilarity)
}

func (s *duplicateService) CheckIssueForDuplicates(dbc dbctx.Context, issueID string, minSimilarity float64) ([]DuplicatePair, error) {
	if strings.TrimSpace(issueID) == "" {
		return nil, fmt.Errorf("issueID required")
	}
	snapshots, err := s.snapshotRepo.LatestAll(dbc, false)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	// Same pairwise computation as FindDuplicates, filtered to one issue, so
	// the two calls can never disagree for the same threshold.
	all, err := s.computePairs(dbc, snapshots, minSimilarity)
	if err != nil {
		return nil, err
	}
	var out []DuplicatePair
	for _, p := range all {
		if p.IssueA == issueID || p.IssueB == issueID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *duplicateService) computePairs(dbc dbctx.Context, snapshots []*types.IssueSnapshot, minSimilarity float64) ([]DuplicatePair, error) {
	if len(snapshots) < 2 {
		return nil, nil
	}
	if minSimilarity <= 0 {
		minSimilarity = 0.7
	}

	byID := make(map[string]*types.IssueSnapshot, len(snapshots))
	ids := make([]string, 0, len(snapshots))
	for _, snap := range snapshots {
		byID[snap.IssueID] = snap
		ids = append(ids, snap.IssueID)
	}
	sort.Strings(ids)

	// Vector-index unavailability is a hard failure; issues without an
	// embedding are simply skipped.
	embeddings, err := s.vs.FetchEmbeddings(dbc.Ctx, issuesNamespace, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch embeddings: %w", err)
	}
	if missing := len(ids) - len(embeddings); missing > 0 {
		s.log.Debug("Issues without embeddings skipped", "missing", missing, "total", len(ids))
	}

	var pairs []DuplicatePair
	for i := 0; i < len(ids); i++ {
		va, okA := embeddings[ids[i]]
		if !okA {
			continue
		}
		for j := i + 1; j < len(ids); j++ {
			vb, okB := embeddings[ids[j]]
			if !okB {
				continue
			}
			sim := cosineSimilarity(va, vb)
			if sim < minSimilarity {
				continue
			}
			a, b := byID[ids[i]], byID[ids[j]]
			pairs = append(pairs, DuplicatePair{
				IssueA:          a.IssueID,
				IssueB:          b.IssueID,
				TitleA:          a.Title,
				TitleB:          b.Title,
				Similarity:      sim,
				Team:            pairTeam(a.TeamName, b.TeamName),
				SuggestedAction: SuggestMergeAction(a.State, b.State, a.IssueID, b.IssueID),
			})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Similarity != pairs[j].Similarity {
			return pairs[i].Similarity > pairs[j].Similarity
		}
		return pairs[i].IssueA < pairs[j].IssueA
	})
	return pairs, nil
}

// workflowRank orders states from least to most advanced. Unknown states rank
// lowest and always resolve to manual review.
var workflowRank = map[string]int{
	types.StateCanceled:   1,
	types.StateDone:       2,
	types.StateBacklog:    3,
	types.StateTodo:       4,
	types.StateInReview:   5,
	types.StateInProgress: 6,
}

// SuggestMergeAction decides what to do with a duplicate pair from the two
// workflow states alone. The more advanced issue is the keeper; ties and
// unknown states suggest manual review.
func SuggestMergeAction(stateA, stateB, idA, idB string) string {
	rankA := workflowRank[types.NormalizeState(stateA)]
	rankB := workflowRank[types.NormalizeState(stateB)]
	switch {
	case rankA == 0 || rankB == 0 || rankA == rankB:
		return "check"
	case rankA > rankB:
		return fmt.Sprintf("merge %s into %s", idB, idA)
	default:
		return fmt.Sprintf("merge %s into %s", idA, idB)
	}
}

func (s *duplicateService) FormatDuplicateReport(pairs []DuplicatePair) string {
	if len(pairs) == 0 {
		return "No duplicate issues found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d potential duplicate pair(s):\n", len(pairs))
	for i, p := range pairs {
		fmt.Fprintf(&b, "\n%d. %s <-> %s (%.1f%% similar)\n", i+1, p.IssueA, p.IssueB, p.Similarity*100)
		fmt.Fprintf(&b, "   %q vs %q\n", p.TitleA, p.TitleB)
		if p.Team != "" {
			fmt.Fprintf(&b, "   Team: %s\n", p.Team)
		}
		fmt.Fprintf(&b, "   Suggestion: %s\n", p.SuggestedAction)
	}
	return b.String()
}

func pairTeam(a, b string) string {
	switch {
	case a == b:
		return a
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " / " + b
	}
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
