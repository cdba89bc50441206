package services

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/chief-of-staff/internal/clients/linear"
	"github.com/yungbote/chief-of-staff/internal/clients/openai"
	"github.com/yungbote/chief-of-staff/internal/clients/pinecone"
	"github.com/yungbote/chief-of-staff/internal/data/repos/issues"
	types "github.com/yungbote/chief-of-staff/internal/domain"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
)

const (
	embedBatchSize   = 64
	upsertConcurrent = 4
)

// IngestionService pulls fresh tracker state into the feature store and keeps
// the vector index in sync with it.
type IngestionService interface {
	// SyncIssues snapshots the user's relevant tracker issues and upserts
	// their embeddings. Returns the number of issues snapshotted.
	SyncIssues(dbc dbctx.Context, user *types.User) (int, error)
}

type ingestionService struct {
	log          *logger.Logger
	tracker      linear.Client
	ai           openai.Client
	vs           pinecone.VectorStore
	snapshotRepo issues.IssueSnapshotRepo
}

func NewIngestionService(
	log *logger.Logger,
	tracker linear.Client,
	ai openai.Client,
	vs pinecone.VectorStore,
	snapshotRepo issues.IssueSnapshotRepo,
) (IngestionService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if tracker == nil || snapshotRepo == nil {
		return nil, fmt.Errorf("tracker client and snapshot repo required")
	}
	return &ingestionService{
		log:          log.With("service", "IngestionService"),
		tracker:      tracker,
		ai:           ai,
		vs:           vs,
		snapshotRepo: snapshotRepo,
	}, nil
}

func (s *ingestionService) SyncIssues(dbc dbctx.Context, user *types.User) (int, error) {
	if user == nil {
		return 0, fmt.Errorf("user required")
	}

	tracked, err := s.tracker.FetchRelevantIssues(dbc.Ctx, user.Email)
	if err != nil {
		return 0, fmt.Errorf("fetch tracker issues: %w", err)
	}
	if len(tracked) == 0 {
		s.log.Info("No relevant tracker issues", "user_id", user.ID)
		return 0, nil
	}

	snapshots := make([]*types.IssueSnapshot, 0, len(tracked))
	for _, issue := range tracked {
		snap := &types.IssueSnapshot{
			IssueID:      issue.Identifier,
			ExternalID:   issue.ID,
			Title:        issue.Title,
			Description:  issue.Description,
			State:        issue.State,
			Priority:     issue.Priority,
			AssigneeID:   issue.AssigneeID,
			AssigneeName: issue.Assignee,
			TeamID:       issue.TeamID,
			TeamName:     issue.TeamName,
		}
		if err := snap.SetLabels(issue.Labels); err != nil {
			s.log.Warn("Label encoding failed, issue skipped", "issue_id", issue.Identifier, "error", err.Error())
			continue
		}
		snapshots = append(snapshots, snap)
	}

	if err := s.snapshotRepo.Create(dbc, snapshots); err != nil {
		return 0, fmt.Errorf("persist snapshots: %w", err)
	}
	s.log.Info("Issue snapshots stored", "user_id", user.ID, "count", len(snapshots))

	if s.ai == nil || s.vs == nil {
		return len(snapshots), nil
	}
	if err := s.syncEmbeddings(dbc, snapshots); err != nil {
		return len(snapshots), fmt.Errorf("sync embeddings: %w", err)
	}
	return len(snapshots), nil
}

// syncEmbeddings embeds title+description per issue and upserts vectors keyed
// by issue_id, in concurrent bounded batches.
func (s *ingestionService) syncEmbeddings(dbc dbctx.Context, snapshots []*types.IssueSnapshot) error {
	texts := make([]string, 0, len(snapshots))
	for _, snap := range snapshots {
		texts = append(texts, strings.TrimSpace(snap.Title+"\n"+snap.Description))
	}
	embeddings, err := s.ai.Embed(dbc.Ctx, texts)
	if err != nil {
		return err
	}
	if len(embeddings) != len(snapshots) {
		return fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(snapshots), len(embeddings))
	}

	vectors := make([]pinecone.Vector, 0, len(snapshots))
	for i, snap := range snapshots {
		if len(embeddings[i]) == 0 {
			continue
		}
		vectors = append(vectors, pinecone.Vector{
			ID:     snap.IssueID,
			Values: embeddings[i],
			Metadata: map[string]any{
				"title": snap.Title,
				"state": snap.State,
				"team":  snap.TeamName,
			},
		})
	}

	g, ctx := errgroup.WithContext(dbc.Ctx)
	g.SetLimit(upsertConcurrent)
	for start := 0; start < len(vectors); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(vectors) {
			end = len(vectors)
		}
		batch := vectors[start:end]
		g.Go(func() error {
			return s.vs.Upsert(ctx, issuesNamespace, batch)
		})
	}
	return g.Wait()
}
