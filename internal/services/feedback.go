package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/chief-of-staff/internal/data/repos/feedback"
	types "github.com/yungbote/chief-of-staff/internal/domain"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/chief-of-staff/internal/pkg/errors"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
)

// FeedbackService is the write path from the chat bot into the feature store.
type FeedbackService interface {
	RecordFeedback(dbc dbctx.Context, userID uuid.UUID, feedbackType string, meta types.FeedbackMetadata, briefingID *uuid.UUID) (*types.FeedbackEvent, error)
}

type feedbackService struct {
	log  *logger.Logger
	repo feedback.FeedbackEventRepo
}

func NewFeedbackService(log *logger.Logger, repo feedback.FeedbackEventRepo) (FeedbackService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if repo == nil {
		return nil, fmt.Errorf("feedback repo required")
	}
	return &feedbackService{
		log:  log.With("service", "FeedbackService"),
		repo: repo,
	}, nil
}

func (s *feedbackService) RecordFeedback(dbc dbctx.Context, userID uuid.UUID, feedbackType string, meta types.FeedbackMetadata, briefingID *uuid.UUID) (*types.FeedbackEvent, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrInvalidArgument
	}
	if !types.ValidFeedbackType(feedbackType) {
		return nil, fmt.Errorf("%w: unknown feedback type %q", pkgerrors.ErrInvalidArgument, feedbackType)
	}
	if meta.IssueID == "" {
		return nil, fmt.Errorf("%w: feedback requires an issue_id", pkgerrors.ErrInvalidArgument)
	}
	if feedbackType == types.FeedbackIssueAction && meta.Action == "" {
		return nil, fmt.Errorf("%w: issue_action feedback requires an action", pkgerrors.ErrInvalidArgument)
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	event := &types.FeedbackEvent{
		UserID:       userID,
		BriefingID:   briefingID,
		FeedbackType: feedbackType,
		Metadata:     datatypes.JSON(raw),
	}
	if err := s.repo.Create(dbc, event); err != nil {
		return nil, fmt.Errorf("record feedback: %w", err)
	}
	s.log.Debug("Feedback recorded",
		"user_id", userID,
		"feedback_type", feedbackType,
		"issue_id", meta.IssueID,
	)
	return event, nil
}
