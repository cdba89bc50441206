package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/chief-of-staff/internal/data/repos/feedback"
	"github.com/yungbote/chief-of-staff/internal/data/repos/testutil"
	types "github.com/yungbote/chief-of-staff/internal/domain"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/chief-of-staff/internal/pkg/errors"
)

func TestRecordFeedback(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, gdb, "feedback@example.com")
	dbc := dbctx.New(ctx)
	log := testutil.Logger(t)

	repo := feedback.NewFeedbackEventRepo(gdb, log)
	svc, err := NewFeedbackService(log, repo)
	if err != nil {
		t.Fatalf("NewFeedbackService: %v", err)
	}

	event, err := svc.RecordFeedback(dbc, user.ID, types.FeedbackPositive, types.FeedbackMetadata{IssueID: "ISS-1"}, nil)
	if err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}
	meta, err := event.DecodeMetadata()
	if err != nil || meta.IssueID != "ISS-1" {
		t.Fatalf("decoded metadata = %+v, err %v", meta, err)
	}

	stored, err := repo.ListByUserSince(dbc, user.ID, time.Now().UTC().Add(-time.Minute), nil)
	if err != nil {
		t.Fatalf("ListByUserSince: %v", err)
	}
	if len(stored) != 1 || stored[0].FeedbackType != types.FeedbackPositive {
		t.Fatalf("stored events = %+v", stored)
	}
}

func TestRecordFeedbackValidation(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, gdb, "invalid@example.com")
	dbc := dbctx.New(ctx)
	log := testutil.Logger(t)

	svc, err := NewFeedbackService(log, feedback.NewFeedbackEventRepo(gdb, log))
	if err != nil {
		t.Fatalf("NewFeedbackService: %v", err)
	}

	cases := []struct {
		name         string
		feedbackType string
		meta         types.FeedbackMetadata
	}{
		{"unknown type", "shrug", types.FeedbackMetadata{IssueID: "ISS-1"}},
		{"missing issue", types.FeedbackPositive, types.FeedbackMetadata{}},
		{"issue_action without action", types.FeedbackIssueAction, types.FeedbackMetadata{IssueID: "ISS-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordFeedback(dbc, user.ID, tc.feedbackType, tc.meta, nil)
			if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
				t.Fatalf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}
