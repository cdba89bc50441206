package app

import (
	"fmt"

	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
	"github.com/yungbote/chief-of-staff/internal/services"
)

type Services struct {
	Memory     services.MemoryStore
	Preference services.PreferenceService
	Engagement services.EngagementService
	Duplicate  services.DuplicateService
	Feedback   services.FeedbackService
	Ingestion  services.IngestionService
	Briefing   services.BriefingService
}

func wireServices(log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	vocab := services.DefaultTopicVocabulary()
	if cfg.TopicVocabularyPath != "" {
		loaded, err := services.LoadTopicVocabulary(cfg.TopicVocabularyPath)
		if err != nil {
			return Services{}, fmt.Errorf("load topic vocabulary: %w", err)
		}
		vocab = loaded
	}
	detector := services.NewTopicDetector(vocab)

	memory, err := services.NewMemoryStore(log, clients.OpenAI, clients.VectorStore)
	if err != nil {
		return Services{}, fmt.Errorf("init memory store: %w", err)
	}

	preference, err := services.NewPreferenceService(
		log, cfg.Preference, detector,
		repos.FeedbackEvent, repos.IssueSnapshot, repos.UserPreference, repos.Engagement,
		memory,
	)
	if err != nil {
		return Services{}, fmt.Errorf("init preference service: %w", err)
	}

	engagementSvc, err := services.NewEngagementService(log, cfg.Engagement, repos.Engagement)
	if err != nil {
		return Services{}, fmt.Errorf("init engagement service: %w", err)
	}

	duplicate, err := services.NewDuplicateService(log, repos.IssueSnapshot, clients.VectorStore)
	if err != nil {
		return Services{}, fmt.Errorf("init duplicate service: %w", err)
	}

	feedbackSvc, err := services.NewFeedbackService(log, repos.FeedbackEvent)
	if err != nil {
		return Services{}, fmt.Errorf("init feedback service: %w", err)
	}

	ingestion, err := services.NewIngestionService(
		log, clients.Linear, clients.OpenAI, clients.VectorStore, repos.IssueSnapshot)
	if err != nil {
		return Services{}, fmt.Errorf("init ingestion service: %w", err)
	}

	briefing, err := services.NewBriefingService(
		log, detector,
		repos.IssueSnapshot, repos.Briefing, repos.Engagement,
		preference, clients.OpenAI, clients.Telegram,
	)
	if err != nil {
		return Services{}, fmt.Errorf("init briefing service: %w", err)
	}

	return Services{
		Memory:     memory,
		Preference: preference,
		Engagement: engagementSvc,
		Duplicate:  duplicate,
		Feedback:   feedbackSvc,
		Ingestion:  ingestion,
		Briefing:   briefing,
	}, nil
}
