package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yungbote/chief-of-staff/internal/data/repos/user"
	types "github.com/yungbote/chief-of-staff/internal/domain"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
	"github.com/yungbote/chief-of-staff/internal/services"
	"github.com/yungbote/chief-of-staff/internal/utils"
)

// Config holds the cron expressions and job windows. Times are in the
// scheduler's local timezone.
type Config struct {
	BriefingCron    string
	IngestionCron   string
	MaintenanceCron string
	UserEmail       string
	DecayAfterDays  int
	CleanupDays     int
	JobTimeout      time.Duration
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		BriefingCron:    utils.GetEnv("BRIEFING_CRON", "0 8 * * *", log),
		IngestionCron:   utils.GetEnv("INGESTION_CRON", "@hourly", log),
		MaintenanceCron: utils.GetEnv("MAINTENANCE_CRON", "30 2 * * *", log),
		UserEmail:       utils.GetEnv("CHIEF_USER_EMAIL", "", log),
		DecayAfterDays:  utils.GetEnvAsInt("ENGAGEMENT_DECAY_AFTER_DAYS", 30, log),
		CleanupDays:     utils.GetEnvAsInt("ENGAGEMENT_CLEANUP_DAYS", 90, log),
		JobTimeout:      time.Duration(utils.GetEnvAsInt("JOB_TIMEOUT_SECONDS", 300, log)) * time.Second,
	}
}

// Scheduler runs the periodic jobs: hourly tracker ingestion, the morning
// briefing and nightly maintenance (decay, cleanup, re-analysis). Each job
// holds a lease so restarts or extra instances cannot double-run.
type Scheduler struct {
	log   *logger.Logger
	cfg   Config
	cron  *cron.Cron
	lease Lease

	userRepo      user.UserRepo
	ingestionSvc  services.IngestionService
	briefingSvc   services.BriefingService
	preferenceSvc services.PreferenceService
	engagementSvc services.EngagementService
}

func NewScheduler(
	log *logger.Logger,
	cfg Config,
	lease Lease,
	userRepo user.UserRepo,
	ingestionSvc services.IngestionService,
	briefingSvc services.BriefingService,
	preferenceSvc services.PreferenceService,
	engagementSvc services.EngagementService,
) (*Scheduler, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if lease == nil {
		lease = NewNoopLease()
	}
	if userRepo == nil || ingestionSvc == nil || briefingSvc == nil || preferenceSvc == nil || engagementSvc == nil {
		return nil, fmt.Errorf("all job dependencies required")
	}
	return &Scheduler{
		log:           log.With("component", "Scheduler"),
		cfg:           cfg,
		cron:          cron.New(),
		lease:         lease,
		userRepo:      userRepo,
		ingestionSvc:  ingestionSvc,
		briefingSvc:   briefingSvc,
		preferenceSvc: preferenceSvc,
		engagementSvc: engagementSvc,
	}, nil
}

func (s *Scheduler) Start() error {
	entries := []struct {
		name string
		spec string
		run  func(dbc dbctx.Context) error
	}{
		{"ingestion", s.cfg.IngestionCron, s.runIngestion},
		{"briefing", s.cfg.BriefingCron, s.runBriefing},
		{"maintenance", s.cfg.MaintenanceCron, s.runMaintenance},
	}
	for _, e := range entries {
		e := e
		if _, err := s.cron.AddFunc(e.spec, func() { s.runJob(e.name, e.run) }); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", e.name, e.spec, err)
		}
		s.log.Info("Job scheduled", "job", e.name, "cron", e.spec)
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Scheduler stopped")
}

func (s *Scheduler) runJob(name string, run func(dbc dbctx.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	ok, release, err := s.lease.Acquire(ctx, name, s.cfg.JobTimeout)
	if err != nil {
		s.log.Error("Lease acquisition failed", "job", name, "error", err.Error())
		return
	}
	if !ok {
		s.log.Info("Job already running elsewhere, skipping", "job", name)
		return
	}
	defer release()

	started := time.Now()
	if err := run(dbctx.New(ctx)); err != nil {
		s.log.Error("Job failed", "job", name, "duration", time.Since(started).String(), "error", err.Error())
		return
	}
	s.log.Info("Job finished", "job", name, "duration", time.Since(started).String())
}

func (s *Scheduler) resolveUser(dbc dbctx.Context) (*types.User, error) {
	if s.cfg.UserEmail == "" {
		return nil, fmt.Errorf("CHIEF_USER_EMAIL not configured")
	}
	u, err := s.userRepo.GetByEmail(dbc, s.cfg.UserEmail)
	if err != nil {
		return nil, fmt.Errorf("look up user %s: %w", s.cfg.UserEmail, err)
	}
	if u == nil {
		return nil, fmt.Errorf("user %s not found", s.cfg.UserEmail)
	}
	return u, nil
}

func (s *Scheduler) runIngestion(dbc dbctx.Context) error {
	u, err := s.resolveUser(dbc)
	if err != nil {
		return err
	}
	n, err := s.ingestionSvc.SyncIssues(dbc, u)
	if err != nil {
		return err
	}
	s.log.Info("Tracker sync complete", "user_id", u.ID, "issues", n)
	return nil
}

func (s *Scheduler) runBriefing(dbc dbctx.Context) error {
	u, err := s.resolveUser(dbc)
	if err != nil {
		return err
	}
	_, err = s.briefingSvc.GenerateAndDeliver(dbc, u)
	return err
}

// runMaintenance decays stale engagements, collects dead rows and re-runs the
// preference analysis on the fresh state. Steps are independent; a failure in
// one does not skip the rest.
func (s *Scheduler) runMaintenance(dbc dbctx.Context) error {
	u, err := s.resolveUser(dbc)
	if err != nil {
		return err
	}

	var firstErr error
	if _, err := s.engagementSvc.DecayOldEngagements(dbc, s.cfg.DecayAfterDays); err != nil {
		s.log.Error("Engagement decay failed", "error", err.Error())
		firstErr = err
	}
	if _, err := s.engagementSvc.CleanupZeroEngagements(dbc, s.cfg.CleanupDays); err != nil {
		s.log.Error("Engagement cleanup failed", "error", err.Error())
		if firstErr == nil {
			firstErr = err
		}
	}
	if _, err := s.preferenceSvc.AnalyzeFeedbackPatterns(dbc, u.ID); err != nil {
		s.log.Error("Preference re-analysis failed", "error", err.Error())
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
