package services

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/chief-of-staff/internal/data/repos/engagement"
	types "github.com/yungbote/chief-of-staff/internal/domain"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
)

// EngagementConfig holds the score blend and decay tunables.
type EngagementConfig struct {
	// FrequencyWeight + RecencyWeight should sum to 1.
	FrequencyWeight float64
	RecencyWeight   float64
	// FrequencySaturation is N in 1 - exp(-count/N).
	FrequencySaturation float64
	RecencyHalfLife     time.Duration
	DecayFactor         float64
	// DecayWindow bounds how often one row may be decayed; a second decay run
	// inside the window skips rows already decayed.
	DecayWindow time.Duration
	// ZeroFloor snaps post-decay scores below it to 0 so cleanup can collect
	// them; multiplicative decay alone never reaches zero.
	ZeroFloor float64
}

func DefaultEngagementConfig() EngagementConfig {
	return EngagementConfig{
		FrequencyWeight:     0.6,
		RecencyWeight:       0.4,
		FrequencySaturation: 10,
		RecencyHalfLife:     21 * 24 * time.Hour,
		DecayFactor:         0.9,
		DecayWindow:         24 * time.Hour,
		ZeroFloor:           0.01,
	}
}

type EngagementService interface {
	// RecordInteraction upserts the (user, issue) record: increments the
	// count, refreshes last_interaction and recomputes the score. Calls for
	// the same pair are serialized.
	RecordInteraction(dbc dbctx.Context, userID uuid.UUID, issueID, interactionType string) (*types.EngagementRecord, error)
	// DecayOldEngagements multiplies the score of every record stale for more
	// than days by the decay factor, at most once per decay window. Each row
	// commits independently; returns rows touched.
	DecayOldEngagements(dbc dbctx.Context, days int) (int, error)
	// CleanupZeroEngagements deletes zero-score records staler than the
	// threshold. Irreversible.
	CleanupZeroEngagements(dbc dbctx.Context, olderThanDays int) (int, error)
}

type engagementService struct {
	log   *logger.Logger
	cfg   EngagementConfig
	repo  engagement.EngagementRecordRepo
	locks keyedLocks
}

func NewEngagementService(log *logger.Logger, cfg EngagementConfig, repo engagement.EngagementRecordRepo) (EngagementService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if repo == nil {
		return nil, fmt.Errorf("engagement repo required")
	}
	def := DefaultEngagementConfig()
	if cfg.FrequencyWeight <= 0 && cfg.RecencyWeight <= 0 {
		cfg.FrequencyWeight = def.FrequencyWeight
		cfg.RecencyWeight = def.RecencyWeight
	}
	if cfg.FrequencySaturation <= 0 {
		cfg.FrequencySaturation = def.FrequencySaturation
	}
	if cfg.RecencyHalfLife <= 0 {
		cfg.RecencyHalfLife = def.RecencyHalfLife
	}
	if cfg.DecayFactor <= 0 || cfg.DecayFactor >= 1 {
		cfg.DecayFactor = def.DecayFactor
	}
	if cfg.DecayWindow <= 0 {
		cfg.DecayWindow = def.DecayWindow
	}
	if cfg.ZeroFloor <= 0 {
		cfg.ZeroFloor = def.ZeroFloor
	}
	return &engagementService{
		log:  log.With("service", "EngagementService"),
		cfg:  cfg,
		repo: repo,
	}, nil
}

func (s *engagementService) RecordInteraction(dbc dbctx.Context, userID uuid.UUID, issueID, interactionType string) (*types.EngagementRecord, error) {
	if userID == uuid.Nil || issueID == "" {
		return nil, fmt.Errorf("userID and issueID required")
	}

	unlock := s.locks.lock(userID.String() + "|" + issueID)
	defer unlock()

	now := time.Now().UTC()
	row, err := s.repo.Get(dbc, userID, issueID)
	if err != nil {
		return nil, fmt.Errorf("load engagement record: %w", err)
	}
	if row == nil {
		row = &types.EngagementRecord{
			UserID:           userID,
			IssueID:          issueID,
			FirstInteraction: now,
		}
	}
	row.InteractionCount++
	row.InteractionType = interactionType
	row.LastInteraction = now
	row.EngagementScore = s.score(row.InteractionCount, 0)

	if err := s.repo.Upsert(dbc, row); err != nil {
		return nil, fmt.Errorf("upsert engagement record: %w", err)
	}
	return row, nil
}

// score blends saturating frequency with exponentially decaying recency.
func (s *engagementService) score(interactionCount int, elapsed time.Duration) float64 {
	frequency := 1 - math.Exp(-float64(interactionCount)/s.cfg.FrequencySaturation)
	recency := math.Exp2(-elapsed.Hours() / s.cfg.RecencyHalfLife.Hours())
	return clamp01(s.cfg.FrequencyWeight*frequency + s.cfg.RecencyWeight*recency)
}

func (s *engagementService) DecayOldEngagements(dbc dbctx.Context, days int) (int, error) {
	if days <= 0 {
		return 0, fmt.Errorf("days must be positive")
	}
	now := time.Now().UTC()
	staleBefore := now.AddDate(0, 0, -days)
	decayedBefore := now.Add(-s.cfg.DecayWindow)

	rows, err := s.repo.ListDecayable(dbc, staleBefore, decayedBefore)
	if err != nil {
		return 0, fmt.Errorf("list decayable records: %w", err)
	}

	touched := 0
	for _, row := range rows {
		next := clamp01(row.EngagementScore * s.cfg.DecayFactor)
		if next < s.cfg.ZeroFloor {
			next = 0
		}
		row.EngagementScore = next
		decayedAt := now
		row.LastDecayedAt = &decayedAt
		if err := s.repo.Update(dbc, row); err != nil {
			// Rows commit independently so an abort mid-run loses at most the
			// current row.
			return touched, fmt.Errorf("decay engagement %s/%s: %w", row.UserID, row.IssueID, err)
		}
		touched++
	}
	if touched > 0 {
		s.log.Info("Decayed stale engagements", "rows", touched, "stale_before", staleBefore)
	}
	return touched, nil
}

func (s *engagementService) CleanupZeroEngagements(dbc dbctx.Context, olderThanDays int) (int, error) {
	if olderThanDays <= 0 {
		return 0, fmt.Errorf("olderThanDays must be positive")
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	n, err := s.repo.DeleteZeroOlderThan(dbc, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup zero engagements: %w", err)
	}
	if n > 0 {
		s.log.Info("Deleted zero-score engagements", "rows", n, "cutoff", cutoff)
	}
	return int(n), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// keyedLocks serializes work per string key. Entries are never removed; the
// key space is bounded by (user, issue) pairs actually touched.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m := k.locks[key]
	if m == nil {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}
