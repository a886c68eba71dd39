package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CuriosityService owns interest-signal ingestion, clustering, emerging
// interest detection, scoring, suggestions and triggers. Stateless apart from
// the timestamped profile cache.
type CuriosityService struct {
	signalStore domain.CuriositySignalStore
	cache       domain.CuriosityProfileCache
	cfg         domain.CuriosityConfig
	logger      *zap.Logger

	refresher *RefresherService
	now       func() time.Time
}

func NewCuriosityService(
	signalStore domain.CuriositySignalStore,
	cache domain.CuriosityProfileCache,
	cfg domain.CuriosityConfig,
	logger *zap.Logger,
) *CuriosityService {
	return &CuriosityService{
		signalStore: signalStore,
		cache:       cache,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// SetRefresher wires the background cache refresher. Without it, write-path
// refreshes are skipped and reads still recompute synchronously when stale.
func (s *CuriosityService) SetRefresher(r *RefresherService) {
	s.refresher = r
}

// SetClock overrides the time source. Used by tests to freeze "now".
func (s *CuriosityService) SetClock(now func() time.Time) {
	s.now = now
}

// RecordSignal validates and persists one interest event, then triggers a
// best-effort asynchronous cache refresh. Refresh failures are logged, never
// surfaced to the caller.
func (s *CuriosityService) RecordSignal(ctx context.Context, sig *domain.CuriositySignal) error {
	if sig == nil {
		return domain.NewValidationError("signal is required")
	}
	if sig.TenantID == uuid.Nil || sig.LearnerID == uuid.Nil {
		return domain.NewValidationError("tenant id and learner id are required")
	}
	if !sig.Type.Valid() {
		return domain.NewValidationError("unknown curiosity signal type %q", sig.Type)
	}
	if sig.Topic == "" {
		return domain.NewValidationError("topic is required")
	}
	if sig.SessionID == "" {
		return domain.NewValidationError("session id is required")
	}
	if sig.Strength == 0 {
		sig.Strength = s.cfg.DefaultStrength
	}
	sig.Strength = clamp01(sig.Strength)
	sig.ID = uuid.New()
	if sig.RecordedAt.IsZero() {
		sig.RecordedAt = s.now()
	}

	if err := s.signalStore.Create(ctx, sig); err != nil {
		return domain.NewInternalError("persisting curiosity signal", err)
	}

	if s.refresher != nil {
		cached, err := s.cache.Get(ctx, sig.TenantID, sig.LearnerID)
		if err != nil {
			s.logger.Warn("curiosity cache read failed on write path", zap.Error(err))
		}
		if !cached.Fresh(s.now(), s.cfg.ProfileTTL) {
			s.refresher.Enqueue(sig.TenantID, sig.LearnerID)
		}
	}
	return nil
}

// GetCuriosityProfile returns the cached profile if fresh, otherwise
// recomputes synchronously. The read path never returns stale-beyond-TTL data.
func (s *CuriosityService) GetCuriosityProfile(ctx context.Context, tenantID, learnerID uuid.UUID) (*domain.CuriosityProfile, error) {
	if tenantID == uuid.Nil || learnerID == uuid.Nil {
		return nil, domain.NewValidationError("tenant id and learner id are required")
	}
	now := s.now()
	cached, err := s.cache.Get(ctx, tenantID, learnerID)
	if err != nil {
		s.logger.Warn("curiosity cache read failed, recomputing", zap.Error(err))
	} else if cached.Fresh(now, s.cfg.ProfileTTL) {
		return cached, nil
	}
	return s.RefreshProfile(ctx, tenantID, learnerID)
}

// RefreshProfile recomputes the profile from the signal window and persists
// it to the cache. Cache write failures degrade to logging: the computed
// profile is still returned.
func (s *CuriosityService) RefreshProfile(ctx context.Context, tenantID, learnerID uuid.UUID) (*domain.CuriosityProfile, error) {
	now := s.now()
	signals, err := s.signalStore.GetByLearnerSince(ctx, tenantID, learnerID, now.Add(-s.cfg.SignalWindow))
	if err != nil {
		return nil, domain.NewInternalError("loading curiosity signals", err)
	}

	profile := computeProfile(tenantID, learnerID, signals, now, s.cfg)
	if err := s.cache.Put(ctx, profile); err != nil {
		s.logger.Warn("curiosity cache write failed",
			zap.String("learner_id", learnerID.String()),
			zap.Error(err),
		)
	}
	return profile, nil
}

// computeProfile is the pure profile computation. Given the same signal set
// and "now" it is fully deterministic.
func computeProfile(tenantID, learnerID uuid.UUID, signals []domain.CuriositySignal, now time.Time, cfg domain.CuriosityConfig) *domain.CuriosityProfile {
	ordered := make([]domain.CuriositySignal, len(signals))
	copy(ordered, signals)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].RecordedAt.Equal(ordered[j].RecordedAt) {
			return ordered[i].RecordedAt.Before(ordered[j].RecordedAt)
		}
		return ordered[i].ID.String() < ordered[j].ID.String()
	})

	components, overall := curiosityScore(ordered)

	recent := ordered
	if len(recent) > cfg.MaxRecentSignals {
		recent = recent[len(recent)-cfg.MaxRecentSignals:]
	}
	recentCopy := make([]domain.CuriositySignal, len(recent))
	copy(recentCopy, recent)

	return &domain.CuriosityProfile{
		TenantID:          tenantID,
		LearnerID:         learnerID,
		OverallScore:      overall,
		Components:        components,
		Clusters:          interestClusters(ordered, now, cfg),
		EmergingInterests: emergingInterests(ordered, now, cfg),
		RecentSignals:     recentCopy,
		LastUpdated:       now,
	}
}

// curiosityScore computes the five 0-100 components and the weighted overall
// score from a signal window.
func curiosityScore(signals []domain.CuriositySignal) (domain.CuriosityComponents, int) {
	n := len(signals)
	if n == 0 {
		return domain.CuriosityComponents{}, 0
	}

	topicCounts := make(map[string]int)
	var questions, explorations int
	for _, s := range signals {
		topicCounts[s.Topic]++
		switch s.Type {
		case domain.CuriosityQuestionAsking:
			questions++
		case domain.CuriosityVoluntaryExploration:
			explorations++
		}
	}

	unique := len(topicCounts)
	counts := make([]int, 0, unique)
	for _, c := range topicCounts {
		counts = append(counts, c)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))
	top := counts
	if len(top) > 5 {
		top = top[:5]
	}
	var topSum int
	for _, c := range top {
		topSum += c
	}
	topAvg := float64(topSum) / float64(len(top))

	comps := domain.CuriosityComponents{
		SignalCount:       math.Min(100, float64(n)/3),
		Breadth:           math.Min(100, float64(unique)/math.Max(50, float64(unique))*100),
		Depth:             math.Min(100, topAvg/10*100),
		QuestionFrequency: math.Min(100, float64(questions)/float64(n)*100),
		ExplorationRate:   math.Min(100, float64(explorations)/float64(n)*100),
	}
	overall := int(math.Round(
		0.15*comps.SignalCount +
			0.20*comps.Breadth +
			0.25*comps.Depth +
			0.20*comps.QuestionFrequency +
			0.20*comps.ExplorationRate,
	))
	return comps, overall
}

// GetCuriosityScore returns just the composite score and its components.
func (s *CuriosityService) GetCuriosityScore(ctx context.Context, tenantID, learnerID uuid.UUID) (int, domain.CuriosityComponents, error) {
	profile, err := s.GetCuriosityProfile(ctx, tenantID, learnerID)
	if err != nil {
		return 0, domain.CuriosityComponents{}, err
	}
	return profile.OverallScore, profile.Components, nil
}

// GetInterestClusters returns the current clustering.
func (s *CuriosityService) GetInterestClusters(ctx context.Context, tenantID, learnerID uuid.UUID) ([]domain.InterestCluster, error) {
	profile, err := s.GetCuriosityProfile(ctx, tenantID, learnerID)
	if err != nil {
		return nil, err
	}
	return profile.Clusters, nil
}

// DetectEmergingInterests returns topics with accelerating signal rates.
func (s *CuriosityService) DetectEmergingInterests(ctx context.Context, tenantID, learnerID uuid.UUID) ([]domain.EmergingInterest, error) {
	profile, err := s.GetCuriosityProfile(ctx, tenantID, learnerID)
	if err != nil {
		return nil, err
	}
	return profile.EmergingInterests, nil
}
