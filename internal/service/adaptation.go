package service

import (
	"context"
	"math"
	"time"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdaptationService owns BKT mastery estimation, ZPD computation, fatigue
// assessment and decision-gate scoring. Stateless: every call works on a
// fresh snapshot from the stores.
type AdaptationService struct {
	profileStore domain.ProfileStore
	signalStore  domain.SignalStore
	ruleStore    domain.RuleStore
	cfg          domain.AdaptationConfig
	logger       *zap.Logger

	curiosity CuriosityReader
	now       func() time.Time
}

func NewAdaptationService(
	profileStore domain.ProfileStore,
	signalStore domain.SignalStore,
	ruleStore domain.RuleStore,
	cfg domain.AdaptationConfig,
	logger *zap.Logger,
) *AdaptationService {
	return &AdaptationService{
		profileStore: profileStore,
		signalStore:  signalStore,
		ruleStore:    ruleStore,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// SetClock overrides the time source. Used by tests to freeze "now".
func (s *AdaptationService) SetClock(now func() time.Time) {
	s.now = now
}

// GetProfile returns the learner's adaptation profile.
func (s *AdaptationService) GetProfile(ctx context.Context, tenantID, learnerID uuid.UUID) (*domain.AdaptationProfile, error) {
	if tenantID == uuid.Nil || learnerID == uuid.Nil {
		return nil, domain.NewValidationError("tenant id and learner id are required")
	}
	p, err := s.profileStore.Get(ctx, tenantID, learnerID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// UpdateWithSignals validates and applies a signal batch. Validation failures
// reject the whole batch; no partial application.
func (s *AdaptationService) UpdateWithSignals(ctx context.Context, tenantID, learnerID uuid.UUID, signals []domain.AdaptationSignal) (*domain.AdaptationProfile, error) {
	if tenantID == uuid.Nil || learnerID == uuid.Nil {
		return nil, domain.NewValidationError("tenant id and learner id are required")
	}
	if len(signals) == 0 {
		return nil, domain.NewValidationError("signal batch is empty")
	}
	now := s.now()
	for i := range signals {
		sig := &signals[i]
		if !sig.Type.Valid() {
			return nil, domain.NewValidationError("signal %d: unknown type %q", i, sig.Type)
		}
		if math.IsNaN(sig.Value) || math.IsInf(sig.Value, 0) {
			return nil, domain.NewValidationError("signal %d: value must be finite", i)
		}
		if sig.Type == domain.SignalAccuracy && sig.CompetencyID == "" {
			return nil, domain.NewValidationError("signal %d: accuracy signals require a competency id", i)
		}
		sig.ID = uuid.New()
		sig.TenantID = tenantID
		sig.LearnerID = learnerID
		if sig.RecordedAt.IsZero() {
			sig.RecordedAt = now
		}
	}

	profile, err := s.loadOrCreateProfile(ctx, tenantID, learnerID)
	if err != nil {
		return nil, err
	}

	sessions := make(map[string]struct{})
	for _, sig := range signals {
		s.applyEMA(profile, sig)
		if sig.Type == domain.SignalAccuracy {
			state := s.competencyState(profile, sig.CompetencyID, sig.Domain)
			bktUpdate(state, sig.Correct(), sig.RecordedAt, s.cfg.MasteryHistoryLimit)
		}
		if sig.SessionID != "" {
			sessions[sig.SessionID] = struct{}{}
		}
	}
	profile.TotalSignals += len(signals)
	profile.SessionsObserved += len(sessions)
	profile.UpdatedAt = now

	if err := s.signalStore.CreateBatch(ctx, signals); err != nil {
		return nil, domain.NewInternalError("persisting signal batch", err)
	}
	if err := s.profileStore.Upsert(ctx, profile); err != nil {
		return nil, domain.NewInternalError("persisting adaptation profile", err)
	}

	s.logger.Debug("applied signal batch",
		zap.String("learner_id", learnerID.String()),
		zap.Int("signals", len(signals)),
		zap.Int("competencies", len(profile.Competencies)),
	)
	return profile, nil
}

// GetMasteryEstimate derives the mastery view for one competency. An unknown
// competency yields a fresh state seeded with the configured prior.
func (s *AdaptationService) GetMasteryEstimate(ctx context.Context, tenantID, learnerID uuid.UUID, competencyID string) (*domain.MasteryEstimate, error) {
	if competencyID == "" {
		return nil, domain.NewValidationError("competency id is required")
	}
	profile, err := s.loadOrCreateProfile(ctx, tenantID, learnerID)
	if err != nil {
		return nil, err
	}
	state := s.competencyState(profile, competencyID, "")
	return s.estimateFromState(state), nil
}

func (s *AdaptationService) estimateFromState(state *domain.BKTCompetencyState) *domain.MasteryEstimate {
	return &domain.MasteryEstimate{
		CompetencyID: state.CompetencyID,
		PKnown:       state.PKnown,
		Zone:         s.classifyZone(state.PKnown),
		Trend:        masteryTrend(state.History, s.cfg.TrendWindow, s.cfg.TrendSlopeEpsilon),
		Confidence:   bktConfidence(state.Observations),
		Observations: state.Observations,
	}
}

// CalculateZPD classifies every competency (optionally restricted to one
// domain) against the ZPD thresholds and derives the optimal difficulty.
func (s *AdaptationService) CalculateZPD(ctx context.Context, tenantID, learnerID uuid.UUID, domainName string) (*domain.ZPDRange, error) {
	profile, err := s.loadOrCreateProfile(ctx, tenantID, learnerID)
	if err != nil {
		return nil, err
	}

	zones := make(map[string]domain.CompetencyZone)
	var sum float64
	var n int
	for id, state := range profile.Competencies {
		if domainName != "" && state.Domain != "" && state.Domain != domainName {
			continue
		}
		zones[id] = s.classifyZone(state.PKnown)
		sum += state.PKnown
		n++
	}

	mastery := s.cfg.InitialPKnown
	if n > 0 {
		mastery = sum / float64(n)
	}

	target := profile.TargetSuccessRate
	if target <= 0 {
		target = s.cfg.TargetSuccessRate
	}

	return &domain.ZPDRange{
		Domain:            domainName,
		LowerBound:        s.cfg.ZPDLowerThreshold,
		UpperBound:        s.cfg.ZPDUpperThreshold,
		OptimalDifficulty: s.optimalDifficulty(mastery, target),
		Zones:             zones,
	}, nil
}

// GetOptimalDifficulty returns the content difficulty whose predicted success
// probability is closest to the learner's target success rate.
func (s *AdaptationService) GetOptimalDifficulty(ctx context.Context, tenantID, learnerID uuid.UUID, domainName string) (int, error) {
	zpd, err := s.CalculateZPD(ctx, tenantID, learnerID, domainName)
	if err != nil {
		return 0, err
	}
	return zpd.OptimalDifficulty, nil
}

// GetAdaptationHistory returns the learner's signals in a time range.
func (s *AdaptationService) GetAdaptationHistory(ctx context.Context, tenantID, learnerID uuid.UUID, start, end time.Time) ([]domain.AdaptationSignal, error) {
	if tenantID == uuid.Nil || learnerID == uuid.Nil {
		return nil, domain.NewValidationError("tenant id and learner id are required")
	}
	if end.IsZero() {
		end = s.now()
	}
	if !start.Before(end) {
		return nil, domain.NewValidationError("history start must precede end")
	}
	return s.signalStore.GetByTimeRange(ctx, tenantID, learnerID, start, end)
}

func (s *AdaptationService) classifyZone(pKnown float64) domain.CompetencyZone {
	switch {
	case pKnown < s.cfg.ZPDLowerThreshold:
		return domain.ZoneBeyondReach
	case pKnown >= s.cfg.ZPDUpperThreshold:
		return domain.ZoneMastered
	default:
		return domain.ZoneZPD
	}
}

// predictedSuccess is a logistic in mastery minus normalized difficulty:
// monotone increasing in mastery, decreasing in difficulty.
func (s *AdaptationService) predictedSuccess(mastery float64, difficulty int) float64 {
	dNorm := float64(difficulty) / float64(s.cfg.MaxDifficulty)
	return 1 / (1 + math.Exp(-s.cfg.SuccessSlope*(mastery-dNorm)))
}

func (s *AdaptationService) optimalDifficulty(mastery, target float64) int {
	best := s.cfg.MinDifficulty
	bestGap := math.Inf(1)
	for d := s.cfg.MinDifficulty; d <= s.cfg.MaxDifficulty; d++ {
		gap := math.Abs(s.predictedSuccess(mastery, d) - target)
		if gap < bestGap {
			bestGap = gap
			best = d
		}
	}
	return best
}

func (s *AdaptationService) loadOrCreateProfile(ctx context.Context, tenantID, learnerID uuid.UUID) (*domain.AdaptationProfile, error) {
	p, err := s.profileStore.Get(ctx, tenantID, learnerID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		now := s.now()
		p = &domain.AdaptationProfile{
			TenantID:          tenantID,
			LearnerID:         learnerID,
			Competencies:      make(map[string]*domain.BKTCompetencyState),
			EMA:               make(map[domain.SignalType]float64),
			CurrentDifficulty: s.cfg.MinDifficulty,
			TargetSuccessRate: s.cfg.TargetSuccessRate,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
	}
	if p.Competencies == nil {
		p.Competencies = make(map[string]*domain.BKTCompetencyState)
	}
	if p.EMA == nil {
		p.EMA = make(map[domain.SignalType]float64)
	}
	return p, nil
}

func (s *AdaptationService) competencyState(p *domain.AdaptationProfile, competencyID, domainName string) *domain.BKTCompetencyState {
	if state, ok := p.Competencies[competencyID]; ok {
		if state.Domain == "" && domainName != "" {
			state.Domain = domainName
		}
		return state
	}
	state := &domain.BKTCompetencyState{
		CompetencyID: competencyID,
		Domain:       domainName,
		PLearn:       s.cfg.DefaultPLearn,
		PGuess:       s.cfg.DefaultPGuess,
		PSlip:        s.cfg.DefaultPSlip,
		PKnown:       s.cfg.InitialPKnown,
		UpdatedAt:    s.now(),
	}
	p.Competencies[competencyID] = state
	return state
}

// applyEMA smooths one signal into the profile's per-type moving average.
func (s *AdaptationService) applyEMA(p *domain.AdaptationProfile, sig domain.AdaptationSignal) {
	prev, ok := p.EMA[sig.Type]
	if !ok {
		p.EMA[sig.Type] = sig.Value
		return
	}
	p.EMA[sig.Type] = s.cfg.EMAAlpha*sig.Value + (1-s.cfg.EMAAlpha)*prev
}
