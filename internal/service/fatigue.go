package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
)

// durationSaturationMinutes controls how fast the session-duration component
// approaches 100.
const durationSaturationMinutes = 90.0

// AssessFatigue computes the five-component fatigue snapshot for one session
// against the learner's EMA baseline.
func (s *AdaptationService) AssessFatigue(ctx context.Context, tenantID, learnerID uuid.UUID, sessionID string) (*domain.FatigueAssessment, error) {
	if sessionID == "" {
		return nil, domain.NewValidationError("session id is required")
	}
	profile, err := s.loadOrCreateProfile(ctx, tenantID, learnerID)
	if err != nil {
		return nil, err
	}
	signals, err := s.signalStore.GetBySession(ctx, tenantID, learnerID, sessionID)
	if err != nil {
		return nil, domain.NewInternalError("loading session signals", err)
	}

	assessment := fatigueFromSignals(s.cfg, profile.EMA, signals)
	assessment.SessionID = sessionID
	assessment.AssessedAt = s.now()
	return assessment, nil
}

// fatigueFromSignals is the pure fatigue computation. Components are each in
// [0,100]; the overall score is their weighted combination; the recommendation
// is a monotone non-decreasing function of the score.
func fatigueFromSignals(cfg domain.AdaptationConfig, ema map[domain.SignalType]float64, signals []domain.AdaptationSignal) *domain.FatigueAssessment {
	ordered := make([]domain.AdaptationSignal, len(signals))
	copy(ordered, signals)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].RecordedAt.Before(ordered[j].RecordedAt)
	})

	accMean, accOK := sessionMean(ordered, domain.SignalAccuracy)
	rtMean, rtOK := sessionMean(ordered, domain.SignalResponseTime)
	hintMean, hintOK := sessionMean(ordered, domain.SignalHintUsage)

	comps := domain.FatigueComponents{
		AccuracyDecline:      declineComponent(ema[domain.SignalAccuracy], accMean, accOK),
		ResponseTimeIncrease: increaseComponent(ema[domain.SignalResponseTime], rtMean, rtOK),
		HintUsageIncrease:    increaseComponent(ema[domain.SignalHintUsage], hintMean, hintOK),
		SessionDuration:      durationComponent(sessionSpan(ordered)),
		ErrorBurstiness:      burstinessComponent(ordered),
	}

	w := cfg.FatigueWeights
	overall := w.AccuracyDecline*comps.AccuracyDecline +
		w.ResponseTimeIncrease*comps.ResponseTimeIncrease +
		w.HintUsageIncrease*comps.HintUsageIncrease +
		w.SessionDuration*comps.SessionDuration +
		w.ErrorBurstiness*comps.ErrorBurstiness

	return &domain.FatigueAssessment{
		OverallScore:   clamp100(overall),
		Components:     comps,
		Recommendation: fatigueLadder(cfg.FatigueThresholds, overall),
	}
}

// fatigueLadder maps a score to a rung. Thresholds ascend, so a higher score
// can never map to an earlier rung.
func fatigueLadder(thresholds [4]float64, score float64) domain.FatigueRecommendation {
	switch {
	case score < thresholds[0]:
		return domain.FatigueContinue
	case score < thresholds[1]:
		return domain.FatigueReduceDifficulty
	case score < thresholds[2]:
		return domain.FatigueSwitchTopic
	case score < thresholds[3]:
		return domain.FatigueTakeBreak
	default:
		return domain.FatigueEndSession
	}
}

func sessionMean(signals []domain.AdaptationSignal, t domain.SignalType) (float64, bool) {
	var sum float64
	var n int
	for _, s := range signals {
		if s.Type == t {
			sum += s.Value
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func sessionSpan(ordered []domain.AdaptationSignal) time.Duration {
	if len(ordered) < 2 {
		return 0
	}
	return ordered[len(ordered)-1].RecordedAt.Sub(ordered[0].RecordedAt)
}

// declineComponent scores how far a session mean fell below its baseline.
func declineComponent(baseline float64, mean float64, ok bool) float64 {
	if !ok || baseline <= 0 {
		return 0
	}
	drop := (baseline - mean) / math.Max(baseline, 0.05)
	return clamp100(100 * drop)
}

// increaseComponent scores how far a session mean rose above its baseline.
func increaseComponent(baseline float64, mean float64, ok bool) float64 {
	if !ok || baseline <= 0 {
		return 0
	}
	rise := (mean - baseline) / baseline
	return clamp100(100 * rise)
}

// durationComponent saturates toward 100 as the session stretches on.
func durationComponent(span time.Duration) float64 {
	minutes := span.Minutes()
	if minutes <= 0 {
		return 0
	}
	return 100 * (1 - math.Exp(-minutes/durationSaturationMinutes))
}

// burstinessComponent weights runs of three or more consecutive errors well
// above isolated ones.
func burstinessComponent(ordered []domain.AdaptationSignal) float64 {
	var score float64
	run := 0
	flush := func() {
		if run == 0 {
			return
		}
		if run >= 3 {
			score += float64(run) * 15
		} else {
			score += float64(run) * 5
		}
		run = 0
	}
	for _, s := range ordered {
		if s.Type != domain.SignalAccuracy {
			continue
		}
		if s.Correct() {
			flush()
		} else {
			run++
		}
	}
	flush()
	return clamp100(score)
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
