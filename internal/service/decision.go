package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CuriosityReader is the slice of the curiosity engine the decision gate
// consumes. The gate never recomputes curiosity state itself.
type CuriosityReader interface {
	GetCuriosityProfile(ctx context.Context, tenantID, learnerID uuid.UUID) (*domain.CuriosityProfile, error)
}

// SetCuriosityReader wires the curiosity engine into step scoring. Without it
// the curiosity-alignment component scores zero.
func (s *AdaptationService) SetCuriosityReader(r CuriosityReader) {
	s.curiosity = r
}

// EvaluateDecisionGate evaluates tenant rules first, then falls back to
// default step scoring. The first firing rule's action wins; no stacking.
func (s *AdaptationService) EvaluateDecisionGate(ctx context.Context, tenantID, learnerID uuid.UUID, sessionID string, candidates []domain.CandidateStep) (*domain.DecisionGateResult, error) {
	if tenantID == uuid.Nil || learnerID == uuid.Nil {
		return nil, domain.NewValidationError("tenant id and learner id are required")
	}

	inputs, err := s.ruleInputs(ctx, tenantID, learnerID, sessionID)
	if err != nil {
		return nil, err
	}

	rules, err := s.ruleStore.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, domain.NewInternalError("loading adaptation rules", err)
	}
	if fired := firstFiringRule(rules, candidates, *inputs); fired != nil {
		s.logger.Debug("decision gate rule fired",
			zap.String("rule", fired.Name),
			zap.String("learner_id", learnerID.String()),
		)
		action := fired.Action
		return &domain.DecisionGateResult{RuleFired: fired, Action: &action}, nil
	}

	scores, err := s.ScoreNextSteps(ctx, tenantID, learnerID, candidates)
	if err != nil {
		return nil, err
	}
	result := &domain.DecisionGateResult{Scores: scores}
	if len(scores) > 0 {
		result.Recommended = &scores[0]
	}
	return result, nil
}

// ScoreNextSteps ranks candidate steps by the composite decision-gate score.
// Ties break on prerequisite coverage, then on smaller difficulty jump from
// the learner's current difficulty.
func (s *AdaptationService) ScoreNextSteps(ctx context.Context, tenantID, learnerID uuid.UUID, candidates []domain.CandidateStep) ([]domain.StepScore, error) {
	if len(candidates) == 0 {
		return nil, domain.NewValidationError("candidate steps are required")
	}
	profile, err := s.loadOrCreateProfile(ctx, tenantID, learnerID)
	if err != nil {
		return nil, err
	}

	var curiosity *domain.CuriosityProfile
	if s.curiosity != nil {
		curiosity, err = s.curiosity.GetCuriosityProfile(ctx, tenantID, learnerID)
		if err != nil {
			// Curiosity alignment degrades to zero rather than failing the gate.
			s.logger.Warn("curiosity profile unavailable for step scoring", zap.Error(err))
			curiosity = nil
		}
	}

	minDuration := math.Inf(1)
	for _, c := range candidates {
		if d := float64(c.DurationMinutes); d > 0 && d < minDuration {
			minDuration = d
		}
	}

	mastered := make(map[string]struct{})
	for id, state := range profile.Competencies {
		if state.PKnown >= s.cfg.ZPDUpperThreshold {
			mastered[id] = struct{}{}
		}
	}

	scores := make([]domain.StepScore, 0, len(candidates))
	for _, c := range candidates {
		comps := domain.StepScoreComponents{
			MasteryGain:           s.masteryGain(profile, c),
			EngagementProbability: engagementProbability(profile.EMA),
			TimeEfficiency:        timeEfficiency(c.DurationMinutes, minDuration),
			PrerequisiteCoverage:  prerequisiteCoverage(c.Prerequisites, mastered),
			CuriosityAlignment:    curiosityAlignment(c, curiosity),
		}
		w := s.cfg.StepWeights
		total := w.MasteryGain*comps.MasteryGain +
			w.EngagementProbability*comps.EngagementProbability +
			w.TimeEfficiency*comps.TimeEfficiency +
			w.PrerequisiteCoverage*comps.PrerequisiteCoverage +
			w.CuriosityAlignment*comps.CuriosityAlignment

		scores = append(scores, domain.StepScore{
			Step:       c,
			Total:      total,
			Components: comps,
			Reasoning:  stepReasoning(c, comps),
		})
	}

	current := profile.CurrentDifficulty
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.Components.PrerequisiteCoverage != b.Components.PrerequisiteCoverage {
			return a.Components.PrerequisiteCoverage > b.Components.PrerequisiteCoverage
		}
		return absInt(a.Step.Difficulty-current) < absInt(b.Step.Difficulty-current)
	})
	return scores, nil
}

// masteryGain scores the gap between current mastery and the ZPD target.
// Steps on mastered or out-of-reach competencies are penalized outright.
func (s *AdaptationService) masteryGain(p *domain.AdaptationProfile, c domain.CandidateStep) float64 {
	pKnown := s.cfg.InitialPKnown
	if state, ok := p.Competencies[c.CompetencyID]; ok {
		pKnown = state.PKnown
	}
	switch s.classifyZone(pKnown) {
	case domain.ZoneMastered:
		return 0.05
	case domain.ZoneBeyondReach:
		return 0.15
	default:
		band := s.cfg.ZPDUpperThreshold - s.cfg.ZPDLowerThreshold
		if band <= 0 {
			return 0
		}
		return clamp01((s.cfg.ZPDUpperThreshold - pKnown) / band)
	}
}

// engagementProbability is a logistic of the learner's EMA engagement and
// hint-usage signals.
func engagementProbability(ema map[domain.SignalType]float64) float64 {
	engagement, ok := ema[domain.SignalEngagement]
	if !ok {
		engagement = 0.5
	}
	hints := ema[domain.SignalHintUsage]
	return 1 / (1 + math.Exp(-(3*(engagement-0.5) - hints)))
}

func timeEfficiency(duration int, minDuration float64) float64 {
	if duration <= 0 || math.IsInf(minDuration, 1) {
		return 0
	}
	return minDuration / float64(duration)
}

func prerequisiteCoverage(prereqs []string, mastered map[string]struct{}) float64 {
	if len(prereqs) == 0 {
		return 1
	}
	covered := 0
	for _, p := range prereqs {
		if _, ok := mastered[p]; ok {
			covered++
		}
	}
	return float64(covered) / float64(len(prereqs))
}

// curiosityAlignment is the overlap between the step's domain/topic tags and
// the learner's current curiosity profile.
func curiosityAlignment(c domain.CandidateStep, profile *domain.CuriosityProfile) float64 {
	if profile == nil {
		return 0
	}
	tags := make([]string, 0, len(c.Topics)+1)
	tags = append(tags, c.Topics...)
	if c.Domain != "" {
		tags = append(tags, c.Domain)
	}
	if len(tags) == 0 {
		return 0
	}
	topics := profile.TopicSet()
	domains := profile.DomainSet()
	hits := 0
	for _, tag := range tags {
		if _, ok := topics[tag]; ok {
			hits++
			continue
		}
		if _, ok := domains[tag]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(tags))
}

func stepReasoning(c domain.CandidateStep, comps domain.StepScoreComponents) string {
	var parts []string
	if comps.MasteryGain >= 0.5 {
		parts = append(parts, "strong expected mastery gain inside the learner's zone")
	} else if comps.MasteryGain <= 0.1 {
		parts = append(parts, "competency already mastered, low expected gain")
	}
	if comps.PrerequisiteCoverage >= 1 {
		parts = append(parts, "all prerequisites mastered")
	} else if comps.PrerequisiteCoverage < 0.5 {
		parts = append(parts, fmt.Sprintf("only %.0f%% of prerequisites mastered", comps.PrerequisiteCoverage*100))
	}
	if comps.CuriosityAlignment >= 0.5 {
		parts = append(parts, "aligns with current interests")
	}
	if len(parts) == 0 {
		parts = append(parts, "balanced fit across mastery, engagement and time")
	}
	return fmt.Sprintf("%s (%s): %s", c.ContentID, c.CompetencyID, strings.Join(parts, "; "))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
