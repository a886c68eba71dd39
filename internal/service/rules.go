package service

import (
	"context"
	"sort"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
)

// GetRules lists the tenant's adaptation rules.
func (s *AdaptationService) GetRules(ctx context.Context, tenantID uuid.UUID) ([]domain.AdaptationRule, error) {
	if tenantID == uuid.Nil {
		return nil, domain.NewValidationError("tenant id is required")
	}
	return s.ruleStore.ListByTenant(ctx, tenantID)
}

// CreateRule validates and persists a tenant rule.
func (s *AdaptationService) CreateRule(ctx context.Context, rule *domain.AdaptationRule) (*domain.AdaptationRule, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	rule.ID = uuid.New()
	if err := s.ruleStore.Create(ctx, rule); err != nil {
		return nil, domain.NewInternalError("persisting rule", err)
	}
	return rule, nil
}

// UpdateRule replaces an existing rule's definition.
func (s *AdaptationService) UpdateRule(ctx context.Context, rule *domain.AdaptationRule) (*domain.AdaptationRule, error) {
	if rule.ID == uuid.Nil {
		return nil, domain.NewValidationError("rule id is required")
	}
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	existing, err := s.ruleStore.GetByID(ctx, rule.ID, rule.TenantID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrRuleNotFound
	}
	if err := s.ruleStore.Update(ctx, rule); err != nil {
		return nil, domain.NewInternalError("updating rule", err)
	}
	return rule, nil
}

func validateRule(rule *domain.AdaptationRule) error {
	if rule == nil || rule.TenantID == uuid.Nil {
		return domain.NewValidationError("tenant id is required")
	}
	if rule.Name == "" {
		return domain.NewValidationError("rule name is required")
	}
	switch rule.Scope {
	case domain.ScopeGlobal:
	case domain.ScopeDomain, domain.ScopeCompetency:
		if rule.ScopeKey == "" {
			return domain.NewValidationError("%s-scoped rules require a scope key", rule.Scope)
		}
	default:
		return domain.NewValidationError("unknown rule scope %q", rule.Scope)
	}
	if rule.Logic != domain.LogicAnd && rule.Logic != domain.LogicOr {
		return domain.NewValidationError("rule logic must be and or or")
	}
	if len(rule.Conditions) == 0 {
		return domain.NewValidationError("rule requires at least one condition")
	}
	for i, c := range rule.Conditions {
		if c.Metric == "" {
			return domain.NewValidationError("condition %d: metric is required", i)
		}
		switch c.Op {
		case domain.OpGT, domain.OpGTE, domain.OpLT, domain.OpLTE, domain.OpEQ, domain.OpNEQ:
		case domain.OpBetween:
			if c.UpperValue == nil {
				return domain.NewValidationError("condition %d: between requires an upper value", i)
			}
		default:
			return domain.NewValidationError("condition %d: unknown operator %q", i, c.Op)
		}
	}
	switch rule.Action.Type {
	case domain.ActionAdjustDifficulty, domain.ActionSwitchTopic, domain.ActionTakeBreak,
		domain.ActionEndSession, domain.ActionPinCompetency:
	default:
		return domain.NewValidationError("unknown rule action %q", rule.Action.Type)
	}
	return nil
}

// firstFiringRule evaluates rules in priority order (highest first, narrower
// scope wins ties) and returns the first one whose conditions hold. Rules
// whose scope key matches no candidate are skipped.
func firstFiringRule(rules []domain.AdaptationRule, candidates []domain.CandidateStep, inputs domain.RuleInputs) *domain.AdaptationRule {
	applicable := make([]domain.AdaptationRule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled && ruleInScope(r, candidates) {
			applicable = append(applicable, r)
		}
	}
	sort.SliceStable(applicable, func(i, j int) bool {
		if applicable[i].Priority != applicable[j].Priority {
			return applicable[i].Priority > applicable[j].Priority
		}
		return applicable[i].Scope.Specificity() > applicable[j].Scope.Specificity()
	})
	for i := range applicable {
		if ruleFires(applicable[i], inputs) {
			return &applicable[i]
		}
	}
	return nil
}

func ruleInScope(rule domain.AdaptationRule, candidates []domain.CandidateStep) bool {
	switch rule.Scope {
	case domain.ScopeGlobal:
		return true
	case domain.ScopeDomain:
		for _, c := range candidates {
			if c.Domain == rule.ScopeKey {
				return true
			}
		}
	case domain.ScopeCompetency:
		for _, c := range candidates {
			if c.CompetencyID == rule.ScopeKey {
				return true
			}
		}
	}
	return false
}

func ruleFires(rule domain.AdaptationRule, inputs domain.RuleInputs) bool {
	if len(rule.Conditions) == 0 {
		return false
	}
	for _, c := range rule.Conditions {
		holds := conditionHolds(c, inputs)
		if rule.Logic == domain.LogicAnd && !holds {
			return false
		}
		if rule.Logic == domain.LogicOr && holds {
			return true
		}
	}
	return rule.Logic == domain.LogicAnd
}

func conditionHolds(c domain.RuleCondition, inputs domain.RuleInputs) bool {
	v, ok := inputs.Lookup(c.Metric)
	if !ok {
		return false
	}
	switch c.Op {
	case domain.OpGT:
		return v > c.Value
	case domain.OpGTE:
		return v >= c.Value
	case domain.OpLT:
		return v < c.Value
	case domain.OpLTE:
		return v <= c.Value
	case domain.OpEQ:
		return v == c.Value
	case domain.OpNEQ:
		return v != c.Value
	case domain.OpBetween:
		return c.UpperValue != nil && v >= c.Value && v <= *c.UpperValue
	}
	return false
}

// ruleInputs assembles the metric snapshot rules are evaluated against.
func (s *AdaptationService) ruleInputs(ctx context.Context, tenantID, learnerID uuid.UUID, sessionID string) (*domain.RuleInputs, error) {
	profile, err := s.loadOrCreateProfile(ctx, tenantID, learnerID)
	if err != nil {
		return nil, err
	}

	var sum float64
	for _, state := range profile.Competencies {
		sum += state.PKnown
	}
	mastery := s.cfg.InitialPKnown
	if len(profile.Competencies) > 0 {
		mastery = sum / float64(len(profile.Competencies))
	}

	inputs := &domain.RuleInputs{
		Mastery: mastery,
		Signals: profile.EMA,
	}

	if sessionID != "" {
		signals, err := s.signalStore.GetBySession(ctx, tenantID, learnerID, sessionID)
		if err != nil {
			return nil, domain.NewInternalError("loading session signals", err)
		}
		fatigue := fatigueFromSignals(s.cfg, profile.EMA, signals)
		inputs.Fatigue = fatigue.OverallScore
		inputs.SessionDuration = sessionSpanMinutes(signals)
		inputs.Streak = trailingCorrectStreak(signals)
	}
	return inputs, nil
}

func sessionSpanMinutes(signals []domain.AdaptationSignal) float64 {
	ordered := make([]domain.AdaptationSignal, len(signals))
	copy(ordered, signals)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].RecordedAt.Before(ordered[j].RecordedAt)
	})
	return sessionSpan(ordered).Minutes()
}

func trailingCorrectStreak(signals []domain.AdaptationSignal) float64 {
	ordered := make([]domain.AdaptationSignal, 0, len(signals))
	for _, s := range signals {
		if s.Type == domain.SignalAccuracy {
			ordered = append(ordered, s)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].RecordedAt.Before(ordered[j].RecordedAt)
	})
	streak := 0
	for i := len(ordered) - 1; i >= 0; i-- {
		if !ordered[i].Correct() {
			break
		}
		streak++
	}
	return float64(streak)
}
