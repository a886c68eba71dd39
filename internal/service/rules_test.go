package service

import (
	"context"
	"errors"
	"testing"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
)

func validRule(tenantID uuid.UUID) *domain.AdaptationRule {
	return &domain.AdaptationRule{
		TenantID: tenantID,
		Name:     "fatigue guard",
		Scope:    domain.ScopeGlobal,
		Priority: 10,
		Logic:    domain.LogicAnd,
		Conditions: []domain.RuleCondition{
			{Metric: domain.MetricFatigue, Op: domain.OpGTE, Value: 60},
		},
		Action:  domain.RuleAction{Type: domain.ActionTakeBreak},
		Enabled: true,
	}
}

func TestValidateRule(t *testing.T) {
	tenantID := uuid.New()
	upper := 80.0

	mutations := []struct {
		name   string
		mutate func(*domain.AdaptationRule)
	}{
		{"missing tenant", func(r *domain.AdaptationRule) { r.TenantID = uuid.Nil }},
		{"missing name", func(r *domain.AdaptationRule) { r.Name = "" }},
		{"unknown scope", func(r *domain.AdaptationRule) { r.Scope = "galactic" }},
		{"domain scope without key", func(r *domain.AdaptationRule) { r.Scope = domain.ScopeDomain }},
		{"competency scope without key", func(r *domain.AdaptationRule) { r.Scope = domain.ScopeCompetency }},
		{"bad logic", func(r *domain.AdaptationRule) { r.Logic = "xor" }},
		{"no conditions", func(r *domain.AdaptationRule) { r.Conditions = nil }},
		{"missing metric", func(r *domain.AdaptationRule) { r.Conditions[0].Metric = "" }},
		{"unknown operator", func(r *domain.AdaptationRule) { r.Conditions[0].Op = "almost" }},
		{"between without upper", func(r *domain.AdaptationRule) { r.Conditions[0].Op = domain.OpBetween }},
		{"unknown action", func(r *domain.AdaptationRule) { r.Action.Type = "panic" }},
	}
	for _, m := range mutations {
		rule := validRule(tenantID)
		m.mutate(rule)
		if err := validateRule(rule); domain.CodeOf(err) != domain.ErrValidation {
			t.Fatalf("%s: expected validation error, got %v", m.name, err)
		}
	}

	ok := validRule(tenantID)
	ok.Conditions[0] = domain.RuleCondition{Metric: domain.MetricFatigue, Op: domain.OpBetween, Value: 40, UpperValue: &upper}
	if err := validateRule(ok); err != nil {
		t.Fatalf("valid between rule rejected: %v", err)
	}
}

func TestCreateAndUpdateRule(t *testing.T) {
	svc, _, _, rules := newTestAdaptation()
	tenantID := uuid.New()
	ctx := context.Background()

	created, err := svc.CreateRule(ctx, validRule(tenantID))
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatal("created rule missing id")
	}
	if len(rules.rules) != 1 {
		t.Fatalf("persisted rules = %d, want 1", len(rules.rules))
	}

	created.Priority = 99
	if _, err := svc.UpdateRule(ctx, created); err != nil {
		t.Fatalf("UpdateRule: %v", err)
	}
	if rules.rules[0].Priority != 99 {
		t.Fatalf("priority = %d after update, want 99", rules.rules[0].Priority)
	}

	ghost := validRule(tenantID)
	ghost.ID = uuid.New()
	if _, err := svc.UpdateRule(ctx, ghost); !errors.Is(err, ErrRuleNotFound) {
		t.Fatalf("err = %v, want ErrRuleNotFound", err)
	}
}

func TestRuleFiresLogic(t *testing.T) {
	inputs := domain.RuleInputs{Mastery: 0.5, Fatigue: 70}
	both := []domain.RuleCondition{
		{Metric: domain.MetricFatigue, Op: domain.OpGT, Value: 60},
		{Metric: domain.MetricMastery, Op: domain.OpGT, Value: 0.8},
	}

	and := domain.AdaptationRule{Logic: domain.LogicAnd, Conditions: both}
	if ruleFires(and, inputs) {
		t.Fatal("and-rule fired with one failing condition")
	}
	or := domain.AdaptationRule{Logic: domain.LogicOr, Conditions: both}
	if !ruleFires(or, inputs) {
		t.Fatal("or-rule must fire with one holding condition")
	}
}

func TestConditionOperators(t *testing.T) {
	upper := 80.0
	inputs := domain.RuleInputs{Fatigue: 60}
	cases := []struct {
		cond domain.RuleCondition
		want bool
	}{
		{domain.RuleCondition{Metric: domain.MetricFatigue, Op: domain.OpGT, Value: 59}, true},
		{domain.RuleCondition{Metric: domain.MetricFatigue, Op: domain.OpGT, Value: 60}, false},
		{domain.RuleCondition{Metric: domain.MetricFatigue, Op: domain.OpGTE, Value: 60}, true},
		{domain.RuleCondition{Metric: domain.MetricFatigue, Op: domain.OpLT, Value: 60}, false},
		{domain.RuleCondition{Metric: domain.MetricFatigue, Op: domain.OpLTE, Value: 60}, true},
		{domain.RuleCondition{Metric: domain.MetricFatigue, Op: domain.OpEQ, Value: 60}, true},
		{domain.RuleCondition{Metric: domain.MetricFatigue, Op: domain.OpNEQ, Value: 60}, false},
		{domain.RuleCondition{Metric: domain.MetricFatigue, Op: domain.OpBetween, Value: 40, UpperValue: &upper}, true},
		{domain.RuleCondition{Metric: domain.MetricFatigue, Op: domain.OpBetween, Value: 61, UpperValue: &upper}, false},
		{domain.RuleCondition{Metric: "unknown_metric", Op: domain.OpGT, Value: 0}, false},
	}
	for i, c := range cases {
		if got := conditionHolds(c.cond, inputs); got != c.want {
			t.Fatalf("case %d (%s %s %v): got %v, want %v", i, c.cond.Metric, c.cond.Op, c.cond.Value, got, c.want)
		}
	}
}

func TestFirstFiringRulePriority(t *testing.T) {
	tenantID := uuid.New()
	low := *validRule(tenantID)
	low.Name = "low"
	low.Priority = 1
	high := *validRule(tenantID)
	high.Name = "high"
	high.Priority = 10

	inputs := domain.RuleInputs{Fatigue: 70}
	candidates := []domain.CandidateStep{{ContentID: "c1", CompetencyID: "k1", Domain: "math"}}

	fired := firstFiringRule([]domain.AdaptationRule{low, high}, candidates, inputs)
	if fired == nil || fired.Name != "high" {
		t.Fatalf("fired = %+v, want the high-priority rule", fired)
	}
}

func TestFirstFiringRuleScopeTieBreak(t *testing.T) {
	tenantID := uuid.New()
	global := *validRule(tenantID)
	global.Name = "global"
	narrow := *validRule(tenantID)
	narrow.Name = "narrow"
	narrow.Scope = domain.ScopeCompetency
	narrow.ScopeKey = "k1"

	inputs := domain.RuleInputs{Fatigue: 70}
	candidates := []domain.CandidateStep{{ContentID: "c1", CompetencyID: "k1"}}

	fired := firstFiringRule([]domain.AdaptationRule{global, narrow}, candidates, inputs)
	if fired == nil || fired.Name != "narrow" {
		t.Fatalf("fired = %+v, want the competency-scoped rule on equal priority", fired)
	}
}

func TestFirstFiringRuleSkipsDisabledAndOutOfScope(t *testing.T) {
	tenantID := uuid.New()
	disabled := *validRule(tenantID)
	disabled.Name = "disabled"
	disabled.Enabled = false
	elsewhere := *validRule(tenantID)
	elsewhere.Name = "elsewhere"
	elsewhere.Scope = domain.ScopeDomain
	elsewhere.ScopeKey = "music"

	inputs := domain.RuleInputs{Fatigue: 70}
	candidates := []domain.CandidateStep{{ContentID: "c1", CompetencyID: "k1", Domain: "math"}}

	if fired := firstFiringRule([]domain.AdaptationRule{disabled, elsewhere}, candidates, inputs); fired != nil {
		t.Fatalf("fired = %+v, want nil", fired)
	}
}

func TestEvaluateDecisionGateRuleShortCircuits(t *testing.T) {
	svc, _, _, rules := newTestAdaptation()
	tenantID, learnerID := uuid.New(), uuid.New()

	rule := validRule(tenantID)
	rule.ID = uuid.New()
	// A fresh profile averages the 0.3 prior, so this fires immediately.
	rule.Conditions = []domain.RuleCondition{{Metric: domain.MetricMastery, Op: domain.OpLT, Value: 0.5}}
	rule.Action = domain.RuleAction{Type: domain.ActionAdjustDifficulty, DifficultyDelta: -1}
	rules.rules = []domain.AdaptationRule{*rule}

	candidates := []domain.CandidateStep{{ContentID: "c1", CompetencyID: "k1", DurationMinutes: 10}}
	result, err := svc.EvaluateDecisionGate(context.Background(), tenantID, learnerID, "", candidates)
	if err != nil {
		t.Fatalf("EvaluateDecisionGate: %v", err)
	}
	if result.RuleFired == nil || result.RuleFired.Name != rule.Name {
		t.Fatalf("rule fired = %+v, want %q", result.RuleFired, rule.Name)
	}
	if result.Action == nil || result.Action.Type != domain.ActionAdjustDifficulty {
		t.Fatalf("action = %+v, want adjust_difficulty", result.Action)
	}
	if result.Scores != nil || result.Recommended != nil {
		t.Fatal("a fired rule must bypass default scoring")
	}
}

func TestEvaluateDecisionGateFallsBackToScoring(t *testing.T) {
	svc, _, _, _ := newTestAdaptation()
	tenantID, learnerID := uuid.New(), uuid.New()

	candidates := []domain.CandidateStep{
		{ContentID: "c1", CompetencyID: "k1", DurationMinutes: 10},
		{ContentID: "c2", CompetencyID: "k2", DurationMinutes: 20},
	}
	result, err := svc.EvaluateDecisionGate(context.Background(), tenantID, learnerID, "", candidates)
	if err != nil {
		t.Fatalf("EvaluateDecisionGate: %v", err)
	}
	if result.RuleFired != nil {
		t.Fatal("no rules configured, none should fire")
	}
	if len(result.Scores) != 2 {
		t.Fatalf("scores = %d, want 2", len(result.Scores))
	}
	if result.Recommended == nil || result.Recommended.Step.ContentID != result.Scores[0].Step.ContentID {
		t.Fatal("recommended must be the top-ranked score")
	}
}
