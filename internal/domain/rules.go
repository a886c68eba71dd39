package domain

import (
	"time"

	"github.com/google/uuid"
)

// RuleScope determines which decisions a rule can override. Narrower scopes
// win ties against broader ones.
type RuleScope string

const (
	ScopeGlobal     RuleScope = "global"
	ScopeDomain     RuleScope = "domain"
	ScopeCompetency RuleScope = "competency"
)

// Specificity orders scopes for tie-breaking: competency > domain > global.
func (s RuleScope) Specificity() int {
	switch s {
	case ScopeCompetency:
		return 2
	case ScopeDomain:
		return 1
	case ScopeGlobal:
		return 0
	}
	return -1
}

type ConditionLogic string

const (
	LogicAnd ConditionLogic = "and"
	LogicOr  ConditionLogic = "or"
)

type ConditionOp string

const (
	OpGT      ConditionOp = "gt"
	OpGTE     ConditionOp = "gte"
	OpLT      ConditionOp = "lt"
	OpLTE     ConditionOp = "lte"
	OpEQ      ConditionOp = "eq"
	OpNEQ     ConditionOp = "neq"
	OpBetween ConditionOp = "between"
)

// Derived metrics referencable by rule conditions, in addition to any raw
// SignalType name.
const (
	MetricMastery         = "mastery"
	MetricFatigue         = "fatigue"
	MetricSessionDuration = "session_duration"
	MetricStreak          = "streak"
)

// RuleCondition compares one named metric against a value. UpperValue is only
// set for the between operator.
type RuleCondition struct {
	Metric     string      `json:"metric"`
	Op         ConditionOp `json:"op"`
	Value      float64     `json:"value"`
	UpperValue *float64    `json:"upper_value,omitempty"`
}

type RuleActionType string

const (
	ActionAdjustDifficulty RuleActionType = "adjust_difficulty"
	ActionSwitchTopic      RuleActionType = "switch_topic"
	ActionTakeBreak        RuleActionType = "take_break"
	ActionEndSession       RuleActionType = "end_session"
	ActionPinCompetency    RuleActionType = "pin_competency"
)

// RuleAction is the single action applied when a rule fires. The payload
// fields are a closed set per action type, not a free-form bag.
type RuleAction struct {
	Type            RuleActionType `json:"type"`
	DifficultyDelta int            `json:"difficulty_delta,omitempty"`
	CompetencyID    string         `json:"competency_id,omitempty"`
}

// AdaptationRule is a tenant-configured decision-gate override. CRUD by tenant
// admins; the engine evaluates, never mutates.
type AdaptationRule struct {
	ID         uuid.UUID       `json:"id"`
	TenantID   uuid.UUID       `json:"tenant_id"`
	Name       string          `json:"name"`
	Scope      RuleScope       `json:"scope"`
	ScopeKey   string          `json:"scope_key,omitempty"`
	Priority   int             `json:"priority"`
	Logic      ConditionLogic  `json:"logic"`
	Conditions []RuleCondition `json:"conditions"`
	Action     RuleAction      `json:"action"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// RuleInputs is the metric snapshot a rule set is evaluated against.
type RuleInputs struct {
	Mastery         float64                `json:"mastery"`
	Fatigue         float64                `json:"fatigue"`
	SessionDuration float64                `json:"session_duration"`
	Streak          float64                `json:"streak"`
	Signals         map[SignalType]float64 `json:"signals,omitempty"`
}

// Lookup resolves a condition metric name against the snapshot.
func (in RuleInputs) Lookup(metric string) (float64, bool) {
	switch metric {
	case MetricMastery:
		return in.Mastery, true
	case MetricFatigue:
		return in.Fatigue, true
	case MetricSessionDuration:
		return in.SessionDuration, true
	case MetricStreak:
		return in.Streak, true
	}
	if st := SignalType(metric); st.Valid() {
		v, ok := in.Signals[st]
		return v, ok
	}
	return 0, false
}
