package domain

import (
	"time"

	"github.com/google/uuid"
)

// SignalType classifies a learner observation consumed by the adaptation engine.
type SignalType string

const (
	SignalAccuracy     SignalType = "accuracy"
	SignalResponseTime SignalType = "response_time"
	SignalEngagement   SignalType = "engagement"
	SignalHintUsage    SignalType = "hint_usage"
	SignalSkipRate     SignalType = "skip_rate"
	SignalRetryCount   SignalType = "retry_count"
	SignalTimeOnTask   SignalType = "time_on_task"
	SignalHelpSeeking  SignalType = "help_seeking"
	SignalErrorPattern SignalType = "error_pattern"
)

// SignalTypes lists every valid signal type.
var SignalTypes = []SignalType{
	SignalAccuracy, SignalResponseTime, SignalEngagement, SignalHintUsage,
	SignalSkipRate, SignalRetryCount, SignalTimeOnTask, SignalHelpSeeking,
	SignalErrorPattern,
}

func (t SignalType) Valid() bool {
	for _, s := range SignalTypes {
		if t == s {
			return true
		}
	}
	return false
}

// AdaptationSignal is one observed learner event. Immutable once recorded.
type AdaptationSignal struct {
	ID           uuid.UUID  `json:"id"`
	TenantID     uuid.UUID  `json:"tenant_id"`
	LearnerID    uuid.UUID  `json:"learner_id"`
	Type         SignalType `json:"type"`
	Value        float64    `json:"value"`
	CompetencyID string     `json:"competency_id,omitempty"`
	Domain       string     `json:"domain,omitempty"`
	ContentID    string     `json:"content_id,omitempty"`
	SessionID    string     `json:"session_id,omitempty"`
	RecordedAt   time.Time  `json:"recorded_at"`
}

// Correct interprets an accuracy signal as a binary observation.
func (s AdaptationSignal) Correct() bool {
	return s.Type == SignalAccuracy && s.Value >= 0.5
}

// MasteryPoint is one entry in a competency's bounded mastery history.
type MasteryPoint struct {
	PKnown     float64   `json:"p_known"`
	Correct    bool      `json:"correct"`
	ObservedAt time.Time `json:"observed_at"`
}

// BKTCompetencyState is the Bayesian Knowledge Tracing state for one competency.
type BKTCompetencyState struct {
	CompetencyID string         `json:"competency_id"`
	Domain       string         `json:"domain,omitempty"`
	PLearn       float64        `json:"p_learn"`
	PGuess       float64        `json:"p_guess"`
	PSlip        float64        `json:"p_slip"`
	PKnown       float64        `json:"p_known"`
	Observations int            `json:"observations"`
	History      []MasteryPoint `json:"history,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// AdaptationProfile is the per-learner adaptation state. Created on first
// signal, mutated by every signal batch, never hard-deleted.
type AdaptationProfile struct {
	TenantID          uuid.UUID                      `json:"tenant_id"`
	LearnerID         uuid.UUID                      `json:"learner_id"`
	Competencies      map[string]*BKTCompetencyState `json:"competencies"`
	EMA               map[SignalType]float64         `json:"ema"`
	CurrentDifficulty int                            `json:"current_difficulty"`
	TargetSuccessRate float64                        `json:"target_success_rate"`
	SessionsObserved  int                            `json:"sessions_observed"`
	TotalSignals      int                            `json:"total_signals"`
	CreatedAt         time.Time                      `json:"created_at"`
	UpdatedAt         time.Time                      `json:"updated_at"`
}

// TrendDirection classifies the slope of recent mastery history.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendDeclining TrendDirection = "declining"
)

// MasteryEstimate is the derived mastery view for one competency.
type MasteryEstimate struct {
	CompetencyID string         `json:"competency_id"`
	PKnown       float64        `json:"p_known"`
	Zone         CompetencyZone `json:"zone"`
	Trend        TrendDirection `json:"trend"`
	Confidence   float64        `json:"confidence"`
	Observations int            `json:"observations"`
}

// CompetencyZone classifies a competency against the learner's ZPD band.
type CompetencyZone string

const (
	ZoneBeyondReach CompetencyZone = "beyond_reach"
	ZoneZPD         CompetencyZone = "zpd"
	ZoneMastered    CompetencyZone = "mastered"
)

// ZPDRange is derived per domain, never stored.
type ZPDRange struct {
	Domain            string                    `json:"domain,omitempty"`
	LowerBound        float64                   `json:"lower_bound"`
	UpperBound        float64                   `json:"upper_bound"`
	OptimalDifficulty int                       `json:"optimal_difficulty"`
	Zones             map[string]CompetencyZone `json:"zones"`
}

// FatigueRecommendation is the ordered recommendation ladder. Higher fatigue
// scores map to later rungs, never earlier ones.
type FatigueRecommendation string

const (
	FatigueContinue         FatigueRecommendation = "continue"
	FatigueReduceDifficulty FatigueRecommendation = "reduce_difficulty"
	FatigueSwitchTopic      FatigueRecommendation = "switch_topic"
	FatigueTakeBreak        FatigueRecommendation = "take_break"
	FatigueEndSession       FatigueRecommendation = "end_session"
)

// Rung returns the position of the recommendation on the ladder.
func (r FatigueRecommendation) Rung() int {
	switch r {
	case FatigueContinue:
		return 0
	case FatigueReduceDifficulty:
		return 1
	case FatigueSwitchTopic:
		return 2
	case FatigueTakeBreak:
		return 3
	case FatigueEndSession:
		return 4
	}
	return -1
}

// FatigueComponents are the five weighted 0-100 inputs to the overall score.
type FatigueComponents struct {
	AccuracyDecline      float64 `json:"accuracy_decline"`
	ResponseTimeIncrease float64 `json:"response_time_increase"`
	HintUsageIncrease    float64 `json:"hint_usage_increase"`
	SessionDuration      float64 `json:"session_duration"`
	ErrorBurstiness      float64 `json:"error_burstiness"`
}

// FatigueAssessment is a per-session fatigue snapshot.
type FatigueAssessment struct {
	SessionID      string                `json:"session_id"`
	OverallScore   float64               `json:"overall_score"`
	Components     FatigueComponents     `json:"components"`
	Recommendation FatigueRecommendation `json:"recommendation"`
	AssessedAt     time.Time             `json:"assessed_at"`
}

// CandidateStep is content-catalogue metadata for one candidate next step.
type CandidateStep struct {
	ContentID       string   `json:"content_id"`
	CompetencyID    string   `json:"competency_id"`
	Domain          string   `json:"domain"`
	Difficulty      int      `json:"difficulty"`
	DurationMinutes int      `json:"duration_minutes"`
	Prerequisites   []string `json:"prerequisites,omitempty"`
	Topics          []string `json:"topics,omitempty"`
}

// StepScoreComponents is the per-component breakdown of a candidate score.
type StepScoreComponents struct {
	MasteryGain           float64 `json:"mastery_gain"`
	EngagementProbability float64 `json:"engagement_probability"`
	TimeEfficiency        float64 `json:"time_efficiency"`
	PrerequisiteCoverage  float64 `json:"prerequisite_coverage"`
	CuriosityAlignment    float64 `json:"curiosity_alignment"`
}

// StepScore is one scored candidate with its audit trail.
type StepScore struct {
	Step       CandidateStep       `json:"step"`
	Total      float64             `json:"total"`
	Components StepScoreComponents `json:"components"`
	Reasoning  string              `json:"reasoning"`
}

// DecisionGateResult is the outcome of a decision-gate evaluation: either a
// fired rule's action or the default scoring ranking.
type DecisionGateResult struct {
	RuleFired   *AdaptationRule `json:"rule_fired,omitempty"`
	Action      *RuleAction     `json:"action,omitempty"`
	Scores      []StepScore     `json:"scores,omitempty"`
	Recommended *StepScore      `json:"recommended,omitempty"`
}

// StepWeights are the decision-gate component weights. Tunable defaults, not
// derived constants.
type StepWeights struct {
	MasteryGain           float64
	EngagementProbability float64
	TimeEfficiency        float64
	PrerequisiteCoverage  float64
	CuriosityAlignment    float64
}

// FatigueWeights combine the five fatigue components into the overall score.
type FatigueWeights struct {
	AccuracyDecline      float64
	ResponseTimeIncrease float64
	HintUsageIncrease    float64
	SessionDuration      float64
	ErrorBurstiness      float64
}

// AdaptationConfig carries the adaptation engine's tunables. Zero ambient
// state: every engine is constructed with its own copy.
type AdaptationConfig struct {
	ZPDLowerThreshold float64
	ZPDUpperThreshold float64
	TargetSuccessRate float64

	InitialPKnown float64
	DefaultPLearn float64
	DefaultPGuess float64
	DefaultPSlip  float64

	EMAAlpha            float64
	MasteryHistoryLimit int
	TrendWindow         int
	TrendSlopeEpsilon   float64

	MinDifficulty int
	MaxDifficulty int
	// SuccessSlope is the steepness of the logistic mapping from
	// mastery-minus-difficulty to predicted success probability.
	SuccessSlope float64

	StepWeights    StepWeights
	FatigueWeights FatigueWeights
	// FatigueThresholds are the four ladder cut points, ascending.
	FatigueThresholds [4]float64
}

func DefaultAdaptationConfig() AdaptationConfig {
	return AdaptationConfig{
		ZPDLowerThreshold: 0.4,
		ZPDUpperThreshold: 0.95,
		TargetSuccessRate: 0.8,

		InitialPKnown: 0.3,
		DefaultPLearn: 0.2,
		DefaultPGuess: 0.2,
		DefaultPSlip:  0.1,

		EMAAlpha:            0.3,
		MasteryHistoryLimit: 50,
		TrendWindow:         5,
		TrendSlopeEpsilon:   0.005,

		MinDifficulty: 1,
		MaxDifficulty: 10,
		SuccessSlope:  5.0,

		StepWeights: StepWeights{
			MasteryGain:           0.30,
			EngagementProbability: 0.20,
			TimeEfficiency:        0.15,
			PrerequisiteCoverage:  0.15,
			CuriosityAlignment:    0.20,
		},
		FatigueWeights: FatigueWeights{
			AccuracyDecline:      0.25,
			ResponseTimeIncrease: 0.20,
			HintUsageIncrease:    0.15,
			SessionDuration:      0.20,
			ErrorBurstiness:      0.20,
		},
		FatigueThresholds: [4]float64{25, 45, 60, 80},
	}
}
