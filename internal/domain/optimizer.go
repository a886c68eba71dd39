package domain

import (
	"time"

	"github.com/google/uuid"
)

// Objective names one axis of the multi-objective path search. All objectives
// are normalized so that higher is better.
type Objective string

const (
	ObjectiveMastery    Objective = "mastery"
	ObjectiveEngagement Objective = "engagement"
	ObjectiveEfficiency Objective = "efficiency"
	ObjectiveCuriosity  Objective = "curiosity"
	ObjectiveWellBeing  Objective = "well_being"
	ObjectiveBreadth    Objective = "breadth"
	ObjectiveDepth      Objective = "depth"
)

// Objectives returns all objectives in canonical order. Iteration over score
// maps goes through this slice so results are deterministic.
func Objectives() []Objective {
	return []Objective{
		ObjectiveMastery, ObjectiveEngagement, ObjectiveEfficiency,
		ObjectiveCuriosity, ObjectiveWellBeing, ObjectiveBreadth, ObjectiveDepth,
	}
}

// ObjectiveWeights is the per-learner/cohort preference vector.
type ObjectiveWeights struct {
	Mastery    float64 `json:"mastery"`
	Engagement float64 `json:"engagement"`
	Efficiency float64 `json:"efficiency"`
	Curiosity  float64 `json:"curiosity"`
	WellBeing  float64 `json:"well_being"`
	Breadth    float64 `json:"breadth"`
	Depth      float64 `json:"depth"`
}

func DefaultObjectiveWeights() ObjectiveWeights {
	return ObjectiveWeights{
		Mastery:    0.25,
		Engagement: 0.15,
		Efficiency: 0.15,
		Curiosity:  0.15,
		WellBeing:  0.15,
		Breadth:    0.075,
		Depth:      0.075,
	}
}

// Get returns the weight for one objective.
func (w ObjectiveWeights) Get(o Objective) float64 {
	switch o {
	case ObjectiveMastery:
		return w.Mastery
	case ObjectiveEngagement:
		return w.Engagement
	case ObjectiveEfficiency:
		return w.Efficiency
	case ObjectiveCuriosity:
		return w.Curiosity
	case ObjectiveWellBeing:
		return w.WellBeing
	case ObjectiveBreadth:
		return w.Breadth
	case ObjectiveDepth:
		return w.Depth
	}
	return 0
}

// Normalized returns a copy scaled to sum to 1. A zero vector falls back to
// the defaults.
func (w ObjectiveWeights) Normalized() ObjectiveWeights {
	sum := w.Mastery + w.Engagement + w.Efficiency + w.Curiosity + w.WellBeing + w.Breadth + w.Depth
	if sum <= 0 {
		return DefaultObjectiveWeights()
	}
	return ObjectiveWeights{
		Mastery:    w.Mastery / sum,
		Engagement: w.Engagement / sum,
		Efficiency: w.Efficiency / sum,
		Curiosity:  w.Curiosity / sum,
		WellBeing:  w.WellBeing / sum,
		Breadth:    w.Breadth / sum,
		Depth:      w.Depth / sum,
	}
}

// Valid reports whether every weight is non-negative and at least one is set.
func (w ObjectiveWeights) Valid() bool {
	vals := []float64{w.Mastery, w.Engagement, w.Efficiency, w.Curiosity, w.WellBeing, w.Breadth, w.Depth}
	sum := 0.0
	for _, v := range vals {
		if v < 0 {
			return false
		}
		sum += v
	}
	return sum > 0
}

// PathConstraints are the hard constraints on candidate generation.
// Infeasible candidates are excluded outright, never score-penalized.
type PathConstraints struct {
	MandatoryCompetencies []string `json:"mandatory_competencies,omitempty"`
	ExcludedCompetencies  []string `json:"excluded_competencies,omitempty"`
	PreferredDomains      []string `json:"preferred_domains,omitempty"`
	AvoidedDomains        []string `json:"avoided_domains,omitempty"`
	MaxDailyMinutes       int      `json:"max_daily_minutes,omitempty"`
	MaxConsecutiveMinutes int      `json:"max_consecutive_minutes,omitempty"`
	MinBreakMinutes       int      `json:"min_break_minutes,omitempty"`
	MaxDifficultyJump     int      `json:"max_difficulty_jump,omitempty"`
	EnforcePrerequisites  bool     `json:"enforce_prerequisites,omitempty"`
	MaxSteps              int      `json:"max_steps,omitempty"`
}

// LearningPathStep is one step of a candidate path with its predicted effects.
type LearningPathStep struct {
	Content              CandidateStep `json:"content"`
	PredictedMasteryGain float64       `json:"predicted_mastery_gain"`
	PredictedEngagement  float64       `json:"predicted_engagement"`
	CumulativeMastery    float64       `json:"cumulative_mastery"`
	BreakBefore          bool          `json:"break_before,omitempty"`
}

// LearningPath is a candidate ordered content sequence, constructed
// transiently per optimization request.
type LearningPath struct {
	ID           string                `json:"id"`
	Steps        []LearningPathStep    `json:"steps"`
	TotalMinutes int                   `json:"total_minutes"`
	Scores       map[Objective]float64 `json:"scores"`
}

// ParetoSolution is one candidate with its dominance rank and crowding
// distance within the result set.
type ParetoSolution struct {
	Path             LearningPath          `json:"path"`
	Scores           map[Objective]float64 `json:"scores"`
	Rank             int                   `json:"rank"`
	CrowdingDistance float64               `json:"crowding_distance"`
}

// Scalarization selects how one solution is picked from the Pareto front.
type Scalarization string

const (
	ScalarizeTchebycheff       Scalarization = "tchebycheff"
	ScalarizeWeightedSum       Scalarization = "weighted_sum"
	ScalarizeEpsilonConstraint Scalarization = "epsilon_constraint"
)

// OptimizationResult is the outcome of a path optimization.
type OptimizationResult struct {
	Recommended   *ParetoSolution `json:"recommended"`
	Alternatives  []ParetoSolution `json:"alternatives,omitempty"`
	Evaluated     int             `json:"evaluated"`
	Elapsed       time.Duration   `json:"elapsed"`
	TimedOut      bool            `json:"timed_out"`
	Scalarization Scalarization   `json:"scalarization"`
}

// SimulatedStep is one point of a path replay trajectory.
type SimulatedStep struct {
	Index      int     `json:"index"`
	ContentID  string  `json:"content_id"`
	Mastery    float64 `json:"mastery"`
	Engagement float64 `json:"engagement"`
	Fatigue    float64 `json:"fatigue"`
	Risk       string  `json:"risk,omitempty"`
}

// PathSimulation replays a path against current learner state.
type PathSimulation struct {
	Steps        []SimulatedStep       `json:"steps"`
	FinalMastery float64               `json:"final_mastery"`
	Scores       map[Objective]float64 `json:"scores"`
	RiskFactors  []string              `json:"risk_factors,omitempty"`
}

// PathComparison is a per-objective winner table for two paths.
type PathComparison struct {
	Winners map[Objective]string `json:"winners"`
	Overall string               `json:"overall"`
	Summary string               `json:"summary"`
}

// OptimizationEvent is the audit record of one optimization request.
type OptimizationEvent struct {
	ID              uuid.UUID     `json:"id"`
	TenantID        uuid.UUID     `json:"tenant_id"`
	LearnerID       uuid.UUID     `json:"learner_id"`
	RecommendedPath string        `json:"recommended_path,omitempty"`
	CandidateCount  int           `json:"candidate_count"`
	FrontSize       int           `json:"front_size"`
	Elapsed         time.Duration `json:"elapsed"`
	TimedOut        bool          `json:"timed_out"`
	CreatedAt       time.Time     `json:"created_at"`
}

// OptimizerConfig bounds the path search. The search degrades gracefully when
// a bound is hit: the best front found so far is returned.
type OptimizerConfig struct {
	BeamWidth      int
	MaxPathLength  int
	MaxCandidates  int
	StepBudget     int
	MaxFrontSize   int
	MaxAlternatives int
	// FatigueRiskThreshold flags simulated steps whose projected fatigue
	// clears the take_break rung.
	FatigueRiskThreshold float64
	// FatiguePerMinute is the projected fatigue accumulation per content
	// minute during simulation; breaks reset part of it.
	FatiguePerMinute  float64
	BreakRecovery     float64
	DefaultScalarizer Scalarization
}

func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		BeamWidth:       8,
		MaxPathLength:   8,
		MaxCandidates:   64,
		StepBudget:      20000,
		MaxFrontSize:    10,
		MaxAlternatives: 4,

		FatigueRiskThreshold: 60,
		FatiguePerMinute:     0.9,
		BreakRecovery:        25,
		DefaultScalarizer:    ScalarizeTchebycheff,
	}
}
