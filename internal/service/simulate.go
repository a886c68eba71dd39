package service

import (
	"fmt"
	"math"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
)

// simCompetency is the projected BKT state of one competency during replay.
type simCompetency struct {
	pKnown float64
	pLearn float64
	pGuess float64
	pSlip  float64
}

// pathSimulator replays a candidate path against a snapshot of the learner's
// profile. It never touches the stores, so the same inputs always produce the
// same trajectory.
type pathSimulator struct {
	acfg      domain.AdaptationConfig
	ocfg      domain.OptimizerConfig
	curiosity *domain.CuriosityProfile

	states     map[string]*simCompetency
	engagement float64
}

func newPathSimulator(acfg domain.AdaptationConfig, ocfg domain.OptimizerConfig, profile *domain.AdaptationProfile, curiosity *domain.CuriosityProfile) *pathSimulator {
	sim := &pathSimulator{
		acfg:      acfg,
		ocfg:      ocfg,
		curiosity: curiosity,
		states:    make(map[string]*simCompetency),
	}
	if profile != nil {
		for id, state := range profile.Competencies {
			sim.states[id] = &simCompetency{
				pKnown: state.PKnown,
				pLearn: state.PLearn,
				pGuess: state.PGuess,
				pSlip:  state.PSlip,
			}
		}
		sim.engagement = engagementProbability(profile.EMA)
	} else {
		sim.engagement = engagementProbability(nil)
	}
	return sim
}

func (sim *pathSimulator) state(competencyID string) *simCompetency {
	if s, ok := sim.states[competencyID]; ok {
		return s
	}
	s := &simCompetency{
		pKnown: sim.acfg.InitialPKnown,
		pLearn: sim.acfg.DefaultPLearn,
		pGuess: sim.acfg.DefaultPGuess,
		pSlip:  sim.acfg.DefaultPSlip,
	}
	sim.states[competencyID] = s
	return s
}

// meanMastery averages pKnown over every competency touched so far.
func (sim *pathSimulator) meanMastery() float64 {
	if len(sim.states) == 0 {
		return sim.acfg.InitialPKnown
	}
	sum := 0.0
	for _, s := range sim.states {
		sum += s.pKnown
	}
	return sum / float64(len(sim.states))
}

// expectedPosterior is the observation-marginalized BKT update: the posterior
// under a correct and an incorrect observation, weighted by the predicted
// success probability, with the learning transition applied to both branches.
func expectedPosterior(s *simCompetency, success float64) float64 {
	postCorrect := s.pKnown
	if denom := s.pKnown*(1-s.pSlip) + (1-s.pKnown)*s.pGuess; denom > 0 {
		postCorrect = s.pKnown * (1 - s.pSlip) / denom
	}
	postWrong := s.pKnown
	if denom := s.pKnown*s.pSlip + (1-s.pKnown)*(1-s.pGuess); denom > 0 {
		postWrong = s.pKnown * s.pSlip / denom
	}
	postCorrect = clamp01(postCorrect + (1-postCorrect)*s.pLearn)
	postWrong = clamp01(postWrong + (1-postWrong)*s.pLearn)
	return clamp01(success*postCorrect + (1-success)*postWrong)
}

// replay runs the full path and returns the annotated path, the step
// trajectory and the raw objective scores.
func (sim *pathSimulator) replay(steps []domain.LearningPathStep) ([]domain.LearningPathStep, []domain.SimulatedStep, map[domain.Objective]float64) {
	out := make([]domain.LearningPathStep, len(steps))
	trajectory := make([]domain.SimulatedStep, 0, len(steps))

	fatigue := 0.0
	totalGain := 0.0
	totalMinutes := 0
	engagementSum := 0.0
	fatigueSum := 0.0
	alignmentSum := 0.0
	domains := make(map[string]struct{})

	for i, step := range steps {
		c := step.Content
		if step.BreakBefore {
			fatigue = math.Max(0, fatigue-sim.ocfg.BreakRecovery)
		}

		state := sim.state(c.CompetencyID)
		dNorm := float64(c.Difficulty) / float64(sim.acfg.MaxDifficulty)
		success := 1 / (1 + math.Exp(-sim.acfg.SuccessSlope*(state.pKnown-dNorm)))

		before := state.pKnown
		state.pKnown = expectedPosterior(state, success)
		gain := state.pKnown - before
		totalGain += gain

		engagement := clamp01(sim.engagement * (1 - fatigue/150))
		fatigue = clamp100(fatigue + sim.ocfg.FatiguePerMinute*float64(c.DurationMinutes))

		totalMinutes += c.DurationMinutes
		engagementSum += engagement
		fatigueSum += fatigue
		alignmentSum += curiosityAlignment(c, sim.curiosity)
		if c.Domain != "" {
			domains[c.Domain] = struct{}{}
		}

		out[i] = domain.LearningPathStep{
			Content:              c,
			PredictedMasteryGain: gain,
			PredictedEngagement:  engagement,
			CumulativeMastery:    sim.meanMastery(),
			BreakBefore:          step.BreakBefore,
		}

		point := domain.SimulatedStep{
			Index:      i,
			ContentID:  c.ContentID,
			Mastery:    sim.meanMastery(),
			Engagement: engagement,
			Fatigue:    fatigue,
		}
		if fatigue >= sim.ocfg.FatigueRiskThreshold {
			point.Risk = fmt.Sprintf("projected fatigue %.0f after step %d, schedule a break", fatigue, i+1)
		}
		trajectory = append(trajectory, point)
	}

	n := float64(len(steps))
	breadth := float64(len(domains))
	depth := 0.0
	if breadth > 0 {
		depth = n / breadth
	}
	efficiency := 0.0
	if totalMinutes > 0 {
		efficiency = totalGain / float64(totalMinutes)
	}
	scores := map[domain.Objective]float64{
		domain.ObjectiveMastery:    totalGain,
		domain.ObjectiveEngagement: safeMean(engagementSum, n),
		domain.ObjectiveEfficiency: efficiency,
		domain.ObjectiveCuriosity:  safeMean(alignmentSum, n),
		domain.ObjectiveWellBeing:  1 - safeMean(fatigueSum, n)/100,
		domain.ObjectiveBreadth:    breadth,
		domain.ObjectiveDepth:      depth,
	}
	return out, trajectory, scores
}

func safeMean(sum, n float64) float64 {
	if n == 0 {
		return 0
	}
	return sum / n
}

// normalizeScores min-max scales every objective to [0,1] across the
// candidate set. Dominance relations are unchanged by the rescale; it exists
// so crowding distances and scalarizers see commensurable axes.
func normalizeScores(solutions []domain.ParetoSolution) {
	for _, obj := range domain.Objectives() {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := range solutions {
			v := solutions[i].Path.Scores[obj]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		span := hi - lo
		for i := range solutions {
			if solutions[i].Scores == nil {
				solutions[i].Scores = make(map[domain.Objective]float64)
			}
			if span == 0 {
				solutions[i].Scores[obj] = 1
				continue
			}
			solutions[i].Scores[obj] = (solutions[i].Path.Scores[obj] - lo) / span
		}
	}
}

// riskFactors summarizes trajectory risk flags, deduplicated in step order.
func riskFactors(trajectory []domain.SimulatedStep) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, p := range trajectory {
		if p.Risk == "" {
			continue
		}
		if _, ok := seen[p.Risk]; ok {
			continue
		}
		seen[p.Risk] = struct{}{}
		out = append(out, p.Risk)
	}
	return out
}
