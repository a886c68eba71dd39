package service

import (
	"time"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
)

// bktUpdate applies one binary observation to a competency state: Bayesian
// evidence update followed by the learning transition. The learning step only
// adds probability mass, so the result never drops below the evidence-updated
// estimate. A zero denominator keeps the prior pKnown.
func bktUpdate(state *domain.BKTCompetencyState, correct bool, at time.Time, historyLimit int) {
	pEvidence := state.PKnown
	if correct {
		denom := state.PKnown*(1-state.PSlip) + (1-state.PKnown)*state.PGuess
		if denom > 0 {
			pEvidence = state.PKnown * (1 - state.PSlip) / denom
		}
	} else {
		denom := state.PKnown*state.PSlip + (1-state.PKnown)*(1-state.PGuess)
		if denom > 0 {
			pEvidence = state.PKnown * state.PSlip / denom
		}
	}

	state.PKnown = clamp01(pEvidence + (1-pEvidence)*state.PLearn)
	state.Observations++
	state.UpdatedAt = at

	state.History = append(state.History, domain.MasteryPoint{
		PKnown:     state.PKnown,
		Correct:    correct,
		ObservedAt: at,
	})
	if historyLimit > 0 && len(state.History) > historyLimit {
		state.History = state.History[len(state.History)-historyLimit:]
	}
}

// bktConfidence grows with observation count with diminishing returns.
func bktConfidence(observations int) float64 {
	if observations < 0 {
		observations = 0
	}
	return 1 - 1/float64(1+observations)
}

// masteryTrend classifies the slope of the last window history points.
func masteryTrend(history []domain.MasteryPoint, window int, epsilon float64) domain.TrendDirection {
	if window < 2 {
		window = 2
	}
	if len(history) < 2 {
		return domain.TrendStable
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	// Least-squares slope over index positions.
	n := float64(len(history))
	var sumX, sumY, sumXY, sumXX float64
	for i, p := range history {
		x := float64(i)
		sumX += x
		sumY += p.PKnown
		sumXY += x * p.PKnown
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return domain.TrendStable
	}
	slope := (n*sumXY - sumX*sumY) / denom

	switch {
	case slope > epsilon:
		return domain.TrendImproving
	case slope < -epsilon:
		return domain.TrendDeclining
	default:
		return domain.TrendStable
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
