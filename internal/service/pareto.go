package service

import (
	"math"
	"sort"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
)

// dominates reports whether a is at least as good as b on every objective and
// strictly better on at least one. Scores are higher-is-better.
func dominates(a, b map[domain.Objective]float64) bool {
	strictly := false
	for _, obj := range domain.Objectives() {
		av, bv := a[obj], b[obj]
		if av < bv {
			return false
		}
		if av > bv {
			strictly = true
		}
	}
	return strictly
}

// nonDominatedSort assigns dominance ranks in place: rank 0 is the
// non-dominated set, rank 1 the non-dominated set of the remainder, etc.
func nonDominatedSort(solutions []domain.ParetoSolution) {
	n := len(solutions)
	dominatedBy := make([]int, n)
	dominated := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if dominates(solutions[i].Scores, solutions[j].Scores) {
				dominated[i] = append(dominated[i], j)
			} else if dominates(solutions[j].Scores, solutions[i].Scores) {
				dominatedBy[i]++
			}
		}
	}

	var current []int
	for i := 0; i < n; i++ {
		if dominatedBy[i] == 0 {
			solutions[i].Rank = 0
			current = append(current, i)
		}
	}
	rank := 0
	for len(current) > 0 {
		var next []int
		for _, i := range current {
			for _, j := range dominated[i] {
				dominatedBy[j]--
				if dominatedBy[j] == 0 {
					solutions[j].Rank = rank + 1
					next = append(next, j)
				}
			}
		}
		rank++
		current = next
	}
}

// crowdingDistances computes, within one rank, the sum over objectives of the
// normalized gap between each solution's neighbours. Boundary solutions get
// +Inf so diversity trimming keeps the extremes.
func crowdingDistances(solutions []domain.ParetoSolution, indices []int) {
	for _, i := range indices {
		solutions[i].CrowdingDistance = 0
	}
	if len(indices) <= 2 {
		for _, i := range indices {
			solutions[i].CrowdingDistance = math.Inf(1)
		}
		return
	}
	for _, obj := range domain.Objectives() {
		order := make([]int, len(indices))
		copy(order, indices)
		sort.SliceStable(order, func(a, b int) bool {
			return solutions[order[a]].Scores[obj] < solutions[order[b]].Scores[obj]
		})
		lo := solutions[order[0]].Scores[obj]
		hi := solutions[order[len(order)-1]].Scores[obj]
		span := hi - lo
		solutions[order[0]].CrowdingDistance = math.Inf(1)
		solutions[order[len(order)-1]].CrowdingDistance = math.Inf(1)
		if span == 0 {
			continue
		}
		for k := 1; k < len(order)-1; k++ {
			gap := (solutions[order[k+1]].Scores[obj] - solutions[order[k-1]].Scores[obj]) / span
			solutions[order[k]].CrowdingDistance += gap
		}
	}
}

// buildFront ranks candidates, computes crowding distances per rank, and
// returns solutions ordered by (rank asc, crowding desc), trimmed to limit.
func buildFront(solutions []domain.ParetoSolution, limit int) []domain.ParetoSolution {
	if len(solutions) == 0 {
		return nil
	}
	nonDominatedSort(solutions)

	byRank := make(map[int][]int)
	for i := range solutions {
		byRank[solutions[i].Rank] = append(byRank[solutions[i].Rank], i)
	}
	for _, indices := range byRank {
		crowdingDistances(solutions, indices)
	}

	sort.SliceStable(solutions, func(i, j int) bool {
		if solutions[i].Rank != solutions[j].Rank {
			return solutions[i].Rank < solutions[j].Rank
		}
		return solutions[i].CrowdingDistance > solutions[j].CrowdingDistance
	})
	if limit > 0 && len(solutions) > limit {
		solutions = solutions[:limit]
	}
	return solutions
}

// selectTchebycheff picks the rank-0 solution minimizing the weighted
// Tchebycheff distance to the ideal point. Unlike a weighted sum it can reach
// compromise solutions on non-convex regions of the front.
func selectTchebycheff(front []domain.ParetoSolution, weights domain.ObjectiveWeights) int {
	ideal := make(map[domain.Objective]float64)
	for _, obj := range domain.Objectives() {
		best := math.Inf(-1)
		for i := range front {
			if front[i].Rank != 0 {
				continue
			}
			if v := front[i].Scores[obj]; v > best {
				best = v
			}
		}
		ideal[obj] = best
	}

	bestIdx := -1
	bestDist := math.Inf(1)
	for i := range front {
		if front[i].Rank != 0 {
			continue
		}
		dist := 0.0
		for _, obj := range domain.Objectives() {
			d := weights.Get(obj) * math.Abs(ideal[obj]-front[i].Scores[obj])
			if d > dist {
				dist = d
			}
		}
		if dist < bestDist {
			bestDist = dist
			bestIdx = i
		}
	}
	return bestIdx
}

// selectWeightedSum picks the rank-0 solution with the highest weighted sum.
func selectWeightedSum(front []domain.ParetoSolution, weights domain.ObjectiveWeights) int {
	bestIdx := -1
	best := math.Inf(-1)
	for i := range front {
		if front[i].Rank != 0 {
			continue
		}
		sum := 0.0
		for _, obj := range domain.Objectives() {
			sum += weights.Get(obj) * front[i].Scores[obj]
		}
		if sum > best {
			best = sum
			bestIdx = i
		}
	}
	return bestIdx
}

// epsilonFloor is the fraction of each secondary objective's best value a
// solution must retain under epsilon-constraint selection.
const epsilonFloor = 0.5

// selectEpsilonConstraint maximizes the heaviest-weighted objective subject
// to every other objective staying within epsilonFloor of its best.
func selectEpsilonConstraint(front []domain.ParetoSolution, weights domain.ObjectiveWeights) int {
	primary := domain.ObjectiveMastery
	for _, obj := range domain.Objectives() {
		if weights.Get(obj) > weights.Get(primary) {
			primary = obj
		}
	}

	best := make(map[domain.Objective]float64)
	for _, obj := range domain.Objectives() {
		v := math.Inf(-1)
		for i := range front {
			if front[i].Rank != 0 {
				continue
			}
			if front[i].Scores[obj] > v {
				v = front[i].Scores[obj]
			}
		}
		best[obj] = v
	}

	pick := func(relaxed bool) int {
		bestIdx := -1
		bestVal := math.Inf(-1)
		for i := range front {
			if front[i].Rank != 0 {
				continue
			}
			if !relaxed {
				feasible := true
				for _, obj := range domain.Objectives() {
					if obj == primary {
						continue
					}
					if front[i].Scores[obj] < epsilonFloor*best[obj] {
						feasible = false
						break
					}
				}
				if !feasible {
					continue
				}
			}
			if v := front[i].Scores[primary]; v > bestVal {
				bestVal = v
				bestIdx = i
			}
		}
		return bestIdx
	}

	if idx := pick(false); idx >= 0 {
		return idx
	}
	return pick(true)
}

func selectFromFront(front []domain.ParetoSolution, weights domain.ObjectiveWeights, method domain.Scalarization) int {
	switch method {
	case domain.ScalarizeWeightedSum:
		return selectWeightedSum(front, weights)
	case domain.ScalarizeEpsilonConstraint:
		return selectEpsilonConstraint(front, weights)
	default:
		return selectTchebycheff(front, weights)
	}
}
