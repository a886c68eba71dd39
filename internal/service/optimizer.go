package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OptimizerService searches for learning paths that balance the seven
// objectives. It reads mastery state through the adaptation engine and
// interest state through the curiosity engine; it never mutates either.
type OptimizerService struct {
	adaptation   *AdaptationService
	catalog      domain.ContentCatalog
	weightsStore domain.ObjectiveWeightsStore
	eventStore   domain.OptimizationEventStore
	cfg          domain.OptimizerConfig
	acfg         domain.AdaptationConfig
	logger       *zap.Logger

	curiosity CuriosityReader
	now       func() time.Time
}

func NewOptimizerService(
	adaptation *AdaptationService,
	catalog domain.ContentCatalog,
	weightsStore domain.ObjectiveWeightsStore,
	eventStore domain.OptimizationEventStore,
	cfg domain.OptimizerConfig,
	acfg domain.AdaptationConfig,
	logger *zap.Logger,
) *OptimizerService {
	return &OptimizerService{
		adaptation:   adaptation,
		catalog:      catalog,
		weightsStore: weightsStore,
		eventStore:   eventStore,
		cfg:          cfg,
		acfg:         acfg,
		logger:       logger,
		now:          time.Now,
	}
}

// SetCuriosityReader wires the curiosity engine into path scoring. Without it
// the curiosity objective scores zero for every candidate.
func (s *OptimizerService) SetCuriosityReader(r CuriosityReader) {
	s.curiosity = r
}

// SetClock overrides the time source. Used by tests to freeze "now".
func (s *OptimizerService) SetClock(now func() time.Time) {
	s.now = now
}

// partialPath is one beam-search state. covered tracks competencies taught
// earlier in the path so prerequisites can be satisfied in-path.
type partialPath struct {
	steps          []domain.LearningPathStep
	minutes        int
	consecutive    int
	lastDifficulty int
	used           map[string]struct{}
	covered        map[string]struct{}
	key            string
	scores         map[domain.Objective]float64
}

func (p *partialPath) extend(c domain.CandidateStep, breakBefore bool) *partialPath {
	next := &partialPath{
		steps:          make([]domain.LearningPathStep, len(p.steps), len(p.steps)+1),
		minutes:        p.minutes + c.DurationMinutes,
		consecutive:    p.consecutive + c.DurationMinutes,
		lastDifficulty: c.Difficulty,
		used:           make(map[string]struct{}, len(p.used)+1),
		covered:        make(map[string]struct{}, len(p.covered)+1),
		key:            p.key + "/" + c.ContentID,
	}
	copy(next.steps, p.steps)
	next.steps = append(next.steps, domain.LearningPathStep{Content: c, BreakBefore: breakBefore})
	if breakBefore {
		next.consecutive = c.DurationMinutes
	}
	for id := range p.used {
		next.used[id] = struct{}{}
	}
	for id := range p.covered {
		next.covered[id] = struct{}{}
	}
	next.used[c.ContentID] = struct{}{}
	next.covered[c.CompetencyID] = struct{}{}
	return next
}

// OptimizePath runs the beam search under hard constraints and returns the
// Pareto front with one scalarized recommendation. Hitting the deadline or
// step budget returns the best front found so far; an empty feasible set is
// an error, never a silently empty result.
func (s *OptimizerService) OptimizePath(ctx context.Context, tenantID, learnerID uuid.UUID, constraints domain.PathConstraints, method domain.Scalarization) (*domain.OptimizationResult, error) {
	if tenantID == uuid.Nil || learnerID == uuid.Nil {
		return nil, domain.NewValidationError("tenant id and learner id are required")
	}
	switch method {
	case "":
		method = s.cfg.DefaultScalarizer
	case domain.ScalarizeTchebycheff, domain.ScalarizeWeightedSum, domain.ScalarizeEpsilonConstraint:
	default:
		return nil, domain.NewValidationError("unknown scalarization %q", method)
	}

	started := s.now()
	profile, err := s.adaptation.loadOrCreateProfile(ctx, tenantID, learnerID)
	if err != nil {
		return nil, err
	}
	curiosity := s.curiosityProfile(ctx, tenantID, learnerID)
	weights, err := s.GetObjectiveWeights(ctx, tenantID, learnerID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.feasibleCandidates(ctx, tenantID, constraints)
	if err != nil {
		return nil, err
	}

	maxLen := s.cfg.MaxPathLength
	if constraints.MaxSteps > 0 && constraints.MaxSteps < maxLen {
		maxLen = constraints.MaxSteps
	}

	mastered := make(map[string]struct{})
	for id, state := range profile.Competencies {
		if state.PKnown >= s.acfg.ZPDUpperThreshold {
			mastered[id] = struct{}{}
		}
	}

	root := &partialPath{
		lastDifficulty: profile.CurrentDifficulty,
		used:           make(map[string]struct{}),
		covered:        make(map[string]struct{}),
	}
	frontier := []*partialPath{root}
	var complete []*partialPath
	evaluated := 0
	stopped := false

search:
	for depth := 0; depth < maxLen && len(frontier) > 0; depth++ {
		var expanded []*partialPath
		for _, p := range frontier {
			for _, c := range candidates {
				if ctx.Err() != nil || evaluated >= s.cfg.StepBudget {
					stopped = true
					break search
				}
				next, ok := s.tryExtend(p, c, constraints, mastered)
				if !ok {
					continue
				}
				sim := newPathSimulator(s.acfg, s.cfg, profile, curiosity)
				next.steps, _, next.scores = sim.replay(next.steps)
				evaluated++
				expanded = append(expanded, next)
				if coversMandatory(next.covered, constraints.MandatoryCompetencies) {
					complete = append(complete, next)
				}
			}
		}
		rankFrontier(expanded, weights)
		if len(expanded) > s.cfg.BeamWidth {
			expanded = expanded[:s.cfg.BeamWidth]
		}
		frontier = expanded

		// Keep the dominance sort tractable when mandatory coverage is loose.
		if len(complete) > s.cfg.MaxCandidates {
			rankFrontier(complete, weights)
			complete = complete[:s.cfg.MaxCandidates]
		}
	}

	if len(complete) == 0 {
		if stopped {
			return nil, domain.NewTimeoutError("path search exhausted its budget before finding a feasible path")
		}
		return nil, ErrNoFeasiblePath
	}

	solutions := s.buildSolutions(complete)
	front := buildFront(solutions, s.cfg.MaxFrontSize)
	pick := selectFromFront(front, weights, method)
	if pick < 0 {
		return nil, ErrNoFeasiblePath
	}

	result := &domain.OptimizationResult{
		Recommended:   &front[pick],
		Evaluated:     evaluated,
		Elapsed:       s.now().Sub(started),
		TimedOut:      stopped,
		Scalarization: method,
	}
	for i := range front {
		if i == pick || front[i].Rank != 0 {
			continue
		}
		if len(result.Alternatives) >= s.cfg.MaxAlternatives {
			break
		}
		result.Alternatives = append(result.Alternatives, front[i])
	}

	s.recordEvent(ctx, tenantID, learnerID, result, len(complete), len(front))
	return result, nil
}

// tryExtend applies the per-step hard constraints. Infeasible extensions are
// rejected outright, never penalized.
func (s *OptimizerService) tryExtend(p *partialPath, c domain.CandidateStep, constraints domain.PathConstraints, mastered map[string]struct{}) (*partialPath, bool) {
	if _, ok := p.used[c.ContentID]; ok {
		return nil, false
	}
	if constraints.MaxDifficultyJump > 0 && absInt(c.Difficulty-p.lastDifficulty) > constraints.MaxDifficultyJump {
		return nil, false
	}
	if constraints.MaxDailyMinutes > 0 && p.minutes+c.DurationMinutes > constraints.MaxDailyMinutes {
		return nil, false
	}
	if constraints.EnforcePrerequisites {
		for _, pre := range c.Prerequisites {
			if _, ok := mastered[pre]; ok {
				continue
			}
			if _, ok := p.covered[pre]; ok {
				continue
			}
			return nil, false
		}
	}

	breakBefore := false
	if constraints.MaxConsecutiveMinutes > 0 && p.consecutive+c.DurationMinutes > constraints.MaxConsecutiveMinutes {
		if constraints.MinBreakMinutes <= 0 {
			return nil, false
		}
		if c.DurationMinutes > constraints.MaxConsecutiveMinutes {
			return nil, false
		}
		breakBefore = true
	}
	return p.extend(c, breakBefore), true
}

// feasibleCandidates loads the catalogue and drops steps that violate
// competency and domain constraints. Candidates come back in content-id order
// so the search is deterministic.
func (s *OptimizerService) feasibleCandidates(ctx context.Context, tenantID uuid.UUID, constraints domain.PathConstraints) ([]domain.CandidateStep, error) {
	filter := domain.CandidateFilter{
		Domains: constraints.PreferredDomains,
		Limit:   s.cfg.MaxCandidates,
	}
	all, err := s.catalog.ListCandidates(ctx, tenantID, filter)
	if err != nil {
		return nil, domain.NewInternalError("listing content candidates", err)
	}

	excluded := toSet(constraints.ExcludedCompetencies)
	avoided := toSet(constraints.AvoidedDomains)
	preferred := toSet(constraints.PreferredDomains)

	out := make([]domain.CandidateStep, 0, len(all))
	for _, c := range all {
		if c.ContentID == "" || c.CompetencyID == "" || c.DurationMinutes <= 0 {
			continue
		}
		if _, ok := excluded[c.CompetencyID]; ok {
			continue
		}
		if _, ok := avoided[c.Domain]; ok {
			continue
		}
		if len(preferred) > 0 {
			if _, ok := preferred[c.Domain]; !ok {
				continue
			}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentID < out[j].ContentID })
	return out, nil
}

// rankFrontier orders partial paths by weighted sum of min-max normalized
// objective scores, path key as tiebreak.
func rankFrontier(frontier []*partialPath, weights domain.ObjectiveWeights) {
	if len(frontier) == 0 {
		return
	}
	norm := make(map[domain.Objective][2]float64)
	for _, obj := range domain.Objectives() {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, p := range frontier {
			v := p.scores[obj]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		norm[obj] = [2]float64{lo, hi - lo}
	}
	rank := func(p *partialPath) float64 {
		total := 0.0
		for _, obj := range domain.Objectives() {
			bounds := norm[obj]
			v := 1.0
			if bounds[1] > 0 {
				v = (p.scores[obj] - bounds[0]) / bounds[1]
			}
			total += weights.Get(obj) * v
		}
		return total
	}
	sort.SliceStable(frontier, func(i, j int) bool {
		a, b := rank(frontier[i]), rank(frontier[j])
		if a != b {
			return a > b
		}
		return frontier[i].key < frontier[j].key
	})
}

func (s *OptimizerService) buildSolutions(complete []*partialPath) []domain.ParetoSolution {
	solutions := make([]domain.ParetoSolution, 0, len(complete))
	for _, p := range complete {
		solutions = append(solutions, domain.ParetoSolution{
			Path: domain.LearningPath{
				ID:           strings.TrimPrefix(p.key, "/"),
				Steps:        p.steps,
				TotalMinutes: p.minutes,
				Scores:       p.scores,
			},
		})
	}
	normalizeScores(solutions)
	return solutions
}

// SimulatePath replays an explicit path against the learner's current state
// without persisting anything.
func (s *OptimizerService) SimulatePath(ctx context.Context, tenantID, learnerID uuid.UUID, steps []domain.CandidateStep) (*domain.PathSimulation, error) {
	if tenantID == uuid.Nil || learnerID == uuid.Nil {
		return nil, domain.NewValidationError("tenant id and learner id are required")
	}
	if len(steps) == 0 {
		return nil, domain.NewValidationError("path steps are required")
	}
	for i, c := range steps {
		if c.ContentID == "" || c.CompetencyID == "" {
			return nil, domain.NewValidationError("step %d: content id and competency id are required", i)
		}
		if c.Difficulty < s.acfg.MinDifficulty || c.Difficulty > s.acfg.MaxDifficulty {
			return nil, domain.NewValidationError("step %d: difficulty %d out of range", i, c.Difficulty)
		}
		if c.DurationMinutes <= 0 {
			return nil, domain.NewValidationError("step %d: duration must be positive", i)
		}
	}

	profile, err := s.adaptation.loadOrCreateProfile(ctx, tenantID, learnerID)
	if err != nil {
		return nil, err
	}
	curiosity := s.curiosityProfile(ctx, tenantID, learnerID)

	path := make([]domain.LearningPathStep, len(steps))
	for i, c := range steps {
		path[i] = domain.LearningPathStep{Content: c}
	}
	sim := newPathSimulator(s.acfg, s.cfg, profile, curiosity)
	_, trajectory, scores := sim.replay(path)

	return &domain.PathSimulation{
		Steps:        trajectory,
		FinalMastery: sim.meanMastery(),
		Scores:       scores,
		RiskFactors:  riskFactors(trajectory),
	}, nil
}

// ComparePaths simulates two paths and reports the per-objective winners plus
// an overall verdict under the learner's weights.
func (s *OptimizerService) ComparePaths(ctx context.Context, tenantID, learnerID uuid.UUID, pathA, pathB []domain.CandidateStep) (*domain.PathComparison, error) {
	simA, err := s.SimulatePath(ctx, tenantID, learnerID, pathA)
	if err != nil {
		return nil, err
	}
	simB, err := s.SimulatePath(ctx, tenantID, learnerID, pathB)
	if err != nil {
		return nil, err
	}
	weights, err := s.GetObjectiveWeights(ctx, tenantID, learnerID)
	if err != nil {
		return nil, err
	}

	winners := make(map[domain.Objective]string)
	winsA, winsB := 0, 0
	totalA, totalB := 0.0, 0.0
	for _, obj := range domain.Objectives() {
		a, b := simA.Scores[obj], simB.Scores[obj]
		switch {
		case a > b:
			winners[obj] = "a"
			winsA++
		case b > a:
			winners[obj] = "b"
			winsB++
		default:
			winners[obj] = "tie"
		}
		// Per-objective normalization over the pair keeps scales comparable.
		if hi := math.Max(a, b); hi > 0 {
			totalA += weights.Get(obj) * a / hi
			totalB += weights.Get(obj) * b / hi
		}
	}

	overall := "tie"
	if totalA > totalB {
		overall = "a"
	} else if totalB > totalA {
		overall = "b"
	}

	return &domain.PathComparison{
		Winners: winners,
		Overall: overall,
		Summary: fmt.Sprintf("path a wins %d objectives, path b wins %d; overall %s under current weights", winsA, winsB, overall),
	}, nil
}

// GetObjectiveWeights returns the learner's stored weights normalized to sum
// to one, or the defaults when none are stored.
func (s *OptimizerService) GetObjectiveWeights(ctx context.Context, tenantID, learnerID uuid.UUID) (domain.ObjectiveWeights, error) {
	w, err := s.weightsStore.Get(ctx, tenantID, learnerID)
	if err != nil {
		return domain.ObjectiveWeights{}, domain.NewInternalError("loading objective weights", err)
	}
	if w == nil {
		return domain.DefaultObjectiveWeights(), nil
	}
	return w.Normalized(), nil
}

// SetObjectiveWeights validates and stores a learner preference vector.
func (s *OptimizerService) SetObjectiveWeights(ctx context.Context, tenantID, learnerID uuid.UUID, w domain.ObjectiveWeights) (domain.ObjectiveWeights, error) {
	if tenantID == uuid.Nil || learnerID == uuid.Nil {
		return domain.ObjectiveWeights{}, domain.NewValidationError("tenant id and learner id are required")
	}
	if !w.Valid() {
		return domain.ObjectiveWeights{}, domain.NewValidationError("objective weights must be non-negative with a positive sum")
	}
	normalized := w.Normalized()
	if err := s.weightsStore.Put(ctx, tenantID, learnerID, normalized); err != nil {
		return domain.ObjectiveWeights{}, domain.NewInternalError("storing objective weights", err)
	}
	return normalized, nil
}

// GetOptimizationHistory lists recent optimization audit events.
func (s *OptimizerService) GetOptimizationHistory(ctx context.Context, tenantID, learnerID uuid.UUID, limit int) ([]domain.OptimizationEvent, error) {
	if tenantID == uuid.Nil || learnerID == uuid.Nil {
		return nil, domain.NewValidationError("tenant id and learner id are required")
	}
	if limit <= 0 {
		limit = 20
	}
	events, err := s.eventStore.ListByLearner(ctx, tenantID, learnerID, limit)
	if err != nil {
		return nil, domain.NewInternalError("listing optimization history", err)
	}
	return events, nil
}

func (s *OptimizerService) curiosityProfile(ctx context.Context, tenantID, learnerID uuid.UUID) *domain.CuriosityProfile {
	if s.curiosity == nil {
		return nil
	}
	profile, err := s.curiosity.GetCuriosityProfile(ctx, tenantID, learnerID)
	if err != nil {
		// The curiosity objective degrades to zero rather than failing the search.
		s.logger.Warn("curiosity profile unavailable for path optimization", zap.Error(err))
		return nil
	}
	return profile
}

func (s *OptimizerService) recordEvent(ctx context.Context, tenantID, learnerID uuid.UUID, result *domain.OptimizationResult, candidateCount, frontSize int) {
	event := &domain.OptimizationEvent{
		ID:             uuid.New(),
		TenantID:       tenantID,
		LearnerID:      learnerID,
		CandidateCount: candidateCount,
		FrontSize:      frontSize,
		Elapsed:        result.Elapsed,
		TimedOut:       result.TimedOut,
		CreatedAt:      s.now(),
	}
	if result.Recommended != nil {
		event.RecommendedPath = result.Recommended.Path.ID
	}
	if err := s.eventStore.Create(ctx, event); err != nil {
		s.logger.Warn("recording optimization event failed", zap.Error(err))
	}
}

func coversMandatory(covered map[string]struct{}, mandatory []string) bool {
	for _, id := range mandatory {
		if _, ok := covered[id]; !ok {
			return false
		}
	}
	return true
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
