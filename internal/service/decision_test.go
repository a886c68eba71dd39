package service

import (
	"context"
	"math"
	"testing"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
)

func TestScoreNextStepsWeightedTotal(t *testing.T) {
	svc, _, _, _ := newTestAdaptation()
	tenantID, learnerID := uuid.New(), uuid.New()

	candidates := []domain.CandidateStep{
		{ContentID: "c1", CompetencyID: "k1", DurationMinutes: 10},
		{ContentID: "c2", CompetencyID: "k2", DurationMinutes: 30, Prerequisites: []string{"k9"}},
	}
	scores, err := svc.ScoreNextSteps(context.Background(), tenantID, learnerID, candidates)
	if err != nil {
		t.Fatalf("ScoreNextSteps: %v", err)
	}
	w := domain.DefaultAdaptationConfig().StepWeights
	for _, s := range scores {
		want := w.MasteryGain*s.Components.MasteryGain +
			w.EngagementProbability*s.Components.EngagementProbability +
			w.TimeEfficiency*s.Components.TimeEfficiency +
			w.PrerequisiteCoverage*s.Components.PrerequisiteCoverage +
			w.CuriosityAlignment*s.Components.CuriosityAlignment
		if math.Abs(s.Total-want) > 1e-9 {
			t.Fatalf("%s: total = %v, want weighted sum %v", s.Step.ContentID, s.Total, want)
		}
		if s.Reasoning == "" {
			t.Fatalf("%s: missing reasoning", s.Step.ContentID)
		}
	}
	if scores[0].Total < scores[1].Total {
		t.Fatal("scores must be ordered best first")
	}
}

func TestScoreNextStepsDifficultyTieBreak(t *testing.T) {
	svc, _, _, _ := newTestAdaptation()
	tenantID, learnerID := uuid.New(), uuid.New()

	// Identical except difficulty: equal totals, the smaller jump from the
	// learner's current difficulty (1 for a fresh profile) wins.
	candidates := []domain.CandidateStep{
		{ContentID: "far", CompetencyID: "k1", Difficulty: 5, DurationMinutes: 10},
		{ContentID: "near", CompetencyID: "k1", Difficulty: 2, DurationMinutes: 10},
	}
	scores, err := svc.ScoreNextSteps(context.Background(), tenantID, learnerID, candidates)
	if err != nil {
		t.Fatalf("ScoreNextSteps: %v", err)
	}
	if scores[0].Step.ContentID != "near" {
		t.Fatalf("top score = %q, want the smaller difficulty jump", scores[0].Step.ContentID)
	}
}

func TestScoreNextStepsEmptyCandidates(t *testing.T) {
	svc, _, _, _ := newTestAdaptation()
	_, err := svc.ScoreNextSteps(context.Background(), uuid.New(), uuid.New(), nil)
	if domain.CodeOf(err) != domain.ErrValidation {
		t.Fatalf("error code = %v, want %v", domain.CodeOf(err), domain.ErrValidation)
	}
}

func TestMasteryGainByZone(t *testing.T) {
	svc, _, _, _ := newTestAdaptation()
	profile := &domain.AdaptationProfile{
		Competencies: map[string]*domain.BKTCompetencyState{
			"mastered": {CompetencyID: "mastered", PKnown: 0.97},
			"beyond":   {CompetencyID: "beyond", PKnown: 0.2},
			"ripe":     {CompetencyID: "ripe", PKnown: 0.5},
		},
	}

	if got := svc.masteryGain(profile, domain.CandidateStep{CompetencyID: "mastered"}); got != 0.05 {
		t.Fatalf("mastered gain = %v, want 0.05", got)
	}
	if got := svc.masteryGain(profile, domain.CandidateStep{CompetencyID: "beyond"}); got != 0.15 {
		t.Fatalf("beyond-reach gain = %v, want 0.15", got)
	}
	want := (0.95 - 0.5) / (0.95 - 0.4)
	if got := svc.masteryGain(profile, domain.CandidateStep{CompetencyID: "ripe"}); math.Abs(got-want) > 1e-9 {
		t.Fatalf("zpd gain = %v, want %v", got, want)
	}
}

func TestTimeEfficiency(t *testing.T) {
	if got := timeEfficiency(10, 10); got != 1 {
		t.Fatalf("shortest candidate efficiency = %v, want 1", got)
	}
	if got := timeEfficiency(40, 10); got != 0.25 {
		t.Fatalf("efficiency = %v, want 0.25", got)
	}
	if got := timeEfficiency(0, 10); got != 0 {
		t.Fatalf("zero duration efficiency = %v, want 0", got)
	}
}

func TestPrerequisiteCoverage(t *testing.T) {
	mastered := map[string]struct{}{"a": {}, "b": {}}
	if got := prerequisiteCoverage(nil, mastered); got != 1 {
		t.Fatalf("no prerequisites coverage = %v, want 1", got)
	}
	if got := prerequisiteCoverage([]string{"a", "z"}, mastered); got != 0.5 {
		t.Fatalf("coverage = %v, want 0.5", got)
	}
	if got := prerequisiteCoverage([]string{"x", "y"}, mastered); got != 0 {
		t.Fatalf("coverage = %v, want 0", got)
	}
}

func TestCuriosityAlignment(t *testing.T) {
	profile := &domain.CuriosityProfile{
		Clusters: []domain.InterestCluster{
			{Topics: []string{"volcanoes", "plate-tectonics"}, Domains: []string{"science"}},
		},
	}
	step := domain.CandidateStep{Domain: "science", Topics: []string{"volcanoes", "poetry"}}
	// Two of three tags hit the profile.
	if got := curiosityAlignment(step, profile); math.Abs(got-2.0/3) > 1e-9 {
		t.Fatalf("alignment = %v, want 2/3", got)
	}
	if got := curiosityAlignment(step, nil); got != 0 {
		t.Fatalf("alignment without a profile = %v, want 0", got)
	}
	if got := curiosityAlignment(domain.CandidateStep{}, profile); got != 0 {
		t.Fatalf("alignment without tags = %v, want 0", got)
	}
}

func TestScoreNextStepsCuriosityDegrades(t *testing.T) {
	svc, _, _, _ := newTestAdaptation()
	svc.SetCuriosityReader(&mockCuriosityReader{err: errBoom})

	scores, err := svc.ScoreNextSteps(context.Background(), uuid.New(), uuid.New(), []domain.CandidateStep{
		{ContentID: "c1", CompetencyID: "k1", Domain: "science", DurationMinutes: 10},
	})
	if err != nil {
		t.Fatalf("a curiosity outage must not fail scoring: %v", err)
	}
	if scores[0].Components.CuriosityAlignment != 0 {
		t.Fatalf("alignment = %v with curiosity unavailable, want 0", scores[0].Components.CuriosityAlignment)
	}
}

func TestScoreNextStepsUsesCuriosityProfile(t *testing.T) {
	svc, _, _, _ := newTestAdaptation()
	svc.SetCuriosityReader(&mockCuriosityReader{profile: &domain.CuriosityProfile{
		Clusters: []domain.InterestCluster{{Topics: []string{"volcanoes"}}},
	}})

	scores, err := svc.ScoreNextSteps(context.Background(), uuid.New(), uuid.New(), []domain.CandidateStep{
		{ContentID: "aligned", CompetencyID: "k1", DurationMinutes: 10, Topics: []string{"volcanoes"}},
		{ContentID: "other", CompetencyID: "k1", DurationMinutes: 10, Topics: []string{"grammar"}},
	})
	if err != nil {
		t.Fatalf("ScoreNextSteps: %v", err)
	}
	if scores[0].Step.ContentID != "aligned" {
		t.Fatalf("top score = %q, want the interest-aligned step", scores[0].Step.ContentID)
	}
	if scores[0].Components.CuriosityAlignment != 1 {
		t.Fatalf("alignment = %v, want 1", scores[0].Components.CuriosityAlignment)
	}
}
