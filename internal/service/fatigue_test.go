package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
)

func TestFatigueLadder(t *testing.T) {
	thresholds := [4]float64{25, 45, 60, 80}
	cases := []struct {
		score float64
		want  domain.FatigueRecommendation
	}{
		{0, domain.FatigueContinue},
		{24.9, domain.FatigueContinue},
		{25, domain.FatigueReduceDifficulty},
		{44.9, domain.FatigueReduceDifficulty},
		{45, domain.FatigueSwitchTopic},
		{60, domain.FatigueTakeBreak},
		{80, domain.FatigueEndSession},
		{100, domain.FatigueEndSession},
	}
	prevRung := -1
	for _, c := range cases {
		got := fatigueLadder(thresholds, c.score)
		if got != c.want {
			t.Fatalf("score %v: recommendation = %q, want %q", c.score, got, c.want)
		}
		if got.Rung() < prevRung {
			t.Fatalf("score %v: rung went backwards", c.score)
		}
		prevRung = got.Rung()
	}
}

func TestDurationComponent(t *testing.T) {
	if got := durationComponent(0); got != 0 {
		t.Fatalf("durationComponent(0) = %v, want 0", got)
	}
	// 90 minutes is the saturation constant: 100*(1-e^-1).
	want := 100 * (1 - math.Exp(-1))
	if got := durationComponent(90 * time.Minute); math.Abs(got-want) > 1e-9 {
		t.Fatalf("durationComponent(90m) = %v, want %v", got, want)
	}
	if got := durationComponent(10 * time.Hour); got >= 100 {
		t.Fatalf("durationComponent must stay below 100, got %v", got)
	}
}

func TestFatigueFromSignalsEmpty(t *testing.T) {
	cfg := domain.DefaultAdaptationConfig()
	assessment := fatigueFromSignals(cfg, map[domain.SignalType]float64{domain.SignalAccuracy: 0.8}, nil)
	if assessment.OverallScore != 0 {
		t.Fatalf("overall = %v with no signals, want 0", assessment.OverallScore)
	}
	if assessment.Recommendation != domain.FatigueContinue {
		t.Fatalf("recommendation = %q, want continue", assessment.Recommendation)
	}
}

func TestDeclineAndIncreaseComponents(t *testing.T) {
	cfg := domain.DefaultAdaptationConfig()
	ema := map[domain.SignalType]float64{
		domain.SignalAccuracy:     0.8,
		domain.SignalResponseTime: 10,
	}
	signals := []domain.AdaptationSignal{
		{Type: domain.SignalAccuracy, Value: 0.4, RecordedAt: fixedNow, CompetencyID: "c"},
		{Type: domain.SignalResponseTime, Value: 15, RecordedAt: fixedNow},
	}
	assessment := fatigueFromSignals(cfg, ema, signals)

	// Accuracy fell from 0.8 to 0.4: a 50% drop.
	if math.Abs(assessment.Components.AccuracyDecline-50) > 1e-9 {
		t.Fatalf("accuracy decline = %v, want 50", assessment.Components.AccuracyDecline)
	}
	// Response time rose from 10 to 15: a 50% rise.
	if math.Abs(assessment.Components.ResponseTimeIncrease-50) > 1e-9 {
		t.Fatalf("response time increase = %v, want 50", assessment.Components.ResponseTimeIncrease)
	}
	// No baseline for hints means the component scores zero.
	if assessment.Components.HintUsageIncrease != 0 {
		t.Fatalf("hint usage increase = %v, want 0", assessment.Components.HintUsageIncrease)
	}
}

func TestErrorBurstiness(t *testing.T) {
	at := func(i int) time.Time { return fixedNow.Add(time.Duration(i) * time.Minute) }
	wrong := func(i int) domain.AdaptationSignal {
		return domain.AdaptationSignal{Type: domain.SignalAccuracy, Value: 0, RecordedAt: at(i), CompetencyID: "c"}
	}
	right := func(i int) domain.AdaptationSignal {
		return domain.AdaptationSignal{Type: domain.SignalAccuracy, Value: 1, RecordedAt: at(i), CompetencyID: "c"}
	}
	cfg := domain.DefaultAdaptationConfig()

	// Isolated errors score 5 apiece.
	a := fatigueFromSignals(cfg, nil, []domain.AdaptationSignal{wrong(0), right(1), wrong(2), right(3)})
	if a.Components.ErrorBurstiness != 10 {
		t.Fatalf("isolated errors: burstiness = %v, want 10", a.Components.ErrorBurstiness)
	}

	// A run of three scores 15 per error.
	b := fatigueFromSignals(cfg, nil, []domain.AdaptationSignal{right(0), wrong(1), wrong(2), wrong(3)})
	if b.Components.ErrorBurstiness != 45 {
		t.Fatalf("error burst: burstiness = %v, want 45", b.Components.ErrorBurstiness)
	}
}

func TestAssessFatigue(t *testing.T) {
	svc, _, signals, _ := newTestAdaptation()
	tenantID, learnerID := uuid.New(), uuid.New()

	signals.signals = []domain.AdaptationSignal{
		{TenantID: tenantID, LearnerID: learnerID, Type: domain.SignalAccuracy, Value: 1, CompetencyID: "c", SessionID: "sess-1", RecordedAt: fixedNow.Add(-40 * time.Minute)},
		{TenantID: tenantID, LearnerID: learnerID, Type: domain.SignalAccuracy, Value: 0, CompetencyID: "c", SessionID: "sess-1", RecordedAt: fixedNow},
	}

	assessment, err := svc.AssessFatigue(context.Background(), tenantID, learnerID, "sess-1")
	if err != nil {
		t.Fatalf("AssessFatigue: %v", err)
	}
	if assessment.SessionID != "sess-1" {
		t.Fatalf("session id = %q, want sess-1", assessment.SessionID)
	}
	if !assessment.AssessedAt.Equal(fixedNow) {
		t.Fatalf("assessed at %v, want %v", assessment.AssessedAt, fixedNow)
	}
	if assessment.Components.SessionDuration <= 0 {
		t.Fatal("40-minute session must register a duration component")
	}
	if assessment.OverallScore < 0 || assessment.OverallScore > 100 {
		t.Fatalf("overall = %v out of [0,100]", assessment.OverallScore)
	}
}

func TestAssessFatigueRequiresSession(t *testing.T) {
	svc, _, _, _ := newTestAdaptation()
	_, err := svc.AssessFatigue(context.Background(), uuid.New(), uuid.New(), "")
	if domain.CodeOf(err) != domain.ErrValidation {
		t.Fatalf("error code = %v, want %v", domain.CodeOf(err), domain.ErrValidation)
	}
}
