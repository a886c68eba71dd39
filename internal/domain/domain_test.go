package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	wrapped := NewInternalError("querying profiles", errors.New("connection refused"))
	assert.Equal(t, ErrInternal, CodeOf(wrapped))
	assert.ErrorContains(t, wrapped, "connection refused")

	// Is matches on code, so code-only sentinels compare equal to rich errors.
	assert.ErrorIs(t, NewValidationError("bad value %d", 7), &Error{Code: ErrValidation})
	assert.NotErrorIs(t, NewValidationError("bad"), &Error{Code: ErrNotFound})

	assert.Equal(t, ErrInternal, CodeOf(errors.New("plain")), "unknown errors default to internal")
	assert.Equal(t, ErrTimeout, CodeOf(NewTimeoutError("deadline")))
}

func TestObjectiveWeightsNormalization(t *testing.T) {
	defaults := DefaultObjectiveWeights()
	sum := 0.0
	for _, obj := range Objectives() {
		sum += defaults.Get(obj)
	}
	assert.InDelta(t, 1.0, sum, 1e-9, "defaults must already sum to one")

	w := ObjectiveWeights{Mastery: 3, Curiosity: 1}
	n := w.Normalized()
	assert.InDelta(t, 0.75, n.Mastery, 1e-9)
	assert.InDelta(t, 0.25, n.Curiosity, 1e-9)
	assert.Zero(t, n.Engagement)

	assert.True(t, w.Valid())
	assert.False(t, ObjectiveWeights{}.Valid(), "all-zero weights have no direction")
	assert.False(t, ObjectiveWeights{Mastery: -1, Engagement: 2}.Valid())
}

func TestSignalCorrectness(t *testing.T) {
	assert.True(t, AdaptationSignal{Type: SignalAccuracy, Value: 1}.Correct())
	assert.True(t, AdaptationSignal{Type: SignalAccuracy, Value: 0.5}.Correct())
	assert.False(t, AdaptationSignal{Type: SignalAccuracy, Value: 0.49}.Correct())
	assert.False(t, AdaptationSignal{Type: SignalEngagement, Value: 1}.Correct(), "only accuracy signals are BKT observations")
}

func TestFatigueRecommendationLadder(t *testing.T) {
	ladder := []FatigueRecommendation{
		FatigueContinue, FatigueReduceDifficulty, FatigueSwitchTopic, FatigueTakeBreak, FatigueEndSession,
	}
	for i, rec := range ladder {
		assert.Equal(t, i, rec.Rung())
	}
	assert.Equal(t, -1, FatigueRecommendation("nap").Rung())
}

func TestCuriosityProfileFreshness(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ttl := 5 * time.Minute

	var missing *CuriosityProfile
	assert.False(t, missing.Fresh(now, ttl))

	p := &CuriosityProfile{LastUpdated: now.Add(-ttl)}
	assert.True(t, p.Fresh(now, ttl), "exactly at the TTL boundary still counts as fresh")
	p.LastUpdated = now.Add(-ttl - time.Second)
	assert.False(t, p.Fresh(now, ttl))
}

func TestRuleScopeSpecificity(t *testing.T) {
	assert.Greater(t, ScopeCompetency.Specificity(), ScopeDomain.Specificity())
	assert.Greater(t, ScopeDomain.Specificity(), ScopeGlobal.Specificity())
}
