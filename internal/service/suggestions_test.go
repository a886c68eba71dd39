package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
)

func peerSig(learnerID uuid.UUID, sigType domain.CuriositySignalType, topic, domainName, contentID string) domain.CuriositySignal {
	return domain.CuriositySignal{
		ID:         uuid.New(),
		LearnerID:  learnerID,
		Type:       sigType,
		Topic:      topic,
		Domain:     domainName,
		ContentID:  contentID,
		SessionID:  "sess-peer",
		Strength:   0.5,
		RecordedAt: fixedNow.Add(-time.Hour),
	}
}

func seedPeerSignals(store *mockCuriositySignalStore, tenantID uuid.UUID, signals ...domain.CuriositySignal) {
	for _, s := range signals {
		s.TenantID = tenantID
		store.signals = append(store.signals, s)
	}
}

func TestGetContentSuggestionsExcludesEngaged(t *testing.T) {
	svc, signals, _ := newTestCuriosity()
	tenantID, learnerID := uuid.New(), uuid.New()
	peer := uuid.New()

	seedPeerSignals(signals, tenantID,
		peerSig(learnerID, domain.CuriosityVoluntaryExploration, "volcanoes", "science", "seen-it"),
		peerSig(peer, domain.CuriosityVoluntaryExploration, "volcanoes", "science", "seen-it"),
		peerSig(peer, domain.CuriosityVoluntaryExploration, "volcanoes", "science", "lava-lab"),
	)

	out, err := svc.GetContentSuggestions(context.Background(), tenantID, learnerID, 10)
	if err != nil {
		t.Fatalf("GetContentSuggestions: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("suggestions = %d, want 1", len(out))
	}
	if out[0].ContentID != "lava-lab" {
		t.Fatalf("suggested %q, want lava-lab (seen-it already engaged)", out[0].ContentID)
	}
}

func TestGetContentSuggestionsRelevance(t *testing.T) {
	svc, signals, _ := newTestCuriosity()
	tenantID, learnerID := uuid.New(), uuid.New()
	peer := uuid.New()

	// The learner's own signal establishes their topic set without engaging
	// any content.
	own := peerSig(learnerID, domain.CuriosityQuestionAsking, "volcanoes", "science", "")
	seedPeerSignals(signals, tenantID,
		own,
		peerSig(peer, domain.CuriosityVoluntaryExploration, "volcanoes", "science", "lava-lab"),
	)

	out, err := svc.GetContentSuggestions(context.Background(), tenantID, learnerID, 10)
	if err != nil {
		t.Fatalf("GetContentSuggestions: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("suggestions = %d, want 1", len(out))
	}
	// Full alignment (0.45) plus top popularity (0.25); one domain, so no
	// cross-curricular term, and zero novelty.
	if math.Abs(out[0].Relevance-0.7) > 1e-9 {
		t.Fatalf("relevance = %v, want 0.7", out[0].Relevance)
	}
	if out[0].PeerCount != 1 {
		t.Fatalf("peer count = %d, want 1", out[0].PeerCount)
	}
}

func TestGetContentSuggestionsCrossCurricular(t *testing.T) {
	svc, signals, _ := newTestCuriosity()
	tenantID, learnerID := uuid.New(), uuid.New()
	peer := uuid.New()

	seedPeerSignals(signals, tenantID,
		peerSig(learnerID, domain.CuriosityQuestionAsking, "maps", "geography", ""),
		peerSig(peer, domain.CuriosityVoluntaryExploration, "plate-tectonics", "science", "quake-atlas"),
		peerSig(peer, domain.CuriosityVoluntaryExploration, "maps", "geography", "quake-atlas"),
		peerSig(peer, domain.CuriosityVoluntaryExploration, "poetry", "literature", "sonnets"),
	)

	out, err := svc.GetContentSuggestions(context.Background(), tenantID, learnerID, 10)
	if err != nil {
		t.Fatalf("GetContentSuggestions: %v", err)
	}
	byID := make(map[string]domain.ContentSuggestion)
	for _, s := range out {
		byID[s.ContentID] = s
	}

	// quake-atlas spans two domains including one the learner knows.
	atlas := byID["quake-atlas"]
	alignment := 0.5 // maps hits, plate-tectonics does not
	want := 0.45*alignment + 0.25*1 + 0.15*1 + 0.15*(1-alignment)
	if math.Abs(atlas.Relevance-want) > 1e-9 {
		t.Fatalf("quake-atlas relevance = %v, want %v", atlas.Relevance, want)
	}
	// sonnets is single-domain with no learner overlap: novelty only.
	sonnets := byID["sonnets"]
	if math.Abs(sonnets.Relevance-(0.25+0.15)) > 1e-9 {
		t.Fatalf("sonnets relevance = %v, want 0.4", sonnets.Relevance)
	}
}

func TestGetContentSuggestionsEmptyPeers(t *testing.T) {
	svc, _, _ := newTestCuriosity()
	out, err := svc.GetContentSuggestions(context.Background(), uuid.New(), uuid.New(), 10)
	if err != nil {
		t.Fatalf("GetContentSuggestions: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("suggestions = %v, want an empty slice", out)
	}
}

func TestFindCuriosityTriggersFiltersTypes(t *testing.T) {
	svc, signals, _ := newTestCuriosity()
	tenantID, learnerID := uuid.New(), uuid.New()
	peer := uuid.New()

	seedPeerSignals(signals, tenantID,
		peerSig(peer, domain.CuriosityQuestionAsking, "volcanoes", "science", "quiz-content"),
		peerSig(peer, domain.CuriosityVoluntaryExploration, "volcanoes", "science", "lava-lab"),
		peerSig(peer, domain.CuriosityTopicDeepDive, "magma", "science", "lava-lab"),
	)

	out, err := svc.FindCuriosityTriggers(context.Background(), tenantID, learnerID, 10)
	if err != nil {
		t.Fatalf("FindCuriosityTriggers: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("triggers = %d, want only the exploratory content", len(out))
	}
	if out[0].ContentID != "lava-lab" || out[0].SignalCount != 2 {
		t.Fatalf("trigger = %+v, want lava-lab with 2 signals", out[0])
	}
}

func TestFindCuriosityTriggersScore(t *testing.T) {
	svc, signals, _ := newTestCuriosity()
	tenantID, learnerID := uuid.New(), uuid.New()
	peer := uuid.New()

	seedPeerSignals(signals, tenantID,
		peerSig(learnerID, domain.CuriosityQuestionAsking, "volcanoes", "science", ""),
		peerSig(peer, domain.CuriosityVoluntaryExploration, "volcanoes", "science", "lava-lab"),
		peerSig(peer, domain.CuriosityTopicDeepDive, "magma", "science", "lava-lab"),
	)

	out, err := svc.FindCuriosityTriggers(context.Background(), tenantID, learnerID, 10)
	if err != nil {
		t.Fatalf("FindCuriosityTriggers: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("triggers = %d, want 1", len(out))
	}
	// Normalized count 1.0, Jaccard overlap 1/2.
	want := 0.6*1 + 0.4*0.5
	if math.Abs(out[0].Score-want) > 1e-9 {
		t.Fatalf("score = %v, want %v", out[0].Score, want)
	}
}

func TestJaccard(t *testing.T) {
	set := func(items ...string) map[string]struct{} {
		m := make(map[string]struct{})
		for _, i := range items {
			m[i] = struct{}{}
		}
		return m
	}
	if got := jaccard(set("a", "b"), set("b", "c")); got != 1.0/3 {
		t.Fatalf("jaccard = %v, want 1/3", got)
	}
	if got := jaccard(set(), set()); got != 0 {
		t.Fatalf("jaccard of empty sets = %v, want 0", got)
	}
	if got := jaccard(set("a"), set("a")); got != 1 {
		t.Fatalf("jaccard of identical sets = %v, want 1", got)
	}
}
