package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
)

// peerContent aggregates peer activity around one content item.
type peerContent struct {
	contentID string
	topics    map[string]struct{}
	domains   map[string]struct{}
	signals   int
	learners  map[uuid.UUID]struct{}
}

// GetContentSuggestions ranks content observed via peer signals for the
// learner: peers in the same tenant, excluding content the learner already
// engaged with.
func (s *CuriosityService) GetContentSuggestions(ctx context.Context, tenantID, learnerID uuid.UUID, limit int) ([]domain.ContentSuggestion, error) {
	if tenantID == uuid.Nil || learnerID == uuid.Nil {
		return nil, domain.NewValidationError("tenant id and learner id are required")
	}
	if limit <= 0 || limit > s.cfg.MaxSuggestions {
		limit = s.cfg.MaxSuggestions
	}

	since := s.now().Add(-s.cfg.SignalWindow)
	own, err := s.signalStore.GetByLearnerSince(ctx, tenantID, learnerID, since)
	if err != nil {
		return nil, domain.NewInternalError("loading learner signals", err)
	}
	peers, err := s.signalStore.GetPeerSignalsSince(ctx, tenantID, learnerID, since)
	if err != nil {
		return nil, domain.NewInternalError("loading peer signals", err)
	}

	learnerTopics := make(map[string]struct{})
	learnerDomains := make(map[string]struct{})
	engaged := make(map[string]struct{})
	for _, sig := range own {
		learnerTopics[sig.Topic] = struct{}{}
		if sig.Domain != "" {
			learnerDomains[sig.Domain] = struct{}{}
		}
		if sig.ContentID != "" {
			engaged[sig.ContentID] = struct{}{}
		}
	}

	candidates := collectPeerContent(peers, engaged, nil)
	if len(candidates) == 0 {
		return []domain.ContentSuggestion{}, nil
	}

	maxPeers := 0
	for _, c := range candidates {
		if n := len(c.learners); n > maxPeers {
			maxPeers = n
		}
	}

	w := s.cfg.SuggestionWeights
	out := make([]domain.ContentSuggestion, 0, len(candidates))
	for _, c := range candidates {
		alignment := topicOverlapFraction(c.topics, learnerTopics)
		popularity := 0.0
		if maxPeers > 0 {
			popularity = float64(len(c.learners)) / float64(maxPeers)
		}
		cross := 0.0
		if len(c.domains) >= 2 && intersects(c.domains, learnerDomains) {
			cross = 1
		}
		relevance := w.Alignment*alignment + w.PeerPopularity*popularity +
			w.CrossCurricular*cross + w.Novelty*(1-alignment)
		if relevance > 1 {
			relevance = 1
		}

		out = append(out, domain.ContentSuggestion{
			ContentID: c.contentID,
			Topics:    sortedKeys(c.topics),
			Domains:   sortedKeys(c.domains),
			Relevance: relevance,
			PeerCount: len(c.learners),
			Reasoning: suggestionReasoning(alignment, popularity, cross == 1),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		return out[i].ContentID < out[j].ContentID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FindCuriosityTriggers ranks content associated with curiosity-indicative
// peer signals (voluntary exploration, topic deep dives).
func (s *CuriosityService) FindCuriosityTriggers(ctx context.Context, tenantID, learnerID uuid.UUID, limit int) ([]domain.CuriosityTrigger, error) {
	if tenantID == uuid.Nil || learnerID == uuid.Nil {
		return nil, domain.NewValidationError("tenant id and learner id are required")
	}
	if limit <= 0 || limit > s.cfg.MaxTriggers {
		limit = s.cfg.MaxTriggers
	}

	since := s.now().Add(-s.cfg.SignalWindow)
	own, err := s.signalStore.GetByLearnerSince(ctx, tenantID, learnerID, since)
	if err != nil {
		return nil, domain.NewInternalError("loading learner signals", err)
	}
	peers, err := s.signalStore.GetPeerSignalsSince(ctx, tenantID, learnerID, since)
	if err != nil {
		return nil, domain.NewInternalError("loading peer signals", err)
	}

	learnerTopics := make(map[string]struct{})
	for _, sig := range own {
		learnerTopics[sig.Topic] = struct{}{}
	}

	indicative := func(t domain.CuriositySignalType) bool {
		return t == domain.CuriosityVoluntaryExploration || t == domain.CuriosityTopicDeepDive
	}
	candidates := collectPeerContent(peers, nil, indicative)
	if len(candidates) == 0 {
		return []domain.CuriosityTrigger{}, nil
	}

	maxSignals := 0
	for _, c := range candidates {
		if c.signals > maxSignals {
			maxSignals = c.signals
		}
	}

	w := s.cfg.TriggerWeights
	out := make([]domain.CuriosityTrigger, 0, len(candidates))
	for _, c := range candidates {
		normalized := float64(c.signals) / float64(maxSignals)
		overlap := jaccard(c.topics, learnerTopics)
		score := w.SignalCount*normalized + w.TopicOverlap*overlap

		out = append(out, domain.CuriosityTrigger{
			ContentID:   c.contentID,
			Topics:      sortedKeys(c.topics),
			Score:       score,
			SignalCount: c.signals,
			Reasoning:   triggerReasoning(c.signals, overlap),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ContentID < out[j].ContentID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// collectPeerContent groups peer signals by content, optionally filtering by
// signal type and excluding already-engaged content.
func collectPeerContent(peers []domain.CuriositySignal, exclude map[string]struct{}, typeFilter func(domain.CuriositySignalType) bool) []*peerContent {
	byContent := make(map[string]*peerContent)
	for _, sig := range peers {
		if sig.ContentID == "" {
			continue
		}
		if exclude != nil {
			if _, ok := exclude[sig.ContentID]; ok {
				continue
			}
		}
		if typeFilter != nil && !typeFilter(sig.Type) {
			continue
		}
		c, ok := byContent[sig.ContentID]
		if !ok {
			c = &peerContent{
				contentID: sig.ContentID,
				topics:    make(map[string]struct{}),
				domains:   make(map[string]struct{}),
				learners:  make(map[uuid.UUID]struct{}),
			}
			byContent[sig.ContentID] = c
		}
		c.signals++
		c.learners[sig.LearnerID] = struct{}{}
		if sig.Topic != "" {
			c.topics[sig.Topic] = struct{}{}
		}
		if sig.Domain != "" {
			c.domains[sig.Domain] = struct{}{}
		}
	}

	out := make([]*peerContent, 0, len(byContent))
	for _, c := range byContent {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].contentID < out[j].contentID })
	return out
}

// topicOverlapFraction is |content ∩ learner| / |content|.
func topicOverlapFraction(content, learner map[string]struct{}) float64 {
	if len(content) == 0 {
		return 0
	}
	hits := 0
	for t := range content {
		if _, ok := learner[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(content))
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func intersects(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func suggestionReasoning(alignment, popularity float64, cross bool) string {
	var parts []string
	switch {
	case alignment >= 0.5:
		parts = append(parts, "closely matches current interests")
	case alignment > 0:
		parts = append(parts, "touches some current interests")
	default:
		parts = append(parts, "fresh territory beyond current interests")
	}
	if popularity >= 0.5 {
		parts = append(parts, "popular with peers")
	}
	if cross {
		parts = append(parts, "spans multiple familiar domains")
	}
	return strings.Join(parts, "; ")
}

func triggerReasoning(signals int, overlap float64) string {
	base := fmt.Sprintf("%d exploratory peer signals", signals)
	if overlap > 0 {
		return fmt.Sprintf("%s; overlaps the learner's topics (%.0f%%)", base, overlap*100)
	}
	return base + "; new topic area for this learner"
}
