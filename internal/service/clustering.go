package service

import (
	"sort"
	"time"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
)

// cooccurrence is the normalized undirected topic graph built from one signal
// window. Topics are kept sorted so every downstream computation is
// deterministic for a fixed signal set.
type cooccurrence struct {
	topics  []string
	index   map[string]int
	linkage [][]float64
}

// buildCooccurrence counts, per session, every pair of distinct topics
// observed together, then normalizes the full matrix by its maximum cell.
func buildCooccurrence(signals []domain.CuriositySignal) *cooccurrence {
	topicSet := make(map[string]struct{})
	sessions := make(map[string]map[string]struct{})
	for _, s := range signals {
		if s.Topic == "" {
			continue
		}
		topicSet[s.Topic] = struct{}{}
		if s.SessionID == "" {
			continue
		}
		if sessions[s.SessionID] == nil {
			sessions[s.SessionID] = make(map[string]struct{})
		}
		sessions[s.SessionID][s.Topic] = struct{}{}
	}

	topics := make([]string, 0, len(topicSet))
	for t := range topicSet {
		topics = append(topics, t)
	}
	sort.Strings(topics)

	index := make(map[string]int, len(topics))
	for i, t := range topics {
		index[t] = i
	}

	counts := make([][]float64, len(topics))
	for i := range counts {
		counts[i] = make([]float64, len(topics))
	}
	for _, sessionTopics := range sessions {
		list := make([]string, 0, len(sessionTopics))
		for t := range sessionTopics {
			list = append(list, t)
		}
		sort.Strings(list)
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				a, b := index[list[i]], index[list[j]]
				counts[a][b]++
				counts[b][a]++
			}
		}
	}

	var max float64
	for i := range counts {
		for j := range counts[i] {
			if counts[i][j] > max {
				max = counts[i][j]
			}
		}
	}
	if max > 0 {
		for i := range counts {
			for j := range counts[i] {
				counts[i][j] /= max
			}
		}
	}

	return &cooccurrence{topics: topics, index: index, linkage: counts}
}

// averageLinkage is the mean pairwise linkage across two topic groups.
func (c *cooccurrence) averageLinkage(a, b []int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var sum float64
	for _, i := range a {
		for _, j := range b {
			sum += c.linkage[i][j]
		}
	}
	return sum / float64(len(a)*len(b))
}

// cohesion is the mean intra-group pairwise linkage. A singleton is trivially
// cohesive.
func (c *cooccurrence) cohesion(group []int) float64 {
	if len(group) < 2 {
		return 1
	}
	var sum float64
	var pairs int
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			sum += c.linkage[group[i]][group[j]]
			pairs++
		}
	}
	return sum / float64(pairs)
}

// agglomerate merges the two clusters with the highest average linkage while
// that value clears the merge threshold. Two topics that never co-occur can
// only end up together through intermediate neighbours, never directly.
func (c *cooccurrence) agglomerate(threshold float64) [][]int {
	clusters := make([][]int, len(c.topics))
	for i := range c.topics {
		clusters[i] = []int{i}
	}

	for len(clusters) > 1 {
		bestA, bestB := -1, -1
		best := 0.0
		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				if l := c.averageLinkage(clusters[i], clusters[j]); l > best {
					best = l
					bestA, bestB = i, j
				}
			}
		}
		if bestA < 0 || best < threshold {
			break
		}
		merged := append(append([]int{}, clusters[bestA]...), clusters[bestB]...)
		sort.Ints(merged)
		next := make([][]int, 0, len(clusters)-1)
		for i, cl := range clusters {
			if i != bestA && i != bestB {
				next = append(next, cl)
			}
		}
		clusters = append(next, merged)
	}

	sort.Slice(clusters, func(i, j int) bool { return clusters[i][0] < clusters[j][0] })
	return clusters
}

// interestClusters runs the full pipeline: co-occurrence graph, agglomerative
// clustering, then per-cluster reporting against the signal set.
func interestClusters(signals []domain.CuriositySignal, now time.Time, cfg domain.CuriosityConfig) []domain.InterestCluster {
	co := buildCooccurrence(signals)
	if len(co.topics) == 0 {
		return nil
	}
	groups := co.agglomerate(cfg.MergeThreshold)

	byTopic := make(map[string][]domain.CuriositySignal)
	for _, s := range signals {
		byTopic[s.Topic] = append(byTopic[s.Topic], s)
	}

	emergingCutoff := now.Add(-cfg.EmergingWindow)
	out := make([]domain.InterestCluster, 0, len(groups))
	for _, group := range groups {
		topics := make([]string, 0, len(group))
		for _, idx := range group {
			topics = append(topics, co.topics[idx])
		}

		domainSet := make(map[string]struct{})
		var total, recent int
		var last time.Time
		for _, t := range topics {
			for _, s := range byTopic[t] {
				total++
				if s.RecordedAt.After(emergingCutoff) {
					recent++
				}
				if s.Domain != "" {
					domainSet[s.Domain] = struct{}{}
				}
				if s.RecordedAt.After(last) {
					last = s.RecordedAt
				}
			}
		}

		domains := make([]string, 0, len(domainSet))
		for d := range domainSet {
			domains = append(domains, d)
		}
		sort.Strings(domains)

		emergingScore := 0.0
		if total > 0 {
			emergingScore = float64(recent) / float64(total)
		}

		out = append(out, domain.InterestCluster{
			Name:          clusterName(topics, byTopic),
			Topics:        topics,
			Strength:      co.cohesion(group),
			SignalCount:   total,
			Domains:       domains,
			LastActivity:  last,
			EmergingScore: emergingScore,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SignalCount != out[j].SignalCount {
			return out[i].SignalCount > out[j].SignalCount
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// clusterName is the member topic with the most signals; first alphabetically
// on ties.
func clusterName(topics []string, byTopic map[string][]domain.CuriositySignal) string {
	name := topics[0]
	best := len(byTopic[name])
	for _, t := range topics[1:] {
		if n := len(byTopic[t]); n > best {
			name, best = t, n
		}
	}
	return name
}

// emergingInterests flags topics whose recent signal rate is accelerating
// past the configured threshold relative to their own history.
func emergingInterests(signals []domain.CuriositySignal, now time.Time, cfg domain.CuriosityConfig) []domain.EmergingInterest {
	byTopic := make(map[string][]domain.CuriositySignal)
	for _, s := range signals {
		if s.Topic != "" {
			byTopic[s.Topic] = append(byTopic[s.Topic], s)
		}
	}

	topics := make([]string, 0, len(byTopic))
	for t := range byTopic {
		topics = append(topics, t)
	}
	sort.Strings(topics)

	day := 24 * time.Hour
	var out []domain.EmergingInterest
	for _, topic := range topics {
		topicSignals := byTopic[topic]

		var recentCount, historicalCount int
		trend := make([]int, 7)
		firstSeen := topicSignals[0].RecordedAt
		for _, s := range topicSignals {
			age := now.Sub(s.RecordedAt)
			if age < 0 {
				age = 0
			}
			daysAgo := int(age / day)
			if daysAgo < 3 {
				recentCount++
			} else if daysAgo < 6 {
				historicalCount++
			}
			if daysAgo < 7 {
				// trend[0] is the oldest day in the window.
				trend[6-daysAgo]++
			}
			if s.RecordedAt.Before(firstSeen) {
				firstSeen = s.RecordedAt
			}
		}

		recentRate := float64(recentCount) / 3
		historicalRate := float64(historicalCount) / 3
		if historicalRate < cfg.HistoricalRateFloor {
			historicalRate = cfg.HistoricalRateFloor
		}
		acceleration := recentRate / historicalRate
		if acceleration <= cfg.AccelerationThreshold {
			continue
		}

		confidence := float64(recentCount) / float64(cfg.ConfidenceSaturation)
		if confidence > 1 {
			confidence = 1
		}

		out = append(out, domain.EmergingInterest{
			Topic:        topic,
			Acceleration: acceleration,
			DailyTrend:   trend,
			Confidence:   confidence,
			FirstSeen:    firstSeen,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Acceleration != out[j].Acceleration {
			return out[i].Acceleration > out[j].Acceleration
		}
		return out[i].Topic < out[j].Topic
	})
	return out
}
