package domain

import (
	"time"

	"github.com/google/uuid"
)

// CuriositySignalType classifies an observed interest event.
type CuriositySignalType string

const (
	CuriosityVoluntaryExploration CuriositySignalType = "voluntary_exploration"
	CuriosityQuestionAsking       CuriositySignalType = "question_asking"
	CuriosityTopicDeepDive        CuriositySignalType = "topic_deep_dive"
	CuriosityReturnVisit          CuriositySignalType = "return_visit"
	CuriosityContentSharing       CuriositySignalType = "content_sharing"
	CuriosityTangentialPursuit    CuriositySignalType = "tangential_pursuit"
	CuriosityDwellAnomaly         CuriositySignalType = "dwell_anomaly"
)

var CuriositySignalTypes = []CuriositySignalType{
	CuriosityVoluntaryExploration, CuriosityQuestionAsking, CuriosityTopicDeepDive,
	CuriosityReturnVisit, CuriosityContentSharing, CuriosityTangentialPursuit,
	CuriosityDwellAnomaly,
}

func (t CuriositySignalType) Valid() bool {
	for _, s := range CuriositySignalTypes {
		if t == s {
			return true
		}
	}
	return false
}

// CuriositySignal is one observed interest event. Append-only.
type CuriositySignal struct {
	ID         uuid.UUID           `json:"id"`
	TenantID   uuid.UUID           `json:"tenant_id"`
	LearnerID  uuid.UUID           `json:"learner_id"`
	Type       CuriositySignalType `json:"type"`
	Topic      string              `json:"topic"`
	Domain     string              `json:"domain,omitempty"`
	Strength   float64             `json:"strength"`
	SessionID  string              `json:"session_id"`
	ContentID  string              `json:"content_id,omitempty"`
	RecordedAt time.Time           `json:"recorded_at"`
}

// InterestCluster is a group of co-occurring topics. Recomputed wholesale on
// each profile refresh; no identity across refreshes.
type InterestCluster struct {
	Name          string    `json:"name"`
	Topics        []string  `json:"topics"`
	Strength      float64   `json:"strength"`
	SignalCount   int       `json:"signal_count"`
	Domains       []string  `json:"domains,omitempty"`
	LastActivity  time.Time `json:"last_activity"`
	EmergingScore float64   `json:"emerging_score"`
}

// EmergingInterest is a topic whose recent signal rate is accelerating.
type EmergingInterest struct {
	Topic        string    `json:"topic"`
	Acceleration float64   `json:"acceleration"`
	DailyTrend   []int     `json:"daily_trend"`
	Confidence   float64   `json:"confidence"`
	FirstSeen    time.Time `json:"first_seen"`
}

// CuriosityComponents are the five 0-100 inputs to the composite score.
type CuriosityComponents struct {
	SignalCount       float64 `json:"signal_count"`
	Breadth           float64 `json:"breadth"`
	Depth             float64 `json:"depth"`
	QuestionFrequency float64 `json:"question_frequency"`
	ExplorationRate   float64 `json:"exploration_rate"`
}

// CuriosityProfile is the cached derived interest summary. A persisted cache,
// not a source of truth.
type CuriosityProfile struct {
	TenantID         uuid.UUID           `json:"tenant_id"`
	LearnerID        uuid.UUID           `json:"learner_id"`
	OverallScore     int                 `json:"overall_score"`
	Components       CuriosityComponents `json:"components"`
	Clusters         []InterestCluster   `json:"clusters"`
	EmergingInterests []EmergingInterest `json:"emerging_interests"`
	RecentSignals    []CuriositySignal   `json:"recent_signals,omitempty"`
	LastUpdated      time.Time           `json:"last_updated"`
}

// Fresh reports whether the profile is within its TTL at the given instant.
func (p *CuriosityProfile) Fresh(now time.Time, ttl time.Duration) bool {
	return p != nil && now.Sub(p.LastUpdated) <= ttl
}

// Topics returns the distinct topics across recent signals and clusters.
func (p *CuriosityProfile) TopicSet() map[string]struct{} {
	set := make(map[string]struct{})
	if p == nil {
		return set
	}
	for _, c := range p.Clusters {
		for _, t := range c.Topics {
			set[t] = struct{}{}
		}
	}
	for _, s := range p.RecentSignals {
		set[s.Topic] = struct{}{}
	}
	return set
}

// DomainSet returns the distinct domains across clusters and recent signals.
func (p *CuriosityProfile) DomainSet() map[string]struct{} {
	set := make(map[string]struct{})
	if p == nil {
		return set
	}
	for _, c := range p.Clusters {
		for _, d := range c.Domains {
			set[d] = struct{}{}
		}
	}
	for _, s := range p.RecentSignals {
		if s.Domain != "" {
			set[s.Domain] = struct{}{}
		}
	}
	return set
}

// ContentSuggestion is a peer-informed content recommendation.
type ContentSuggestion struct {
	ContentID string   `json:"content_id"`
	Topics    []string `json:"topics,omitempty"`
	Domains   []string `json:"domains,omitempty"`
	Relevance float64  `json:"relevance"`
	PeerCount int      `json:"peer_count"`
	Reasoning string   `json:"reasoning"`
}

// CuriosityTrigger is content associated with curiosity-indicative peer
// activity, ranked for the learner.
type CuriosityTrigger struct {
	ContentID   string   `json:"content_id"`
	Topics      []string `json:"topics,omitempty"`
	Score       float64  `json:"score"`
	SignalCount int      `json:"signal_count"`
	Reasoning   string   `json:"reasoning"`
}

// SuggestionWeights blend the content-suggestion relevance terms. Tunable
// defaults, not derived constants.
type SuggestionWeights struct {
	Alignment       float64
	PeerPopularity  float64
	CrossCurricular float64
	Novelty         float64
}

// TriggerWeights blend the curiosity-trigger score terms.
type TriggerWeights struct {
	SignalCount  float64
	TopicOverlap float64
}

// CuriosityConfig carries the curiosity engine's tunables.
type CuriosityConfig struct {
	ProfileTTL      time.Duration
	SignalWindow    time.Duration
	EmergingWindow  time.Duration
	RecentWindow    time.Duration
	DefaultStrength float64

	// Clustering.
	MergeThreshold float64

	// Emerging-interest detection.
	AccelerationThreshold float64
	HistoricalRateFloor   float64
	ConfidenceSaturation  int

	SuggestionWeights SuggestionWeights
	TriggerWeights    TriggerWeights

	MaxRecentSignals int
	MaxSuggestions   int
	MaxTriggers      int
}

func DefaultCuriosityConfig() CuriosityConfig {
	return CuriosityConfig{
		ProfileTTL:      5 * time.Minute,
		SignalWindow:    30 * 24 * time.Hour,
		EmergingWindow:  7 * 24 * time.Hour,
		RecentWindow:    3 * 24 * time.Hour,
		DefaultStrength: 0.5,

		MergeThreshold: 0.3,

		AccelerationThreshold: 2.0,
		HistoricalRateFloor:   0.1,
		ConfidenceSaturation:  10,

		SuggestionWeights: SuggestionWeights{
			Alignment:       0.45,
			PeerPopularity:  0.25,
			CrossCurricular: 0.15,
			Novelty:         0.15,
		},
		TriggerWeights: TriggerWeights{
			SignalCount:  0.6,
			TopicOverlap: 0.4,
		},

		MaxRecentSignals: 20,
		MaxSuggestions:   10,
		MaxTriggers:      10,
	}
}
