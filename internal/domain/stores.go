package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// The engines are stateless: every operation fetches its own snapshot through
// these interfaces and performs a pure computation over it. The pgx-backed
// implementations live in internal/store; tests substitute in-memory mocks.

type TenantStore interface {
	Create(ctx context.Context, t *Tenant) error
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*Tenant, error)
}

// ProfileStore persists per-learner adaptation profiles, including BKT
// competency states. Profiles are append/merge only.
type ProfileStore interface {
	Get(ctx context.Context, tenantID, learnerID uuid.UUID) (*AdaptationProfile, error)
	Upsert(ctx context.Context, p *AdaptationProfile) error
}

// SignalStore persists immutable adaptation signals.
type SignalStore interface {
	CreateBatch(ctx context.Context, signals []AdaptationSignal) error
	GetByTimeRange(ctx context.Context, tenantID, learnerID uuid.UUID, start, end time.Time) ([]AdaptationSignal, error)
	GetBySession(ctx context.Context, tenantID, learnerID uuid.UUID, sessionID string) ([]AdaptationSignal, error)
}

type RuleStore interface {
	Create(ctx context.Context, r *AdaptationRule) error
	Update(ctx context.Context, r *AdaptationRule) error
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (*AdaptationRule, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]AdaptationRule, error)
}

// CuriositySignalStore persists append-only interest events. Peer queries
// exclude the given learner and stay within the tenant.
type CuriositySignalStore interface {
	Create(ctx context.Context, s *CuriositySignal) error
	GetByLearnerSince(ctx context.Context, tenantID, learnerID uuid.UUID, since time.Time) ([]CuriositySignal, error)
	GetPeerSignalsSince(ctx context.Context, tenantID, excludeLearnerID uuid.UUID, since time.Time) ([]CuriositySignal, error)
}

// CuriosityProfileCache stores derived curiosity profiles. It is a cache, not
// a source of truth: staleness is resolved by recomputation, not locking.
type CuriosityProfileCache interface {
	Get(ctx context.Context, tenantID, learnerID uuid.UUID) (*CuriosityProfile, error)
	Put(ctx context.Context, p *CuriosityProfile) error
}

type ObjectiveWeightsStore interface {
	Get(ctx context.Context, tenantID, learnerID uuid.UUID) (*ObjectiveWeights, error)
	Put(ctx context.Context, tenantID, learnerID uuid.UUID, w ObjectiveWeights) error
}

type OptimizationEventStore interface {
	Create(ctx context.Context, e *OptimizationEvent) error
	ListByLearner(ctx context.Context, tenantID, learnerID uuid.UUID, limit int) ([]OptimizationEvent, error)
}

// CandidateFilter narrows catalogue listings before constraint filtering.
type CandidateFilter struct {
	Domains       []string
	MaxDifficulty int
	Limit         int
}

// ContentCatalog exposes candidate-step metadata. The catalogue itself is an
// external collaborator; only this read surface is assumed.
type ContentCatalog interface {
	ListCandidates(ctx context.Context, tenantID uuid.UUID, filter CandidateFilter) ([]CandidateStep, error)
}
