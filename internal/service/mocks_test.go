package service

import (
	"context"
	"errors"
	"time"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

var (
	fixedNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	errBoom  = errors.New("boom")
)

func fixedClock() time.Time {
	return fixedNow
}

func learnerKey(tenantID, learnerID uuid.UUID) string {
	return tenantID.String() + "/" + learnerID.String()
}

type mockProfileStore struct {
	profiles map[string]*domain.AdaptationProfile
	getErr   error
	upserts  int
}

func newMockProfileStore() *mockProfileStore {
	return &mockProfileStore{profiles: make(map[string]*domain.AdaptationProfile)}
}

func (m *mockProfileStore) Get(_ context.Context, tenantID, learnerID uuid.UUID) (*domain.AdaptationProfile, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.profiles[learnerKey(tenantID, learnerID)], nil
}

func (m *mockProfileStore) Upsert(_ context.Context, p *domain.AdaptationProfile) error {
	m.upserts++
	m.profiles[learnerKey(p.TenantID, p.LearnerID)] = p
	return nil
}

type mockSignalStore struct {
	signals  []domain.AdaptationSignal
	batchErr error
}

func (m *mockSignalStore) CreateBatch(_ context.Context, signals []domain.AdaptationSignal) error {
	if m.batchErr != nil {
		return m.batchErr
	}
	m.signals = append(m.signals, signals...)
	return nil
}

func (m *mockSignalStore) GetByTimeRange(_ context.Context, tenantID, learnerID uuid.UUID, start, end time.Time) ([]domain.AdaptationSignal, error) {
	var out []domain.AdaptationSignal
	for _, s := range m.signals {
		if s.TenantID != tenantID || s.LearnerID != learnerID {
			continue
		}
		if s.RecordedAt.Before(start) || !s.RecordedAt.Before(end) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *mockSignalStore) GetBySession(_ context.Context, tenantID, learnerID uuid.UUID, sessionID string) ([]domain.AdaptationSignal, error) {
	var out []domain.AdaptationSignal
	for _, s := range m.signals {
		if s.TenantID == tenantID && s.LearnerID == learnerID && s.SessionID == sessionID {
			out = append(out, s)
		}
	}
	return out, nil
}

type mockRuleStore struct {
	rules   []domain.AdaptationRule
	listErr error
}

func (m *mockRuleStore) Create(_ context.Context, r *domain.AdaptationRule) error {
	m.rules = append(m.rules, *r)
	return nil
}

func (m *mockRuleStore) Update(_ context.Context, r *domain.AdaptationRule) error {
	for i := range m.rules {
		if m.rules[i].ID == r.ID {
			m.rules[i] = *r
			return nil
		}
	}
	return nil
}

func (m *mockRuleStore) GetByID(_ context.Context, id, tenantID uuid.UUID) (*domain.AdaptationRule, error) {
	for i := range m.rules {
		if m.rules[i].ID == id && m.rules[i].TenantID == tenantID {
			r := m.rules[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (m *mockRuleStore) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]domain.AdaptationRule, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.AdaptationRule
	for _, r := range m.rules {
		if r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockCuriositySignalStore struct {
	signals   []domain.CuriositySignal
	createErr error
	reads     int
}

func (m *mockCuriositySignalStore) Create(_ context.Context, s *domain.CuriositySignal) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.signals = append(m.signals, *s)
	return nil
}

func (m *mockCuriositySignalStore) GetByLearnerSince(_ context.Context, tenantID, learnerID uuid.UUID, since time.Time) ([]domain.CuriositySignal, error) {
	m.reads++
	var out []domain.CuriositySignal
	for _, s := range m.signals {
		if s.TenantID == tenantID && s.LearnerID == learnerID && !s.RecordedAt.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockCuriositySignalStore) GetPeerSignalsSince(_ context.Context, tenantID, excludeLearnerID uuid.UUID, since time.Time) ([]domain.CuriositySignal, error) {
	var out []domain.CuriositySignal
	for _, s := range m.signals {
		if s.TenantID == tenantID && s.LearnerID != excludeLearnerID && !s.RecordedAt.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

type mockCuriosityCache struct {
	profiles map[string]*domain.CuriosityProfile
	getErr   error
	putErr   error
	puts     int
}

func newMockCuriosityCache() *mockCuriosityCache {
	return &mockCuriosityCache{profiles: make(map[string]*domain.CuriosityProfile)}
}

func (m *mockCuriosityCache) Get(_ context.Context, tenantID, learnerID uuid.UUID) (*domain.CuriosityProfile, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.profiles[learnerKey(tenantID, learnerID)], nil
}

func (m *mockCuriosityCache) Put(_ context.Context, p *domain.CuriosityProfile) error {
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.profiles[learnerKey(p.TenantID, p.LearnerID)] = p
	return nil
}

type mockWeightsStore struct {
	weights map[string]*domain.ObjectiveWeights
	getErr  error
}

func newMockWeightsStore() *mockWeightsStore {
	return &mockWeightsStore{weights: make(map[string]*domain.ObjectiveWeights)}
}

func (m *mockWeightsStore) Get(_ context.Context, tenantID, learnerID uuid.UUID) (*domain.ObjectiveWeights, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.weights[learnerKey(tenantID, learnerID)], nil
}

func (m *mockWeightsStore) Put(_ context.Context, tenantID, learnerID uuid.UUID, w domain.ObjectiveWeights) error {
	m.weights[learnerKey(tenantID, learnerID)] = &w
	return nil
}

type mockEventStore struct {
	events []domain.OptimizationEvent
}

func (m *mockEventStore) Create(_ context.Context, e *domain.OptimizationEvent) error {
	m.events = append(m.events, *e)
	return nil
}

func (m *mockEventStore) ListByLearner(_ context.Context, tenantID, learnerID uuid.UUID, limit int) ([]domain.OptimizationEvent, error) {
	var out []domain.OptimizationEvent
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := m.events[i]
		if e.TenantID == tenantID && e.LearnerID == learnerID {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockCatalog struct {
	items   []domain.CandidateStep
	listErr error
}

func (m *mockCatalog) ListCandidates(_ context.Context, _ uuid.UUID, _ domain.CandidateFilter) ([]domain.CandidateStep, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.CandidateStep, len(m.items))
	copy(out, m.items)
	return out, nil
}

type mockCuriosityReader struct {
	profile *domain.CuriosityProfile
	err     error
}

func (m *mockCuriosityReader) GetCuriosityProfile(_ context.Context, _, _ uuid.UUID) (*domain.CuriosityProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.profile, nil
}

var (
	_ domain.ProfileStore           = (*mockProfileStore)(nil)
	_ domain.SignalStore            = (*mockSignalStore)(nil)
	_ domain.RuleStore              = (*mockRuleStore)(nil)
	_ domain.CuriositySignalStore   = (*mockCuriositySignalStore)(nil)
	_ domain.CuriosityProfileCache  = (*mockCuriosityCache)(nil)
	_ domain.ObjectiveWeightsStore  = (*mockWeightsStore)(nil)
	_ domain.OptimizationEventStore = (*mockEventStore)(nil)
	_ domain.ContentCatalog         = (*mockCatalog)(nil)
	_ CuriosityReader               = (*mockCuriosityReader)(nil)
)
