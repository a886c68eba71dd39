package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CuriositySignalStore struct {
	db *pgxpool.Pool
}

func NewCuriositySignalStore(db *pgxpool.Pool) *CuriositySignalStore {
	return &CuriositySignalStore{db: db}
}

func (s *CuriositySignalStore) Create(ctx context.Context, sig *domain.CuriositySignal) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO curiosity_signals (id, tenant_id, learner_id, type, topic, domain, strength, session_id, content_id, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sig.ID, sig.TenantID, sig.LearnerID, sig.Type, sig.Topic, sig.Domain, sig.Strength, sig.SessionID, sig.ContentID, sig.RecordedAt,
	)
	return err
}

func (s *CuriositySignalStore) GetByLearnerSince(ctx context.Context, tenantID, learnerID uuid.UUID, since time.Time) ([]domain.CuriositySignal, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, learner_id, type, topic, domain, strength, session_id, content_id, recorded_at
		 FROM curiosity_signals
		 WHERE tenant_id = $1 AND learner_id = $2 AND recorded_at >= $3
		 ORDER BY recorded_at ASC, id ASC`,
		tenantID, learnerID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCuriositySignals(rows)
}

// GetPeerSignalsSince returns signals from every other learner in the tenant.
func (s *CuriositySignalStore) GetPeerSignalsSince(ctx context.Context, tenantID, excludeLearnerID uuid.UUID, since time.Time) ([]domain.CuriositySignal, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, learner_id, type, topic, domain, strength, session_id, content_id, recorded_at
		 FROM curiosity_signals
		 WHERE tenant_id = $1 AND learner_id <> $2 AND recorded_at >= $3
		 ORDER BY recorded_at ASC, id ASC`,
		tenantID, excludeLearnerID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCuriositySignals(rows)
}

func scanCuriositySignals(rows pgx.Rows) ([]domain.CuriositySignal, error) {
	var signals []domain.CuriositySignal
	for rows.Next() {
		var sig domain.CuriositySignal
		if err := rows.Scan(&sig.ID, &sig.TenantID, &sig.LearnerID, &sig.Type, &sig.Topic, &sig.Domain, &sig.Strength, &sig.SessionID, &sig.ContentID, &sig.RecordedAt); err != nil {
			return nil, err
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// CuriosityProfileCache persists derived curiosity profiles as a single jsonb
// payload per learner. Stale entries are overwritten, never invalidated.
type CuriosityProfileCache struct {
	db *pgxpool.Pool
}

func NewCuriosityProfileCache(db *pgxpool.Pool) *CuriosityProfileCache {
	return &CuriosityProfileCache{db: db}
}

func (s *CuriosityProfileCache) Get(ctx context.Context, tenantID, learnerID uuid.UUID) (*domain.CuriosityProfile, error) {
	var payload []byte
	err := s.db.QueryRow(ctx,
		`SELECT profile FROM curiosity_profiles WHERE tenant_id = $1 AND learner_id = $2`,
		tenantID, learnerID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p := &domain.CuriosityProfile{}
	if err := json.Unmarshal(payload, p); err != nil {
		return nil, fmt.Errorf("decoding curiosity profile: %w", err)
	}
	return p, nil
}

func (s *CuriosityProfileCache) Put(ctx context.Context, p *domain.CuriosityProfile) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding curiosity profile: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO curiosity_profiles (tenant_id, learner_id, profile, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tenant_id, learner_id) DO UPDATE SET profile = EXCLUDED.profile, updated_at = EXCLUDED.updated_at`,
		p.TenantID, p.LearnerID, payload, p.LastUpdated,
	)
	return err
}
