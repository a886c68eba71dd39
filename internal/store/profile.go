package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileStore struct {
	db *pgxpool.Pool
}

func NewProfileStore(db *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{db: db}
}

// Get returns the learner's adaptation profile, or (nil, nil) when none
// exists yet. First-signal creation is the service's job.
func (s *ProfileStore) Get(ctx context.Context, tenantID, learnerID uuid.UUID) (*domain.AdaptationProfile, error) {
	p := &domain.AdaptationProfile{}
	var competencies, ema []byte
	err := s.db.QueryRow(ctx,
		`SELECT tenant_id, learner_id, competencies, ema, current_difficulty, target_success_rate, sessions_observed, total_signals, created_at, updated_at
		 FROM adaptation_profiles WHERE tenant_id = $1 AND learner_id = $2`,
		tenantID, learnerID,
	).Scan(&p.TenantID, &p.LearnerID, &competencies, &ema, &p.CurrentDifficulty, &p.TargetSuccessRate, &p.SessionsObserved, &p.TotalSignals, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(competencies, &p.Competencies); err != nil {
		return nil, fmt.Errorf("decoding competencies: %w", err)
	}
	if err := json.Unmarshal(ema, &p.EMA); err != nil {
		return nil, fmt.Errorf("decoding ema: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) Upsert(ctx context.Context, p *domain.AdaptationProfile) error {
	competencies, err := json.Marshal(p.Competencies)
	if err != nil {
		return fmt.Errorf("encoding competencies: %w", err)
	}
	ema, err := json.Marshal(p.EMA)
	if err != nil {
		return fmt.Errorf("encoding ema: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO adaptation_profiles (tenant_id, learner_id, competencies, ema, current_difficulty, target_success_rate, sessions_observed, total_signals, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (tenant_id, learner_id) DO UPDATE SET
		    competencies = EXCLUDED.competencies,
		    ema = EXCLUDED.ema,
		    current_difficulty = EXCLUDED.current_difficulty,
		    target_success_rate = EXCLUDED.target_success_rate,
		    sessions_observed = EXCLUDED.sessions_observed,
		    total_signals = EXCLUDED.total_signals,
		    updated_at = EXCLUDED.updated_at`,
		p.TenantID, p.LearnerID, competencies, ema, p.CurrentDifficulty, p.TargetSuccessRate, p.SessionsObserved, p.TotalSignals, p.CreatedAt, p.UpdatedAt,
	)
	return err
}
