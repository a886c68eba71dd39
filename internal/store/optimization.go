package store

import (
	"context"
	"time"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OptimizationEventStore struct {
	db *pgxpool.Pool
}

func NewOptimizationEventStore(db *pgxpool.Pool) *OptimizationEventStore {
	return &OptimizationEventStore{db: db}
}

func (s *OptimizationEventStore) Create(ctx context.Context, e *domain.OptimizationEvent) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO optimization_events (id, tenant_id, learner_id, recommended_path, candidate_count, front_size, elapsed_ms, timed_out, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.TenantID, e.LearnerID, e.RecommendedPath, e.CandidateCount, e.FrontSize, e.Elapsed.Milliseconds(), e.TimedOut, e.CreatedAt,
	)
	return err
}

func (s *OptimizationEventStore) ListByLearner(ctx context.Context, tenantID, learnerID uuid.UUID, limit int) ([]domain.OptimizationEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, learner_id, recommended_path, candidate_count, front_size, elapsed_ms, timed_out, created_at
		 FROM optimization_events
		 WHERE tenant_id = $1 AND learner_id = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		tenantID, learnerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.OptimizationEvent
	for rows.Next() {
		var e domain.OptimizationEvent
		var elapsedMs int64
		if err := rows.Scan(&e.ID, &e.TenantID, &e.LearnerID, &e.RecommendedPath, &e.CandidateCount, &e.FrontSize, &elapsedMs, &e.TimedOut, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		events = append(events, e)
	}
	return events, rows.Err()
}
