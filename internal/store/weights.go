package store

import (
	"context"
	"errors"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ObjectiveWeightsStore struct {
	db *pgxpool.Pool
}

func NewObjectiveWeightsStore(db *pgxpool.Pool) *ObjectiveWeightsStore {
	return &ObjectiveWeightsStore{db: db}
}

// Get returns (nil, nil) when no weights are stored; callers fall back to
// defaults.
func (s *ObjectiveWeightsStore) Get(ctx context.Context, tenantID, learnerID uuid.UUID) (*domain.ObjectiveWeights, error) {
	w := &domain.ObjectiveWeights{}
	err := s.db.QueryRow(ctx,
		`SELECT mastery, engagement, efficiency, curiosity, well_being, breadth, depth
		 FROM objective_weights WHERE tenant_id = $1 AND learner_id = $2`,
		tenantID, learnerID,
	).Scan(&w.Mastery, &w.Engagement, &w.Efficiency, &w.Curiosity, &w.WellBeing, &w.Breadth, &w.Depth)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

func (s *ObjectiveWeightsStore) Put(ctx context.Context, tenantID, learnerID uuid.UUID, w domain.ObjectiveWeights) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO objective_weights (tenant_id, learner_id, mastery, engagement, efficiency, curiosity, well_being, breadth, depth, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		 ON CONFLICT (tenant_id, learner_id) DO UPDATE SET
		    mastery = EXCLUDED.mastery,
		    engagement = EXCLUDED.engagement,
		    efficiency = EXCLUDED.efficiency,
		    curiosity = EXCLUDED.curiosity,
		    well_being = EXCLUDED.well_being,
		    breadth = EXCLUDED.breadth,
		    depth = EXCLUDED.depth,
		    updated_at = now()`,
		tenantID, learnerID, w.Mastery, w.Engagement, w.Efficiency, w.Curiosity, w.WellBeing, w.Breadth, w.Depth,
	)
	return err
}
