package store

import (
	"context"
	"time"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SignalStore struct {
	db *pgxpool.Pool
}

func NewSignalStore(db *pgxpool.Pool) *SignalStore {
	return &SignalStore{db: db}
}

// CreateBatch inserts a validated signal batch in one round trip.
func (s *SignalStore) CreateBatch(ctx context.Context, signals []domain.AdaptationSignal) error {
	batch := &pgx.Batch{}
	for _, sig := range signals {
		batch.Queue(
			`INSERT INTO adaptation_signals (id, tenant_id, learner_id, type, value, competency_id, domain, content_id, session_id, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			sig.ID, sig.TenantID, sig.LearnerID, sig.Type, sig.Value, sig.CompetencyID, sig.Domain, sig.ContentID, sig.SessionID, sig.RecordedAt,
		)
	}
	results := s.db.SendBatch(ctx, batch)
	defer results.Close()
	for range signals {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (s *SignalStore) GetByTimeRange(ctx context.Context, tenantID, learnerID uuid.UUID, start, end time.Time) ([]domain.AdaptationSignal, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, learner_id, type, value, competency_id, domain, content_id, session_id, recorded_at
		 FROM adaptation_signals
		 WHERE tenant_id = $1 AND learner_id = $2 AND recorded_at >= $3 AND recorded_at < $4
		 ORDER BY recorded_at ASC, id ASC`,
		tenantID, learnerID, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSignals(rows)
}

func (s *SignalStore) GetBySession(ctx context.Context, tenantID, learnerID uuid.UUID, sessionID string) ([]domain.AdaptationSignal, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, learner_id, type, value, competency_id, domain, content_id, session_id, recorded_at
		 FROM adaptation_signals
		 WHERE tenant_id = $1 AND learner_id = $2 AND session_id = $3
		 ORDER BY recorded_at ASC, id ASC`,
		tenantID, learnerID, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSignals(rows)
}

func scanSignals(rows pgx.Rows) ([]domain.AdaptationSignal, error) {
	var signals []domain.AdaptationSignal
	for rows.Next() {
		var sig domain.AdaptationSignal
		if err := rows.Scan(&sig.ID, &sig.TenantID, &sig.LearnerID, &sig.Type, &sig.Value, &sig.CompetencyID, &sig.Domain, &sig.ContentID, &sig.SessionID, &sig.RecordedAt); err != nil {
			return nil, err
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}
