package store

import (
	"context"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContentCatalog reads candidate-step metadata from the tenant's content
// table. The optimizer applies its own constraint filtering on top.
type ContentCatalog struct {
	db *pgxpool.Pool
}

func NewContentCatalog(db *pgxpool.Pool) *ContentCatalog {
	return &ContentCatalog{db: db}
}

func (s *ContentCatalog) ListCandidates(ctx context.Context, tenantID uuid.UUID, filter domain.CandidateFilter) ([]domain.CandidateStep, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	maxDifficulty := filter.MaxDifficulty
	if maxDifficulty <= 0 {
		maxDifficulty = 10
	}
	// A nil slice binds as SQL NULL; cardinality(NULL) is NULL, not 0.
	domains := filter.Domains
	if domains == nil {
		domains = []string{}
	}

	rows, err := s.db.Query(ctx,
		`SELECT content_id, competency_id, domain, difficulty, duration_minutes, prerequisites, topics
		 FROM content_catalog
		 WHERE tenant_id = $1
		   AND difficulty <= $2
		   AND (cardinality($3::text[]) = 0 OR domain = ANY($3::text[]))
		 ORDER BY content_id ASC
		 LIMIT $4`,
		tenantID, maxDifficulty, domains, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []domain.CandidateStep
	for rows.Next() {
		var c domain.CandidateStep
		if err := rows.Scan(&c.ContentID, &c.CompetencyID, &c.Domain, &c.Difficulty, &c.DurationMinutes, &c.Prerequisites, &c.Topics); err != nil {
			return nil, err
		}
		steps = append(steps, c)
	}
	return steps, rows.Err()
}
