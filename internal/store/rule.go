package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RuleStore struct {
	db *pgxpool.Pool
}

func NewRuleStore(db *pgxpool.Pool) *RuleStore {
	return &RuleStore{db: db}
}

func (s *RuleStore) Create(ctx context.Context, r *domain.AdaptationRule) error {
	conditions, action, err := encodeRule(r)
	if err != nil {
		return err
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO adaptation_rules (id, tenant_id, name, scope, scope_key, priority, logic, conditions, action, enabled)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at, updated_at`,
		r.ID, r.TenantID, r.Name, r.Scope, r.ScopeKey, r.Priority, r.Logic, conditions, action, r.Enabled,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
}

func (s *RuleStore) Update(ctx context.Context, r *domain.AdaptationRule) error {
	conditions, action, err := encodeRule(r)
	if err != nil {
		return err
	}
	return s.db.QueryRow(ctx,
		`UPDATE adaptation_rules
		 SET name = $3, scope = $4, scope_key = $5, priority = $6, logic = $7, conditions = $8, action = $9, enabled = $10, updated_at = now()
		 WHERE id = $1 AND tenant_id = $2
		 RETURNING updated_at`,
		r.ID, r.TenantID, r.Name, r.Scope, r.ScopeKey, r.Priority, r.Logic, conditions, action, r.Enabled,
	).Scan(&r.UpdatedAt)
}

// GetByID returns (nil, nil) when the rule does not exist for the tenant.
func (s *RuleStore) GetByID(ctx context.Context, id, tenantID uuid.UUID) (*domain.AdaptationRule, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, name, scope, scope_key, priority, logic, conditions, action, enabled, created_at, updated_at
		 FROM adaptation_rules WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules, err := scanRules(rows)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}
	return &rules[0], nil
}

func (s *RuleStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.AdaptationRule, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, name, scope, scope_key, priority, logic, conditions, action, enabled, created_at, updated_at
		 FROM adaptation_rules WHERE tenant_id = $1
		 ORDER BY priority DESC, created_at ASC`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func encodeRule(r *domain.AdaptationRule) ([]byte, []byte, error) {
	conditions, err := json.Marshal(r.Conditions)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding conditions: %w", err)
	}
	action, err := json.Marshal(r.Action)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding action: %w", err)
	}
	return conditions, action, nil
}

func scanRules(rows pgx.Rows) ([]domain.AdaptationRule, error) {
	var rules []domain.AdaptationRule
	for rows.Next() {
		var r domain.AdaptationRule
		var conditions, action []byte
		if err := rows.Scan(&r.ID, &r.TenantID, &r.Name, &r.Scope, &r.ScopeKey, &r.Priority, &r.Logic, &conditions, &action, &r.Enabled, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(conditions, &r.Conditions); err != nil {
			return nil, fmt.Errorf("decoding conditions: %w", err)
		}
		if err := json.Unmarshal(action, &r.Action); err != nil {
			return nil, fmt.Errorf("decoding action: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}
