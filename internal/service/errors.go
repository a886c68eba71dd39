package service

import "github.com/goldenpath-ai/adaptive-core/internal/domain"

// Sentinels for the failure taxonomy. All carry a domain.ErrorCode so the API
// layer can map them without knowing which engine produced them.
var (
	ErrProfileNotFound = domain.NewNotFoundError("adaptation profile not found")
	ErrRuleNotFound    = domain.NewNotFoundError("adaptation rule not found")
	ErrWeightsNotFound = domain.NewNotFoundError("objective weights not found")
	ErrNoFeasiblePath  = domain.NewNoFeasiblePathError("constraint set eliminates all candidate paths")
)
