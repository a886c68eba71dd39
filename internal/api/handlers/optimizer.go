package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/goldenpath-ai/adaptive-core/internal/service"
)

type OptimizerHandler struct {
	svc     *service.OptimizerService
	timeout time.Duration
}

func NewOptimizerHandler(svc *service.OptimizerService, timeout time.Duration) *OptimizerHandler {
	return &OptimizerHandler{svc: svc, timeout: timeout}
}

type optimizeRequest struct {
	Constraints   domain.PathConstraints `json:"constraints"`
	Scalarization domain.Scalarization   `json:"scalarization,omitempty"`
}

func (h *OptimizerHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.svc.OptimizePath(ctx, tid, lid, req.Constraints, req.Scalarization)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type simulateRequest struct {
	Steps []domain.CandidateStep `json:"steps"`
}

func (h *OptimizerHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sim, err := h.svc.SimulatePath(r.Context(), tid, lid, req.Steps)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sim)
}

type compareRequest struct {
	PathA []domain.CandidateStep `json:"path_a"`
	PathB []domain.CandidateStep `json:"path_b"`
}

func (h *OptimizerHandler) Compare(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comparison, err := h.svc.ComparePaths(r.Context(), tid, lid, req.PathA, req.PathB)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}

func (h *OptimizerHandler) GetWeights(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	weights, err := h.svc.GetObjectiveWeights(r.Context(), tid, lid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weights)
}

func (h *OptimizerHandler) SetWeights(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	var weights domain.ObjectiveWeights
	if err := json.NewDecoder(r.Body).Decode(&weights); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stored, err := h.svc.SetObjectiveWeights(r.Context(), tid, lid, weights)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (h *OptimizerHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	events, err := h.svc.GetOptimizationHistory(r.Context(), tid, lid, queryLimit(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
