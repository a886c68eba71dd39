package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/goldenpath-ai/adaptive-core/internal/service"
)

type CuriosityHandler struct {
	svc *service.CuriosityService
}

func NewCuriosityHandler(svc *service.CuriosityService) *CuriosityHandler {
	return &CuriosityHandler{svc: svc}
}

func (h *CuriosityHandler) RecordSignal(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	var sig domain.CuriositySignal
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sig.TenantID = tid
	sig.LearnerID = lid

	if err := h.svc.RecordSignal(r.Context(), &sig); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sig)
}

func (h *CuriosityHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	profile, err := h.svc.GetCuriosityProfile(r.Context(), tid, lid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *CuriosityHandler) GetClusters(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	clusters, err := h.svc.GetInterestClusters(r.Context(), tid, lid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clusters": clusters})
}

func (h *CuriosityHandler) GetEmerging(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	emerging, err := h.svc.DetectEmergingInterests(r.Context(), tid, lid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"emerging_interests": emerging})
}

func (h *CuriosityHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	score, components, err := h.svc.GetCuriosityScore(r.Context(), tid, lid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"score":      score,
		"components": components,
	})
}

func (h *CuriosityHandler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	suggestions, err := h.svc.GetContentSuggestions(r.Context(), tid, lid, queryLimit(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (h *CuriosityHandler) GetTriggers(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	triggers, err := h.svc.FindCuriosityTriggers(r.Context(), tid, lid, queryLimit(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"triggers": triggers})
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}
