package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/goldenpath-ai/adaptive-core/internal/service"
	"github.com/google/uuid"
)

type RulesHandler struct {
	svc *service.AdaptationService
}

func NewRulesHandler(svc *service.AdaptationService) *RulesHandler {
	return &RulesHandler{svc: svc}
}

func (h *RulesHandler) List(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	rules, err := h.svc.GetRules(r.Context(), tid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (h *RulesHandler) Create(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}

	var rule domain.AdaptationRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rule.TenantID = tid

	created, err := h.svc.CreateRule(r.Context(), &rule)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *RulesHandler) Update(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	var rule domain.AdaptationRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rule.ID = id
	rule.TenantID = tid

	updated, err := h.svc.UpdateRule(r.Context(), &rule)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
