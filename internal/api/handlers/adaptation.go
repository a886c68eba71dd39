package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goldenpath-ai/adaptive-core/internal/api/middleware"
	"github.com/goldenpath-ai/adaptive-core/internal/domain"
	"github.com/goldenpath-ai/adaptive-core/internal/service"
	"github.com/google/uuid"
)

type AdaptationHandler struct {
	svc *service.AdaptationService
}

func NewAdaptationHandler(svc *service.AdaptationService) *AdaptationHandler {
	return &AdaptationHandler{svc: svc}
}

func learnerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "learnerID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid learner id")
		return uuid.Nil, false
	}
	return id, true
}

func tenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	return tenant.ID, true
}

func (h *AdaptationHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	profile, err := h.svc.GetProfile(r.Context(), tid, lid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type recordSignalsRequest struct {
	Signals []domain.AdaptationSignal `json:"signals"`
}

func (h *AdaptationHandler) RecordSignals(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	var req recordSignalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.svc.UpdateWithSignals(r.Context(), tid, lid, req.Signals)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *AdaptationHandler) GetMastery(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	estimate, err := h.svc.GetMasteryEstimate(r.Context(), tid, lid, chi.URLParam(r, "competencyID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, estimate)
}

func (h *AdaptationHandler) GetZPD(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	zpd, err := h.svc.CalculateZPD(r.Context(), tid, lid, r.URL.Query().Get("domain"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, zpd)
}

func (h *AdaptationHandler) GetDifficulty(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	difficulty, err := h.svc.GetOptimalDifficulty(r.Context(), tid, lid, r.URL.Query().Get("domain"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"difficulty": difficulty})
}

func (h *AdaptationHandler) AssessFatigue(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	assessment, err := h.svc.AssessFatigue(r.Context(), tid, lid, r.URL.Query().Get("session_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

type decisionGateRequest struct {
	SessionID  string                 `json:"session_id,omitempty"`
	Candidates []domain.CandidateStep `json:"candidates"`
}

func (h *AdaptationHandler) EvaluateDecisionGate(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	var req decisionGateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.EvaluateDecisionGate(r.Context(), tid, lid, req.SessionID, req.Candidates)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AdaptationHandler) ScoreNextSteps(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	var req decisionGateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	scores, err := h.svc.ScoreNextSteps(r.Context(), tid, lid, req.Candidates)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scores": scores})
}

func (h *AdaptationHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	lid, ok := learnerID(w, r)
	if !ok {
		return
	}

	var start, end time.Time
	var err error
	if v := r.URL.Query().Get("start"); v != "" {
		if start, err = time.Parse(time.RFC3339, v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid start timestamp")
			return
		}
	}
	if v := r.URL.Query().Get("end"); v != "" {
		if end, err = time.Parse(time.RFC3339, v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid end timestamp")
			return
		}
	}

	signals, err := h.svc.GetAdaptationHistory(r.Context(), tid, lid, start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"signals": signals})
}
