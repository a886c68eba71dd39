package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeDomainError maps the engine error taxonomy onto HTTP statuses. Unknown
// errors are masked as a generic 500.
func writeDomainError(w http.ResponseWriter, err error) {
	code := domain.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case domain.ErrValidation:
		status = http.StatusBadRequest
	case domain.ErrNotFound:
		status = http.StatusNotFound
	case domain.ErrNoFeasiblePath:
		status = http.StatusUnprocessableEntity
	case domain.ErrTimeout:
		status = http.StatusGatewayTimeout
	}
	msg := err.Error()
	if code == domain.ErrInternal {
		msg = "internal error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": string(code)})
}
