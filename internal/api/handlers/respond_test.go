package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goldenpath-ai/adaptive-core/internal/domain"
)

func TestWriteDomainErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", domain.NewValidationError("bad input"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", domain.NewNotFoundError("no such profile"), http.StatusNotFound, "NOT_FOUND"},
		{"no feasible path", domain.NewNoFeasiblePathError("constraints too tight"), http.StatusUnprocessableEntity, "NO_FEASIBLE_PATH"},
		{"timeout", domain.NewTimeoutError("budget exhausted"), http.StatusGatewayTimeout, "COMPUTATION_TIMEOUT"},
		{"internal", domain.NewInternalError("querying profiles", errors.New("boom")), http.StatusInternalServerError, "INTERNAL"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, c.err)

			if rec.Code != c.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, c.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("content type = %q", ct)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if body["code"] != c.wantCode {
				t.Fatalf("code = %q, want %q", body["code"], c.wantCode)
			}
			if body["error"] == "" {
				t.Fatal("error message missing")
			}
		})
	}
}

func TestWriteDomainErrorMasksInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, domain.NewInternalError("querying profiles", errors.New("pq: connection refused")))

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["error"] != "internal error" {
		t.Fatalf("error = %q, internal detail must not leak", body["error"])
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, map[string]int{"n": 7})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["n"] != 7 {
		t.Fatalf("body = %v", body)
	}
}
